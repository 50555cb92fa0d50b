// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads colloquy settings from defaults, a YAML file, the
// environment and command line overrides, in increasing precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jllopis/colloquy/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by Load. The first
// underscore after the prefix separates the section, a double underscore
// separates deeper levels: COLLOQUY_GENERATION_RETRY__MAX_ATTEMPTS.
const EnvPrefix = "COLLOQUY_"

type Config struct {
	Log        LogConfig        `koanf:"log"`
	Generation GenerationConfig `koanf:"generation"`
	LLM        LLMConfig        `koanf:"llm"`
	Personas   PersonasConfig   `koanf:"personas"`
	Archive    ArchiveConfig    `koanf:"archive"`
	Server     ServerConfig     `koanf:"server"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type GenerationConfig struct {
	Mode        string        `koanf:"mode"` // mock, live
	Timeout     time.Duration `koanf:"timeout"`
	Samples     int           `koanf:"samples"`
	Concurrency int           `koanf:"concurrency"`
	Retry       RetryConfig   `koanf:"retry"`
	Breaker     BreakerConfig `koanf:"breaker"`
}

type RetryConfig struct {
	MaxAttempts  int           `koanf:"max_attempts"`
	InitialDelay time.Duration `koanf:"initial_delay"`
	MaxDelay     time.Duration `koanf:"max_delay"`
	Multiplier   float64       `koanf:"multiplier"`
	Jitter       float64       `koanf:"jitter"`
}

type BreakerConfig struct {
	FailureThreshold int           `koanf:"failure_threshold"`
	SuccessThreshold int           `koanf:"success_threshold"`
	Timeout          time.Duration `koanf:"timeout"`
}

type LLMConfig struct {
	Provider             string  `koanf:"provider"` // openai, ollama, gemini
	Model                string  `koanf:"model"`
	BaseURL              string  `koanf:"base_url"`
	APIKey               string  `koanf:"api_key"`
	Temperature          float64 `koanf:"temperature"`
	ModeratorTemperature float64 `koanf:"moderator_temperature"`
}

type PersonasConfig struct {
	// Path to a YAML registry. Empty selects the built-in personas.
	Path string `koanf:"path"`
}

type ArchiveConfig struct {
	Driver string `koanf:"driver"` // none, jsonl, sqlite
	Path   string `koanf:"path"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type TelemetryConfig struct {
	Exporter     string            `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint string            `koanf:"otlp_endpoint"`
	OTLPInsecure bool              `koanf:"otlp_insecure"`
	OTLPHeaders  map[string]string `koanf:"otlp_headers"`
}

// Options selects the sources Load reads.
type Options struct {
	// Path is the base YAML file. Empty skips file loading.
	Path string
	// Profile loads <base>.<profile>.yaml next to Path on top of it.
	Profile string
	// Overrides are key=value pairs applied last.
	Overrides []string
}

var defaults = map[string]any{
	"log.level":  "info",
	"log.format": "text",

	"generation.mode":                      "mock",
	"generation.timeout":                   "30s",
	"generation.samples":                   2,
	"generation.concurrency":               2,
	"generation.retry.max_attempts":        3,
	"generation.retry.initial_delay":       "250ms",
	"generation.retry.max_delay":           "5s",
	"generation.retry.multiplier":          2.0,
	"generation.retry.jitter":              0.1,
	"generation.breaker.failure_threshold": 5,
	"generation.breaker.success_threshold": 1,
	"generation.breaker.timeout":           "30s",

	"llm.provider":              "openai",
	"llm.model":                 "gpt-4o-mini",
	"llm.temperature":           0.7,
	"llm.moderator_temperature": 0.3,

	"archive.driver": "none",
	"archive.path":   "colloquy-sessions.db",

	"server.addr":             ":8000",
	"server.shutdown_timeout": "10s",

	"telemetry.exporter": "none",
}

// Load reads defaults, the file at path and the environment.
func Load(path string) (*Config, error) {
	return LoadWithOptions(Options{Path: path})
}

// LoadWithProfile loads the base file and then the profile file, if present.
func LoadWithProfile(path, profile string) (*Config, error) {
	return LoadWithOptions(Options{Path: path, Profile: profile})
}

// LoadWithOptions loads configuration from every source in opts. Each call
// uses a fresh koanf instance, so loads never leak into each other.
func LoadWithOptions(opts Options) (*Config, error) {
	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, errors.NewConfigurationError("set default "+key, err)
		}
	}

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, errors.NewConfigurationError("load config file", err).
				WithContext("path", opts.Path)
		}
		if p := profileConfigPath(opts.Path, opts.Profile); p != "" {
			if err := k.Load(file.Provider(p), yaml.Parser()); err != nil {
				return nil, errors.NewConfigurationError("load profile config", err).
					WithContext("path", p)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.NewConfigurationError("load environment", err)
	}

	for _, o := range opts.Overrides {
		key, value, err := parseOverride(o)
		if err != nil {
			return nil, err
		}
		if err := k.Set(key, value); err != nil {
			return nil, errors.NewConfigurationError("apply override "+key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.NewConfigurationError("decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps COLLOQUY_GENERATION_RETRY__MAX_ATTEMPTS to
// generation.retry.max_attempts.
func envKey(s string) string {
	parts := strings.Split(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__")
	parts[0] = strings.Replace(parts[0], "_", ".", 1)
	return strings.Join(parts, ".")
}

// parseOverride splits key=value. Values that look like JSON objects or
// arrays are decoded so whole maps can be set at once.
func parseOverride(s string) (string, any, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, errors.NewConfigurationError(fmt.Sprintf("invalid override %q, want key=value", s), nil)
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return "", nil, errors.NewConfigurationError("invalid JSON override for "+key, err)
		}
		return key, v, nil
	}
	return key, raw, nil
}

// profileConfigPath returns config.<profile>.yaml next to base when it exists.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(base)
	p := strings.TrimSuffix(base, ext) + "." + profile + ext
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}
