// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/generate"
	"github.com/jllopis/colloquy/pkg/llm"
	"github.com/jllopis/colloquy/pkg/resilience"
	"github.com/jllopis/colloquy/pkg/telemetry"
)

// Validate rejects settings the rest of the program cannot run with.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	g := c.Generation
	check(oneOf(g.Mode, "mock", "live"), "generation.mode %q is not mock or live", g.Mode)
	check(g.Timeout > 0, "generation.timeout must be positive")
	check(g.Samples >= 1, "generation.samples must be at least 1")
	check(g.Concurrency >= 1, "generation.concurrency must be at least 1")
	check(g.Retry.MaxAttempts >= 1, "generation.retry.max_attempts must be at least 1")
	check(g.Retry.InitialDelay >= 0 && g.Retry.MaxDelay >= g.Retry.InitialDelay,
		"generation.retry delays must satisfy 0 <= initial_delay <= max_delay")
	check(g.Retry.Multiplier >= 1, "generation.retry.multiplier must be at least 1")
	check(g.Retry.Jitter >= 0 && g.Retry.Jitter <= 1, "generation.retry.jitter must be within [0, 1]")
	check(g.Breaker.FailureThreshold >= 1, "generation.breaker.failure_threshold must be at least 1")

	check(oneOf(c.LLM.Provider, "openai", "ollama", "gemini"), "llm.provider %q is not openai, ollama or gemini", c.LLM.Provider)
	check(c.LLM.Temperature >= 0 && c.LLM.Temperature <= 2, "llm.temperature must be within [0, 2]")
	check(c.LLM.ModeratorTemperature >= 0 && c.LLM.ModeratorTemperature <= 2, "llm.moderator_temperature must be within [0, 2]")

	check(oneOf(c.Archive.Driver, "none", "jsonl", "sqlite"), "archive.driver %q is not none, jsonl or sqlite", c.Archive.Driver)
	check(oneOf(c.Log.Format, "text", "json"), "log.format %q is not text or json", c.Log.Format)
	check(oneOf(c.Telemetry.Exporter, "none", "stdout", "otlp"), "telemetry.exporter %q is not none, stdout or otlp", c.Telemetry.Exporter)
	check(c.Telemetry.Exporter != "otlp" || c.Telemetry.OTLPEndpoint != "", "telemetry.otlp_endpoint is required for the otlp exporter")

	if len(problems) > 0 {
		return errors.NewConfigurationError("invalid configuration", nil).
			WithContext("problems", strings.Join(problems, "; "))
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// RetryConfig returns the retry policy for generation.
func (c *Config) RetryConfig() resilience.RetryConfig {
	r := c.Generation.Retry
	rc := resilience.DefaultRetryConfig().
		WithMaxAttempts(r.MaxAttempts).
		WithInitialDelay(r.InitialDelay).
		WithMaxDelay(r.MaxDelay)
	rc.Multiplier = r.Multiplier
	rc.Jitter = r.Jitter
	return rc
}

// GenerateConfig returns the settings for generate.New.
func (c *Config) GenerateConfig() generate.Config {
	b := c.Generation.Breaker
	return generate.Config{
		Mode:                 generate.Mode(strings.ToLower(c.Generation.Mode)),
		Model:                c.LLM.Model,
		Temperature:          c.LLM.Temperature,
		ModeratorTemperature: c.LLM.ModeratorTemperature,
		Timeout:              c.Generation.Timeout,
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: b.FailureThreshold,
			SuccessThreshold: b.SuccessThreshold,
			Timeout:          b.Timeout,
		},
	}
}

// LLMOptions returns the settings for llm.New.
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		Provider: c.LLM.Provider,
		Model:    c.LLM.Model,
		BaseURL:  c.LLM.BaseURL,
		APIKey:   c.LLM.APIKey,
	}
}

// TelemetryConfig returns the settings for telemetry.InitWithConfig.
func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Exporter:     c.Telemetry.Exporter,
		OTLPEndpoint: c.Telemetry.OTLPEndpoint,
		OTLPInsecure: c.Telemetry.OTLPInsecure,
		OTLPHeaders:  c.Telemetry.OTLPHeaders,
	}
}
