// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jllopis/colloquy/pkg/core"
)

func TestInitNone(t *testing.T) {
	shutdown, err := InitWithConfig("colloquy-test", "v0.0.1", Config{Exporter: "none"})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitWithConfig("colloquy-test", "v0.0.1", Config{Exporter: "stdout", Writer: &buf})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	_, span := otel.Tracer(InstrumentationName).Start(context.Background(), "collab.session")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
	if !strings.Contains(buf.String(), "collab.session") {
		t.Errorf("expected exported span in writer output")
	}
}

func TestInitErrors(t *testing.T) {
	if _, err := InitWithConfig("x", "v", Config{Exporter: "carrier-pigeon"}); err == nil {
		t.Errorf("expected unknown exporter error")
	}
	if _, err := InitWithConfig("x", "v", Config{Exporter: "otlp"}); err == nil {
		t.Errorf("expected error without otlp endpoint")
	}
}

func TestLoggerAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "turn")
	logger.InfoContext(ctx, "turn completed", "participant", "analyst")
	span.End()

	out := buf.String()
	if !strings.Contains(out, `"trace_id"`) || !strings.Contains(out, `"span_id"`) {
		t.Fatalf("expected trace ids in %s", out)
	}
	if !strings.Contains(out, span.SpanContext().TraceID().String()) {
		t.Fatalf("expected active trace id in %s", out)
	}
}

func TestLoggerLevelAndDiscard(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
	Discard().Error("dropped")

	tests := map[string]string{"debug": "DEBUG", "WARNING": "WARN", "error": "ERROR", "bogus": "INFO"}
	for in, want := range tests {
		if got := ParseLogLevel(in).String(); got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLoggerStampsSessionID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "json")
	ctx := core.WithSessionID(context.Background(), "session-42")

	logger.InfoContext(ctx, "collab.turn.completed")
	if got := strings.Count(buf.String(), `"session_id":"session-42"`); got != 1 {
		t.Fatalf("expected session id from context once, got %d in %s", got, buf.String())
	}

	buf.Reset()
	logger.With(slog.String("session_id", "session-42")).InfoContext(ctx, "collab.session.completed")
	if got := strings.Count(buf.String(), `"session_id"`); got != 1 {
		t.Fatalf("session id already bound must not repeat, got %d in %s", got, buf.String())
	}

	buf.Reset()
	logger.Info("no session")
	if strings.Contains(buf.String(), "session_id") {
		t.Fatalf("unexpected session id in %s", buf.String())
	}
}

func TestConfigureSlogSetsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "text")
	slog.Info("via default")
	if slog.Default() != logger || !strings.Contains(buf.String(), "via default") {
		t.Fatalf("expected configured logger as default, got %q", buf.String())
	}
}
