/*-------------------------------------------------------------------------
 *
 * log_context_test.go
 *    Structured logging context tests
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/metrics/log_context_test.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

/* TestLoggerFromContextFallsBackToGlobal tests that a context without
 * an attached logger uses the global logger instead of a disabled one */
func TestLoggerFromContextFallsBackToGlobal(t *testing.T) {
	InitLogging("debug", "json")

	logger := LoggerFromContext(context.Background())
	if logger.GetLevel() == zerolog.Disabled {
		t.Fatal("expected the global logger fallback, got a disabled logger")
	}
}

/* TestWarnWithContextWritesOutput tests that warnings reach the global
 * logger output with context fields attached */
func TestWarnWithContextWritesOutput(t *testing.T) {
	InitLogging("debug", "json")

	var buf bytes.Buffer
	original := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = original }()

	ctx := WithLogContext(context.Background(), "", "user-12345678", "", "", "conn-1")
	WarnWithContext(ctx, "guarded operation failed", map[string]interface{}{
		"operation": "store.run_query",
	})

	out := buf.String()
	if !strings.Contains(out, "guarded operation failed") {
		t.Fatalf("expected warning message in output, got %q", out)
	}
	if !strings.Contains(out, "user-123") {
		t.Fatalf("expected truncated user id in output, got %q", out)
	}
	if !strings.Contains(out, "store.run_query") {
		t.Fatalf("expected operation field in output, got %q", out)
	}
}

/* TestExplicitContextLoggerWins tests that a logger attached to the
 * context takes precedence over the global fallback */
func TestExplicitContextLoggerWins(t *testing.T) {
	InitLogging("debug", "json")

	var buf bytes.Buffer
	attached := zerolog.New(&buf)
	ctx := attached.WithContext(context.Background())

	InfoWithContext(ctx, "context logger used", nil)

	if !strings.Contains(buf.String(), "context logger used") {
		t.Fatalf("expected output through the attached logger, got %q", buf.String())
	}
}
