/*-------------------------------------------------------------------------
 *
 * log_context.go
 *    Log context helpers for structured logging
 *
 * Provides helpers for consistent structured logging with request_id,
 * user_id, thread_id, run_id, connection_id fields across all components.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/metrics/log_context.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	userIDKey       contextKey = "user_id"
	threadIDKey     contextKey = "thread_id"
	runIDKey        contextKey = "run_id"
	connectionIDKey contextKey = "connection_id"
)

/* WithLogContext adds logging fields to context */
func WithLogContext(ctx context.Context, requestID, userID, threadID, runID, connectionID string) context.Context {
	if requestID != "" {
		ctx = context.WithValue(ctx, requestIDKey, requestID)
	}
	if userID != "" {
		ctx = context.WithValue(ctx, userIDKey, TruncateUserID(userID))
	}
	if threadID != "" {
		ctx = context.WithValue(ctx, threadIDKey, threadID)
	}
	if runID != "" {
		ctx = context.WithValue(ctx, runIDKey, runID)
	}
	if connectionID != "" {
		ctx = context.WithValue(ctx, connectionIDKey, connectionID)
	}
	return ctx
}

/* WithUserIDLogContext adds user ID to log context */
func WithUserIDLogContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, TruncateUserID(userID))
}

/* WithThreadIDLogContext adds thread ID to log context */
func WithThreadIDLogContext(ctx context.Context, threadID uuid.UUID) context.Context {
	return context.WithValue(ctx, threadIDKey, threadID.String())
}

/* WithRunIDLogContext adds run ID to log context */
func WithRunIDLogContext(ctx context.Context, runID uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey, runID.String())
}

/* WithConnectionIDLogContext adds connection ID to log context */
func WithConnectionIDLogContext(ctx context.Context, connectionID string) context.Context {
	return context.WithValue(ctx, connectionIDKey, connectionID)
}

/* TruncateUserID truncates a user ID for log output so raw identifiers
 * never land in plaintext logs */
func TruncateUserID(userID string) string {
	if len(userID) <= 8 {
		return userID
	}
	return userID[:8] + "..."
}

/* GetRequestIDFromContext gets request ID from context */
func GetRequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

/* GetUserIDFromContext gets user ID from context */
func GetUserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

/* GetThreadIDFromContext gets thread ID from context */
func GetThreadIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(threadIDKey).(string); ok {
		return id
	}
	if id, ok := ctx.Value(threadIDKey).(uuid.UUID); ok {
		return id.String()
	}
	return ""
}

/* GetRunIDFromContext gets run ID from context */
func GetRunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	if id, ok := ctx.Value(runIDKey).(uuid.UUID); ok {
		return id.String()
	}
	return ""
}

/* GetConnectionIDFromContext gets connection ID from context */
func GetConnectionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(connectionIDKey).(string); ok {
		return id
	}
	return ""
}

/* LoggerFromContext creates a zerolog logger with fields from context.
 * A context without an attached logger falls back to the global logger
 * so call sites always produce output once logging is initialized. */
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	logger := *zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = log.Logger
	}

	/* Add context fields */
	requestID := GetRequestIDFromContext(ctx)
	userID := GetUserIDFromContext(ctx)
	threadID := GetThreadIDFromContext(ctx)
	runID := GetRunIDFromContext(ctx)
	connectionID := GetConnectionIDFromContext(ctx)

	if requestID != "" {
		logger = logger.With().Str("request_id", requestID).Logger()
	}
	if userID != "" {
		logger = logger.With().Str("user_id", userID).Logger()
	}
	if threadID != "" {
		logger = logger.With().Str("thread_id", threadID).Logger()
	}
	if runID != "" {
		logger = logger.With().Str("run_id", runID).Logger()
	}
	if connectionID != "" {
		logger = logger.With().Str("connection_id", connectionID).Logger()
	}

	return logger
}

/* LogWithContext logs a message with context fields */
func LogWithContext(ctx context.Context, level zerolog.Level, message string, fields map[string]interface{}) {
	logger := LoggerFromContext(ctx)
	event := logger.WithLevel(level)

	for key, value := range fields {
		event = event.Interface(key, value)
	}

	event.Msg(message)
}

/* DebugWithContext logs a debug message with context */
func DebugWithContext(ctx context.Context, message string, fields map[string]interface{}) {
	LogWithContext(ctx, zerolog.DebugLevel, message, fields)
}

/* InfoWithContext logs an info message with context */
func InfoWithContext(ctx context.Context, message string, fields map[string]interface{}) {
	LogWithContext(ctx, zerolog.InfoLevel, message, fields)
}

/* WarnWithContext logs a warning message with context */
func WarnWithContext(ctx context.Context, message string, fields map[string]interface{}) {
	LogWithContext(ctx, zerolog.WarnLevel, message, fields)
}

/* ErrorWithContext logs an error message with context */
func ErrorWithContext(ctx context.Context, message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	LogWithContext(ctx, zerolog.ErrorLevel, message, fields)
}
