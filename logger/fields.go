package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across graphex.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldGraphID   = "graph_id"
	FieldNodeID    = "node_id"
	FieldMountID   = "mount_id"

	// Components
	FieldComponent = "component"

	// Operations
	FieldOperation  = "operation"
	FieldPipeline   = "pipeline"
	FieldEpoch      = "epoch"
	FieldVisualizer = "visualizer"
	FieldDirected   = "directed"
	FieldQuery      = "query"
	FieldEndpoint   = "endpoint"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldNodes = "nodes"
	FieldEdges = "edges"
	FieldCount = "count"
	FieldSize  = "size"

	// Status
	FieldStatus = "status"
	FieldState  = "state"

	// Files and network
	FieldFile    = "file"
	FieldAddress = "address"
)

// Context keys for propagating logging context
type contextKey string

const (
	requestIDKey contextKey = "logger_request_id"
	graphIDKey   contextKey = "logger_graph_id"
	componentKey contextKey = "logger_component"
)

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithGraphID adds the active graph ID to the context for logging
func WithGraphID(ctx context.Context, graphID string) context.Context {
	return context.WithValue(ctx, graphIDKey, graphID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if graphID, ok := ctx.Value(graphIDKey).(string); ok && graphID != "" {
		fields = append(fields, FieldGraphID, graphID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns the global logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	w := workspace.New(api, loop, workspace.Options{
//	    Logger: logger.ComponentLogger("workspace"),
//	})
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
