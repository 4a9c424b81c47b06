package operations

import (
	"context"
	"log/slog"
	"time"
)

// logOperationStart logs the start of an operation execution
func (m *Manager) logOperationStart(ctx context.Context, operationID string, req OperationRequest) {
	slog.InfoContext(ctx, "operation_start",
		slog.String("operation_id", operationID),
		slog.String("format", req.Format),
		slog.String("input_dir", req.InputDir),
		slog.String("output_dir", req.OutputDir),
		slog.Any("parameters", req.Parameters))
}

// logOperationComplete logs the completion of an operation execution
func (m *Manager) logOperationComplete(ctx context.Context, operationID string, duration time.Duration, status string) {
	slog.InfoContext(ctx, "operation_complete",
		slog.String("operation_id", operationID),
		slog.String("status", status),
		slog.Duration("duration", duration))
}

// logOperationError logs an operation error
func (m *Manager) logOperationError(ctx context.Context, operationID string, err error) {
	errorMsg := "unknown error"
	if err != nil {
		errorMsg = err.Error()
	}
	slog.ErrorContext(ctx, "operation_error",
		slog.String("operation_id", operationID),
		slog.String("error", errorMsg))
}

// logStepStart logs the start of a step execution
func (m *Manager) logStepStart(ctx context.Context, operationID, stepID string) {
	slog.InfoContext(ctx, "step_start",
		slog.String("operation_id", operationID),
		slog.String("step", stepID))
}

// logStepComplete logs the completion of a step execution
func (m *Manager) logStepComplete(ctx context.Context, operationID, stepID string, duration time.Duration) {
	slog.InfoContext(ctx, "step_complete",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Duration("duration", duration))
}

// logStepError logs a step error
func (m *Manager) logStepError(ctx context.Context, operationID, stepID string, err error) {
	errorMsg := "unknown error"
	if err != nil {
		errorMsg = err.Error()
	}
	slog.ErrorContext(ctx, "step_error",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.String("error", errorMsg))
}

// logStepProgress logs step progress
func (m *Manager) logStepProgress(ctx context.Context, operationID, stepID string, progress int, message string) {
	slog.DebugContext(ctx, "step_progress",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Int("progress", progress),
		slog.String("message", message))
}
