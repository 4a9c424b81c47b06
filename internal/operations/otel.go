package operations

import (
	"context"
	"fmt"
	"time"

	"neurphys/internal/infrastructure"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "neurphys.operations"
)

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs
type OperationTracer struct {
	tracer trace.Tracer

	executions      metric.Int64Counter
	duration        metric.Float64Histogram
	active          metric.Int64UpDownCounter
	stepExecutions  metric.Int64Counter
	recordingsCount metric.Int64Counter
}

// NewOperationTracer creates a new operation tracer
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	meter := providers.Meter

	executions, err := meter.Int64Counter("neurphys_operations_total",
		metric.WithDescription("Total pipeline operations started"))
	if err != nil {
		return nil, fmt.Errorf("failed to create operations counter: %w", err)
	}
	duration, err := meter.Float64Histogram("neurphys_operation_duration_seconds",
		metric.WithDescription("Pipeline operation duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	active, err := meter.Int64UpDownCounter("neurphys_operations_active",
		metric.WithDescription("Pipeline operations currently running"))
	if err != nil {
		return nil, fmt.Errorf("failed to create active gauge: %w", err)
	}
	stepExecutions, err := meter.Int64Counter("neurphys_operation_steps_total",
		metric.WithDescription("Pipeline step executions by step and status"))
	if err != nil {
		return nil, fmt.Errorf("failed to create step counter: %w", err)
	}
	recordingsCount, err := meter.Int64Counter("neurphys_recordings_imported_total",
		metric.WithDescription("Recordings imported by pipeline operations"))
	if err != nil {
		return nil, fmt.Errorf("failed to create recordings counter: %w", err)
	}

	return &OperationTracer{
		tracer:          otel.Tracer(TracerName),
		executions:      executions,
		duration:        duration,
		active:          active,
		stepExecutions:  stepExecutions,
		recordingsCount: recordingsCount,
	}, nil
}

// TraceOperation creates a span for an entire operation execution
func (t *OperationTracer) TraceOperation(ctx context.Context, operationID string, req OperationRequest) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("operation.format", req.Format),
			attribute.String("operation.input_dir", req.InputDir),
		),
	)

	t.executions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", req.Format),
	))
	t.active.Add(ctx, 1)

	return ctx, span
}

// TraceStep creates a span for an individual step execution
func (t *OperationTracer) TraceStep(ctx context.Context, operationID, stepID string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("operation.step.%s", stepID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stepID),
		),
	)

	return ctx, span
}

// RecordOperationCompletion records operation completion on the span and metrics
func (t *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, duration time.Duration, status string) {
	span.SetAttributes(
		attribute.String("operation.status", status),
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
	)

	t.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("status", status),
	))
	t.active.Add(ctx, -1)

	if status == string(OperationStatusCompleted) {
		span.SetStatus(codes.Ok, "operation completed")
	} else {
		span.SetStatus(codes.Error, fmt.Sprintf("operation finished with status %s", status))
	}
}

// RecordStepCompletion records step completion on the span and metrics
func (t *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
		infrastructure.RecordError(ctx, err)
	}

	span.SetAttributes(
		attribute.String("step.status", status),
		attribute.Float64("step.duration_seconds", duration.Seconds()),
	)

	t.stepExecutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", stepID),
		attribute.String("status", status),
	))

	if err == nil {
		span.SetStatus(codes.Ok, "step completed")
	} else {
		span.SetStatus(codes.Error, "step execution failed")
	}
}

// RecordRecordingsImported counts recordings brought in by the import step
func (t *OperationTracer) RecordRecordingsImported(ctx context.Context, n int, format string) {
	if n <= 0 {
		return
	}
	t.recordingsCount.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("format", format),
	))
}

var globalOperationTracer *OperationTracer

// InitGlobalOperationTracer initializes the global operation tracer
func InitGlobalOperationTracer(providers *infrastructure.OTelProviders) error {
	tracer, err := NewOperationTracer(providers)
	if err != nil {
		return err
	}
	globalOperationTracer = tracer
	return nil
}

// GetOperationTracer returns the global operation tracer, nil when tracing is
// not initialized.
func GetOperationTracer() *OperationTracer {
	return globalOperationTracer
}
