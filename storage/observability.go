package storage

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const instrumentationName = "murmur/storage"

// observability wraps every gateway operation in a span and records
// count, duration and error metrics. With no global otel providers
// configured these are all no-ops.
type observability struct {
	tracer     trace.Tracer
	opCount    metric.Int64Counter
	opDuration metric.Float64Histogram
	opErrors   metric.Int64Counter
}

func newObservability() *observability {
	meter := otel.Meter(instrumentationName)

	opCount, _ := meter.Int64Counter("storage.op.count",
		metric.WithDescription("Total number of storage gateway operations"),
		metric.WithUnit("{operation}"),
	)
	opDuration, _ := meter.Float64Histogram("storage.op.duration",
		metric.WithDescription("Storage gateway operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	opErrors, _ := meter.Int64Counter("storage.op.errors",
		metric.WithDescription("Total number of failed storage gateway operations"),
		metric.WithUnit("{error}"),
	)

	return &observability{
		tracer:     otel.Tracer(instrumentationName),
		opCount:    opCount,
		opDuration: opDuration,
		opErrors:   opErrors,
	}
}

func (g *Gateway) observe(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	ctx, span := g.obs.tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.operation", op)),
	)
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("operation", op))
	start := time.Now()
	err := fn(g.db.WithContext(ctx))
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	g.obs.opCount.Add(ctx, 1, attrs)
	g.obs.opDuration.Record(ctx, elapsed, attrs)
	if err != nil {
		g.obs.opErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
