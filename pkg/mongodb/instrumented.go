package mongodb

import (
	"context"
	"time"

	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentation traces, times and logs repository operations.
// A zero value is usable and only records spans.
type Instrumentation struct {
	database string
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewInstrumentation creates instrumentation for a database
func NewInstrumentation(database string, m *metrics.Metrics, logger *logging.Logger) *Instrumentation {
	return &Instrumentation{
		database: database,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("mongodb"),
	}
}

// Observe runs op inside a client span and records its duration and outcome
func (i *Instrumentation) Observe(ctx context.Context, collection, operation string, op func(ctx context.Context) error) error {
	if i == nil {
		return op(ctx)
	}
	tracer := i.tracer
	if tracer == nil {
		tracer = otel.Tracer("mongodb")
	}

	ctx, span := tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(i.database),
			semconv.DBOperationKey.String(operation),
			attribute.String("db.collection", collection),
		),
	)
	defer span.End()

	start := time.Now()
	err := op(ctx)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if i.metrics != nil {
		i.metrics.RecordMongoDBOperation(collection, operation, err == nil, duration)
	}
	if i.logger != nil {
		i.logger.DatabaseQuery(ctx, collection, operation, duration, err)
	}

	return err
}
