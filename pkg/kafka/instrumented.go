package kafka

import (
	"context"
	"time"

	"github.com/cobrify/stock-service/pkg/cloudevents"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/metrics"
	"github.com/cobrify/stock-service/pkg/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

func addEventAttributes(span trace.Span, event *cloudevents.StockCloudEvent) {
	span.SetAttributes(
		attribute.String("messaging.kafka.event_type", event.Type),
		attribute.String("messaging.message_id", event.ID),
	)
	if event.BusinessID != "" {
		span.SetAttributes(attribute.String("cobrify.business_id", event.BusinessID))
	}
	if event.CorrelationID != "" {
		span.SetAttributes(attribute.String("cobrify.correlation_id", event.CorrelationID))
	}
}

// InstrumentedProducer wraps an EventPublisher with metrics and tracing
type InstrumentedProducer struct {
	producer EventPublisher
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewInstrumentedProducer creates a new instrumented producer
func NewInstrumentedProducer(producer EventPublisher, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{
		producer: producer,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("kafka-producer"),
	}
}

// PublishEvent publishes a CloudEvent with metrics and tracing. The span's
// context is written into the event's traceparent.
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.StockCloudEvent) error {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "kafka.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("kafka"),
			semconv.MessagingDestinationNameKey.String(topic),
			semconv.MessagingOperationKey.String("publish"),
		),
	)
	defer span.End()
	addEventAttributes(span, event)

	carrier := tracing.MapCarrier{}
	tracing.InjectTraceContext(ctx, carrier)
	if tp := carrier.Get("traceparent"); tp != "" {
		event.TraceParent = tp
		event.TraceState = carrier.Get("tracestate")
	}

	err := p.producer.PublishEvent(ctx, topic, event)
	duration := time.Since(start)

	success := err == nil
	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, event.Type, success, duration)
	}
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, success, duration)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// Close closes the underlying producer when it supports closing
func (p *InstrumentedProducer) Close() error {
	if c, ok := p.producer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// InstrumentedConsumer wraps a Consumer with metrics and tracing
type InstrumentedConsumer struct {
	consumer *Consumer
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewInstrumentedConsumer creates a new instrumented consumer
func NewInstrumentedConsumer(consumer *Consumer, m *metrics.Metrics, logger *logging.Logger) *InstrumentedConsumer {
	return &InstrumentedConsumer{
		consumer: consumer,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("kafka-consumer"),
	}
}

// Subscribe subscribes to a topic with instrumented handler
func (c *InstrumentedConsumer) Subscribe(topic string, eventType string, handler EventHandler) {
	c.consumer.Subscribe(topic, eventType, c.instrument(topic, handler))
}

// SubscribeAll subscribes to all event types with instrumented handler
func (c *InstrumentedConsumer) SubscribeAll(topic string, handler EventHandler) {
	c.consumer.SubscribeAll(topic, c.instrument(topic, handler))
}

func (c *InstrumentedConsumer) instrument(topic string, handler EventHandler) EventHandler {
	return func(ctx context.Context, event *cloudevents.StockCloudEvent) error {
		start := time.Now()

		if event.TraceParent != "" {
			ctx = tracing.ExtractTraceContext(ctx, tracing.MapCarrier{
				"traceparent": event.TraceParent,
				"tracestate":  event.TraceState,
			})
		}

		ctx, span := c.tracer.Start(ctx, "kafka.consume",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				semconv.MessagingSystemKey.String("kafka"),
				semconv.MessagingDestinationNameKey.String(topic),
				semconv.MessagingOperationKey.String("receive"),
				attribute.String("messaging.kafka.consumer_group", c.consumer.config.ConsumerGroup),
			),
		)
		defer span.End()
		addEventAttributes(span, event)

		err := handler(ctx, event)

		if c.metrics != nil {
			c.metrics.RecordKafkaConsume(topic, event.Type, err == nil)
		}
		if c.logger != nil {
			c.logger.KafkaConsume(ctx, topic, event.Type, 0, 0)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
			span.SetAttributes(attribute.Int64("messaging.processing_duration_ms", time.Since(start).Milliseconds()))
		}
		return err
	}
}

// Start starts the instrumented consumer
func (c *InstrumentedConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close closes the underlying consumer
func (c *InstrumentedConsumer) Close() error {
	return c.consumer.Close()
}
