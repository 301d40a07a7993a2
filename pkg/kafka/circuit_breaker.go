package kafka

import (
	"context"
	"log/slog"

	"github.com/cobrify/stock-service/pkg/cloudevents"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/metrics"
	"github.com/cobrify/stock-service/pkg/resilience"
)

// CircuitBreakerProducer stops hammering an unavailable broker. While open,
// publishes fail fast and outbox rows simply stay unpublished.
type CircuitBreakerProducer struct {
	producer       EventPublisher
	circuitBreaker *resilience.CircuitBreaker
}

// NewCircuitBreakerProducer wraps producer with a breaker named kafka-producer
func NewCircuitBreakerProducer(producer EventPublisher, m *metrics.Metrics, logger *logging.Logger) *CircuitBreakerProducer {
	config := resilience.DefaultCircuitBreakerConfig("kafka-producer")
	config.MaxRequests = 5
	config.FailureThreshold = 5
	if m != nil {
		config.OnStateChange = m.SetCircuitBreakerState
	}

	var slogLogger *slog.Logger
	if logger != nil {
		slogLogger = logger.Logger
	}

	return &CircuitBreakerProducer{
		producer:       producer,
		circuitBreaker: resilience.NewCircuitBreaker(config, slogLogger),
	}
}

// PublishEvent publishes a CloudEvent with circuit breaker protection
func (p *CircuitBreakerProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.StockCloudEvent) error {
	_, err := p.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return nil, p.producer.PublishEvent(ctx, topic, event)
	})
	return err
}

// Status reports the breaker state
func (p *CircuitBreakerProducer) Status() resilience.CircuitBreakerStatus {
	return p.circuitBreaker.Status()
}

// Close closes the underlying producer when it supports closing
func (p *CircuitBreakerProducer) Close() error {
	if c, ok := p.producer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// NewProductionProducer builds the producer stack used by the outbox
// publisher: kafka writer, instrumentation, circuit breaker.
func NewProductionProducer(config *Config, m *metrics.Metrics, logger *logging.Logger) *CircuitBreakerProducer {
	instrumented := NewInstrumentedProducer(NewProducer(config), m, logger)
	return NewCircuitBreakerProducer(instrumented, m, logger)
}

// NewProductionConsumer builds an instrumented consumer
func NewProductionConsumer(config *Config, m *metrics.Metrics, logger *logging.Logger) *InstrumentedConsumer {
	return NewInstrumentedConsumer(NewConsumer(config, logger.Logger), m, logger)
}
