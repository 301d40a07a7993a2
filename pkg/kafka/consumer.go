package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cobrify/stock-service/pkg/cloudevents"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/segmentio/kafka-go"
)

// EventHandler is a function that handles a CloudEvent
type EventHandler func(ctx context.Context, event *cloudevents.StockCloudEvent) error

// Consumer handles consuming messages from Kafka topics
type Consumer struct {
	config   *Config
	readers  map[string]*kafka.Reader
	handlers map[string]map[string]EventHandler // topic -> eventType -> handler
	logger   *slog.Logger
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(config *Config, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		config:   config,
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]map[string]EventHandler),
		logger:   logger,
	}
}

// Subscribe subscribes to a topic with a handler for a specific event type
func (c *Consumer) Subscribe(topic string, eventType string, handler EventHandler) {
	if _, exists := c.handlers[topic]; !exists {
		c.handlers[topic] = make(map[string]EventHandler)
	}
	c.handlers[topic][eventType] = handler
}

// SubscribeAll subscribes to all event types on a topic with a single handler
func (c *Consumer) SubscribeAll(topic string, handler EventHandler) {
	c.Subscribe(topic, "*", handler)
}

func (c *Consumer) newReader(topic string) *kafka.Reader {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.config.Brokers,
		GroupID:        c.config.ConsumerGroup,
		Topic:          topic,
		MinBytes:       c.config.MinBytes,
		MaxBytes:       c.config.MaxBytes,
		MaxWait:        c.config.MaxWait,
		CommitInterval: c.config.CommitTimeout,
	})
	c.readers[topic] = reader
	return reader
}

// Start consumes all subscribed topics until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	for topic := range c.handlers {
		reader := c.newReader(topic)
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			c.consumeTopic(ctx, topic, reader)
		}(topic)
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

func (c *Consumer) consumeTopic(ctx context.Context, topic string, reader *kafka.Reader) {
	c.logger.Info("Starting consumer for topic", "topic", topic, "group", c.config.ConsumerGroup)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Stopping consumer for topic", "topic", topic)
				return
			}
			c.logger.Error("Error fetching message", "topic", topic, "error", err)
			continue
		}

		event, err := ParseMessage(msg)
		if err != nil {
			// Poison message: commit so the partition keeps moving
			c.logger.Error("Error parsing message", "topic", topic, "offset", msg.Offset, "error", err)
			if commitErr := reader.CommitMessages(ctx, msg); commitErr != nil {
				c.logger.Error("Error committing message", "topic", topic, "error", commitErr)
			}
			continue
		}

		if err := c.handleEvent(ctx, topic, event); err != nil {
			c.logger.Error("Error handling event",
				"topic", topic,
				"eventType", event.Type,
				"eventId", event.ID,
				"error", err,
			)
			// Uncommitted messages are redelivered after a rebalance or restart
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Error committing message", "topic", topic, "error", err)
		}
	}
}

// ParseMessage decodes a Kafka message into a CloudEvent, letting ce-
// extension headers override the body.
func ParseMessage(msg kafka.Message) (*cloudevents.StockCloudEvent, error) {
	var event cloudevents.StockCloudEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	for _, header := range msg.Headers {
		switch header.Key {
		case "ce-" + cloudevents.ExtBusinessID:
			event.BusinessID = string(header.Value)
		case "ce-" + cloudevents.ExtWarehouseID:
			event.WarehouseID = string(header.Value)
		case "ce-" + cloudevents.ExtCorrelationID:
			event.CorrelationID = string(header.Value)
		case "ce-traceparent":
			event.TraceParent = string(header.Value)
		case "ce-tracestate":
			event.TraceState = string(header.Value)
		}
	}

	return &event, nil
}

// handleEvent routes an event to the appropriate handler
func (c *Consumer) handleEvent(ctx context.Context, topic string, event *cloudevents.StockCloudEvent) error {
	handlers, exists := c.handlers[topic]
	if !exists {
		return fmt.Errorf("no handlers registered for topic %s", topic)
	}

	if event.CorrelationID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, event.CorrelationID)
	}
	if event.BusinessID != "" {
		ctx = logging.ContextWithBusinessID(ctx, event.BusinessID)
	}

	if handler, exists := handlers[event.Type]; exists {
		return handler(ctx, event)
	}
	if handler, exists := handlers["*"]; exists {
		return handler(ctx, event)
	}

	c.logger.Debug("No handler found for event type", "topic", topic, "eventType", event.Type)
	return nil
}

// Close closes all readers
func (c *Consumer) Close() error {
	var lastErr error
	for topic, reader := range c.readers {
		if err := reader.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close reader for topic %s: %w", topic, err)
		}
	}
	return lastErr
}
