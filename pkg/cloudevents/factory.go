package cloudevents

import (
	"context"
	"time"

	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for one source
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new StockCloudEvent. Business and correlation IDs
// are copied from ctx when present.
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *StockCloudEvent {
	event := &StockCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
		BusinessID:      logging.BusinessIDFromContext(ctx),
	}
	if v, ok := ctx.Value(logging.CorrelationIDKey).(string); ok {
		event.CorrelationID = v
	}
	return event
}

// CreateBusinessEvent creates an event scoped to a business and, optionally, a warehouse
func (f *EventFactory) CreateBusinessEvent(
	ctx context.Context,
	eventType string,
	subject string,
	businessID string,
	warehouseID string,
	data interface{},
) *StockCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.BusinessID = businessID
	event.WarehouseID = warehouseID
	return event
}
