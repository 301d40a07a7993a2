package outbox

import "context"

// Repository defines the interface for outbox event persistence. SaveAll
// joins whatever transaction ctx carries.
type Repository interface {
	SaveAll(ctx context.Context, events []*OutboxEvent) error

	// FindUnpublished returns retryable unpublished events, oldest first
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)

	MarkPublished(ctx context.Context, eventID string) error

	// IncrementRetry bumps the retry count and records the last error
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error

	// FindByAggregateID returns every event recorded for an aggregate
	FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error)
}
