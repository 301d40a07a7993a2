package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/cobrify/stock-service/internal/domain"
	"github.com/cobrify/stock-service/pkg/cloudevents"
	"github.com/cobrify/stock-service/pkg/kafka"
	"github.com/cobrify/stock-service/pkg/outbox"
	outboxMongo "github.com/cobrify/stock-service/pkg/outbox/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	CollectionIngredients = "ingredients"
	CollectionProducts    = "products"
	CollectionPurchases   = "ingredient_purchases"
	CollectionRecipes     = "recipes"
	CollectionMovements   = "stock_movements"
	CollectionProductions = "productions"
	CollectionWarehouses  = "warehouses"
)

// eventSource is an aggregate that records domain events until saved
type eventSource interface {
	GetDomainEvents() []domain.DomainEvent
	ClearDomainEvents()
}

// aggregateWriter persists stock aggregates with optimistic versioning and
// writes their domain events to the outbox using the caller's context, so a
// surrounding transaction covers both.
type aggregateWriter struct {
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// saveVersioned inserts the document when version is 0 and otherwise replaces
// it only if the stored version still equals version. A version-0 save that
// hits an existing document written before versioning replaces it if that
// document still carries no version. It returns the new version on success.
func (w *aggregateWriter) saveVersioned(ctx context.Context, coll *mongo.Collection, id, businessID string, version int64, doc func(next int64) interface{}) (int64, error) {
	next := version + 1

	filter := bson.M{"_id": id, "businessId": businessID, "version": version}
	if version == 0 {
		_, err := coll.InsertOne(ctx, doc(next))
		if err == nil {
			return next, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return version, err
		}
		filter = bson.M{
			"_id":        id,
			"businessId": businessID,
			"$or": bson.A{
				bson.M{"version": bson.M{"$exists": false}},
				bson.M{"version": 0},
			},
		}
	}

	result, err := coll.ReplaceOne(ctx, filter, doc(next))
	if err != nil {
		return version, err
	}
	if result.MatchedCount == 0 {
		return version, domain.ErrConcurrentModification
	}
	return next, nil
}

// writeEvents converts pending domain events to outbox entries and clears them
func (w *aggregateWriter) writeEvents(ctx context.Context, source eventSource, aggregateID, aggregateType, businessID string) error {
	domainEvents := source.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	subject := aggregateSubject(aggregateType, aggregateID)
	for _, event := range domainEvents {
		cloudEvent := w.eventFactory.CreateBusinessEvent(ctx, event.EventType(), subject, businessID, eventWarehouse(event), event)

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(aggregateID, aggregateType, kafka.Topics.StockEvents, cloudEvent)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if err := w.outboxRepo.SaveAll(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}

	source.ClearDomainEvents()
	return nil
}

func aggregateSubject(aggregateType, id string) string {
	switch aggregateType {
	case aggregateIngredient:
		return "ingredient/" + id
	case aggregateProduct:
		return "product/" + id
	default:
		return id
	}
}

// eventWarehouse extracts the warehouse an event refers to, if any
func eventWarehouse(event domain.DomainEvent) string {
	switch e := event.(type) {
	case *domain.IngredientPurchasedEvent:
		return e.WarehouseID
	case *domain.StockAdjustedEvent:
		return e.WarehouseID
	case *domain.StockConsumedEvent:
		return e.WarehouseID
	case *domain.StockTransferredEvent:
		return e.ToWarehouseID
	default:
		return ""
	}
}

const (
	aggregateIngredient = "Ingredient"
	aggregateProduct    = "Product"
)

// findOne decodes a single document, mapping ErrNoDocuments to a nil result
func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOneOptions) (*T, error) {
	var doc T
	err := coll.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// findMany decodes every document matched by a query
func findMany[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]*T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func byBusiness(businessID, id string) bson.M {
	return bson.M{"_id": id, "businessId": businessID}
}
