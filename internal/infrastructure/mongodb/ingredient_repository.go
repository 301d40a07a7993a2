package mongodb

import (
	"context"
	"fmt"

	"github.com/cobrify/stock-service/internal/domain"
	"github.com/cobrify/stock-service/pkg/cloudevents"
	sharedmongo "github.com/cobrify/stock-service/pkg/mongodb"
	outboxMongo "github.com/cobrify/stock-service/pkg/outbox/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IngredientRepository implements domain.IngredientRepository
type IngredientRepository struct {
	collection *mongo.Collection
	writer     *aggregateWriter
	inst       *sharedmongo.Instrumentation
}

func NewIngredientRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, inst *sharedmongo.Instrumentation) *IngredientRepository {
	return &IngredientRepository{
		collection: db.Collection(CollectionIngredients),
		writer: &aggregateWriter{
			outboxRepo:   outboxMongo.NewOutboxRepository(db),
			eventFactory: eventFactory,
		},
		inst: inst,
	}
}

func (r *IngredientRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "warehouseStocks.warehouseId", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Save writes the ingredient and its pending events. The caller's context
// decides whether this runs inside a transaction.
func (r *IngredientRepository) Save(ctx context.Context, ingredient *domain.Ingredient) error {
	return r.inst.Observe(ctx, CollectionIngredients, "save", func(ctx context.Context) error {
		ingredient.UpdatedAt = sharedmongo.Now()
		prev := ingredient.Version

		version, err := r.writer.saveVersioned(ctx, r.collection, ingredient.ID, ingredient.BusinessID, prev, func(next int64) interface{} {
			ingredient.Version = next
			return ingredient
		})
		if err != nil {
			ingredient.Version = prev
			return fmt.Errorf("failed to save ingredient %s: %w", ingredient.ID, err)
		}
		ingredient.Version = version

		return r.writer.writeEvents(ctx, ingredient, ingredient.ID, aggregateIngredient, ingredient.BusinessID)
	})
}

func (r *IngredientRepository) FindByID(ctx context.Context, businessID, id string) (*domain.Ingredient, error) {
	var ingredient *domain.Ingredient
	err := r.inst.Observe(ctx, CollectionIngredients, "findOne", func(ctx context.Context) error {
		var err error
		ingredient, err = findOne[domain.Ingredient](ctx, r.collection, byBusiness(businessID, id))
		return err
	})
	return ingredient, err
}

func (r *IngredientRepository) FindAll(ctx context.Context, businessID string) ([]*domain.Ingredient, error) {
	var ingredients []*domain.Ingredient
	err := r.inst.Observe(ctx, CollectionIngredients, "find", func(ctx context.Context) error {
		var err error
		opts := options.Find().SetSort(sharedmongo.SortAscending("name"))
		ingredients, err = findMany[domain.Ingredient](ctx, r.collection, bson.M{"businessId": businessID}, opts)
		return err
	})
	return ingredients, err
}

// FindLowStock returns ingredients with a minimum configured whose stock has
// reached it
func (r *IngredientRepository) FindLowStock(ctx context.Context, businessID string) ([]*domain.Ingredient, error) {
	filter := bson.M{
		"businessId":   businessID,
		"minimumStock": bson.M{"$gt": 0},
		"$expr":        bson.M{"$lte": bson.A{"$currentStock", "$minimumStock"}},
	}

	var ingredients []*domain.Ingredient
	err := r.inst.Observe(ctx, CollectionIngredients, "find", func(ctx context.Context) error {
		var err error
		opts := options.Find().SetSort(sharedmongo.SortAscending("name"))
		ingredients, err = findMany[domain.Ingredient](ctx, r.collection, filter, opts)
		return err
	})
	return ingredients, err
}

// Delete removes the ingredient. Purchases, movements and recipes that
// reference it are left untouched.
func (r *IngredientRepository) Delete(ctx context.Context, businessID, id string) error {
	return r.inst.Observe(ctx, CollectionIngredients, "delete", func(ctx context.Context) error {
		result, err := r.collection.DeleteOne(ctx, byBusiness(businessID, id))
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return domain.ErrIngredientNotFound
		}
		return nil
	})
}
