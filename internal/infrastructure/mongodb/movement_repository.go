package mongodb

import (
	"context"

	"github.com/cobrify/stock-service/internal/domain"
	sharedmongo "github.com/cobrify/stock-service/pkg/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMovementLimit = 500

// MovementRepository implements domain.MovementRepository over an
// append-only collection
type MovementRepository struct {
	collection *mongo.Collection
	inst       *sharedmongo.Instrumentation
}

func NewMovementRepository(db *mongo.Database, inst *sharedmongo.Instrumentation) *MovementRepository {
	return &MovementRepository{
		collection: db.Collection(CollectionMovements),
		inst:       inst,
	}
}

func (r *MovementRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "ingredientId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "type", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *MovementRepository) Append(ctx context.Context, movements ...*domain.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	docs := make([]interface{}, len(movements))
	for i, m := range movements {
		docs[i] = m
	}
	return r.inst.Observe(ctx, CollectionMovements, "insertMany", func(ctx context.Context) error {
		_, err := r.collection.InsertMany(ctx, docs)
		return err
	})
}

// Find lists movements newest first
func (r *MovementRepository) Find(ctx context.Context, businessID string, filter domain.MovementFilter) ([]*domain.StockMovement, error) {
	query := bson.M{"businessId": businessID}
	if filter.EntityID != "" {
		query["ingredientId"] = filter.EntityID
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.SaleID != "" {
		query["relatedSaleId"] = filter.SaleID
	}
	if filter.WarehouseID != "" {
		query["$or"] = bson.A{
			bson.M{"warehouseId": filter.WarehouseID},
			bson.M{"fromWarehouse": filter.WarehouseID},
			bson.M{"toWarehouse": filter.WarehouseID},
		}
	}
	if filter.From != nil || filter.To != nil {
		query["createdAt"] = sharedmongo.DateRange(filter.From, filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultMovementLimit
	}

	var movements []*domain.StockMovement
	err := r.inst.Observe(ctx, CollectionMovements, "find", func(ctx context.Context) error {
		var err error
		opts := options.Find().
			SetSort(sharedmongo.SortDescending("createdAt")).
			SetLimit(int64(limit))
		movements, err = findMany[domain.StockMovement](ctx, r.collection, query, opts)
		return err
	})
	return movements, err
}
