package mongodb

import (
	"context"

	"github.com/cobrify/stock-service/internal/domain"
	sharedmongo "github.com/cobrify/stock-service/pkg/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WarehouseRepository implements domain.WarehouseRepository
type WarehouseRepository struct {
	collection *mongo.Collection
	inst       *sharedmongo.Instrumentation
}

func NewWarehouseRepository(db *mongo.Database, inst *sharedmongo.Instrumentation) *WarehouseRepository {
	return &WarehouseRepository{
		collection: db.Collection(CollectionWarehouses),
		inst:       inst,
	}
}

func (r *WarehouseRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "branchId", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *WarehouseRepository) Save(ctx context.Context, warehouse *domain.Warehouse) error {
	return r.inst.Observe(ctx, CollectionWarehouses, "save", func(ctx context.Context) error {
		warehouse.UpdatedAt = sharedmongo.Now()
		opts := options.Replace().SetUpsert(true)
		_, err := r.collection.ReplaceOne(ctx, byBusiness(warehouse.BusinessID, warehouse.ID), warehouse, opts)
		return err
	})
}

func (r *WarehouseRepository) FindByID(ctx context.Context, businessID, id string) (*domain.Warehouse, error) {
	var warehouse *domain.Warehouse
	err := r.inst.Observe(ctx, CollectionWarehouses, "findOne", func(ctx context.Context) error {
		var err error
		warehouse, err = findOne[domain.Warehouse](ctx, r.collection, byBusiness(businessID, id))
		return err
	})
	return warehouse, err
}

// FindAll lists warehouses in creation order, so the first one is the
// fallback default
func (r *WarehouseRepository) FindAll(ctx context.Context, businessID string) ([]*domain.Warehouse, error) {
	var warehouses []*domain.Warehouse
	err := r.inst.Observe(ctx, CollectionWarehouses, "find", func(ctx context.Context) error {
		var err error
		opts := options.Find().SetSort(sharedmongo.SortAscending("createdAt"))
		warehouses, err = findMany[domain.Warehouse](ctx, r.collection, bson.M{"businessId": businessID}, opts)
		return err
	})
	return warehouses, err
}

// ClearDefault unsets the default flag on every warehouse except exceptID
func (r *WarehouseRepository) ClearDefault(ctx context.Context, businessID, exceptID string) error {
	return r.inst.Observe(ctx, CollectionWarehouses, "updateMany", func(ctx context.Context) error {
		filter := bson.M{"businessId": businessID, "isDefault": true, "_id": bson.M{"$ne": exceptID}}
		update := bson.M{"$set": bson.M{"isDefault": false, "updatedAt": sharedmongo.Now()}}
		_, err := r.collection.UpdateMany(ctx, filter, update)
		return err
	})
}

func (r *WarehouseRepository) Delete(ctx context.Context, businessID, id string) error {
	return r.inst.Observe(ctx, CollectionWarehouses, "delete", func(ctx context.Context) error {
		result, err := r.collection.DeleteOne(ctx, byBusiness(businessID, id))
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return domain.ErrWarehouseNotFound
		}
		return nil
	})
}
