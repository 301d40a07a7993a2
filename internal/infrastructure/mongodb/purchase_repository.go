package mongodb

import (
	"context"

	"github.com/cobrify/stock-service/internal/domain"
	sharedmongo "github.com/cobrify/stock-service/pkg/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PurchaseRepository implements domain.PurchaseRepository. Purchases are
// immutable, so Save only inserts.
type PurchaseRepository struct {
	collection *mongo.Collection
	inst       *sharedmongo.Instrumentation
}

func NewPurchaseRepository(db *mongo.Database, inst *sharedmongo.Instrumentation) *PurchaseRepository {
	return &PurchaseRepository{
		collection: db.Collection(CollectionPurchases),
		inst:       inst,
	}
}

func (r *PurchaseRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "purchaseDate", Value: -1}}},
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "ingredientId", Value: 1}, {Key: "purchaseDate", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *PurchaseRepository) Save(ctx context.Context, purchase *domain.Purchase) error {
	return r.inst.Observe(ctx, CollectionPurchases, "insert", func(ctx context.Context) error {
		_, err := r.collection.InsertOne(ctx, purchase)
		return err
	})
}

func (r *PurchaseRepository) FindByID(ctx context.Context, businessID, id string) (*domain.Purchase, error) {
	var purchase *domain.Purchase
	err := r.inst.Observe(ctx, CollectionPurchases, "findOne", func(ctx context.Context) error {
		var err error
		purchase, err = findOne[domain.Purchase](ctx, r.collection, byBusiness(businessID, id))
		return err
	})
	return purchase, err
}

// FindAll lists purchases newest first, optionally for one ingredient
func (r *PurchaseRepository) FindAll(ctx context.Context, businessID, ingredientID string) ([]*domain.Purchase, error) {
	filter := bson.M{"businessId": businessID}
	if ingredientID != "" {
		filter["ingredientId"] = ingredientID
	}

	var purchases []*domain.Purchase
	err := r.inst.Observe(ctx, CollectionPurchases, "find", func(ctx context.Context) error {
		var err error
		opts := options.Find().SetSort(sharedmongo.SortDescending("purchaseDate"))
		purchases, err = findMany[domain.Purchase](ctx, r.collection, filter, opts)
		return err
	})
	return purchases, err
}

func (r *PurchaseRepository) Delete(ctx context.Context, businessID, id string) error {
	return r.inst.Observe(ctx, CollectionPurchases, "delete", func(ctx context.Context) error {
		result, err := r.collection.DeleteOne(ctx, byBusiness(businessID, id))
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return domain.ErrPurchaseNotFound
		}
		return nil
	})
}
