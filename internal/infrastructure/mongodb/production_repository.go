package mongodb

import (
	"context"
	"strings"

	"github.com/cobrify/stock-service/internal/domain"
	sharedmongo "github.com/cobrify/stock-service/pkg/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductionRepository implements domain.ProductionRepository
type ProductionRepository struct {
	collection *mongo.Collection
	inst       *sharedmongo.Instrumentation
}

func NewProductionRepository(db *mongo.Database, inst *sharedmongo.Instrumentation) *ProductionRepository {
	return &ProductionRepository{
		collection: db.Collection(CollectionProductions),
		inst:       inst,
	}
}

func (r *ProductionRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "mode", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *ProductionRepository) Save(ctx context.Context, production *domain.Production) error {
	return r.inst.Observe(ctx, CollectionProductions, "insert", func(ctx context.Context) error {
		_, err := r.collection.InsertOne(ctx, production)
		return err
	})
}

// FindAll lists productions newest first. Date bounds cover whole days.
func (r *ProductionRepository) FindAll(ctx context.Context, businessID string, filter domain.ProductionFilter) ([]*domain.Production, error) {
	query := bson.M{"businessId": businessID}
	if filter.Mode != "" {
		query["mode"] = filter.Mode
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query["productName"] = sharedmongo.ContainsFold(search)
	}
	if filter.DateFrom != nil || filter.DateTo != nil {
		query["createdAt"] = sharedmongo.DateRange(filter.DateFrom, filter.DateTo)
	}

	var productions []*domain.Production
	err := r.inst.Observe(ctx, CollectionProductions, "find", func(ctx context.Context) error {
		var err error
		opts := options.Find().SetSort(sharedmongo.SortDescending("createdAt"))
		productions, err = findMany[domain.Production](ctx, r.collection, query, opts)
		return err
	})
	return productions, err
}
