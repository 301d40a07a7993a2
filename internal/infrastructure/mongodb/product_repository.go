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

// ProductRepository implements domain.ProductRepository
type ProductRepository struct {
	collection *mongo.Collection
	writer     *aggregateWriter
	inst       *sharedmongo.Instrumentation
}

func NewProductRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, inst *sharedmongo.Instrumentation) *ProductRepository {
	return &ProductRepository{
		collection: db.Collection(CollectionProducts),
		writer: &aggregateWriter{
			outboxRepo:   outboxMongo.NewOutboxRepository(db),
			eventFactory: eventFactory,
		},
		inst: inst,
	}
}

func (r *ProductRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "warehouseStocks.warehouseId", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *ProductRepository) Save(ctx context.Context, product *domain.Product) error {
	return r.inst.Observe(ctx, CollectionProducts, "save", func(ctx context.Context) error {
		product.UpdatedAt = sharedmongo.Now()
		prev := product.Version

		version, err := r.writer.saveVersioned(ctx, r.collection, product.ID, product.BusinessID, prev, func(next int64) interface{} {
			product.Version = next
			return product
		})
		if err != nil {
			product.Version = prev
			return fmt.Errorf("failed to save product %s: %w", product.ID, err)
		}
		product.Version = version

		return r.writer.writeEvents(ctx, product, product.ID, aggregateProduct, product.BusinessID)
	})
}

func (r *ProductRepository) FindByID(ctx context.Context, businessID, id string) (*domain.Product, error) {
	var product *domain.Product
	err := r.inst.Observe(ctx, CollectionProducts, "findOne", func(ctx context.Context) error {
		var err error
		product, err = findOne[domain.Product](ctx, r.collection, byBusiness(businessID, id))
		return err
	})
	return product, err
}

func (r *ProductRepository) FindAll(ctx context.Context, businessID string) ([]*domain.Product, error) {
	var products []*domain.Product
	err := r.inst.Observe(ctx, CollectionProducts, "find", func(ctx context.Context) error {
		var err error
		opts := options.Find().SetSort(sharedmongo.SortAscending("name"))
		products, err = findMany[domain.Product](ctx, r.collection, bson.M{"businessId": businessID}, opts)
		return err
	})
	return products, err
}
