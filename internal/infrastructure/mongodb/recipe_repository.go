package mongodb

import (
	"context"

	"github.com/cobrify/stock-service/internal/domain"
	sharedmongo "github.com/cobrify/stock-service/pkg/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecipeRepository implements domain.RecipeRepository
type RecipeRepository struct {
	collection *mongo.Collection
	inst       *sharedmongo.Instrumentation
}

func NewRecipeRepository(db *mongo.Database, inst *sharedmongo.Instrumentation) *RecipeRepository {
	return &RecipeRepository{
		collection: db.Collection(CollectionRecipes),
		inst:       inst,
	}
}

// EnsureIndexes creates lookup indexes. productId is not unique: older data
// may hold duplicates, and lookups take the first one created.
func (r *RecipeRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "productId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "productName", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *RecipeRepository) Save(ctx context.Context, recipe *domain.Recipe) error {
	return r.inst.Observe(ctx, CollectionRecipes, "save", func(ctx context.Context) error {
		recipe.UpdatedAt = sharedmongo.Now()
		opts := options.Replace().SetUpsert(true)
		_, err := r.collection.ReplaceOne(ctx, byBusiness(recipe.BusinessID, recipe.ID), recipe, opts)
		return err
	})
}

func (r *RecipeRepository) FindByID(ctx context.Context, businessID, id string) (*domain.Recipe, error) {
	var recipe *domain.Recipe
	err := r.inst.Observe(ctx, CollectionRecipes, "findOne", func(ctx context.Context) error {
		var err error
		recipe, err = findOne[domain.Recipe](ctx, r.collection, byBusiness(businessID, id))
		return err
	})
	return recipe, err
}

// FindByProductID returns the oldest recipe for a product
func (r *RecipeRepository) FindByProductID(ctx context.Context, businessID, productID string) (*domain.Recipe, error) {
	var recipe *domain.Recipe
	err := r.inst.Observe(ctx, CollectionRecipes, "findOne", func(ctx context.Context) error {
		var err error
		opts := options.FindOne().SetSort(sharedmongo.SortAscending("createdAt"))
		recipe, err = findOne[domain.Recipe](ctx, r.collection, bson.M{"businessId": businessID, "productId": productID}, opts)
		return err
	})
	return recipe, err
}

func (r *RecipeRepository) FindAll(ctx context.Context, businessID string) ([]*domain.Recipe, error) {
	var recipes []*domain.Recipe
	err := r.inst.Observe(ctx, CollectionRecipes, "find", func(ctx context.Context) error {
		var err error
		opts := options.Find().SetSort(sharedmongo.SortAscending("productName"))
		recipes, err = findMany[domain.Recipe](ctx, r.collection, bson.M{"businessId": businessID}, opts)
		return err
	})
	return recipes, err
}

func (r *RecipeRepository) Delete(ctx context.Context, businessID, id string) error {
	return r.inst.Observe(ctx, CollectionRecipes, "delete", func(ctx context.Context) error {
		result, err := r.collection.DeleteOne(ctx, byBusiness(businessID, id))
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return domain.ErrRecipeNotFound
		}
		return nil
	})
}
