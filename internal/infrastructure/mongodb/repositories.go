package mongodb

import (
	"context"
	"fmt"

	"github.com/cobrify/stock-service/pkg/cloudevents"
	sharedmongo "github.com/cobrify/stock-service/pkg/mongodb"
	outboxMongo "github.com/cobrify/stock-service/pkg/outbox/mongodb"
)

// Repositories bundles every stock repository over one database
type Repositories struct {
	Ingredients *IngredientRepository
	Products    *ProductRepository
	Purchases   *PurchaseRepository
	Recipes     *RecipeRepository
	Movements   *MovementRepository
	Productions *ProductionRepository
	Warehouses  *WarehouseRepository
	Outbox      *outboxMongo.OutboxRepository
}

// NewRepositories wires all repositories to the client's database
func NewRepositories(client *sharedmongo.Client, eventFactory *cloudevents.EventFactory, inst *sharedmongo.Instrumentation) *Repositories {
	db := client.Database()
	return &Repositories{
		Ingredients: NewIngredientRepository(db, eventFactory, inst),
		Products:    NewProductRepository(db, eventFactory, inst),
		Purchases:   NewPurchaseRepository(db, inst),
		Recipes:     NewRecipeRepository(db, inst),
		Movements:   NewMovementRepository(db, inst),
		Productions: NewProductionRepository(db, inst),
		Warehouses:  NewWarehouseRepository(db, inst),
		Outbox:      outboxMongo.NewOutboxRepository(db),
	}
}

// EnsureIndexes creates the indexes of every collection
func (r *Repositories) EnsureIndexes(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{CollectionIngredients, r.Ingredients.EnsureIndexes},
		{CollectionProducts, r.Products.EnsureIndexes},
		{CollectionPurchases, r.Purchases.EnsureIndexes},
		{CollectionRecipes, r.Recipes.EnsureIndexes},
		{CollectionMovements, r.Movements.EnsureIndexes},
		{CollectionProductions, r.Productions.EnsureIndexes},
		{CollectionWarehouses, r.Warehouses.EnsureIndexes},
		{"outbox_events", r.Outbox.EnsureIndexes},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", step.name, err)
		}
	}
	return nil
}
