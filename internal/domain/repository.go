package domain

import "context"

// Find methods return nil, nil when the document does not exist.
// Save on a versioned aggregate returns ErrConcurrentModification when the
// stored version no longer matches the one that was read.

// IngredientRepository defines the interface for ingredient persistence
type IngredientRepository interface {
	Save(ctx context.Context, ingredient *Ingredient) error
	FindByID(ctx context.Context, businessID, id string) (*Ingredient, error)
	FindAll(ctx context.Context, businessID string) ([]*Ingredient, error)
	FindLowStock(ctx context.Context, businessID string) ([]*Ingredient, error)
	Delete(ctx context.Context, businessID, id string) error
}

// ProductRepository defines the interface for finished product persistence
type ProductRepository interface {
	Save(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, businessID, id string) (*Product, error)
	FindAll(ctx context.Context, businessID string) ([]*Product, error)
}

// PurchaseRepository defines the interface for purchase records
type PurchaseRepository interface {
	Save(ctx context.Context, purchase *Purchase) error
	FindByID(ctx context.Context, businessID, id string) (*Purchase, error)
	FindAll(ctx context.Context, businessID, ingredientID string) ([]*Purchase, error)
	Delete(ctx context.Context, businessID, id string) error
}

// RecipeRepository defines the interface for recipe persistence
type RecipeRepository interface {
	Save(ctx context.Context, recipe *Recipe) error
	FindByID(ctx context.Context, businessID, id string) (*Recipe, error)
	FindByProductID(ctx context.Context, businessID, productID string) (*Recipe, error)
	FindAll(ctx context.Context, businessID string) ([]*Recipe, error)
	Delete(ctx context.Context, businessID, id string) error
}

// MovementRepository defines the interface for the append-only movement log
type MovementRepository interface {
	Append(ctx context.Context, movements ...*StockMovement) error
	Find(ctx context.Context, businessID string, filter MovementFilter) ([]*StockMovement, error)
}

// ProductionRepository defines the interface for production records
type ProductionRepository interface {
	Save(ctx context.Context, production *Production) error
	FindAll(ctx context.Context, businessID string, filter ProductionFilter) ([]*Production, error)
}

// WarehouseRepository defines the interface for warehouse persistence
type WarehouseRepository interface {
	Save(ctx context.Context, warehouse *Warehouse) error
	FindByID(ctx context.Context, businessID, id string) (*Warehouse, error)
	FindAll(ctx context.Context, businessID string) ([]*Warehouse, error)
	ClearDefault(ctx context.Context, businessID, exceptID string) error
	Delete(ctx context.Context, businessID, id string) error
}

// TxRunner runs fn atomically. Repositories called with the context passed
// to fn take part in the same transaction.
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
