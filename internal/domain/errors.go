package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIngredientNotFound     = errors.New("ingredient not found")
	ErrProductNotFound        = errors.New("product not found")
	ErrRecipeNotFound         = errors.New("recipe not found")
	ErrPurchaseNotFound       = errors.New("purchase not found")
	ErrWarehouseNotFound      = errors.New("warehouse not found")
	ErrNoRecipe               = errors.New("product has no recipe")
	ErrRecipeAlreadyExists    = errors.New("product already has a recipe")
	ErrWarehouseHasStock      = errors.New("warehouse still holds stock")
	ErrSameWarehouse          = errors.New("source and destination warehouse must differ")
	ErrConcurrentModification = errors.New("stock record was modified concurrently")
)

// MissingIngredient describes a recipe line that cannot be covered by stock
type MissingIngredient struct {
	ItemID    string   `json:"ingredientId"`
	Kind      ItemKind `json:"ingredientType"`
	Name      string   `json:"name"`
	Needed    float64  `json:"needed"`
	Available float64  `json:"available"`
	Unit      string   `json:"unit"`
}

// InsufficientStockError is returned before any mutation when a production
// run cannot be covered by current stock
type InsufficientStockError struct {
	Missing []MissingIngredient
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		parts = append(parts, fmt.Sprintf("%s: necesita %g %s, disponible %g %s", m.Name, m.Needed, m.Unit, m.Available, m.Unit))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// IsInsufficientStock reports whether err carries missing ingredients
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
