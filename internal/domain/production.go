package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProductionMode selects how a production run sources its stock
type ProductionMode string

const (
	ProductionRecipe ProductionMode = "recipe"
	ProductionManual ProductionMode = "manual"
)

// IsValid checks if the production mode is known
func (m ProductionMode) IsValid() bool {
	return m == ProductionRecipe || m == ProductionManual
}

// DeductedItem is one recipe line consumed by a production run
type DeductedItem struct {
	Kind     ItemKind `bson:"ingredientType" json:"ingredientType"`
	ItemID   string   `bson:"ingredientId" json:"ingredientId"`
	ItemName string   `bson:"ingredientName" json:"ingredientName"`
	Quantity float64  `bson:"quantity" json:"quantity"`
	Unit     string   `bson:"unit" json:"unit"`
}

// Production is an immutable record of a production run
type Production struct {
	ID                  string         `bson:"_id" json:"id"`
	BusinessID          string         `bson:"businessId" json:"businessId"`
	ProductID           string         `bson:"productId" json:"productId"`
	ProductName         string         `bson:"productName" json:"productName"`
	Quantity            float64        `bson:"quantity" json:"quantity"`
	Mode                ProductionMode `bson:"mode" json:"mode"`
	RecipeID            string         `bson:"recipeId,omitempty" json:"recipeId,omitempty"`
	WarehouseID         string         `bson:"warehouseId,omitempty" json:"warehouseId,omitempty"`
	IngredientsDeducted []DeductedItem `bson:"ingredientsDeducted" json:"ingredientsDeducted"`
	TotalCost           Money          `bson:"totalCost" json:"totalCost"`
	Notes               string         `bson:"notes,omitempty" json:"notes,omitempty"`
	UserID              string         `bson:"userId,omitempty" json:"userId,omitempty"`
	CreatedAt           time.Time      `bson:"createdAt" json:"createdAt"`
}

// NewProduction creates a production record
func NewProduction(businessID string, product *Product, quantity float64, mode ProductionMode, warehouseID, notes, userID string) (*Production, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &Production{
		ID:                  uuid.NewString(),
		BusinessID:          businessID,
		ProductID:           product.ID,
		ProductName:         product.Name,
		Quantity:            quantity,
		Mode:                mode,
		WarehouseID:         warehouseID,
		IngredientsDeducted: []DeductedItem{},
		TotalCost:           ZeroMoney(),
		Notes:               notes,
		UserID:              userID,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

// MovementReason is the audit reason for the product credit
func (p *Production) MovementReason() string {
	if p.Mode == ProductionManual {
		return fmt.Sprintf("Producción manual: %s (x%s)", p.ProductName, formatQuantity(p.Quantity))
	}
	return fmt.Sprintf("Producción con receta: %s (x%s)", p.ProductName, formatQuantity(p.Quantity))
}

// ProductionFilter narrows production listings
type ProductionFilter struct {
	Mode     ProductionMode
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
}

func formatQuantity(q float64) string {
	return fmt.Sprintf("%g", q)
}
