package application

import (
	"time"

	"github.com/cobrify/stock-service/internal/domain"
)

// WarehouseStockDTO is the stock held in one warehouse
type WarehouseStockDTO struct {
	WarehouseID string  `json:"warehouseId"`
	Stock       float64 `json:"stock"`
}

// IngredientDTO represents an ingredient for API responses
type IngredientDTO struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Category          string              `json:"category,omitempty"`
	PurchaseUnit      string              `json:"purchaseUnit"`
	CurrentStock      float64             `json:"currentStock"`
	WarehouseStocks   []WarehouseStockDTO `json:"warehouseStocks"`
	AverageCost       domain.Money        `json:"averageCost"`
	LastPurchasePrice domain.Money        `json:"lastPurchasePrice"`
	LastPurchaseDate  *time.Time          `json:"lastPurchaseDate,omitempty"`
	MinimumStock      float64             `json:"minimumStock"`
	IsLowStock        bool                `json:"isLowStock"`
	Version           int64               `json:"version"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// ProductStockDTO represents a finished product's stock
type ProductStockDTO struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Unit            string              `json:"unit"`
	Price           domain.Money        `json:"price"`
	Cost            domain.Money        `json:"cost"`
	Stock           float64             `json:"stock"`
	WarehouseStocks []WarehouseStockDTO `json:"warehouseStocks"`
	Version         int64               `json:"version"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// PurchaseDTO represents a purchase record
type PurchaseDTO struct {
	ID             string       `json:"id"`
	IngredientID   string       `json:"ingredientId"`
	IngredientName string       `json:"ingredientName"`
	Quantity       float64      `json:"quantity"`
	Unit           string       `json:"unit"`
	UnitPrice      domain.Money `json:"unitPrice"`
	TotalCost      domain.Money `json:"totalCost"`
	Supplier       string       `json:"supplier,omitempty"`
	InvoiceNumber  string       `json:"invoiceNumber,omitempty"`
	WarehouseID    string       `json:"warehouseId,omitempty"`
	PurchaseDate   time.Time    `json:"purchaseDate"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// PurchaseResultDTO is returned after registering a purchase
type PurchaseResultDTO struct {
	Purchase   *PurchaseDTO   `json:"purchase"`
	Ingredient *IngredientDTO `json:"ingredient"`
}

// MovementDTO represents a stock movement
type MovementDTO struct {
	ID                  string    `json:"id"`
	ItemID              string    `json:"ingredientId"`
	ItemKind            string    `json:"itemType"`
	ItemName            string    `json:"ingredientName"`
	Type                string    `json:"type"`
	Quantity            float64   `json:"quantity"`
	Unit                string    `json:"unit"`
	WarehouseID         string    `json:"warehouseId,omitempty"`
	FromWarehouseID     string    `json:"fromWarehouse,omitempty"`
	ToWarehouseID       string    `json:"toWarehouse,omitempty"`
	Reason              string    `json:"reason"`
	BeforeStock         float64   `json:"beforeStock"`
	AfterStock          float64   `json:"afterStock"`
	RelatedSaleID       string    `json:"relatedSaleId,omitempty"`
	RelatedPurchaseID   string    `json:"relatedPurchaseId,omitempty"`
	RelatedProductionID string    `json:"relatedProductionId,omitempty"`
	UserID              string    `json:"userId,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// DeductResultDTO summarizes a sale deduction
type DeductResultDTO struct {
	Deducted int      `json:"deducted"`
	Skipped  []string `json:"skipped"`
}

// RecipeLineDTO is one costed recipe line
type RecipeLineDTO struct {
	Kind     string       `json:"ingredientType"`
	ItemID   string       `json:"ingredientId"`
	ItemName string       `json:"ingredientName"`
	Quantity float64      `json:"quantity"`
	Unit     string       `json:"unit"`
	Cost     domain.Money `json:"cost"`
}

// RecipeDTO represents a recipe
type RecipeDTO struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Lines       []RecipeLineDTO `json:"ingredients"`
	Portions    int             `json:"portions"`
	TotalCost   domain.Money    `json:"totalCost"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// StockCheckDTO reports whether a recipe can be covered by current stock
type StockCheckDTO struct {
	HasStock           bool                       `json:"hasStock"`
	MissingIngredients []domain.MissingIngredient `json:"missingIngredients"`
}

// Cost status of a profitability result
const (
	CostStatusKnown   = "known"
	CostStatusUnknown = "unknown"
)

// ProfitabilityDTO is the cost and margin of a product at a sale price.
// Without a recipe the cost is unknown and the margin is reported as 100.
type ProfitabilityDTO struct {
	HasCost      bool         `json:"hasCost"`
	CostStatus   string       `json:"costStatus"`
	Cost         domain.Money `json:"cost"`
	Price        domain.Money `json:"price"`
	Profit       domain.Money `json:"profit"`
	ProfitMargin domain.Money `json:"profitMargin"`
}

// RecalculateResultDTO reports how many recipes were re-costed
type RecalculateResultDTO struct {
	Updated int `json:"updated"`
}

// DeductedItemDTO is one line consumed by a production
type DeductedItemDTO struct {
	Kind     string  `json:"ingredientType"`
	ItemID   string  `json:"ingredientId"`
	ItemName string  `json:"ingredientName"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// ProductionDTO represents a production record
type ProductionDTO struct {
	ID                  string            `json:"id"`
	ProductID           string            `json:"productId"`
	ProductName         string            `json:"productName"`
	Quantity            float64           `json:"quantity"`
	Mode                string            `json:"mode"`
	RecipeID            string            `json:"recipeId,omitempty"`
	WarehouseID         string            `json:"warehouseId,omitempty"`
	IngredientsDeducted []DeductedItemDTO `json:"ingredientsDeducted"`
	TotalCost           domain.Money      `json:"totalCost"`
	Notes               string            `json:"notes,omitempty"`
	UserID              string            `json:"userId,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
}

// ReadinessDTO reports whether a product can be produced by recipe
type ReadinessDTO struct {
	HasRecipe          bool                       `json:"hasRecipe"`
	HasStock           bool                       `json:"hasStock"`
	MissingIngredients []domain.MissingIngredient `json:"missingIngredients"`
	Recipe             *RecipeDTO                 `json:"recipe,omitempty"`
}

// WarehouseDTO represents a warehouse
type WarehouseDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	BranchID  string    `json:"branchId,omitempty"`
	IsDefault bool      `json:"isDefault"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BranchStockDTO is an item's stock restricted to a branch filter
type BranchStockDTO struct {
	ItemID   string  `json:"itemId"`
	ItemKind string  `json:"itemType"`
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Stock    float64 `json:"stock"`
}

// InitializeStocksDTO reports how many items were assigned to the default warehouse
type InitializeStocksDTO struct {
	WarehouseID string `json:"warehouseId"`
	Ingredients int    `json:"ingredients"`
	Products    int    `json:"products"`
}
