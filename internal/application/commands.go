package application

import "time"

// CreateIngredientCommand creates an ingredient with optional opening stock
type CreateIngredientCommand struct {
	BusinessID   string
	Name         string
	Category     string
	PurchaseUnit string
	CurrentStock float64
	AverageCost  float64
	MinimumStock float64
	UserID       string
}

// UpdateIngredientCommand changes descriptive fields of an ingredient.
// Stock is only changed through purchases, sales and adjustments.
type UpdateIngredientCommand struct {
	BusinessID   string
	IngredientID string
	Name         *string
	Category     *string
	MinimumStock *float64
}

// RegisterPurchaseCommand records a purchase of an ingredient
type RegisterPurchaseCommand struct {
	BusinessID    string
	IngredientID  string
	Quantity      float64
	Unit          string
	UnitPrice     float64
	Supplier      string
	InvoiceNumber string
	WarehouseID   string
	PurchaseDate  *time.Time
	UserID        string
}

// DeletePurchaseCommand reverses a purchase
type DeletePurchaseCommand struct {
	BusinessID string
	PurchaseID string
	UserID     string
}

// SaleLine is one recipe line consumed by a sale, in the line's own unit.
// ProductName names the sold product the line belongs to and falls back to
// the command's.
type SaleLine struct {
	Kind        string
	ItemID      string
	ItemName    string
	Quantity    float64
	Unit        string
	ProductName string
}

// DeductForSaleCommand consumes stock for a sale in one transaction
type DeductForSaleCommand struct {
	BusinessID  string
	Lines       []SaleLine
	SaleID      string
	ProductName string
	WarehouseID string
	UserID      string
}

// AdjustStockCommand sets an item's stock to an absolute value
type AdjustStockCommand struct {
	BusinessID  string
	ItemKind    string
	ItemID      string
	WarehouseID string
	NewStock    float64
	Reason      string
	UserID      string
}

// ListMovementsQuery filters the movement log
type ListMovementsQuery struct {
	BusinessID  string
	ItemID      string
	WarehouseID string
	Type        string
	From        *time.Time
	To          *time.Time
	Limit       int
}

// RecipeLineInput is a recipe line as submitted by a client
type RecipeLineInput struct {
	Kind     string
	ItemID   string
	ItemName string
	Quantity float64
	Unit     string
}

// CreateRecipeCommand creates the recipe of a product
type CreateRecipeCommand struct {
	BusinessID  string
	ProductID   string
	ProductName string
	Lines       []RecipeLineInput
	Portions    int
	Notes       string
}

// UpdateRecipeCommand changes a recipe. Nil fields are left untouched.
type UpdateRecipeCommand struct {
	BusinessID  string
	RecipeID    string
	ProductName *string
	Lines       []RecipeLineInput
	Portions    *int
	Notes       *string
}

// CheckStockQuery asks whether a product's recipe can be covered by stock
type CheckStockQuery struct {
	BusinessID string
	ProductID  string
	Quantity   float64
}

// ProfitabilityQuery asks for the cost and margin of a product at a price
type ProfitabilityQuery struct {
	BusinessID string
	ProductID  string
	SalePrice  float64
}

// ExecuteProductionCommand runs a production for a product
type ExecuteProductionCommand struct {
	BusinessID  string
	ProductID   string
	Quantity    float64
	WarehouseID string
	Notes       string
	UserID      string
}

// ListProductionsQuery filters production history
type ListProductionsQuery struct {
	BusinessID string
	Mode       string
	Search     string
	DateFrom   *time.Time
	DateTo     *time.Time
}

// CreateWarehouseCommand creates a warehouse
type CreateWarehouseCommand struct {
	BusinessID string
	Name       string
	Location   string
	BranchID   string
	IsDefault  bool
}

// UpdateWarehouseCommand changes a warehouse. Nil fields are left untouched.
type UpdateWarehouseCommand struct {
	BusinessID  string
	WarehouseID string
	Name        *string
	Location    *string
	BranchID    *string
	IsDefault   *bool
	IsActive    *bool
}

// TransferStockCommand moves stock of one item between warehouses
type TransferStockCommand struct {
	BusinessID      string
	ItemKind        string
	ItemID          string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        float64
	Reason          string
	UserID          string
}

// StockByBranchQuery asks for per-item stock within a branch filter
type StockByBranchQuery struct {
	BusinessID string
	Branch     string
}
