package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// IngredientPurchasedEvent is published when a purchase is registered
type IngredientPurchasedEvent struct {
	BusinessID   string    `json:"businessId"`
	IngredientID string    `json:"ingredientId"`
	PurchaseID   string    `json:"purchaseId"`
	Quantity     float64   `json:"quantity"`
	Unit         string    `json:"unit"`
	UnitCost     Money     `json:"unitCost"`
	AverageCost  Money     `json:"averageCost"`
	WarehouseID  string    `json:"warehouseId,omitempty"`
	PurchasedAt  time.Time `json:"purchasedAt"`
}

func (e *IngredientPurchasedEvent) EventType() string     { return "cobrify.stock.ingredient.purchased" }
func (e *IngredientPurchasedEvent) OccurredAt() time.Time { return e.PurchasedAt }

// PurchaseDeletedEvent is published when a purchase is reversed
type PurchaseDeletedEvent struct {
	BusinessID   string    `json:"businessId"`
	IngredientID string    `json:"ingredientId"`
	PurchaseID   string    `json:"purchaseId"`
	Quantity     float64   `json:"quantity"`
	DeletedAt    time.Time `json:"deletedAt"`
}

func (e *PurchaseDeletedEvent) EventType() string     { return "cobrify.stock.purchase.deleted" }
func (e *PurchaseDeletedEvent) OccurredAt() time.Time { return e.DeletedAt }

// StockAdjustedEvent is published when stock is set to an absolute value
type StockAdjustedEvent struct {
	BusinessID  string    `json:"businessId"`
	ItemID      string    `json:"itemId"`
	ItemKind    ItemKind  `json:"itemType"`
	WarehouseID string    `json:"warehouseId,omitempty"`
	OldStock    float64   `json:"oldStock"`
	NewStock    float64   `json:"newStock"`
	Reason      string    `json:"reason"`
	AdjustedAt  time.Time `json:"adjustedAt"`
}

func (e *StockAdjustedEvent) EventType() string     { return "cobrify.stock.adjusted" }
func (e *StockAdjustedEvent) OccurredAt() time.Time { return e.AdjustedAt }

// StockConsumedEvent is published when a sale or production consumes stock
type StockConsumedEvent struct {
	BusinessID   string       `json:"businessId"`
	ItemID       string       `json:"itemId"`
	ItemKind     ItemKind     `json:"itemType"`
	MovementType MovementType `json:"movementType"`
	Quantity     float64      `json:"quantity"`
	Unit         string       `json:"unit"`
	WarehouseID  string       `json:"warehouseId,omitempty"`
	ReferenceID  string       `json:"referenceId,omitempty"`
	ConsumedAt   time.Time    `json:"consumedAt"`
}

func (e *StockConsumedEvent) EventType() string     { return "cobrify.stock.consumed" }
func (e *StockConsumedEvent) OccurredAt() time.Time { return e.ConsumedAt }

// StockTransferredEvent is published when stock moves between warehouses
type StockTransferredEvent struct {
	BusinessID      string    `json:"businessId"`
	ItemID          string    `json:"itemId"`
	ItemKind        ItemKind  `json:"itemType"`
	FromWarehouseID string    `json:"fromWarehouseId"`
	ToWarehouseID   string    `json:"toWarehouseId"`
	Quantity        float64   `json:"quantity"`
	TransferredAt   time.Time `json:"transferredAt"`
}

func (e *StockTransferredEvent) EventType() string     { return "cobrify.stock.transferred" }
func (e *StockTransferredEvent) OccurredAt() time.Time { return e.TransferredAt }

// ProductionCompletedEvent is published when a production run is recorded
type ProductionCompletedEvent struct {
	BusinessID   string         `json:"businessId"`
	ProductionID string         `json:"productionId"`
	ProductID    string         `json:"productId"`
	Quantity     float64        `json:"quantity"`
	Mode         ProductionMode `json:"mode"`
	TotalCost    Money          `json:"totalCost"`
	CompletedAt  time.Time      `json:"completedAt"`
}

func (e *ProductionCompletedEvent) EventType() string     { return "cobrify.stock.production.completed" }
func (e *ProductionCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// LowStockAlertEvent is published when an ingredient falls to its minimum stock
type LowStockAlertEvent struct {
	BusinessID   string    `json:"businessId"`
	IngredientID string    `json:"ingredientId"`
	Name         string    `json:"name"`
	CurrentStock float64   `json:"currentStock"`
	MinimumStock float64   `json:"minimumStock"`
	Unit         string    `json:"unit"`
	AlertedAt    time.Time `json:"alertedAt"`
}

func (e *LowStockAlertEvent) EventType() string     { return "cobrify.stock.low-stock-alert" }
func (e *LowStockAlertEvent) OccurredAt() time.Time { return e.AlertedAt }
