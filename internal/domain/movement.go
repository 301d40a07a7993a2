package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementPurchase              MovementType = "purchase"
	MovementPurchaseDelete        MovementType = "purchase_delete"
	MovementSale                  MovementType = "sale"
	MovementProductionConsumption MovementType = "production_consumption"
	MovementProduction            MovementType = "production"
	MovementProductionManual      MovementType = "production_manual"
	MovementAdjustment            MovementType = "adjustment"
	MovementTransfer              MovementType = "transfer"
)

// IsValid checks if the movement type is known
func (t MovementType) IsValid() bool {
	switch t {
	case MovementPurchase, MovementPurchaseDelete, MovementSale,
		MovementProductionConsumption, MovementProduction, MovementProductionManual,
		MovementAdjustment, MovementTransfer:
		return true
	default:
		return false
	}
}

// StockMovement is an append-only audit record of one stock mutation.
// BeforeStock and AfterStock are always the item's total across warehouses;
// for a transfer they are equal.
type StockMovement struct {
	ID                  string       `bson:"_id" json:"id"`
	BusinessID          string       `bson:"businessId" json:"businessId"`
	EntityID            string       `bson:"ingredientId" json:"ingredientId"`
	EntityKind          ItemKind     `bson:"itemType" json:"itemType"`
	EntityName          string       `bson:"ingredientName" json:"ingredientName"`
	Type                MovementType `bson:"type" json:"type"`
	Quantity            float64      `bson:"quantity" json:"quantity"`
	Unit                string       `bson:"unit" json:"unit"`
	WarehouseID         string       `bson:"warehouseId,omitempty" json:"warehouseId,omitempty"`
	FromWarehouseID     string       `bson:"fromWarehouse,omitempty" json:"fromWarehouse,omitempty"`
	ToWarehouseID       string       `bson:"toWarehouse,omitempty" json:"toWarehouse,omitempty"`
	Reason              string       `bson:"reason" json:"reason"`
	BeforeStock         float64      `bson:"beforeStock" json:"beforeStock"`
	AfterStock          float64      `bson:"afterStock" json:"afterStock"`
	RelatedSaleID       string       `bson:"relatedSaleId,omitempty" json:"relatedSaleId,omitempty"`
	RelatedPurchaseID   string       `bson:"relatedPurchaseId,omitempty" json:"relatedPurchaseId,omitempty"`
	RelatedProductionID string       `bson:"relatedProductionId,omitempty" json:"relatedProductionId,omitempty"`
	UserID              string       `bson:"userId,omitempty" json:"userId,omitempty"`
	CreatedAt           time.Time    `bson:"createdAt" json:"createdAt"`
}

// NewStockMovement records a change of item's stock
func NewStockMovement(item StockItem, businessID string, movementType MovementType, quantity float64, change StockChange, reason string) *StockMovement {
	return &StockMovement{
		ID:          uuid.NewString(),
		BusinessID:  businessID,
		EntityID:    item.ItemID(),
		EntityKind:  item.Kind(),
		EntityName:  item.ItemName(),
		Type:        movementType,
		Quantity:    quantity,
		Unit:        item.StockUnit(),
		WarehouseID: change.WarehouseID,
		Reason:      reason,
		BeforeStock: change.Before,
		AfterStock:  change.After,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewAdjustmentMovement records an absolute stock adjustment.
// Quantity is the magnitude of the change.
func NewAdjustmentMovement(item StockItem, businessID string, change StockChange, reason string) *StockMovement {
	if reason == "" {
		reason = "Ajuste manual"
	}
	return NewStockMovement(item, businessID, MovementAdjustment, math.Abs(change.Delta()), change, reason)
}

// MovementFilter narrows movement listings
type MovementFilter struct {
	EntityID    string
	WarehouseID string
	SaleID      string
	Type        MovementType
	From        *time.Time
	To          *time.Time
	Limit       int
}
