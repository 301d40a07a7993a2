package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidIngredientName = errors.New("ingredient name is required")
	ErrInvalidQuantity       = errors.New("quantity must be greater than zero")
	ErrNegativeStock         = errors.New("stock cannot be negative")
)

// Ingredient is a raw material bought from suppliers and consumed by recipes.
// Stock and average cost are expressed in PurchaseUnit.
type Ingredient struct {
	ID                string `bson:"_id" json:"id"`
	BusinessID        string `bson:"businessId" json:"businessId"`
	Name              string `bson:"name" json:"name"`
	Category          string `bson:"category,omitempty" json:"category,omitempty"`
	PurchaseUnit      string `bson:"purchaseUnit" json:"purchaseUnit"`
	StockLevel        `bson:",inline"`
	AverageCost       Money      `bson:"averageCost" json:"averageCost"`
	LastPurchasePrice Money      `bson:"lastPurchasePrice" json:"lastPurchasePrice"`
	LastPurchaseDate  *time.Time `bson:"lastPurchaseDate,omitempty" json:"lastPurchaseDate,omitempty"`
	MinimumStock      float64    `bson:"minimumStock" json:"minimumStock"`
	Version           int64      `bson:"version" json:"version"`
	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt" json:"updatedAt"`
	eventRecorder     `bson:"-" json:"-"`
}

// NewIngredient creates an ingredient with an optional opening stock
func NewIngredient(businessID, name, category, purchaseUnit string, openingStock float64, averageCost Money, minimumStock float64) (*Ingredient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidIngredientName
	}
	if openingStock < 0 {
		return nil, ErrNegativeStock
	}
	unit := NormalizeUnit(purchaseUnit)
	if unit == "" {
		unit = UnitPiece
	}

	now := time.Now().UTC()
	return &Ingredient{
		ID:           uuid.NewString(),
		BusinessID:   businessID,
		Name:         name,
		Category:     category,
		PurchaseUnit: unit,
		StockLevel:   StockLevel{CurrentStock: openingStock},
		AverageCost:  averageCost,
		MinimumStock: minimumStock,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (i *Ingredient) ItemID() string     { return i.ID }
func (i *Ingredient) ItemName() string   { return i.Name }
func (i *Ingredient) Kind() ItemKind     { return ItemIngredient }
func (i *Ingredient) StockUnit() string  { return i.PurchaseUnit }
func (i *Ingredient) UnitCost() Money    { return i.AverageCost }
func (i *Ingredient) Stock() *StockLevel { return &i.StockLevel }

// ReceivePurchase credits qty (already in PurchaseUnit) bought at unitCost
// per PurchaseUnit and blends it into the average cost.
func (i *Ingredient) ReceivePurchase(warehouseID string, qty float64, unitCost Money, purchasedAt time.Time) StockChange {
	i.AverageCost = ApplyPurchase(i.CurrentStock, i.AverageCost, qty, unitCost)
	i.LastPurchasePrice = unitCost
	at := purchasedAt
	i.LastPurchaseDate = &at

	change := i.Credit(warehouseID, qty)
	i.UpdatedAt = time.Now().UTC()
	return change
}

// ReversePurchase removes a previously received purchase
func (i *Ingredient) ReversePurchase(warehouseID string, qty float64, unitCost Money) StockChange {
	i.AverageCost = ReversePurchase(i.CurrentStock, i.AverageCost, qty, unitCost)
	change := i.Deduct(warehouseID, qty)
	i.UpdatedAt = time.Now().UTC()
	return change
}

// IsLowStock reports whether stock has reached the configured minimum
func (i *Ingredient) IsLowStock() bool {
	return i.MinimumStock > 0 && i.CurrentStock <= i.MinimumStock
}

// CheckLowStock records a LowStockAlertEvent when a mutation crosses the minimum
func (i *Ingredient) CheckLowStock(change StockChange) {
	if i.MinimumStock <= 0 {
		return
	}
	if change.Before > i.MinimumStock && change.After <= i.MinimumStock {
		i.AddDomainEvent(&LowStockAlertEvent{
			BusinessID:   i.BusinessID,
			IngredientID: i.ID,
			Name:         i.Name,
			CurrentStock: change.After,
			MinimumStock: i.MinimumStock,
			Unit:         i.PurchaseUnit,
			AlertedAt:    time.Now().UTC(),
		})
	}
}
