package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Purchase is an immutable receipt of ingredient stock bought from a supplier.
// Quantity and UnitPrice are in the unit the purchase was made in.
type Purchase struct {
	ID             string    `bson:"_id" json:"id"`
	BusinessID     string    `bson:"businessId" json:"businessId"`
	IngredientID   string    `bson:"ingredientId" json:"ingredientId"`
	IngredientName string    `bson:"ingredientName" json:"ingredientName"`
	Quantity       float64   `bson:"quantity" json:"quantity"`
	Unit           string    `bson:"unit" json:"unit"`
	UnitPrice      Money     `bson:"unitPrice" json:"unitPrice"`
	TotalCost      Money     `bson:"totalCost" json:"totalCost"`
	Supplier       string    `bson:"supplier,omitempty" json:"supplier,omitempty"`
	InvoiceNumber  string    `bson:"invoiceNumber,omitempty" json:"invoiceNumber,omitempty"`
	WarehouseID    string    `bson:"warehouseId,omitempty" json:"warehouseId,omitempty"`
	UserID         string    `bson:"userId,omitempty" json:"userId,omitempty"`
	PurchaseDate   time.Time `bson:"purchaseDate" json:"purchaseDate"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}

// NewPurchase creates a purchase record for an ingredient
func NewPurchase(ing *Ingredient, quantity float64, unit string, unitPrice Money, supplier, invoiceNumber, warehouseID string, purchaseDate time.Time) (*Purchase, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return nil, ErrInvalidMoney
	}
	if unit == "" {
		unit = ing.PurchaseUnit
	}
	if purchaseDate.IsZero() {
		purchaseDate = time.Now().UTC()
	}

	return &Purchase{
		ID:             uuid.NewString(),
		BusinessID:     ing.BusinessID,
		IngredientID:   ing.ID,
		IngredientName: ing.Name,
		Quantity:       quantity,
		Unit:           NormalizeUnit(unit),
		UnitPrice:      unitPrice,
		TotalCost:      unitPrice.Mul(quantity),
		Supplier:       strings.TrimSpace(supplier),
		InvoiceNumber:  invoiceNumber,
		WarehouseID:    warehouseID,
		PurchaseDate:   purchaseDate,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// CostPerUnit returns the price per stock unit given the quantity converted
// into that unit. The purchase price is returned when no conversion applies.
func (p *Purchase) CostPerUnit(convertedQty float64) Money {
	if convertedQty <= 0 || convertedQty == p.Quantity {
		return p.UnitPrice
	}
	cost, err := p.TotalCost.Div(convertedQty)
	if err != nil {
		return p.UnitPrice
	}
	return cost
}

// MovementReason is the audit reason for the purchase's stock movement
func (p *Purchase) MovementReason() string {
	supplier := p.Supplier
	if supplier == "" {
		supplier = "Sin proveedor"
	}
	return fmt.Sprintf("Compra - %s", supplier)
}
