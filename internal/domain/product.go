package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidProductName = errors.New("product name is required")

// Product is a finished good. It is credited by production runs and may be
// consumed by other recipes (e.g. a sauce used in a dish).
type Product struct {
	ID            string `bson:"_id" json:"id"`
	BusinessID    string `bson:"businessId" json:"businessId"`
	Name          string `bson:"name" json:"name"`
	Unit          string `bson:"unit" json:"unit"`
	Price         Money  `bson:"price" json:"price"`
	Cost          Money  `bson:"cost" json:"cost"`
	TrackStock    bool   `bson:"trackStock" json:"trackStock"`
	StockLevel    `bson:",inline"`
	Version       int64     `bson:"version" json:"version"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
	eventRecorder `bson:"-" json:"-"`
}

// NewProduct creates a stock-tracked product
func NewProduct(businessID, name, unit string, price Money, openingStock float64) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidProductName
	}
	if openingStock < 0 {
		return nil, ErrNegativeStock
	}
	unit = NormalizeUnit(unit)
	if unit == "" {
		unit = UnitPiece
	}

	now := time.Now().UTC()
	return &Product{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		Name:       name,
		Unit:       unit,
		Price:      price,
		TrackStock: true,
		StockLevel: StockLevel{CurrentStock: openingStock},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (p *Product) ItemID() string     { return p.ID }
func (p *Product) ItemName() string   { return p.Name }
func (p *Product) Kind() ItemKind     { return ItemProduct }
func (p *Product) StockUnit() string  { return p.Unit }
func (p *Product) UnitCost() Money    { return p.Cost }
func (p *Product) Stock() *StockLevel { return &p.StockLevel }

// Produce credits produced units. A known unit cost replaces the product cost.
func (p *Product) Produce(warehouseID string, qty float64, unitCost Money) StockChange {
	if unitCost.IsPositive() {
		p.Cost = unitCost
	}
	p.TrackStock = true
	change := p.Credit(warehouseID, qty)
	p.UpdatedAt = time.Now().UTC()
	return change
}
