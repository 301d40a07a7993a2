package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRecipeWithoutLines = errors.New("recipe must have at least one ingredient")
	ErrInvalidRecipeLine  = errors.New("recipe line requires an item and a positive quantity")
)

// RecipeLine is one ingredient of a recipe, in the recipe's own unit.
// Kind selects whether it consumes a raw ingredient or a finished product.
type RecipeLine struct {
	Kind     ItemKind `bson:"ingredientType,omitempty" json:"ingredientType,omitempty"`
	ItemID   string   `bson:"ingredientId" json:"ingredientId"`
	ItemName string   `bson:"ingredientName" json:"ingredientName"`
	Quantity float64  `bson:"quantity" json:"quantity"`
	Unit     string   `bson:"unit" json:"unit"`
	Cost     Money    `bson:"cost" json:"cost"`
}

// ItemKind returns the line kind, treating legacy untagged lines as ingredients
func (l RecipeLine) ItemKind() ItemKind {
	if l.Kind == "" {
		return ItemIngredient
	}
	return l.Kind
}

// Validate checks a single line
func (l RecipeLine) Validate() error {
	if l.ItemID == "" || l.Quantity <= 0 || !l.ItemKind().IsValid() {
		return ErrInvalidRecipeLine
	}
	return nil
}

// Recipe is the bill of materials for one portion of a product.
// TotalCost is a snapshot refreshed by explicit recalculation, not live.
type Recipe struct {
	ID          string       `bson:"_id" json:"id"`
	BusinessID  string       `bson:"businessId" json:"businessId"`
	ProductID   string       `bson:"productId" json:"productId"`
	ProductName string       `bson:"productName" json:"productName"`
	Lines       []RecipeLine `bson:"ingredients" json:"ingredients"`
	Portions    int          `bson:"portions" json:"portions"`
	TotalCost   Money        `bson:"totalCost" json:"totalCost"`
	Notes       string       `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// NewRecipe creates a recipe; portions default to 1
func NewRecipe(businessID, productID, productName string, lines []RecipeLine, portions int, notes string) (*Recipe, error) {
	if err := ValidateLines(lines); err != nil {
		return nil, err
	}
	if portions <= 0 {
		portions = 1
	}
	now := time.Now().UTC()
	r := &Recipe{
		ID:          uuid.NewString(),
		BusinessID:  businessID,
		ProductID:   productID,
		ProductName: productName,
		Portions:    portions,
		Notes:       notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.ApplyCostedLines(lines)
	return r, nil
}

// ApplyCostedLines replaces the lines and refreshes TotalCost from their costs
func (r *Recipe) ApplyCostedLines(lines []RecipeLine) {
	r.Lines = lines
	r.TotalCost = SumLineCosts(lines)
	r.UpdatedAt = time.Now().UTC()
}

// ValidateLines checks that a recipe has at least one valid line
func ValidateLines(lines []RecipeLine) error {
	if len(lines) == 0 {
		return ErrRecipeWithoutLines
	}
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SumLineCosts adds up per-line costs
func SumLineCosts(lines []RecipeLine) Money {
	total := ZeroMoney()
	for _, l := range lines {
		total = total.Add(l.Cost)
	}
	return total
}

// LinesEqual reports whether two line lists consume the same items in the same amounts
func LinesEqual(a, b []RecipeLine) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ItemKind() != b[i].ItemKind() ||
			a[i].ItemID != b[i].ItemID ||
			a[i].Quantity != b[i].Quantity ||
			NormalizeUnit(a[i].Unit) != NormalizeUnit(b[i].Unit) {
			return false
		}
	}
	return true
}
