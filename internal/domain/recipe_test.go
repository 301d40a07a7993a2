package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecipe(t *testing.T) {
	lines := []RecipeLine{
		{ItemID: "ing-1", ItemName: "Harina", Quantity: 200, Unit: "g", Cost: NewMoney(0.4)},
		{Kind: ItemProduct, ItemID: "prod-2", ItemName: "Salsa", Quantity: 1, Unit: "unidad", Cost: NewMoney(1.1)},
	}

	r, err := NewRecipe("biz-1", "prod-1", "Pizza", lines, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Portions)
	assert.True(t, r.TotalCost.Equal(NewMoney(1.5)))
	assert.Equal(t, ItemIngredient, r.Lines[0].ItemKind())
	assert.Equal(t, ItemProduct, r.Lines[1].ItemKind())

	_, err = NewRecipe("biz-1", "prod-1", "Pizza", nil, 1, "")
	assert.ErrorIs(t, err, ErrRecipeWithoutLines)

	_, err = NewRecipe("biz-1", "prod-1", "Pizza", []RecipeLine{{ItemID: "x", Quantity: 0}}, 1, "")
	assert.ErrorIs(t, err, ErrInvalidRecipeLine)
}

func TestLinesEqual(t *testing.T) {
	a := []RecipeLine{{ItemID: "ing-1", Quantity: 1, Unit: "kg", Cost: NewMoney(2)}}
	b := []RecipeLine{{Kind: ItemIngredient, ItemID: "ing-1", Quantity: 1, Unit: "KG", Cost: NewMoney(5)}}
	assert.True(t, LinesEqual(a, b), "cost differences do not count")

	c := []RecipeLine{{ItemID: "ing-1", Quantity: 2, Unit: "kg"}}
	assert.False(t, LinesEqual(a, c))
	assert.False(t, LinesEqual(a, append(b, c...)))
}

func TestProduction_MovementReason(t *testing.T) {
	product, err := NewProduct("biz-1", "Pan", "", ZeroMoney(), 0)
	require.NoError(t, err)

	p, err := NewProduction("biz-1", product, 3, ProductionRecipe, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Producción con receta: Pan (x3)", p.MovementReason())

	p.Mode = ProductionManual
	p.Quantity = 2.5
	assert.Equal(t, "Producción manual: Pan (x2.5)", p.MovementReason())

	_, err = NewProduction("biz-1", product, 0, ProductionManual, "", "", "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestInsufficientStockError(t *testing.T) {
	err := error(&InsufficientStockError{Missing: []MissingIngredient{
		{Name: "Flour", Needed: 5, Available: 2, Unit: "kg"},
	}})
	assert.True(t, IsInsufficientStock(err))
	assert.Contains(t, err.Error(), "Flour: necesita 5 kg, disponible 2 kg")
	assert.False(t, IsInsufficientStock(ErrNoRecipe))
}

func TestDefaultWarehouse(t *testing.T) {
	assert.Nil(t, DefaultWarehouse(nil))

	first := &Warehouse{ID: "W1"}
	second := &Warehouse{ID: "W2", IsDefault: true}
	assert.Equal(t, second, DefaultWarehouse([]*Warehouse{first, second}))
	assert.Equal(t, first, DefaultWarehouse([]*Warehouse{first, {ID: "W3"}}))
}
