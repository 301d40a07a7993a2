package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrify/stock-service/internal/domain"
	apperrors "github.com/cobrify/stock-service/pkg/errors"
)

func newTestRecipeService(ts *testStore, recipes *fakeRecipeRepo) *RecipeService {
	return NewRecipeService(recipes, ts.store(), nil, nil)
}

func mustRecipe(t *testing.T, productID, productName string, cost float64, lines ...domain.RecipeLine) *domain.Recipe {
	t.Helper()
	if cost > 0 && len(lines) > 0 {
		lines[0].Cost = domain.NewMoney(cost)
	}
	r, err := domain.NewRecipe("biz-1", productID, productName, lines, 1, "")
	require.NoError(t, err)
	return r
}

func TestRecipeService_CostConvertsIntoStockUnit(t *testing.T) {
	flour := mustIngredient("Harina", "kg", 10, 2, 0)
	ts := newTestStore([]*domain.Ingredient{flour}, nil)
	svc := newTestRecipeService(ts, newFakeRecipeRepo())

	total, costed, err := svc.Cost(context.Background(), "biz-1", []domain.RecipeLine{
		{Kind: domain.ItemIngredient, ItemID: flour.ID, Quantity: 500, Unit: "g"},
		{Kind: domain.ItemIngredient, ItemID: "gone", ItemName: "Sal", Quantity: 1, Unit: "kg"},
	})

	require.NoError(t, err)
	require.Len(t, costed, 2)
	assert.True(t, costed[0].Cost.Equal(domain.NewMoney(1)), "got %s", costed[0].Cost)
	assert.Equal(t, "Harina", costed[0].ItemName)
	assert.True(t, costed[1].Cost.IsZero())
	assert.True(t, total.Equal(domain.NewMoney(1)), "got %s", total)
}

func TestRecipeService_CostUsesProductCostForProductLines(t *testing.T) {
	sauce := mustProduct("Salsa", 3, 8)
	sauce.Cost = domain.NewMoney(4)
	ts := newTestStore(nil, []*domain.Product{sauce})
	svc := newTestRecipeService(ts, newFakeRecipeRepo())

	total, _, err := svc.Cost(context.Background(), "biz-1", []domain.RecipeLine{
		{Kind: domain.ItemProduct, ItemID: sauce.ID, Quantity: 2, Unit: domain.UnitPiece},
	})

	require.NoError(t, err)
	assert.True(t, total.Equal(domain.NewMoney(8)), "got %s", total)
}

func TestRecipeService_CreateRecipe(t *testing.T) {
	flour := mustIngredient("Harina", "kg", 10, 2, 0)
	ts := newTestStore([]*domain.Ingredient{flour}, nil)
	recipes := newFakeRecipeRepo()
	svc := newTestRecipeService(ts, recipes)
	ctx := context.Background()

	cmd := CreateRecipeCommand{
		BusinessID:  "biz-1",
		ProductID:   "prod-1",
		ProductName: "Pan",
		Lines:       []RecipeLineInput{{ItemID: flour.ID, Quantity: 0.5, Unit: "KG"}},
	}
	dto, err := svc.CreateRecipe(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, 1, dto.Portions)
	assert.True(t, dto.TotalCost.Equal(domain.NewMoney(1)))
	assert.Equal(t, string(domain.ItemIngredient), dto.Lines[0].Kind)
	assert.Equal(t, "kg", dto.Lines[0].Unit)

	_, err = svc.CreateRecipe(ctx, cmd)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestRecipeService_CreateRecipeRejectsEmptyLines(t *testing.T) {
	svc := newTestRecipeService(newTestStore(nil, nil), newFakeRecipeRepo())

	_, err := svc.CreateRecipe(context.Background(), CreateRecipeCommand{BusinessID: "biz-1", ProductID: "prod-1"})

	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationError))
}

func TestRecipeService_UpdateRecipeRecostsOnlyWhenLinesChange(t *testing.T) {
	flour := mustIngredient("Harina", "kg", 10, 2, 0)
	ts := newTestStore([]*domain.Ingredient{flour}, nil)
	recipe := mustRecipe(t, "prod-1", "Pan", 2, domain.RecipeLine{Kind: domain.ItemIngredient, ItemID: flour.ID, Quantity: 1, Unit: "kg"})
	svc := newTestRecipeService(ts, newFakeRecipeRepo(recipe))
	ctx := context.Background()

	stored := ts.ingredients.get(flour.ID)
	stored.AverageCost = domain.NewMoney(3)
	require.NoError(t, ts.ingredients.Save(ctx, stored))

	notes := "sin cambios"
	dto, err := svc.UpdateRecipe(ctx, UpdateRecipeCommand{
		BusinessID: "biz-1",
		RecipeID:   recipe.ID,
		Notes:      &notes,
		Lines:      []RecipeLineInput{{ItemID: flour.ID, Quantity: 1, Unit: "kg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, notes, dto.Notes)
	assert.True(t, dto.TotalCost.Equal(domain.NewMoney(2)), "unchanged lines keep their cost, got %s", dto.TotalCost)

	dto, err = svc.UpdateRecipe(ctx, UpdateRecipeCommand{
		BusinessID: "biz-1",
		RecipeID:   recipe.ID,
		Lines:      []RecipeLineInput{{ItemID: flour.ID, Quantity: 2, Unit: "kg"}},
	})
	require.NoError(t, err)
	assert.True(t, dto.TotalCost.Equal(domain.NewMoney(6)), "got %s", dto.TotalCost)
}

func TestRecipeService_UpdateRecipeNotFound(t *testing.T) {
	svc := newTestRecipeService(newTestStore(nil, nil), newFakeRecipeRepo())

	_, err := svc.UpdateRecipe(context.Background(), UpdateRecipeCommand{BusinessID: "biz-1", RecipeID: "missing"})

	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestRecipeService_CheckStock(t *testing.T) {
	flour := mustIngredient("Harina", "kg", 2, 1, 0)
	sugar := mustIngredient("Azucar", "kg", 1, 1, 0)
	ts := newTestStore([]*domain.Ingredient{flour, sugar}, nil)
	recipe := mustRecipe(t, "prod-1", "Pan", 0,
		domain.RecipeLine{Kind: domain.ItemIngredient, ItemID: flour.ID, ItemName: "Harina", Quantity: 5, Unit: "kg"},
		domain.RecipeLine{Kind: domain.ItemIngredient, ItemID: sugar.ID, ItemName: "Azucar", Quantity: 200, Unit: "g"},
		domain.RecipeLine{Kind: domain.ItemIngredient, ItemID: "deleted", ItemName: "Sal", Quantity: 1, Unit: "kg"},
	)
	svc := newTestRecipeService(ts, newFakeRecipeRepo(recipe))

	result, err := svc.CheckStock(context.Background(), CheckStockQuery{BusinessID: "biz-1", ProductID: "prod-1", Quantity: 1})

	require.NoError(t, err)
	assert.False(t, result.HasStock)
	require.Len(t, result.MissingIngredients, 1)
	missing := result.MissingIngredients[0]
	assert.Equal(t, flour.ID, missing.ItemID)
	assert.Equal(t, 5.0, missing.Needed)
	assert.Equal(t, 2.0, missing.Available)
	assert.Equal(t, "kg", missing.Unit)
}

func TestRecipeService_CheckStockScalesWithQuantity(t *testing.T) {
	sugar := mustIngredient("Azucar", "kg", 1, 1, 0)
	ts := newTestStore([]*domain.Ingredient{sugar}, nil)
	recipe := mustRecipe(t, "prod-1", "Pan", 0,
		domain.RecipeLine{Kind: domain.ItemIngredient, ItemID: sugar.ID, ItemName: "Azucar", Quantity: 200, Unit: "g"})
	svc := newTestRecipeService(ts, newFakeRecipeRepo(recipe))
	ctx := context.Background()

	ok, err := svc.CheckStock(ctx, CheckStockQuery{BusinessID: "biz-1", ProductID: "prod-1", Quantity: 5})
	require.NoError(t, err)
	assert.True(t, ok.HasStock)

	short, err := svc.CheckStock(ctx, CheckStockQuery{BusinessID: "biz-1", ProductID: "prod-1", Quantity: 6})
	require.NoError(t, err)
	assert.False(t, short.HasStock)
}

func TestRecipeService_CheckStockWithoutRecipe(t *testing.T) {
	svc := newTestRecipeService(newTestStore(nil, nil), newFakeRecipeRepo())

	result, err := svc.CheckStock(context.Background(), CheckStockQuery{BusinessID: "biz-1", ProductID: "prod-1"})

	require.NoError(t, err)
	assert.True(t, result.HasStock)
	assert.Empty(t, result.MissingIngredients)
}

func TestRecipeService_Profitability(t *testing.T) {
	recipe := mustRecipe(t, "prod-1", "Pan", 4,
		domain.RecipeLine{Kind: domain.ItemIngredient, ItemID: "flour", Quantity: 1, Unit: "kg"})
	svc := newTestRecipeService(newTestStore(nil, nil), newFakeRecipeRepo(recipe))
	ctx := context.Background()

	t.Run("with recipe", func(t *testing.T) {
		result, err := svc.Profitability(ctx, ProfitabilityQuery{BusinessID: "biz-1", ProductID: "prod-1", SalePrice: 10})
		require.NoError(t, err)
		assert.True(t, result.HasCost)
		assert.Equal(t, CostStatusKnown, result.CostStatus)
		assert.True(t, result.Profit.Equal(domain.NewMoney(6)))
		assert.True(t, result.ProfitMargin.Equal(domain.NewMoney(60)), "got %s", result.ProfitMargin)
	})

	t.Run("without recipe the cost is unknown", func(t *testing.T) {
		result, err := svc.Profitability(ctx, ProfitabilityQuery{BusinessID: "biz-1", ProductID: "other", SalePrice: 10})
		require.NoError(t, err)
		assert.False(t, result.HasCost)
		assert.Equal(t, CostStatusUnknown, result.CostStatus)
		assert.True(t, result.Cost.IsZero())
		assert.True(t, result.Profit.Equal(domain.NewMoney(10)))
		assert.True(t, result.ProfitMargin.Equal(domain.NewMoney(100)))
	})

	t.Run("margin rounds to two decimals", func(t *testing.T) {
		result, err := svc.Profitability(ctx, ProfitabilityQuery{BusinessID: "biz-1", ProductID: "prod-1", SalePrice: 7})
		require.NoError(t, err)
		assert.True(t, result.ProfitMargin.Equal(domain.NewMoney(42.86)), "got %s", result.ProfitMargin)
	})
}

func TestRecipeService_RecalculateAll(t *testing.T) {
	flour := mustIngredient("Harina", "kg", 10, 2, 0)
	ts := newTestStore([]*domain.Ingredient{flour}, nil)
	bread := mustRecipe(t, "prod-1", "Pan", 0, domain.RecipeLine{Kind: domain.ItemIngredient, ItemID: flour.ID, Quantity: 1, Unit: "kg"})
	cake := mustRecipe(t, "prod-2", "Torta", 0, domain.RecipeLine{Kind: domain.ItemIngredient, ItemID: flour.ID, Quantity: 250, Unit: "g"})
	recipes := newFakeRecipeRepo(bread, cake)
	svc := newTestRecipeService(ts, recipes)

	result, err := svc.RecalculateAll(context.Background(), "biz-1")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	assert.True(t, recipes.items[bread.ID].TotalCost.Equal(domain.NewMoney(2)))
	assert.True(t, recipes.items[cake.ID].TotalCost.Equal(domain.NewMoney(0.5)))
}

func TestRecipeService_RecalculateAllConcurrentCallers(t *testing.T) {
	flour := mustIngredient("Harina", "kg", 10, 2, 0)
	ts := newTestStore([]*domain.Ingredient{flour}, nil)
	recipes := newFakeRecipeRepo(
		mustRecipe(t, "prod-1", "Pan", 0, domain.RecipeLine{Kind: domain.ItemIngredient, ItemID: flour.ID, Quantity: 1, Unit: "kg"}),
	)
	svc := newTestRecipeService(ts, recipes)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.RecalculateAll(context.Background(), "biz-1")
			assert.NoError(t, err)
			assert.Equal(t, 1, result.Updated)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, recipes.saves, 4)
}
