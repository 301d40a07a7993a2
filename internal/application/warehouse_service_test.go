package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrify/stock-service/internal/domain"
	apperrors "github.com/cobrify/stock-service/pkg/errors"
)

type memWarehouseCache struct {
	entries     map[string][]*domain.Warehouse
	invalidated int
}

func (c *memWarehouseCache) Get(ctx context.Context, businessID string) ([]*domain.Warehouse, bool, error) {
	w, ok := c.entries[businessID]
	return w, ok, nil
}

func (c *memWarehouseCache) Set(ctx context.Context, businessID string, warehouses []*domain.Warehouse) error {
	if c.entries == nil {
		c.entries = make(map[string][]*domain.Warehouse)
	}
	c.entries[businessID] = warehouses
	return nil
}

func (c *memWarehouseCache) Invalidate(ctx context.Context, businessID string) error {
	c.invalidated++
	delete(c.entries, businessID)
	return nil
}

func newWarehouseFixture(ingredients []*domain.Ingredient, products []*domain.Product) (*WarehouseService, *fakeWarehouseRepo, *testStore, *memWarehouseCache) {
	ts := newTestStore(ingredients, products)
	repo := &fakeWarehouseRepo{}
	cache := &memWarehouseCache{}
	return NewWarehouseService(repo, ts.store(), cache, nil, nil), repo, ts, cache
}

func TestWarehouseService_FirstWarehouseIsDefault(t *testing.T) {
	svc, repo, _, _ := newWarehouseFixture(nil, nil)
	ctx := context.Background()

	first, err := svc.CreateWarehouse(ctx, CreateWarehouseCommand{BusinessID: "biz-1", Name: "Principal"})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := svc.CreateWarehouse(ctx, CreateWarehouseCommand{BusinessID: "biz-1", Name: "Cocina"})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	_, err = svc.CreateWarehouse(ctx, CreateWarehouseCommand{BusinessID: "biz-1", Name: "Barra", IsDefault: true})
	require.NoError(t, err)

	defaults := 0
	for _, w := range repo.items {
		if w.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestWarehouseService_CreateRejectsBlankName(t *testing.T) {
	svc, _, _, _ := newWarehouseFixture(nil, nil)

	_, err := svc.CreateWarehouse(context.Background(), CreateWarehouseCommand{BusinessID: "biz-1", Name: "  "})

	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationError))
}

func TestWarehouseService_UpdateMovesDefault(t *testing.T) {
	svc, _, _, _ := newWarehouseFixture(nil, nil)
	ctx := context.Background()
	first, err := svc.CreateWarehouse(ctx, CreateWarehouseCommand{BusinessID: "biz-1", Name: "Principal"})
	require.NoError(t, err)
	second, err := svc.CreateWarehouse(ctx, CreateWarehouseCommand{BusinessID: "biz-1", Name: "Cocina"})
	require.NoError(t, err)

	isDefault := true
	_, err = svc.UpdateWarehouse(ctx, UpdateWarehouseCommand{BusinessID: "biz-1", WarehouseID: second.ID, IsDefault: &isDefault})
	require.NoError(t, err)

	def, err := svc.DefaultWarehouse(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	reloaded, err := svc.GetWarehouse(ctx, "biz-1", first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)
}

func TestWarehouseService_ListUsesCache(t *testing.T) {
	svc, repo, _, cache := newWarehouseFixture(nil, nil)
	ctx := context.Background()
	_, err := svc.CreateWarehouse(ctx, CreateWarehouseCommand{BusinessID: "biz-1", Name: "Principal"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)

	list, err := svc.ListWarehouses(ctx, "biz-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	repo.items = nil
	cached, err := svc.ListWarehouses(ctx, "biz-1")
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestWarehouseService_DeleteRefusedWhileHoldingStock(t *testing.T) {
	flour := mustIngredient("Harina", "kg", 0, 1, 0)
	flour.WarehouseStocks = []domain.WarehouseStock{{WarehouseID: "wh-1", Stock: 4}}
	flour.CurrentStock = 4
	svc, repo, _, _ := newWarehouseFixture([]*domain.Ingredient{flour}, nil)
	repo.items = []*domain.Warehouse{{ID: "wh-1", Name: "Principal"}, {ID: "wh-2", Name: "Cocina"}}
	ctx := context.Background()

	err := svc.DeleteWarehouse(ctx, "biz-1", "wh-1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	require.NoError(t, svc.DeleteWarehouse(ctx, "biz-1", "wh-2"))
	assert.Len(t, repo.items, 1)

	err = svc.DeleteWarehouse(ctx, "biz-1", "wh-9")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestWarehouseService_TransferStock(t *testing.T) {
	flour := mustIngredient("Harina", "kg", 0, 1, 0)
	flour.WarehouseStocks = []domain.WarehouseStock{{WarehouseID: "wh-1", Stock: 10}}
	flour.CurrentStock = 10
	svc, repo, ts, _ := newWarehouseFixture([]*domain.Ingredient{flour}, nil)
	repo.items = []*domain.Warehouse{{ID: "wh-1", Name: "Principal"}, {ID: "wh-2", Name: "Cocina"}}

	dto, err := svc.TransferStock(context.Background(), TransferStockCommand{
		BusinessID:      "biz-1",
		ItemID:          flour.ID,
		FromWarehouseID: "wh-1",
		ToWarehouseID:   "wh-2",
		Quantity:        3,
	})

	require.NoError(t, err)
	assert.Equal(t, string(domain.MovementTransfer), dto.Type)
	assert.Equal(t, -3.0, dto.Quantity)
	assert.Equal(t, "wh-1", dto.FromWarehouseID)
	assert.Equal(t, "wh-2", dto.ToWarehouseID)
	assert.Equal(t, defaultTransferReason, dto.Reason)

	stored := ts.ingredients.get(flour.ID)
	assert.Equal(t, 10.0, stored.CurrentStock)
	assert.Equal(t, 7.0, stored.StockInWarehouse("wh-1"))
	assert.Equal(t, 3.0, stored.StockInWarehouse("wh-2"))
	require.Len(t, ts.movements.movements, 1)
	assert.Equal(t, 10.0, dto.BeforeStock)
	assert.Equal(t, 10.0, dto.AfterStock)
	assert.Empty(t, ts.movements.movements[0].WarehouseID)
	require.Len(t, ts.ingredients.events, 1)
	assert.IsType(t, &domain.StockTransferredEvent{}, ts.ingredients.events[0])
}

func TestWarehouseService_TransferFlatStockStartsFromSource(t *testing.T) {
	sauce := mustProduct("Salsa", 6, 3)
	svc, repo, ts, _ := newWarehouseFixture(nil, []*domain.Product{sauce})
	repo.items = []*domain.Warehouse{{ID: "wh-1", Name: "Principal"}, {ID: "wh-2", Name: "Cocina"}}

	_, err := svc.TransferStock(context.Background(), TransferStockCommand{
		BusinessID:      "biz-1",
		ItemKind:        string(domain.ItemProduct),
		ItemID:          sauce.ID,
		FromWarehouseID: "wh-1",
		ToWarehouseID:   "wh-2",
		Quantity:        2,
	})

	require.NoError(t, err)
	stored := ts.products.get(sauce.ID)
	assert.Equal(t, 6.0, stored.CurrentStock)
	assert.Equal(t, 4.0, stored.StockInWarehouse("wh-1"))
	assert.Equal(t, 2.0, stored.StockInWarehouse("wh-2"))
}

func TestWarehouseService_TransferValidation(t *testing.T) {
	flour := mustIngredient("Harina", "kg", 0, 1, 0)
	flour.WarehouseStocks = []domain.WarehouseStock{{WarehouseID: "wh-1", Stock: 1}}
	flour.CurrentStock = 1
	svc, repo, ts, _ := newWarehouseFixture([]*domain.Ingredient{flour}, nil)
	repo.items = []*domain.Warehouse{{ID: "wh-1", Name: "Principal"}, {ID: "wh-2", Name: "Cocina"}}
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  TransferStockCommand
		code string
	}{
		{"same warehouse", TransferStockCommand{ItemID: flour.ID, FromWarehouseID: "wh-1", ToWarehouseID: "wh-1", Quantity: 1}, apperrors.CodeValidationError},
		{"zero quantity", TransferStockCommand{ItemID: flour.ID, FromWarehouseID: "wh-1", ToWarehouseID: "wh-2"}, apperrors.CodeValidationError},
		{"more than held", TransferStockCommand{ItemID: flour.ID, FromWarehouseID: "wh-1", ToWarehouseID: "wh-2", Quantity: 5}, apperrors.CodeInsufficientStock},
		{"unknown warehouse", TransferStockCommand{ItemID: flour.ID, FromWarehouseID: "wh-1", ToWarehouseID: "wh-9", Quantity: 1}, apperrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cmd.BusinessID = "biz-1"
			_, err := svc.TransferStock(ctx, tt.cmd)
			assert.True(t, apperrors.IsCode(err, tt.code), "got %v", err)
		})
	}
	assert.Empty(t, ts.movements.movements)
}

func TestWarehouseService_InitializeWarehouseStocks(t *testing.T) {
	flour := mustIngredient("Harina", "kg", 5, 1, 0)
	salt := mustIngredient("Sal", "kg", 0, 1, 0)
	tracked := mustIngredient("Azucar", "kg", 0, 1, 0)
	tracked.WarehouseStocks = []domain.WarehouseStock{{WarehouseID: "wh-2", Stock: 2}}
	tracked.CurrentStock = 2
	bread := mustProduct("Pan", 3, 5)
	svc, repo, ts, _ := newWarehouseFixture([]*domain.Ingredient{flour, salt, tracked}, []*domain.Product{bread})
	repo.items = []*domain.Warehouse{{ID: "wh-1", Name: "Principal", IsDefault: true}, {ID: "wh-2", Name: "Cocina"}}
	ctx := context.Background()

	preview, err := svc.InitializeWarehouseStocks(ctx, "biz-1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, preview.Ingredients)
	assert.Equal(t, 1, preview.Products)
	assert.False(t, ts.ingredients.get(flour.ID).HasBreakdown(), "dry run writes nothing")

	result, err := svc.InitializeWarehouseStocks(ctx, "biz-1", false)
	require.NoError(t, err)
	assert.Equal(t, "wh-1", result.WarehouseID)
	assert.Equal(t, 1, result.Ingredients)
	assert.Equal(t, 1, result.Products)
	assert.Equal(t, 5.0, ts.ingredients.get(flour.ID).StockInWarehouse("wh-1"))
	assert.Equal(t, 3.0, ts.products.get(bread.ID).StockInWarehouse("wh-1"))
	assert.Equal(t, 2.0, ts.ingredients.get(tracked.ID).StockInWarehouse("wh-2"))

	again, err := svc.InitializeWarehouseStocks(ctx, "biz-1", false)
	require.NoError(t, err)
	assert.Zero(t, again.Ingredients+again.Products)
}

func TestWarehouseService_InitializeWithoutWarehouses(t *testing.T) {
	svc, _, _, _ := newWarehouseFixture(nil, nil)

	_, err := svc.InitializeWarehouseStocks(context.Background(), "biz-1", false)

	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestWarehouseService_StockByBranch(t *testing.T) {
	flour := mustIngredient("Harina", "kg", 0, 1, 0)
	flour.WarehouseStocks = []domain.WarehouseStock{{WarehouseID: "wh-main", Stock: 4}, {WarehouseID: "wh-north", Stock: 6}}
	flour.CurrentStock = 10
	svc, repo, _, _ := newWarehouseFixture([]*domain.Ingredient{flour}, nil)
	repo.items = []*domain.Warehouse{
		{ID: "wh-main", Name: "Principal"},
		{ID: "wh-north", Name: "Norte", BranchID: "branch-north"},
	}
	ctx := context.Background()

	cases := map[string]float64{
		domain.BranchAll:  10,
		domain.BranchMain: 4,
		"branch-north":    6,
		"branch-south":    0,
	}
	for branch, want := range cases {
		stock, err := svc.StockByBranch(ctx, StockByBranchQuery{BusinessID: "biz-1", Branch: branch})
		require.NoError(t, err)
		require.Len(t, stock, 1)
		assert.Equal(t, want, stock[0].Stock, "branch %s", branch)
	}
}
