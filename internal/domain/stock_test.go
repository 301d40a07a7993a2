package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumWarehouses(s *StockLevel) float64 {
	var total float64
	for _, ws := range s.WarehouseStocks {
		total += ws.Stock
	}
	return total
}

func TestStockLevel_CreditWarehouse(t *testing.T) {
	s := &StockLevel{}

	change := s.CreditWarehouse("W1", 5)
	assert.Equal(t, 0.0, change.Before)
	assert.Equal(t, 5.0, change.After)
	require.Len(t, s.WarehouseStocks, 1)

	s.CreditWarehouse("W2", 3)
	assert.Equal(t, 8.0, s.CurrentStock)

	// Absent warehouse with a non-positive delta is a no-op
	change = s.CreditWarehouse("W3", -2)
	assert.Equal(t, change.Before, change.After)
	assert.Len(t, s.WarehouseStocks, 2)

	// Existing entries clamp at zero
	s.CreditWarehouse("W1", -50)
	assert.Equal(t, 0.0, s.StockInWarehouse("W1"))
	assert.Equal(t, 3.0, s.CurrentStock)
}

func TestStockLevel_CreditWarehouseKeepsFlatStock(t *testing.T) {
	s := &StockLevel{CurrentStock: 10}

	change := s.CreditWarehouse("W1", 5)
	assert.Equal(t, 10.0, change.Before)
	assert.Equal(t, 15.0, change.After)
	assert.Equal(t, 15.0, s.StockInWarehouse("W1"))
	assert.Equal(t, sumWarehouses(s), s.CurrentStock)

	// a deduction on flat stock leaves it flat
	flat := &StockLevel{CurrentStock: 10}
	flat.CreditWarehouse("W1", -3)
	assert.Equal(t, 10.0, flat.CurrentStock)
	assert.False(t, flat.HasBreakdown())
}

func TestStockLevel_WarehouseSumInvariant(t *testing.T) {
	s := &StockLevel{}
	ops := []struct {
		warehouse string
		delta     float64
	}{
		{"W1", 10}, {"W2", 4}, {"W1", -3}, {"W3", -1}, {"W2", -10}, {"W3", 2.5}, {"W1", -100},
	}

	for _, op := range ops {
		if op.delta >= 0 {
			s.CreditWarehouse(op.warehouse, op.delta)
		} else {
			s.Deduct(op.warehouse, -op.delta)
		}
		assert.InDelta(t, sumWarehouses(s), s.CurrentStock, 1e-9)
		for _, ws := range s.WarehouseStocks {
			assert.GreaterOrEqual(t, ws.Stock, 0.0)
		}
	}
}

func TestStockLevel_DeductNeverNegative(t *testing.T) {
	s := &StockLevel{CurrentStock: 3}

	for _, qty := range []float64{1, 5, 2} {
		s.Deduct("", qty)
		assert.GreaterOrEqual(t, s.CurrentStock, 0.0)
	}
	assert.Equal(t, 0.0, s.CurrentStock)
}

func TestStockLevel_DeductWithoutWarehouseSpreadsAcrossBreakdown(t *testing.T) {
	s := &StockLevel{}
	s.CreditWarehouse("W1", 2)
	s.CreditWarehouse("W2", 5)

	change := s.Deduct("", 4)
	assert.Equal(t, 7.0, change.Before)
	assert.Equal(t, 3.0, change.After)
	assert.Equal(t, 0.0, s.StockInWarehouse("W1"))
	assert.Equal(t, 3.0, s.StockInWarehouse("W2"))
}

func TestStockLevel_StockInWarehouse(t *testing.T) {
	flat := &StockLevel{CurrentStock: 12}
	assert.Equal(t, 12.0, flat.StockInWarehouse(""))
	assert.Equal(t, 0.0, flat.StockInWarehouse("W1"))

	split := &StockLevel{}
	split.CreditWarehouse("W1", 4)
	assert.Equal(t, 4.0, split.StockInWarehouse("W1"))
	assert.Equal(t, 0.0, split.StockInWarehouse("W9"))
	assert.Equal(t, 4.0, split.StockInWarehouse(""))
}

func TestStockLevel_StockForBranch(t *testing.T) {
	warehouses := []*Warehouse{
		{ID: "W1"},
		{ID: "W2", BranchID: "B1"},
		{ID: "W3", BranchID: "B2"},
	}

	s := &StockLevel{}
	s.CreditWarehouse("W1", 1)
	s.CreditWarehouse("W2", 2)
	s.CreditWarehouse("W3", 4)

	assert.Equal(t, 7.0, s.StockForBranch(warehouses, BranchAll))
	assert.Equal(t, 1.0, s.StockForBranch(warehouses, BranchMain))
	assert.Equal(t, 2.0, s.StockForBranch(warehouses, "B1"))
	assert.Equal(t, 0.0, s.StockForBranch(warehouses, "B9"))

	flat := &StockLevel{CurrentStock: 9}
	assert.Equal(t, 9.0, flat.StockForBranch(warehouses, BranchAll))
	assert.Equal(t, 9.0, flat.StockForBranch(warehouses, BranchMain))
	assert.Equal(t, 0.0, flat.StockForBranch(warehouses, "B1"))
}

func TestStockLevel_Adjust(t *testing.T) {
	flat := &StockLevel{CurrentStock: 10}
	change, err := flat.Adjust("", 4)
	require.NoError(t, err)
	assert.Equal(t, 10.0, change.Before)
	assert.Equal(t, 4.0, change.After)

	change, err = flat.Adjust("", -3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, change.After)

	split := &StockLevel{}
	split.CreditWarehouse("W1", 5)
	split.CreditWarehouse("W2", 5)

	_, err = split.Adjust("", 1)
	assert.ErrorIs(t, err, ErrWarehouseRequired)

	change, err = split.Adjust("W2", 8)
	require.NoError(t, err)
	assert.Equal(t, 10.0, change.Before)
	assert.Equal(t, 13.0, change.After)
	assert.Equal(t, sumWarehouses(split), split.CurrentStock)
}

func TestStockLevel_AssignUnallocated(t *testing.T) {
	s := &StockLevel{CurrentStock: 6}
	assert.True(t, s.AssignUnallocated("W1"))
	assert.Equal(t, 6.0, s.StockInWarehouse("W1"))
	assert.False(t, s.AssignUnallocated("W2"))

	empty := &StockLevel{}
	assert.False(t, empty.AssignUnallocated("W1"))
}
