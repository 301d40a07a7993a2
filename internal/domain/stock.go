package domain

import "errors"

var ErrWarehouseRequired = errors.New("warehouse is required when stock is tracked per warehouse")

// WarehouseStock is the quantity of an item held in one warehouse
type WarehouseStock struct {
	WarehouseID string  `bson:"warehouseId" json:"warehouseId"`
	Stock       float64 `bson:"stock" json:"stock"`
}

// StockLevel is the stock of an item, optionally partitioned by warehouse.
// When WarehouseStocks is non-empty CurrentStock is always their sum.
type StockLevel struct {
	CurrentStock    float64          `bson:"currentStock" json:"currentStock"`
	WarehouseStocks []WarehouseStock `bson:"warehouseStocks,omitempty" json:"warehouseStocks,omitempty"`
}

// StockChange captures the total stock around a single mutation
type StockChange struct {
	WarehouseID string
	Before      float64
	After       float64
}

// Delta returns the signed change in total stock
func (c StockChange) Delta() float64 {
	return c.After - c.Before
}

// HasBreakdown reports whether stock is tracked per warehouse
func (s *StockLevel) HasBreakdown() bool {
	return len(s.WarehouseStocks) > 0
}

// CreditWarehouse adds delta to a warehouse entry. A missing entry is only
// created for a positive delta; entries never go below zero.
func (s *StockLevel) CreditWarehouse(warehouseID string, delta float64) StockChange {
	change := StockChange{WarehouseID: warehouseID, Before: s.CurrentStock}

	// flat stock belongs to the first warehouse named, otherwise recompute drops it
	if delta > 0 {
		s.AssignUnallocated(warehouseID)
	}

	idx := s.warehouseIndex(warehouseID)
	switch {
	case idx >= 0:
		s.WarehouseStocks[idx].Stock = clampStock(s.WarehouseStocks[idx].Stock + delta)
	case delta > 0:
		s.WarehouseStocks = append(s.WarehouseStocks, WarehouseStock{WarehouseID: warehouseID, Stock: delta})
	default:
		change.After = s.CurrentStock
		return change
	}

	s.recompute()
	change.After = s.CurrentStock
	return change
}

// Credit increases stock, into a warehouse when one is given
func (s *StockLevel) Credit(warehouseID string, qty float64) StockChange {
	if warehouseID != "" {
		return s.CreditWarehouse(warehouseID, qty)
	}
	before := s.CurrentStock
	if s.HasBreakdown() {
		// Untargeted credits land in the first warehouse to keep the sum intact.
		return s.CreditWarehouse(s.WarehouseStocks[0].WarehouseID, qty)
	}
	s.CurrentStock = clampStock(s.CurrentStock + qty)
	return StockChange{Before: before, After: s.CurrentStock}
}

// Deduct removes qty, from a warehouse when one is given and stock is tracked
// per warehouse, otherwise from the flat total. Stock is clamped at zero.
func (s *StockLevel) Deduct(warehouseID string, qty float64) StockChange {
	if warehouseID != "" && s.HasBreakdown() {
		return s.CreditWarehouse(warehouseID, -qty)
	}
	before := s.CurrentStock
	if s.HasBreakdown() {
		return s.deductAcrossWarehouses(qty)
	}
	s.CurrentStock = clampStock(s.CurrentStock - qty)
	return StockChange{WarehouseID: warehouseID, Before: before, After: s.CurrentStock}
}

// Adjust sets stock to an absolute value, per warehouse when one is given
func (s *StockLevel) Adjust(warehouseID string, newStock float64) (StockChange, error) {
	newStock = clampStock(newStock)
	before := s.CurrentStock

	if warehouseID == "" {
		if s.HasBreakdown() {
			return StockChange{}, ErrWarehouseRequired
		}
		s.CurrentStock = newStock
		return StockChange{Before: before, After: newStock}, nil
	}

	idx := s.warehouseIndex(warehouseID)
	switch {
	case idx >= 0:
		s.WarehouseStocks[idx].Stock = newStock
	case newStock > 0:
		if !s.HasBreakdown() && s.CurrentStock > 0 {
			return StockChange{}, ErrWarehouseRequired
		}
		s.WarehouseStocks = append(s.WarehouseStocks, WarehouseStock{WarehouseID: warehouseID, Stock: newStock})
	default:
		return StockChange{WarehouseID: warehouseID, Before: before, After: before}, nil
	}

	s.recompute()
	return StockChange{WarehouseID: warehouseID, Before: before, After: s.CurrentStock}, nil
}

// AssignUnallocated moves flat stock into the given warehouse when no
// breakdown exists yet. It reports whether anything changed.
func (s *StockLevel) AssignUnallocated(warehouseID string) bool {
	if warehouseID == "" || s.HasBreakdown() || s.CurrentStock <= 0 {
		return false
	}
	s.WarehouseStocks = []WarehouseStock{{WarehouseID: warehouseID, Stock: s.CurrentStock}}
	return true
}

// StockInWarehouse returns the stock held in a warehouse. Without a
// breakdown, only the "no specific warehouse" query sees the total.
func (s *StockLevel) StockInWarehouse(warehouseID string) float64 {
	if !s.HasBreakdown() {
		if warehouseID == "" {
			return s.CurrentStock
		}
		return 0
	}
	if warehouseID == "" {
		return s.CurrentStock
	}
	if idx := s.warehouseIndex(warehouseID); idx >= 0 {
		return s.WarehouseStocks[idx].Stock
	}
	return 0
}

// Deductible returns the stock Deduct can draw from for warehouseID: the
// warehouse entry when stock is tracked per warehouse, otherwise the total.
func (s *StockLevel) Deductible(warehouseID string) float64 {
	if warehouseID != "" && s.HasBreakdown() {
		return s.StockInWarehouse(warehouseID)
	}
	return s.CurrentStock
}

// StockForBranch sums the stock held by warehouses matching a branch filter
func (s *StockLevel) StockForBranch(warehouses []*Warehouse, filter string) float64 {
	if !s.HasBreakdown() {
		if filter == BranchAll || filter == BranchMain || filter == "" {
			return s.CurrentStock
		}
		return 0
	}

	if filter == BranchAll || filter == "" {
		return s.CurrentStock
	}

	matching := make(map[string]struct{}, len(warehouses))
	for _, w := range warehouses {
		if w.MatchesBranch(filter) {
			matching[w.ID] = struct{}{}
		}
	}

	var total float64
	for _, ws := range s.WarehouseStocks {
		if _, ok := matching[ws.WarehouseID]; ok {
			total += ws.Stock
		}
	}
	return total
}

func (s *StockLevel) deductAcrossWarehouses(qty float64) StockChange {
	before := s.CurrentStock
	remaining := qty
	for i := range s.WarehouseStocks {
		if remaining <= 0 {
			break
		}
		take := s.WarehouseStocks[i].Stock
		if take > remaining {
			take = remaining
		}
		s.WarehouseStocks[i].Stock -= take
		remaining -= take
	}
	s.recompute()
	return StockChange{Before: before, After: s.CurrentStock}
}

func (s *StockLevel) warehouseIndex(warehouseID string) int {
	for i, ws := range s.WarehouseStocks {
		if ws.WarehouseID == warehouseID {
			return i
		}
	}
	return -1
}

func (s *StockLevel) recompute() {
	var total float64
	for _, ws := range s.WarehouseStocks {
		total += ws.Stock
	}
	s.CurrentStock = total
}

func clampStock(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
