package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cobrify/stock-service/internal/domain"
	"github.com/cobrify/stock-service/pkg/errors"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/metrics"
)

const defaultTransferReason = "Transferencia entre almacenes"

// WarehouseCache keeps the warehouse list of a business. Misses return
// nil, false.
type WarehouseCache interface {
	Get(ctx context.Context, businessID string) ([]*domain.Warehouse, bool, error)
	Set(ctx context.Context, businessID string, warehouses []*domain.Warehouse) error
	Invalidate(ctx context.Context, businessID string) error
}

type noCache struct{}

func (noCache) Get(context.Context, string) ([]*domain.Warehouse, bool, error) {
	return nil, false, nil
}
func (noCache) Set(context.Context, string, []*domain.Warehouse) error { return nil }
func (noCache) Invalidate(context.Context, string) error               { return nil }

// WarehouseService manages warehouses and the per-warehouse stock breakdown
type WarehouseService struct {
	warehouses domain.WarehouseRepository
	writer     *stockWriter
	cache      WarehouseCache
	logger     *logging.Logger
}

// NewWarehouseService creates a new WarehouseService. A nil cache reads
// straight from the repository.
func NewWarehouseService(warehouses domain.WarehouseRepository, store StockStore, cache WarehouseCache, logger *logging.Logger, m *metrics.Metrics) *WarehouseService {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cache == nil {
		cache = noCache{}
	}
	logger = logger.WithComponent("warehouses")
	return &WarehouseService{
		warehouses: warehouses,
		writer:     &stockWriter{store: store, metrics: m, logger: logger},
		cache:      cache,
		logger:     logger,
	}
}

func (s *WarehouseService) invalidate(ctx context.Context, businessID string) {
	if err := s.cache.Invalidate(ctx, businessID); err != nil {
		s.logger.Warn("Failed to invalidate warehouse cache", "businessId", businessID, "error", err)
	}
}

// CreateWarehouse creates a warehouse. The first warehouse of a business is
// always the default; at most one warehouse is default at any time.
func (s *WarehouseService) CreateWarehouse(ctx context.Context, cmd CreateWarehouseCommand) (*WarehouseDTO, error) {
	var warehouse *domain.Warehouse
	err := s.writer.store.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.warehouses.FindAll(ctx, cmd.BusinessID)
		if err != nil {
			return err
		}

		warehouse, err = domain.NewWarehouse(cmd.BusinessID, cmd.Name, cmd.Location, cmd.BranchID, cmd.IsDefault || len(existing) == 0)
		if err != nil {
			return err
		}
		if warehouse.IsDefault {
			if err := s.warehouses.ClearDefault(ctx, cmd.BusinessID, warehouse.ID); err != nil {
				return err
			}
		}
		return s.warehouses.Save(ctx, warehouse)
	})
	if err != nil {
		s.logger.Error("Failed to create warehouse", "name", cmd.Name, "error", err)
		return nil, toAppError(err)
	}

	s.invalidate(ctx, cmd.BusinessID)
	s.logger.Info("Created warehouse", "warehouseId", warehouse.ID, "default", warehouse.IsDefault)
	return ToWarehouseDTO(warehouse), nil
}

// UpdateWarehouse changes a warehouse
func (s *WarehouseService) UpdateWarehouse(ctx context.Context, cmd UpdateWarehouseCommand) (*WarehouseDTO, error) {
	var warehouse *domain.Warehouse
	err := s.writer.store.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		warehouse, err = s.warehouses.FindByID(ctx, cmd.BusinessID, cmd.WarehouseID)
		if err != nil {
			return err
		}
		if warehouse == nil {
			return domain.ErrWarehouseNotFound
		}

		if cmd.Name != nil {
			if *cmd.Name == "" {
				return domain.ErrInvalidWarehouseName
			}
			warehouse.Name = *cmd.Name
		}
		if cmd.Location != nil {
			warehouse.Location = *cmd.Location
		}
		if cmd.BranchID != nil {
			warehouse.BranchID = *cmd.BranchID
		}
		if cmd.IsActive != nil {
			warehouse.IsActive = *cmd.IsActive
		}
		if cmd.IsDefault != nil {
			warehouse.IsDefault = *cmd.IsDefault
			if warehouse.IsDefault {
				if err := s.warehouses.ClearDefault(ctx, cmd.BusinessID, warehouse.ID); err != nil {
					return err
				}
			}
		}
		warehouse.UpdatedAt = time.Now().UTC()
		return s.warehouses.Save(ctx, warehouse)
	})
	if err != nil {
		s.logger.Error("Failed to update warehouse", "warehouseId", cmd.WarehouseID, "error", err)
		return nil, toAppError(err)
	}

	s.invalidate(ctx, cmd.BusinessID)
	return ToWarehouseDTO(warehouse), nil
}

// DeleteWarehouse removes a warehouse that holds no stock
func (s *WarehouseService) DeleteWarehouse(ctx context.Context, businessID, id string) error {
	items, err := s.allItems(ctx, businessID)
	if err != nil {
		return err
	}
	for _, item := range items {
		stock := item.Stock()
		if stock.HasBreakdown() && stock.StockInWarehouse(id) > 0 {
			return toAppError(fmt.Errorf("%w: %s", domain.ErrWarehouseHasStock, item.ItemName()))
		}
	}

	if err := s.warehouses.Delete(ctx, businessID, id); err != nil {
		return toAppError(err)
	}
	s.invalidate(ctx, businessID)
	s.logger.Info("Deleted warehouse", "warehouseId", id)
	return nil
}

// GetWarehouse retrieves a warehouse by id
func (s *WarehouseService) GetWarehouse(ctx context.Context, businessID, id string) (*WarehouseDTO, error) {
	warehouse, err := s.warehouses.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get warehouse: %w", err)
	}
	if warehouse == nil {
		return nil, errors.ErrNotFoundWithID("warehouse", id)
	}
	return ToWarehouseDTO(warehouse), nil
}

// ListWarehouses lists warehouses in creation order
func (s *WarehouseService) ListWarehouses(ctx context.Context, businessID string) ([]WarehouseDTO, error) {
	warehouses, err := s.list(ctx, businessID)
	if err != nil {
		return nil, err
	}
	return ToWarehouseDTOs(warehouses), nil
}

// DefaultWarehouse returns the default warehouse, or the first one when none
// is flagged
func (s *WarehouseService) DefaultWarehouse(ctx context.Context, businessID string) (*WarehouseDTO, error) {
	warehouses, err := s.list(ctx, businessID)
	if err != nil {
		return nil, err
	}
	def := domain.DefaultWarehouse(warehouses)
	if def == nil {
		return nil, errors.ErrNotFound("warehouse")
	}
	return ToWarehouseDTO(def), nil
}

func (s *WarehouseService) list(ctx context.Context, businessID string) ([]*domain.Warehouse, error) {
	if cached, ok, err := s.cache.Get(ctx, businessID); err != nil {
		s.logger.Warn("Warehouse cache read failed", "businessId", businessID, "error", err)
	} else if ok {
		return cached, nil
	}

	warehouses, err := s.warehouses.FindAll(ctx, businessID)
	if err != nil {
		s.logger.Error("Failed to list warehouses", "error", err)
		return nil, fmt.Errorf("failed to list warehouses: %w", err)
	}
	if err := s.cache.Set(ctx, businessID, warehouses); err != nil {
		s.logger.Warn("Warehouse cache write failed", "businessId", businessID, "error", err)
	}
	return warehouses, nil
}

func (s *WarehouseService) allItems(ctx context.Context, businessID string) ([]domain.StockItem, error) {
	ingredients, err := s.writer.store.Ingredients.FindAll(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	products, err := s.writer.store.Products.FindAll(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	items := make([]domain.StockItem, 0, len(ingredients)+len(products))
	for _, ing := range ingredients {
		items = append(items, ing)
	}
	for _, p := range products {
		items = append(items, p)
	}
	return items, nil
}

// TransferStock moves stock of one item between two warehouses. Total stock
// is unchanged. Stock not yet assigned to any warehouse is treated as held
// by the source.
func (s *WarehouseService) TransferStock(ctx context.Context, cmd TransferStockCommand) (*MovementDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, errors.ErrValidation(domain.ErrInvalidQuantity.Error())
	}
	if cmd.FromWarehouseID == "" || cmd.ToWarehouseID == "" {
		return nil, toAppError(domain.ErrWarehouseRequired)
	}
	if cmd.FromWarehouseID == cmd.ToWarehouseID {
		return nil, toAppError(domain.ErrSameWarehouse)
	}
	kind := domain.ItemKind(cmd.ItemKind)
	if kind == "" {
		kind = domain.ItemIngredient
	}
	reason := cmd.Reason
	if reason == "" {
		reason = defaultTransferReason
	}

	var movement *domain.StockMovement
	err := s.writer.atomically(ctx, "transfer_stock", func(ctx context.Context) error {
		for _, id := range []string{cmd.FromWarehouseID, cmd.ToWarehouseID} {
			w, err := s.warehouses.FindByID(ctx, cmd.BusinessID, id)
			if err != nil {
				return err
			}
			if w == nil {
				return domain.ErrWarehouseNotFound
			}
		}

		item, err := s.writer.mustLoadItem(ctx, cmd.BusinessID, kind, cmd.ItemID)
		if err != nil {
			return err
		}
		stock := item.Stock()
		stock.AssignUnallocated(cmd.FromWarehouseID)

		available := stock.StockInWarehouse(cmd.FromWarehouseID)
		if available < cmd.Quantity {
			return &domain.InsufficientStockError{Missing: []domain.MissingIngredient{{
				ItemID:    item.ItemID(),
				Kind:      item.Kind(),
				Name:      item.ItemName(),
				Needed:    cmd.Quantity,
				Available: available,
				Unit:      item.StockUnit(),
			}}}
		}

		debit := stock.CreditWarehouse(cmd.FromWarehouseID, -cmd.Quantity)
		credit := stock.CreditWarehouse(cmd.ToWarehouseID, cmd.Quantity)
		change := domain.StockChange{Before: debit.Before, After: credit.After}

		m := domain.NewStockMovement(item, cmd.BusinessID, domain.MovementTransfer, -cmd.Quantity, change, reason)
		m.FromWarehouseID = cmd.FromWarehouseID
		m.ToWarehouseID = cmd.ToWarehouseID
		m.UserID = cmd.UserID

		item.AddDomainEvent(&domain.StockTransferredEvent{
			BusinessID:      cmd.BusinessID,
			ItemID:          item.ItemID(),
			ItemKind:        item.Kind(),
			FromWarehouseID: cmd.FromWarehouseID,
			ToWarehouseID:   cmd.ToWarehouseID,
			Quantity:        cmd.Quantity,
			TransferredAt:   m.CreatedAt,
		})

		if err := s.writer.saveItem(ctx, item); err != nil {
			return err
		}
		if err := s.writer.record(ctx, m); err != nil {
			return err
		}
		movement = m
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to transfer stock", "itemId", cmd.ItemID, "error", err)
		return nil, toAppError(err)
	}

	s.logger.Audit(ctx, "transfer", string(kind), cmd.ItemID, cmd.UserID, map[string]any{
		"from":     cmd.FromWarehouseID,
		"to":       cmd.ToWarehouseID,
		"quantity": cmd.Quantity,
	})
	dto := ToMovementDTOs([]*domain.StockMovement{movement})[0]
	return &dto, nil
}

// InitializeWarehouseStocks assigns the flat stock of every item without a
// warehouse breakdown to the default warehouse. Items that already have a
// breakdown are left alone, so running it twice changes nothing.
func (s *WarehouseService) InitializeWarehouseStocks(ctx context.Context, businessID string, dryRun bool) (*InitializeStocksDTO, error) {
	warehouses, err := s.warehouses.FindAll(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouses: %w", err)
	}
	def := domain.DefaultWarehouse(warehouses)
	if def == nil {
		return nil, toAppError(domain.ErrWarehouseNotFound)
	}

	var result InitializeStocksDTO
	err = s.writer.atomically(ctx, "initialize_warehouse_stocks", func(ctx context.Context) error {
		result = InitializeStocksDTO{WarehouseID: def.ID}

		items, err := s.allItems(ctx, businessID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if !item.Stock().AssignUnallocated(def.ID) {
				continue
			}
			if item.Kind() == domain.ItemProduct {
				result.Products++
			} else {
				result.Ingredients++
			}
			if dryRun {
				continue
			}
			if err := s.writer.saveItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to initialize warehouse stocks", "businessId", businessID, "error", err)
		return nil, toAppError(err)
	}

	s.logger.Event(ctx, "warehouse_stocks_initialized", map[string]any{
		"businessId":  businessID,
		"warehouseId": def.ID,
		"ingredients": result.Ingredients,
		"products":    result.Products,
		"dryRun":      dryRun,
	})
	return &result, nil
}

// StockByBranch reports each item's stock restricted to the warehouses of a
// branch filter: "all", "main" or a branch id
func (s *WarehouseService) StockByBranch(ctx context.Context, query StockByBranchQuery) ([]BranchStockDTO, error) {
	branch := query.Branch
	if branch == "" {
		branch = domain.BranchAll
	}

	warehouses, err := s.list(ctx, query.BusinessID)
	if err != nil {
		return nil, err
	}
	items, err := s.allItems(ctx, query.BusinessID)
	if err != nil {
		return nil, err
	}

	dtos := make([]BranchStockDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, BranchStockDTO{
			ItemID:   item.ItemID(),
			ItemKind: string(item.Kind()),
			Name:     item.ItemName(),
			Unit:     item.StockUnit(),
			Stock:    item.Stock().StockForBranch(warehouses, branch),
		})
	}
	return dtos, nil
}
