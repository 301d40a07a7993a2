package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cobrify/stock-service/internal/domain"
	"github.com/cobrify/stock-service/pkg/errors"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/metrics"
)

// IngredientService handles ingredient, purchase and stock movement use cases
type IngredientService struct {
	writer    *stockWriter
	purchases domain.PurchaseRepository
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewIngredientService creates a new IngredientService
func NewIngredientService(store StockStore, purchases domain.PurchaseRepository, logger *logging.Logger, m *metrics.Metrics) *IngredientService {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("ingredients")
	return &IngredientService{
		writer:    &stockWriter{store: store, metrics: m, logger: logger},
		purchases: purchases,
		logger:    logger,
		metrics:   m,
	}
}

// CreateIngredient creates a new ingredient
func (s *IngredientService) CreateIngredient(ctx context.Context, cmd CreateIngredientCommand) (*IngredientDTO, error) {
	ing, err := domain.NewIngredient(cmd.BusinessID, cmd.Name, cmd.Category, cmd.PurchaseUnit,
		cmd.CurrentStock, domain.NewMoney(cmd.AverageCost), cmd.MinimumStock)
	if err != nil {
		return nil, toAppError(err)
	}

	if err := s.writer.store.Ingredients.Save(ctx, ing); err != nil {
		s.logger.Error("Failed to create ingredient", "name", cmd.Name, "error", err)
		return nil, fmt.Errorf("failed to create ingredient: %w", err)
	}

	s.logger.Audit(ctx, "create", "ingredient", ing.ID, cmd.UserID, map[string]any{"name": ing.Name})
	return ToIngredientDTO(ing), nil
}

// GetIngredient retrieves an ingredient by id
func (s *IngredientService) GetIngredient(ctx context.Context, businessID, id string) (*IngredientDTO, error) {
	ing, err := s.writer.store.Ingredients.FindByID(ctx, businessID, id)
	if err != nil {
		s.logger.Error("Failed to get ingredient", "ingredientId", id, "error", err)
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	if ing == nil {
		return nil, errors.ErrNotFoundWithID("ingredient", id)
	}
	return ToIngredientDTO(ing), nil
}

// ListIngredients lists all ingredients of a business ordered by name
func (s *IngredientService) ListIngredients(ctx context.Context, businessID string) ([]IngredientDTO, error) {
	ingredients, err := s.writer.store.Ingredients.FindAll(ctx, businessID)
	if err != nil {
		s.logger.Error("Failed to list ingredients", "error", err)
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return ToIngredientDTOs(ingredients), nil
}

// UpdateIngredient changes an ingredient's descriptive fields
func (s *IngredientService) UpdateIngredient(ctx context.Context, cmd UpdateIngredientCommand) (*IngredientDTO, error) {
	var updated *domain.Ingredient
	err := s.writer.atomically(ctx, "update_ingredient", func(ctx context.Context) error {
		ing, err := s.writer.store.Ingredients.FindByID(ctx, cmd.BusinessID, cmd.IngredientID)
		if err != nil {
			return err
		}
		if ing == nil {
			return domain.ErrIngredientNotFound
		}

		if cmd.Name != nil {
			name := strings.TrimSpace(*cmd.Name)
			if name == "" {
				return domain.ErrInvalidIngredientName
			}
			ing.Name = name
		}
		if cmd.Category != nil {
			ing.Category = *cmd.Category
		}
		if cmd.MinimumStock != nil {
			if *cmd.MinimumStock < 0 {
				return domain.ErrNegativeStock
			}
			ing.MinimumStock = *cmd.MinimumStock
		}

		updated = ing
		return s.writer.store.Ingredients.Save(ctx, ing)
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return ToIngredientDTO(updated), nil
}

// DeleteIngredient removes an ingredient. Its history is kept.
func (s *IngredientService) DeleteIngredient(ctx context.Context, businessID, id, userID string) error {
	if err := s.writer.store.Ingredients.Delete(ctx, businessID, id); err != nil {
		return toAppError(err)
	}
	s.logger.Audit(ctx, "delete", "ingredient", id, userID, nil)
	return nil
}

// RegisterPurchase receives purchased stock, blends the average cost and
// records the purchase and its movement in one transaction
func (s *IngredientService) RegisterPurchase(ctx context.Context, cmd RegisterPurchaseCommand) (*PurchaseResultDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, errors.ErrValidation(domain.ErrInvalidQuantity.Error())
	}

	var (
		purchase   *domain.Purchase
		ingredient *domain.Ingredient
		movement   *domain.StockMovement
	)
	err := s.writer.atomically(ctx, "register_purchase", func(ctx context.Context) error {
		ing, err := s.writer.store.Ingredients.FindByID(ctx, cmd.BusinessID, cmd.IngredientID)
		if err != nil {
			return err
		}
		if ing == nil {
			return domain.ErrIngredientNotFound
		}

		var purchaseDate time.Time
		if cmd.PurchaseDate != nil {
			purchaseDate = *cmd.PurchaseDate
		}
		p, err := domain.NewPurchase(ing, cmd.Quantity, cmd.Unit, domain.NewMoney(cmd.UnitPrice),
			cmd.Supplier, cmd.InvoiceNumber, cmd.WarehouseID, purchaseDate)
		if err != nil {
			return err
		}
		p.UserID = cmd.UserID

		qty := s.writer.convertToStockUnit(ctx, p.Quantity, p.Unit, ing)
		unitCost := p.CostPerUnit(qty)
		change := ing.ReceivePurchase(cmd.WarehouseID, qty, unitCost, p.PurchaseDate)

		ing.AddDomainEvent(&domain.IngredientPurchasedEvent{
			BusinessID:   cmd.BusinessID,
			IngredientID: ing.ID,
			PurchaseID:   p.ID,
			Quantity:     qty,
			Unit:         ing.PurchaseUnit,
			UnitCost:     unitCost,
			AverageCost:  ing.AverageCost,
			WarehouseID:  change.WarehouseID,
			PurchasedAt:  p.PurchaseDate,
		})

		m := domain.NewStockMovement(ing, cmd.BusinessID, domain.MovementPurchase, qty, change, p.MovementReason())
		m.RelatedPurchaseID = p.ID
		m.UserID = cmd.UserID

		if err := s.purchases.Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save purchase: %w", err)
		}
		if err := s.writer.store.Ingredients.Save(ctx, ing); err != nil {
			return err
		}
		if err := s.writer.record(ctx, m); err != nil {
			return err
		}

		purchase, ingredient, movement = p, ing, m
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to register purchase", "ingredientId", cmd.IngredientID, "error", err)
		return nil, toAppError(err)
	}

	s.logger.StockMovement(ctx, ingredient.ID, string(movement.Type), movement.BeforeStock, movement.AfterStock)
	return &PurchaseResultDTO{
		Purchase:   ToPurchaseDTO(purchase),
		Ingredient: ToIngredientDTO(ingredient),
	}, nil
}

// DeletePurchase removes a purchase and reverses its stock and, where
// possible, its cost contribution
func (s *IngredientService) DeletePurchase(ctx context.Context, cmd DeletePurchaseCommand) error {
	lowStock := false
	err := s.writer.atomically(ctx, "delete_purchase", func(ctx context.Context) error {
		lowStock = false
		p, err := s.purchases.FindByID(ctx, cmd.BusinessID, cmd.PurchaseID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrPurchaseNotFound
		}

		ing, err := s.writer.store.Ingredients.FindByID(ctx, cmd.BusinessID, p.IngredientID)
		if err != nil {
			return err
		}
		if ing != nil {
			qty := s.writer.convertToStockUnit(ctx, p.Quantity, p.Unit, ing)
			change := ing.ReversePurchase(p.WarehouseID, qty, p.CostPerUnit(qty))
			lowStock = checkLowStock(ing, change)

			ing.AddDomainEvent(&domain.PurchaseDeletedEvent{
				BusinessID:   cmd.BusinessID,
				IngredientID: ing.ID,
				PurchaseID:   p.ID,
				Quantity:     qty,
				DeletedAt:    time.Now().UTC(),
			})

			m := domain.NewStockMovement(ing, cmd.BusinessID, domain.MovementPurchaseDelete, qty, change,
				fmt.Sprintf("Compra eliminada - %s", p.MovementReason()))
			m.RelatedPurchaseID = p.ID
			m.UserID = cmd.UserID

			if err := s.writer.store.Ingredients.Save(ctx, ing); err != nil {
				return err
			}
			if err := s.writer.record(ctx, m); err != nil {
				return err
			}
		} else {
			s.logger.Warn("Ingredient of deleted purchase no longer exists", "purchaseId", p.ID, "ingredientId", p.IngredientID)
		}

		return s.purchases.Delete(ctx, cmd.BusinessID, p.ID)
	})
	if err != nil {
		s.logger.Error("Failed to delete purchase", "purchaseId", cmd.PurchaseID, "error", err)
		return toAppError(err)
	}

	if lowStock {
		s.metrics.RecordLowStockAlert()
	}
	s.logger.Audit(ctx, "delete", "purchase", cmd.PurchaseID, cmd.UserID, nil)
	return nil
}

// ListPurchases lists purchases newest first, optionally for one ingredient
func (s *IngredientService) ListPurchases(ctx context.Context, businessID, ingredientID string) ([]PurchaseDTO, error) {
	purchases, err := s.purchases.FindAll(ctx, businessID, ingredientID)
	if err != nil {
		s.logger.Error("Failed to list purchases", "ingredientId", ingredientID, "error", err)
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return ToPurchaseDTOs(purchases), nil
}

// DeductForSale consumes the recipe lines of a sold product. Lines whose
// item no longer exists are skipped with a warning.
func (s *IngredientService) DeductForSale(ctx context.Context, cmd DeductForSaleCommand) (*DeductResultDTO, error) {
	var (
		result   DeductResultDTO
		lowStock int
	)
	err := s.writer.atomically(ctx, "deduct_for_sale", func(ctx context.Context) error {
		result = DeductResultDTO{Skipped: []string{}}
		lowStock = 0

		loaded := newItemSet()
		movements := make([]*domain.StockMovement, 0, len(cmd.Lines))

		for _, line := range cmd.Lines {
			kind := domain.ItemKind(line.Kind)
			if kind == "" {
				kind = domain.ItemIngredient
			}

			item, err := loaded.get(ctx, s.writer, cmd.BusinessID, kind, line.ItemID)
			if err != nil {
				return err
			}
			if item == nil {
				s.logger.Warn("Sale line item not found, skipping", "itemId", line.ItemID, "name", line.ItemName, "saleId", cmd.SaleID)
				result.Skipped = append(result.Skipped, line.ItemName)
				continue
			}

			qty := s.writer.convertToStockUnit(ctx, line.Quantity, line.Unit, item)
			change := item.Stock().Deduct(cmd.WarehouseID, qty)
			if checkLowStock(item, change) {
				lowStock++
			}

			item.AddDomainEvent(&domain.StockConsumedEvent{
				BusinessID:   cmd.BusinessID,
				ItemID:       item.ItemID(),
				ItemKind:     item.Kind(),
				MovementType: domain.MovementSale,
				Quantity:     qty,
				Unit:         item.StockUnit(),
				WarehouseID:  cmd.WarehouseID,
				ReferenceID:  cmd.SaleID,
				ConsumedAt:   time.Now().UTC(),
			})

			productName := line.ProductName
			if productName == "" {
				productName = cmd.ProductName
			}
			m := domain.NewStockMovement(item, cmd.BusinessID, domain.MovementSale, qty, change, "Venta: "+productName)
			m.RelatedSaleID = cmd.SaleID
			m.UserID = cmd.UserID
			movements = append(movements, m)
			result.Deducted++
		}

		if err := loaded.saveAll(ctx, s.writer); err != nil {
			return err
		}
		return s.writer.record(ctx, movements...)
	})
	if err != nil {
		s.logger.Error("Failed to deduct sale stock", "saleId", cmd.SaleID, "error", err)
		return nil, toAppError(err)
	}

	for i := 0; i < lowStock; i++ {
		s.metrics.RecordLowStockAlert()
	}
	s.logger.Event(ctx, "sale_stock_deducted", map[string]any{
		"saleId":   cmd.SaleID,
		"deducted": result.Deducted,
		"skipped":  len(result.Skipped),
	})
	return &result, nil
}

// AdjustStock sets an item's stock to an absolute value
func (s *IngredientService) AdjustStock(ctx context.Context, cmd AdjustStockCommand) (*MovementDTO, error) {
	if cmd.NewStock < 0 {
		return nil, errors.ErrValidation(domain.ErrNegativeStock.Error())
	}
	kind := domain.ItemKind(cmd.ItemKind)
	if kind == "" {
		kind = domain.ItemIngredient
	}

	var (
		movement *domain.StockMovement
		lowStock bool
	)
	err := s.writer.atomically(ctx, "adjust_stock", func(ctx context.Context) error {
		item, err := s.writer.mustLoadItem(ctx, cmd.BusinessID, kind, cmd.ItemID)
		if err != nil {
			return err
		}

		change, err := item.Stock().Adjust(cmd.WarehouseID, cmd.NewStock)
		if err != nil {
			return err
		}
		lowStock = checkLowStock(item, change)

		m := domain.NewAdjustmentMovement(item, cmd.BusinessID, change, cmd.Reason)
		m.UserID = cmd.UserID

		item.AddDomainEvent(&domain.StockAdjustedEvent{
			BusinessID:  cmd.BusinessID,
			ItemID:      item.ItemID(),
			ItemKind:    item.Kind(),
			WarehouseID: cmd.WarehouseID,
			OldStock:    change.Before,
			NewStock:    change.After,
			Reason:      m.Reason,
			AdjustedAt:  m.CreatedAt,
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
		s.logger.Error("Failed to adjust stock", "itemId", cmd.ItemID, "error", err)
		return nil, toAppError(err)
	}

	if lowStock {
		s.metrics.RecordLowStockAlert()
	}
	s.logger.StockMovement(ctx, cmd.ItemID, string(movement.Type), movement.BeforeStock, movement.AfterStock)
	dto := ToMovementDTOs([]*domain.StockMovement{movement})[0]
	return &dto, nil
}

// SaleDeducted reports whether sale movements were already recorded for saleID
func (s *IngredientService) SaleDeducted(ctx context.Context, businessID, saleID string) (bool, error) {
	movements, err := s.writer.store.Movements.Find(ctx, businessID, domain.MovementFilter{
		SaleID: saleID,
		Type:   domain.MovementSale,
		Limit:  1,
	})
	if err != nil {
		return false, fmt.Errorf("failed to look up sale movements: %w", err)
	}
	return len(movements) > 0, nil
}

// ListMovements lists stock movements newest first
func (s *IngredientService) ListMovements(ctx context.Context, query ListMovementsQuery) ([]MovementDTO, error) {
	movementType := domain.MovementType(query.Type)
	if movementType != "" && !movementType.IsValid() {
		return nil, errors.ErrValidation("invalid movement type").WithDetail("type", query.Type)
	}

	movements, err := s.writer.store.Movements.Find(ctx, query.BusinessID, domain.MovementFilter{
		EntityID:    query.ItemID,
		WarehouseID: query.WarehouseID,
		Type:        movementType,
		From:        query.From,
		To:          query.To,
		Limit:       query.Limit,
	})
	if err != nil {
		s.logger.Error("Failed to list movements", "error", err)
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return ToMovementDTOs(movements), nil
}

// ListLowStock lists ingredients at or below their minimum stock
func (s *IngredientService) ListLowStock(ctx context.Context, businessID string) ([]IngredientDTO, error) {
	ingredients, err := s.writer.store.Ingredients.FindLowStock(ctx, businessID)
	if err != nil {
		s.logger.Error("Failed to list low stock ingredients", "error", err)
		return nil, fmt.Errorf("failed to list low stock ingredients: %w", err)
	}
	return ToIngredientDTOs(ingredients), nil
}

// checkLowStock records a low-stock alert on ingredients crossing their
// minimum and reports whether one was raised
func checkLowStock(item domain.StockItem, change domain.StockChange) bool {
	ing, ok := item.(*domain.Ingredient)
	if !ok {
		return false
	}
	before := len(ing.GetDomainEvents())
	ing.CheckLowStock(change)
	return len(ing.GetDomainEvents()) > before
}
