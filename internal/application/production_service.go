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

// Production outcomes reported to metrics
const (
	productionCompleted    = "completed"
	productionInsufficient = "insufficient_stock"
	productionFailed       = "failed"
)

// modeAll lists productions of every mode
const modeAll = "all"

// ProductionService runs production by recipe or manual entry
type ProductionService struct {
	writer      *stockWriter
	recipes     domain.RecipeRepository
	productions domain.ProductionRepository
	engine      *RecipeService
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewProductionService creates a new ProductionService
func NewProductionService(
	store StockStore,
	recipes domain.RecipeRepository,
	productions domain.ProductionRepository,
	engine *RecipeService,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ProductionService {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("production")
	return &ProductionService{
		writer:      &stockWriter{store: store, metrics: m, logger: logger},
		recipes:     recipes,
		productions: productions,
		engine:      engine,
		logger:      logger,
		metrics:     m,
	}
}

// consumption is one recipe line resolved against its item
type consumption struct {
	line   domain.RecipeLine
	item   domain.StockItem
	needed float64
}

// ExecuteRecipe produces quantity units of a product from its recipe. Every
// line is checked against stock first; if any falls short nothing changes
// and the missing lines are returned.
func (s *ProductionService) ExecuteRecipe(ctx context.Context, cmd ExecuteProductionCommand) (*ProductionDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, errors.ErrValidation(domain.ErrInvalidQuantity.Error())
	}

	recipe, err := s.recipes.FindByProductID(ctx, cmd.BusinessID, cmd.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if recipe == nil {
		s.metrics.RecordProduction(string(domain.ProductionRecipe), productionFailed)
		return nil, errors.ErrNoRecipe(cmd.ProductID)
	}

	var (
		production *domain.Production
		lowStock   int
	)
	err = s.writer.atomically(ctx, "execute_recipe_production", func(ctx context.Context) error {
		lowStock = 0
		loaded := newItemSet()

		item, err := loaded.get(ctx, s.writer, cmd.BusinessID, domain.ItemProduct, cmd.ProductID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrProductNotFound
		}
		product := item.(*domain.Product)

		plan := make([]consumption, 0, len(recipe.Lines))
		missing := make([]domain.MissingIngredient, 0)
		for _, line := range recipe.Lines {
			lineItem, err := loaded.get(ctx, s.writer, cmd.BusinessID, line.ItemKind(), line.ItemID)
			if err != nil {
				return err
			}
			if lineItem == nil {
				s.logger.Warn("Recipe line item not found, skipping", "itemId", line.ItemID, "recipeId", recipe.ID)
				continue
			}
			needed := s.writer.convertToStockUnit(ctx, line.Quantity*cmd.Quantity, line.Unit, lineItem)
			if available := lineItem.Stock().Deductible(cmd.WarehouseID); available < needed {
				missing = append(missing, domain.MissingIngredient{
					ItemID:    lineItem.ItemID(),
					Kind:      lineItem.Kind(),
					Name:      line.ItemName,
					Needed:    needed,
					Available: available,
					Unit:      lineItem.StockUnit(),
				})
			}
			plan = append(plan, consumption{line: line, item: lineItem, needed: needed})
		}
		if len(missing) > 0 {
			return &domain.InsufficientStockError{Missing: missing}
		}

		production, err = domain.NewProduction(cmd.BusinessID, product, cmd.Quantity, domain.ProductionRecipe, cmd.WarehouseID, cmd.Notes, cmd.UserID)
		if err != nil {
			return err
		}
		production.RecipeID = recipe.ID
		production.TotalCost = recipe.TotalCost.Mul(cmd.Quantity)

		movements := make([]*domain.StockMovement, 0, len(plan)+1)
		for _, c := range plan {
			change := c.item.Stock().Deduct(cmd.WarehouseID, c.needed)
			if checkLowStock(c.item, change) {
				lowStock++
			}
			c.item.AddDomainEvent(&domain.StockConsumedEvent{
				BusinessID:   cmd.BusinessID,
				ItemID:       c.item.ItemID(),
				ItemKind:     c.item.Kind(),
				MovementType: domain.MovementProductionConsumption,
				Quantity:     c.needed,
				Unit:         c.item.StockUnit(),
				WarehouseID:  cmd.WarehouseID,
				ReferenceID:  production.ID,
				ConsumedAt:   production.CreatedAt,
			})

			m := domain.NewStockMovement(c.item, cmd.BusinessID, domain.MovementProductionConsumption, c.needed, change,
				fmt.Sprintf("Producción: %s (x%g)", product.Name, cmd.Quantity))
			m.RelatedProductionID = production.ID
			m.UserID = cmd.UserID
			movements = append(movements, m)

			production.IngredientsDeducted = append(production.IngredientsDeducted, domain.DeductedItem{
				Kind:     c.line.ItemKind(),
				ItemID:   c.line.ItemID,
				ItemName: c.line.ItemName,
				Quantity: c.line.Quantity * cmd.Quantity,
				Unit:     c.line.Unit,
			})
		}

		movements = append(movements, s.credit(product, production, domain.MovementProduction, recipe.TotalCost))

		if err := loaded.saveAll(ctx, s.writer); err != nil {
			return err
		}
		if err := s.writer.record(ctx, movements...); err != nil {
			return err
		}
		return s.productions.Save(ctx, production)
	})
	if err != nil {
		outcome := productionFailed
		if domain.IsInsufficientStock(err) {
			outcome = productionInsufficient
			s.logger.Info("Production rejected for insufficient stock", "productId", cmd.ProductID, "quantity", cmd.Quantity)
		} else {
			s.logger.Error("Failed to execute production", "productId", cmd.ProductID, "error", err)
		}
		s.metrics.RecordProduction(string(domain.ProductionRecipe), outcome)
		return nil, toAppError(err)
	}

	s.completed(ctx, production, lowStock)
	return ToProductionDTO(production), nil
}

// ExecuteManual credits produced units without consuming any stock
func (s *ProductionService) ExecuteManual(ctx context.Context, cmd ExecuteProductionCommand) (*ProductionDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, errors.ErrValidation(domain.ErrInvalidQuantity.Error())
	}

	var production *domain.Production
	err := s.writer.atomically(ctx, "execute_manual_production", func(ctx context.Context) error {
		product, err := s.writer.store.Products.FindByID(ctx, cmd.BusinessID, cmd.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}

		production, err = domain.NewProduction(cmd.BusinessID, product, cmd.Quantity, domain.ProductionManual, cmd.WarehouseID, cmd.Notes, cmd.UserID)
		if err != nil {
			return err
		}

		m := s.credit(product, production, domain.MovementProductionManual, domain.ZeroMoney())
		if err := s.writer.saveItem(ctx, product); err != nil {
			return err
		}
		if err := s.writer.record(ctx, m); err != nil {
			return err
		}
		return s.productions.Save(ctx, production)
	})
	if err != nil {
		s.logger.Error("Failed to execute manual production", "productId", cmd.ProductID, "error", err)
		s.metrics.RecordProduction(string(domain.ProductionManual), productionFailed)
		return nil, toAppError(err)
	}

	s.completed(ctx, production, 0)
	return ToProductionDTO(production), nil
}

// credit adds the produced units to the product and returns the movement
func (s *ProductionService) credit(product *domain.Product, production *domain.Production, movementType domain.MovementType, unitCost domain.Money) *domain.StockMovement {
	change := product.Produce(production.WarehouseID, production.Quantity, unitCost)
	product.AddDomainEvent(&domain.ProductionCompletedEvent{
		BusinessID:   production.BusinessID,
		ProductionID: production.ID,
		ProductID:    product.ID,
		Quantity:     production.Quantity,
		Mode:         production.Mode,
		TotalCost:    production.TotalCost,
		CompletedAt:  production.CreatedAt,
	})

	m := domain.NewStockMovement(product, production.BusinessID, movementType, production.Quantity, change, production.MovementReason())
	m.RelatedProductionID = production.ID
	m.UserID = production.UserID
	return m
}

func (s *ProductionService) completed(ctx context.Context, production *domain.Production, lowStock int) {
	s.metrics.RecordProduction(string(production.Mode), productionCompleted)
	for i := 0; i < lowStock; i++ {
		s.metrics.RecordLowStockAlert()
	}
	s.logger.Audit(ctx, "produce", "product", production.ProductID, production.UserID, map[string]any{
		"productionId": production.ID,
		"mode":         production.Mode,
		"quantity":     production.Quantity,
		"totalCost":    production.TotalCost.String(),
	})
}

// CheckReadiness reports whether a product has a recipe and enough stock to
// produce quantity units of it
func (s *ProductionService) CheckReadiness(ctx context.Context, businessID, productID string, quantity float64) (*ReadinessDTO, error) {
	if quantity <= 0 {
		quantity = 1
	}

	recipe, err := s.recipes.FindByProductID(ctx, businessID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if recipe == nil {
		return &ReadinessDTO{MissingIngredients: []domain.MissingIngredient{}}, nil
	}

	missing, err := s.engine.missingStock(ctx, businessID, recipe, quantity)
	if err != nil {
		return nil, err
	}
	return &ReadinessDTO{
		HasRecipe:          true,
		HasStock:           len(missing) == 0,
		MissingIngredients: missing,
		Recipe:             ToRecipeDTO(recipe),
	}, nil
}

// ListProductions lists production history newest first. Mode "all" or an
// empty mode lists every run.
func (s *ProductionService) ListProductions(ctx context.Context, query ListProductionsQuery) ([]ProductionDTO, error) {
	filter := domain.ProductionFilter{
		Search:   query.Search,
		DateFrom: query.DateFrom,
		DateTo:   query.DateTo,
	}
	if query.Mode != "" && query.Mode != modeAll {
		mode := domain.ProductionMode(query.Mode)
		if !mode.IsValid() {
			return nil, errors.ErrValidation("invalid production mode").WithDetail("mode", query.Mode)
		}
		filter.Mode = mode
	}
	if filter.DateTo != nil {
		// a bare date includes the whole day
		end := filter.DateTo.Add(24*time.Hour - time.Nanosecond)
		if filter.DateTo.Equal(filter.DateTo.Truncate(24 * time.Hour)) {
			filter.DateTo = &end
		}
	}

	productions, err := s.productions.FindAll(ctx, query.BusinessID, filter)
	if err != nil {
		s.logger.Error("Failed to list productions", "error", err)
		return nil, fmt.Errorf("failed to list productions: %w", err)
	}
	return ToProductionDTOs(productions), nil
}
