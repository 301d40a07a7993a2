package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cobrify/stock-service/internal/domain"
	"github.com/cobrify/stock-service/pkg/errors"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/metrics"
)

// lineLookupConcurrency bounds parallel item lookups while costing a recipe
const lineLookupConcurrency = 8

// RecipeService handles recipe costing, stock checks and profitability
type RecipeService struct {
	recipes     domain.RecipeRepository
	writer      *stockWriter
	recalculate singleflight.Group
	logger      *logging.Logger
}

// NewRecipeService creates a new RecipeService
func NewRecipeService(recipes domain.RecipeRepository, store StockStore, logger *logging.Logger, m *metrics.Metrics) *RecipeService {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("recipes")
	return &RecipeService{
		recipes: recipes,
		writer:  &stockWriter{store: store, metrics: m, logger: logger},
		logger:  logger,
	}
}

// resolveItems loads the item of every line concurrently. Missing items
// leave a nil entry.
func (s *RecipeService) resolveItems(ctx context.Context, businessID string, lines []domain.RecipeLine) ([]domain.StockItem, error) {
	items := make([]domain.StockItem, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lineLookupConcurrency)

	for i, line := range lines {
		g.Go(func() error {
			item, err := s.writer.loadItem(gctx, businessID, line.ItemKind(), line.ItemID)
			if err != nil {
				return fmt.Errorf("failed to load %s %s: %w", line.ItemKind(), line.ItemID, err)
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// Cost prices each line at its item's unit cost after converting the line
// quantity into the item's stock unit. Missing items cost nothing.
func (s *RecipeService) Cost(ctx context.Context, businessID string, lines []domain.RecipeLine) (domain.Money, []domain.RecipeLine, error) {
	items, err := s.resolveItems(ctx, businessID, lines)
	if err != nil {
		return domain.ZeroMoney(), nil, err
	}

	costed := make([]domain.RecipeLine, len(lines))
	for i, line := range lines {
		costed[i] = line
		costed[i].Cost = domain.ZeroMoney()

		item := items[i]
		if item == nil {
			s.logger.Warn("Recipe line item not found, costing as zero", "itemId", line.ItemID, "kind", line.ItemKind())
			continue
		}
		if costed[i].ItemName == "" {
			costed[i].ItemName = item.ItemName()
		}
		qty := s.writer.convertToStockUnit(ctx, line.Quantity, line.Unit, item)
		costed[i].Cost = item.UnitCost().Mul(qty)
	}

	return domain.SumLineCosts(costed), costed, nil
}

// CreateRecipe creates the recipe of a product
func (s *RecipeService) CreateRecipe(ctx context.Context, cmd CreateRecipeCommand) (*RecipeDTO, error) {
	lines := toRecipeLines(cmd.Lines)
	if err := domain.ValidateLines(lines); err != nil {
		return nil, toAppError(err)
	}

	existing, err := s.recipes.FindByProductID(ctx, cmd.BusinessID, cmd.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up recipe: %w", err)
	}
	if existing != nil {
		return nil, toAppError(domain.ErrRecipeAlreadyExists)
	}

	_, costed, err := s.Cost(ctx, cmd.BusinessID, lines)
	if err != nil {
		s.logger.Error("Failed to cost recipe", "productId", cmd.ProductID, "error", err)
		return nil, fmt.Errorf("failed to cost recipe: %w", err)
	}

	recipe, err := domain.NewRecipe(cmd.BusinessID, cmd.ProductID, cmd.ProductName, costed, cmd.Portions, cmd.Notes)
	if err != nil {
		return nil, toAppError(err)
	}

	if err := s.recipes.Save(ctx, recipe); err != nil {
		s.logger.Error("Failed to save recipe", "productId", cmd.ProductID, "error", err)
		return nil, fmt.Errorf("failed to save recipe: %w", err)
	}

	s.logger.Info("Created recipe", "recipeId", recipe.ID, "productId", recipe.ProductID, "totalCost", recipe.TotalCost.String())
	return ToRecipeDTO(recipe), nil
}

// UpdateRecipe changes a recipe. Costs are only recomputed when the lines
// actually change.
func (s *RecipeService) UpdateRecipe(ctx context.Context, cmd UpdateRecipeCommand) (*RecipeDTO, error) {
	recipe, err := s.recipes.FindByID(ctx, cmd.BusinessID, cmd.RecipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if recipe == nil {
		return nil, errors.ErrNotFoundWithID("recipe", cmd.RecipeID)
	}

	if cmd.ProductName != nil {
		recipe.ProductName = *cmd.ProductName
	}
	if cmd.Portions != nil && *cmd.Portions > 0 {
		recipe.Portions = *cmd.Portions
	}
	if cmd.Notes != nil {
		recipe.Notes = *cmd.Notes
	}

	if cmd.Lines != nil {
		lines := toRecipeLines(cmd.Lines)
		if err := domain.ValidateLines(lines); err != nil {
			return nil, toAppError(err)
		}
		if !domain.LinesEqual(recipe.Lines, lines) {
			_, costed, err := s.Cost(ctx, cmd.BusinessID, lines)
			if err != nil {
				return nil, fmt.Errorf("failed to cost recipe: %w", err)
			}
			recipe.ApplyCostedLines(costed)
		}
	}

	if err := s.recipes.Save(ctx, recipe); err != nil {
		s.logger.Error("Failed to update recipe", "recipeId", cmd.RecipeID, "error", err)
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}
	return ToRecipeDTO(recipe), nil
}

// DeleteRecipe removes a recipe
func (s *RecipeService) DeleteRecipe(ctx context.Context, businessID, id string) error {
	return toAppError(s.recipes.Delete(ctx, businessID, id))
}

// GetRecipe retrieves a recipe by id
func (s *RecipeService) GetRecipe(ctx context.Context, businessID, id string) (*RecipeDTO, error) {
	recipe, err := s.recipes.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if recipe == nil {
		return nil, errors.ErrNotFoundWithID("recipe", id)
	}
	return ToRecipeDTO(recipe), nil
}

// GetRecipeByProduct retrieves the recipe of a product
func (s *RecipeService) GetRecipeByProduct(ctx context.Context, businessID, productID string) (*RecipeDTO, error) {
	recipe, err := s.recipes.FindByProductID(ctx, businessID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if recipe == nil {
		return nil, errors.ErrNotFound("recipe").WithDetail("productId", productID)
	}
	return ToRecipeDTO(recipe), nil
}

// ListRecipes lists recipes ordered by product name
func (s *RecipeService) ListRecipes(ctx context.Context, businessID string) ([]RecipeDTO, error) {
	recipes, err := s.recipes.FindAll(ctx, businessID)
	if err != nil {
		s.logger.Error("Failed to list recipes", "error", err)
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return ToRecipeDTOs(recipes), nil
}

// CheckStock reports which lines of a product's recipe current stock cannot
// cover for quantity portions. A product without recipe always has stock.
func (s *RecipeService) CheckStock(ctx context.Context, query CheckStockQuery) (*StockCheckDTO, error) {
	quantity := query.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	recipe, err := s.recipes.FindByProductID(ctx, query.BusinessID, query.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if recipe == nil {
		return &StockCheckDTO{HasStock: true, MissingIngredients: []domain.MissingIngredient{}}, nil
	}

	missing, err := s.missingStock(ctx, query.BusinessID, recipe, quantity)
	if err != nil {
		return nil, err
	}
	return &StockCheckDTO{HasStock: len(missing) == 0, MissingIngredients: missing}, nil
}

// missingStock compares each line's need against its item's total stock.
// Lines whose item no longer exists are not counted as missing.
func (s *RecipeService) missingStock(ctx context.Context, businessID string, recipe *domain.Recipe, quantity float64) ([]domain.MissingIngredient, error) {
	items, err := s.resolveItems(ctx, businessID, recipe.Lines)
	if err != nil {
		return nil, err
	}

	missing := make([]domain.MissingIngredient, 0)
	for i, line := range recipe.Lines {
		item := items[i]
		if item == nil {
			continue
		}
		needed := s.writer.convertToStockUnit(ctx, line.Quantity*quantity, line.Unit, item)
		available := item.Stock().CurrentStock
		if available < needed {
			missing = append(missing, domain.MissingIngredient{
				ItemID:    item.ItemID(),
				Kind:      item.Kind(),
				Name:      line.ItemName,
				Needed:    needed,
				Available: available,
				Unit:      item.StockUnit(),
			})
		}
	}
	return missing, nil
}

// Profitability returns the cost and margin of a product sold at salePrice.
// Without a recipe the cost is unknown; the margin then reads 100.
func (s *RecipeService) Profitability(ctx context.Context, query ProfitabilityQuery) (*ProfitabilityDTO, error) {
	price := domain.NewMoney(query.SalePrice)
	hundred := domain.NewMoney(100)

	recipe, err := s.recipes.FindByProductID(ctx, query.BusinessID, query.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	if recipe == nil {
		return &ProfitabilityDTO{
			HasCost:      false,
			CostStatus:   CostStatusUnknown,
			Cost:         domain.ZeroMoney(),
			Price:        price,
			Profit:       price,
			ProfitMargin: hundred,
		}, nil
	}

	cost := recipe.TotalCost
	profit := price.Sub(cost)
	margin := hundred
	if cost.IsPositive() && price.IsPositive() {
		margin = domain.MoneyFromDecimal(
			profit.Decimal().Div(price.Decimal()).Mul(decimal.NewFromInt(100)),
		).Round(2)
	}

	return &ProfitabilityDTO{
		HasCost:      true,
		CostStatus:   CostStatusKnown,
		Cost:         cost,
		Price:        price,
		Profit:       profit,
		ProfitMargin: margin,
	}, nil
}

// RecalculateAll re-costs and saves every recipe of a business. Concurrent
// calls for the same business share a single pass.
func (s *RecipeService) RecalculateAll(ctx context.Context, businessID string) (*RecalculateResultDTO, error) {
	v, err, shared := s.recalculate.Do(businessID, func() (interface{}, error) {
		return s.recalculateAll(ctx, businessID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Joined in-flight recipe recalculation", "businessId", businessID)
	}
	return &RecalculateResultDTO{Updated: v.(int)}, nil
}

func (s *RecipeService) recalculateAll(ctx context.Context, businessID string) (int, error) {
	recipes, err := s.recipes.FindAll(ctx, businessID)
	if err != nil {
		return 0, fmt.Errorf("failed to list recipes: %w", err)
	}

	updated := 0
	var failures []string
	for _, recipe := range recipes {
		_, costed, err := s.Cost(ctx, businessID, recipe.Lines)
		if err != nil {
			failures = append(failures, recipe.ID)
			s.logger.Error("Failed to cost recipe", "recipeId", recipe.ID, "error", err)
			continue
		}
		recipe.ApplyCostedLines(costed)
		if err := s.recipes.Save(ctx, recipe); err != nil {
			failures = append(failures, recipe.ID)
			s.logger.Error("Failed to save recalculated recipe", "recipeId", recipe.ID, "error", err)
			continue
		}
		updated++
	}

	s.logger.Event(ctx, "recipes_recalculated", map[string]any{
		"businessId": businessID,
		"updated":    updated,
		"failed":     len(failures),
	})
	if len(failures) > 0 {
		return updated, fmt.Errorf("failed to recalculate recipes: %s", strings.Join(failures, ", "))
	}
	return updated, nil
}
