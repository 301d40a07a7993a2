// Package messaging wires Kafka events from other services into stock use cases
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/cobrify/stock-service/internal/application"
	"github.com/cobrify/stock-service/pkg/cloudevents"
	apperrors "github.com/cobrify/stock-service/pkg/errors"
	"github.com/cobrify/stock-service/pkg/kafka"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/tracing"
)

// RecipeLookup finds the recipe of a sold product
type RecipeLookup interface {
	GetRecipeByProduct(ctx context.Context, businessID, productID string) (*application.RecipeDTO, error)
}

// SaleDeductor consumes stock for a sale
type SaleDeductor interface {
	SaleDeducted(ctx context.Context, businessID, saleID string) (bool, error)
	DeductForSale(ctx context.Context, cmd application.DeductForSaleCommand) (*application.DeductResultDTO, error)
}

// Subscriber is the part of the Kafka consumer the handler registers with
type Subscriber interface {
	Subscribe(topic string, eventType string, handler kafka.EventHandler)
}

// SaleEventHandler deducts recipe ingredients when the sales service
// reports a completed sale. Products without a recipe are not stock-tracked
// through sales and are ignored.
type SaleEventHandler struct {
	recipes RecipeLookup
	stock   SaleDeductor
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewSaleEventHandler creates a new SaleEventHandler
func NewSaleEventHandler(recipes RecipeLookup, stock SaleDeductor, logger *logging.Logger) *SaleEventHandler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SaleEventHandler{
		recipes: recipes,
		stock:   stock,
		logger:  logger.WithComponent("sale-consumer"),
		tracer:  otel.Tracer("stock-service/messaging"),
	}
}

// Register subscribes the handler to completed sales
func (h *SaleEventHandler) Register(s Subscriber) {
	s.Subscribe(kafka.Topics.SalesEvents, cloudevents.SaleCompleted, h.HandleSaleCompleted)
}

// HandleSaleCompleted processes one sale. Returning an error leaves the
// message uncommitted so it is redelivered.
func (h *SaleEventHandler) HandleSaleCompleted(ctx context.Context, event *cloudevents.StockCloudEvent) error {
	sale, err := decodeSale(event)
	if err != nil {
		// Redelivery cannot fix a malformed payload
		h.logger.Error("Dropping malformed sale event", "eventId", event.ID, "error", err)
		return nil
	}
	if sale.BusinessID == "" || sale.SaleID == "" {
		h.logger.Warn("Dropping sale event without business or sale id", "eventId", event.ID)
		return nil
	}

	logger := h.logger.WithBusiness(sale.BusinessID)

	done, err := h.stock.SaleDeducted(ctx, sale.BusinessID, sale.SaleID)
	if err != nil {
		return err
	}
	if done {
		logger.Info("Sale already deducted, skipping", "saleId", sale.SaleID)
		return nil
	}

	// SaleDeducted holds only if the whole sale commits in one command
	var (
		lines []application.SaleLine
		names []string
	)
	for _, line := range sale.Lines {
		if line.Quantity <= 0 {
			continue
		}
		recipe, err := h.recipes.GetRecipeByProduct(ctx, sale.BusinessID, line.ProductID)
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			logger.Debug("Sold product has no recipe", "productId", line.ProductID, "saleId", sale.SaleID)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load recipe for product %s: %w", line.ProductID, err)
		}
		name := productName(recipe, line)
		lines = append(lines, scaleRecipe(recipe, line.Quantity, name)...)
		names = append(names, name)
	}
	if len(lines) == 0 {
		logger.Debug("Sale has no recipe products", "saleId", sale.SaleID)
		return nil
	}

	result, err := tracing.Traced(ctx, h.tracer, "sale.deduct_recipes",
		func(ctx context.Context) (*application.DeductResultDTO, error) {
			return h.stock.DeductForSale(ctx, application.DeductForSaleCommand{
				BusinessID:  sale.BusinessID,
				Lines:       lines,
				SaleID:      sale.SaleID,
				ProductName: strings.Join(names, ", "),
				WarehouseID: sale.WarehouseID,
				UserID:      sale.UserID,
			})
		},
		tracing.StockSpanAttributes(sale.BusinessID, "", "")...,
	)
	if err != nil {
		return fmt.Errorf("failed to deduct stock for sale %s: %w", sale.SaleID, err)
	}
	deducted := result.Deducted

	logger.Event(ctx, "sale_stock_deducted", map[string]any{
		"saleId":   sale.SaleID,
		"products": len(sale.Lines),
		"deducted": deducted,
	})
	return nil
}

func decodeSale(event *cloudevents.StockCloudEvent) (*cloudevents.SaleCompletedData, error) {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event data: %w", err)
	}
	var sale cloudevents.SaleCompletedData
	if err := json.Unmarshal(raw, &sale); err != nil {
		return nil, fmt.Errorf("failed to decode sale: %w", err)
	}
	if sale.BusinessID == "" {
		sale.BusinessID = event.BusinessID
	}
	if sale.WarehouseID == "" {
		sale.WarehouseID = event.WarehouseID
	}
	return &sale, nil
}

// scaleRecipe turns a recipe into sale lines for qty sold units of product
func scaleRecipe(recipe *application.RecipeDTO, qty float64, product string) []application.SaleLine {
	lines := make([]application.SaleLine, 0, len(recipe.Lines))
	for _, l := range recipe.Lines {
		lines = append(lines, application.SaleLine{
			Kind:        l.Kind,
			ItemID:      l.ItemID,
			ItemName:    l.ItemName,
			Quantity:    l.Quantity * qty,
			Unit:        l.Unit,
			ProductName: product,
		})
	}
	return lines
}

func productName(recipe *application.RecipeDTO, line cloudevents.SaleLine) string {
	if line.ProductName != "" {
		return line.ProductName
	}
	return recipe.ProductName
}
