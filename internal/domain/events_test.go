package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainEvents_Metadata(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		eventType string
		event     DomainEvent
	}{
		{
			name:      "ingredient_purchased",
			eventType: "cobrify.stock.ingredient.purchased",
			event:     &IngredientPurchasedEvent{PurchasedAt: now},
		},
		{
			name:      "purchase_deleted",
			eventType: "cobrify.stock.purchase.deleted",
			event:     &PurchaseDeletedEvent{DeletedAt: now},
		},
		{
			name:      "stock_adjusted",
			eventType: "cobrify.stock.adjusted",
			event:     &StockAdjustedEvent{AdjustedAt: now},
		},
		{
			name:      "stock_consumed",
			eventType: "cobrify.stock.consumed",
			event:     &StockConsumedEvent{ConsumedAt: now},
		},
		{
			name:      "stock_transferred",
			eventType: "cobrify.stock.transferred",
			event:     &StockTransferredEvent{TransferredAt: now},
		},
		{
			name:      "production_completed",
			eventType: "cobrify.stock.production.completed",
			event:     &ProductionCompletedEvent{CompletedAt: now},
		},
		{
			name:      "low_stock_alert",
			eventType: "cobrify.stock.low-stock-alert",
			event:     &LowStockAlertEvent{AlertedAt: now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.eventType, tt.event.EventType())
			assert.Equal(t, now, tt.event.OccurredAt())
		})
	}
}
