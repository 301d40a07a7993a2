package cloudevents

import (
	"time"
)

// Stock service event types
const (
	IngredientPurchased = "cobrify.stock.ingredient.purchased"
	PurchaseDeleted     = "cobrify.stock.purchase.deleted"
	StockAdjusted       = "cobrify.stock.adjusted"
	StockConsumed       = "cobrify.stock.consumed"
	StockTransferred    = "cobrify.stock.transferred"
	ProductionCompleted = "cobrify.stock.production.completed"
	LowStockAlert       = "cobrify.stock.low-stock-alert"

	// Consumed from the sales service
	SaleCompleted = "cobrify.sales.sale.completed"
)

// Event sources
const (
	SourceStock = "/cobrify/stock-service"
	SourceSales = "/cobrify/sales-service"
)

// StockCloudEvent represents a CloudEvents v1.0 compliant event
type StockCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// Extension attributes
	BusinessID    string `json:"cobrifybusinessid,omitempty"`
	WarehouseID   string `json:"cobrifywarehouseid,omitempty"`
	CorrelationID string `json:"cobrifycorrelationid,omitempty"`

	// W3C trace context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// SaleCompletedData is the payload of a completed sale published by the
// sales service. Only lines for stock-tracked products matter here.
type SaleCompletedData struct {
	SaleID      string     `json:"saleId"`
	BusinessID  string     `json:"businessId"`
	WarehouseID string     `json:"warehouseId,omitempty"`
	UserID      string     `json:"userId,omitempty"`
	Lines       []SaleLine `json:"items"`
}

// SaleLine is one sold product
type SaleLine struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"name"`
	Quantity    float64 `json:"quantity"`
}
