package cloudevents

// CloudEvents extension attribute names, also used as Kafka header suffixes
const (
	ExtBusinessID    = "cobrifybusinessid"
	ExtWarehouseID   = "cobrifywarehouseid"
	ExtCorrelationID = "cobrifycorrelationid"
)

// HTTP header names for tenant context
const (
	HeaderBusinessID = "X-Business-ID"
	HeaderUserID     = "X-User-ID"
)

// ExtensionAttributes returns the populated extension attributes
func (e *StockCloudEvent) ExtensionAttributes() map[string]string {
	attrs := make(map[string]string, 3)
	if e.BusinessID != "" {
		attrs[ExtBusinessID] = e.BusinessID
	}
	if e.WarehouseID != "" {
		attrs[ExtWarehouseID] = e.WarehouseID
	}
	if e.CorrelationID != "" {
		attrs[ExtCorrelationID] = e.CorrelationID
	}
	return attrs
}

// WithWarehouse sets the warehouse extension and returns the event
func (e *StockCloudEvent) WithWarehouse(warehouseID string) *StockCloudEvent {
	e.WarehouseID = warehouseID
	return e
}
