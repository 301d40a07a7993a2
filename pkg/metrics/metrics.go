package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the stock service's Prometheus collectors
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Infrastructure metrics
	KafkaEventsPublished     *prometheus.CounterVec
	KafkaEventsConsumed      *prometheus.CounterVec
	KafkaPublishDuration     *prometheus.HistogramVec
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec
	OutboxPending            prometheus.Gauge
	OutboxRetries            *prometheus.CounterVec
	CircuitBreakerState      *prometheus.GaugeVec

	// Stock metrics
	StockMovements      *prometheus.CounterVec
	ProductionRuns      *prometheus.CounterVec
	LowStockAlerts      prometheus.Counter
	ConcurrencyRetries  *prometheus.CounterVec
	OfflineSalesSynced  *prometheus.CounterVec
	OfflineQueueDepth   prometheus.Gauge
	OfflineSyncDuration prometheus.Histogram
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "cobrify",
	}
}

// New creates and registers all collectors on a private registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ns := config.Namespace
	serviceLabel := prometheus.Labels{"service": config.ServiceName}

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"service", "method", "path"}),
		HTTPRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed", ConstLabels: serviceLabel,
		}),

		KafkaEventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "kafka_events_published_total",
			Help: "Total number of Kafka events published",
		}, []string{"service", "topic", "event_type", "status"}),
		KafkaEventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "kafka_events_consumed_total",
			Help: "Total number of Kafka events consumed",
		}, []string{"service", "topic", "event_type", "status"}),
		KafkaPublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "kafka_publish_duration_seconds",
			Help:    "Kafka publish duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"service", "topic"}),
		MongoDBOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "mongodb_operations_total",
			Help: "Total number of MongoDB operations",
		}, []string{"service", "collection", "operation", "status"}),
		MongoDBOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "mongodb_operation_duration_seconds",
			Help:    "MongoDB operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"service", "collection", "operation"}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "outbox_pending_events",
			Help: "Outbox events fetched but not yet published", ConstLabels: serviceLabel,
		}),
		OutboxRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "outbox_retries_total",
			Help: "Failed outbox publish attempts, by event type",
		}, []string{"service", "event_type"}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"service", "name"}),

		StockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "stock_movements_total",
			Help: "Stock movements recorded, by movement type",
		}, []string{"service", "type"}),
		ProductionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "production_runs_total",
			Help: "Production runs, by mode and outcome",
		}, []string{"service", "mode", "outcome"}),
		LowStockAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "low_stock_alerts_total",
			Help: "Ingredients that crossed their minimum stock", ConstLabels: serviceLabel,
		}),
		ConcurrencyRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "stock_concurrency_retries_total",
			Help: "Read-modify-write retries caused by concurrent modification",
		}, []string{"service", "operation"}),
		OfflineSalesSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "offline_sales_synced_total",
			Help: "Offline sales replayed against the invoice API, by outcome",
		}, []string{"service", "outcome"}),
		OfflineQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "offline_queue_depth",
			Help: "Offline sales waiting to be synced", ConstLabels: serviceLabel,
		}),
		OfflineSyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "offline_sync_duration_seconds",
			Help:        "Duration of offline sync passes",
			Buckets:     []float64{.05, .1, .5, 1, 5, 10, 30, 60},
			ConstLabels: serviceLabel,
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaEventsConsumed,
		m.KafkaPublishDuration,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.OutboxPending,
		m.OutboxRetries,
		m.CircuitBreakerState,
		m.StockMovements,
		m.ProductionRuns,
		m.LowStockAlerts,
		m.ConcurrencyRetries,
		m.OfflineSalesSynced,
		m.OfflineQueueDepth,
		m.OfflineSyncDuration,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordKafkaPublish records a Kafka publish
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordKafkaConsume records a consumed Kafka message
func (m *Metrics) RecordKafkaConsume(topic, eventType string, success bool) {
	m.KafkaEventsConsumed.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// SetCircuitBreakerState records a breaker state (0=closed, 1=half-open, 2=open)
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// Stock recorders are nil-safe so domain services can run without metrics.

// RecordStockMovement counts a recorded movement
func (m *Metrics) RecordStockMovement(movementType string) {
	if m == nil {
		return
	}
	m.StockMovements.WithLabelValues(m.serviceName, movementType).Inc()
}

// RecordProduction counts a production run outcome
func (m *Metrics) RecordProduction(mode, outcome string) {
	if m == nil {
		return
	}
	m.ProductionRuns.WithLabelValues(m.serviceName, mode, outcome).Inc()
}

// RecordLowStockAlert counts a low-stock alert
func (m *Metrics) RecordLowStockAlert() {
	if m == nil {
		return
	}
	m.LowStockAlerts.Inc()
}

// SetOfflineQueueDepth records how many sales wait for sync
func (m *Metrics) SetOfflineQueueDepth(n int) {
	if m == nil {
		return
	}
	m.OfflineQueueDepth.Set(float64(n))
}

// RecordConcurrencyRetry counts an optimistic-concurrency retry
func (m *Metrics) RecordConcurrencyRetry(operation string) {
	if m == nil {
		return
	}
	m.ConcurrencyRetries.WithLabelValues(m.serviceName, operation).Inc()
}

// RecordOfflineSync records the outcome of a sync pass
func (m *Metrics) RecordOfflineSync(processed, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	m.OfflineSalesSynced.WithLabelValues(m.serviceName, "processed").Add(float64(processed))
	m.OfflineSalesSynced.WithLabelValues(m.serviceName, "failed").Add(float64(failed))
	m.OfflineSyncDuration.Observe(duration.Seconds())
}

// SetOutboxPending records the size of the last unpublished outbox batch
func (m *Metrics) SetOutboxPending(n int) {
	if m == nil {
		return
	}
	m.OutboxPending.Set(float64(n))
}

// RecordOutboxRetry records a failed outbox publish attempt
func (m *Metrics) RecordOutboxRetry(eventType string) {
	if m == nil {
		return
	}
	m.OutboxRetries.WithLabelValues(m.serviceName, eventType).Inc()
}
