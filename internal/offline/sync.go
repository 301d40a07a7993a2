package offline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/metrics"
	"github.com/cobrify/stock-service/pkg/resilience"
)

// MaxAttempts is the number of failed sends after which a sale is failed for good
const MaxAttempts = 3

// DefaultDebounce is how long auto sync waits after connectivity returns
const DefaultDebounce = 2 * time.Second

// EventType names a sync progress event
type EventType string

const (
	EventSyncStarted    EventType = "sync_started"
	EventProcessingSale EventType = "processing_sale"
	EventSaleProcessed  EventType = "sale_processed"
	EventSaleFailed     EventType = "sale_failed"
	EventSyncCompleted  EventType = "sync_completed"
)

// Event reports sync progress to listeners
type Event struct {
	Type          EventType `json:"type"`
	OfflineID     int64     `json:"offlineId,omitempty"`
	RemoteID      string    `json:"remoteId,omitempty"`
	InvoiceNumber string    `json:"invoiceNumber,omitempty"`
	Error         string    `json:"error,omitempty"`
	WillRetry     bool      `json:"willRetry,omitempty"`
	Processed     int       `json:"processed,omitempty"`
	Failed        int       `json:"failed,omitempty"`
	Total         int       `json:"total,omitempty"`
}

// Listener receives sync events. It is called synchronously from the sync
// pass; a panicking listener is logged and does not stop the pass.
type Listener func(Event)

// Result summarises one ProcessPending call
type Result struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	// Deferred counts sales left pending untouched because the invoice
	// API's circuit breaker was open
	Deferred int  `json:"deferred,omitempty"`
	Total    int  `json:"total"`
	Skipped  bool `json:"skipped,omitempty"`
	Offline  bool `json:"offline,omitempty"`
}

// Store is the queue as seen by the coordinator
type Store interface {
	ListPending(ctx context.Context) ([]*Sale, error)
	Update(ctx context.Context, offlineID int64, patch Patch) error
	Remove(ctx context.Context, offlineID int64) error
	Count(ctx context.Context) (int, error)
}

// InvoiceCreator sends a sale to the remote invoice API
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, userID string, invoiceData json.RawMessage) (remoteID, invoiceNumber string, err error)
}

// Connectivity reports whether the invoice API is reachable
type Connectivity interface {
	Online() bool
}

// Coordinator drains the offline queue against the invoice API. At most one
// pass runs at a time.
type Coordinator struct {
	store        Store
	invoices     InvoiceCreator
	connectivity Connectivity
	debounce     time.Duration
	logger       *logging.Logger
	metrics      *metrics.Metrics

	mu      sync.Mutex
	syncing bool

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int
}

// CoordinatorOption configures a Coordinator
type CoordinatorOption func(*Coordinator)

// WithDebounce overrides the auto sync debounce
func WithDebounce(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.debounce = d }
}

// WithMetrics records sync outcomes and queue depth
func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator creates a new Coordinator
func NewCoordinator(store Store, invoices InvoiceCreator, connectivity Connectivity, logger *logging.Logger, opts ...CoordinatorOption) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Coordinator{
		store:        store,
		invoices:     invoices,
		connectivity: connectivity,
		debounce:     DefaultDebounce,
		logger:       logger.WithComponent("offline-sync"),
		listeners:    make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddListener registers fn for sync events and returns a function that
// removes it
func (c *Coordinator) AddListener(fn Listener) func() {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			delete(c.listeners, id)
			c.listenersMu.Unlock()
		})
	}
}

func (c *Coordinator) emit(e Event) {
	c.listenersMu.RLock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenersMu.RUnlock()

	for _, l := range listeners {
		c.notify(l, e)
	}
}

func (c *Coordinator) notify(l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Sync listener panicked", "event", e.Type, "offlineId", e.OfflineID, "panic", r)
		}
	}()
	l(e)
}

// IsSyncing reports whether a pass is running
func (c *Coordinator) IsSyncing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncing
}

func (c *Coordinator) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.syncing {
		return false
	}
	c.syncing = true
	return true
}

func (c *Coordinator) end() {
	c.mu.Lock()
	c.syncing = false
	c.mu.Unlock()
}

// ProcessPending sends every pending sale to the invoice API. A call made
// while another pass runs is skipped; a call made while offline returns
// without touching the queue.
func (c *Coordinator) ProcessPending(ctx context.Context) (Result, error) {
	if !c.begin() {
		c.logger.Debug("Sync already in progress, skipping")
		return Result{Skipped: true}, nil
	}
	defer c.end()

	if c.connectivity != nil && !c.connectivity.Online() {
		c.logger.Debug("Offline, sync postponed")
		return Result{Offline: true}, nil
	}

	start := time.Now()
	pending, err := c.store.ListPending(ctx)
	if err != nil {
		c.logger.Error("Failed to list pending sales", "error", err)
		return Result{}, err
	}

	result := Result{Total: len(pending)}
	c.logger.Info("Starting offline sync", "pending", result.Total)
	c.emit(Event{Type: EventSyncStarted, Total: result.Total})

	for i, sale := range pending {
		if ctx.Err() != nil {
			break
		}
		switch c.processSale(ctx, sale) {
		case outcomeProcessed:
			result.Processed++
		case outcomeFailed:
			result.Failed++
		case outcomeDeferred:
			result.Deferred = len(pending) - i
		}
		if result.Deferred > 0 {
			c.logger.Info("Invoice API circuit open, stopping sync pass", "deferred", result.Deferred)
			break
		}
	}

	c.emit(Event{Type: EventSyncCompleted, Processed: result.Processed, Failed: result.Failed, Total: result.Total})
	c.metrics.RecordOfflineSync(result.Processed, result.Failed, time.Since(start))
	if depth, err := c.store.Count(ctx); err == nil {
		c.metrics.SetOfflineQueueDepth(depth)
	}
	c.logger.Info("Offline sync completed", "processed", result.Processed, "failed", result.Failed, "deferred", result.Deferred, "total", result.Total)
	return result, nil
}

// outcome is what one send did to a queued sale
type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeFailed
	// the breaker refused the call before anything was sent
	outcomeDeferred
)

// processSale sends one sale to the invoice API
func (c *Coordinator) processSale(ctx context.Context, sale *Sale) outcome {
	attempts := sale.Attempts + 1
	processing := StatusProcessing
	if err := c.store.Update(ctx, sale.OfflineID, Patch{Status: &processing, Attempts: &attempts}); err != nil {
		c.logger.Error("Failed to mark sale as processing", "offlineId", sale.OfflineID, "error", err)
		return outcomeFailed
	}
	c.emit(Event{Type: EventProcessingSale, OfflineID: sale.OfflineID})

	remoteID, invoiceNumber, err := c.invoices.CreateInvoice(ctx, sale.UserID, sale.InvoiceData)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.release(ctx, sale)
		return outcomeDeferred
	}
	if err != nil {
		c.fail(ctx, sale.OfflineID, attempts, err)
		return outcomeFailed
	}

	completed := StatusCompleted
	if err := c.store.Update(ctx, sale.OfflineID, Patch{Status: &completed, RemoteID: &remoteID, InvoiceNumber: &invoiceNumber}); err != nil {
		c.logger.Error("Failed to mark sale as completed", "offlineId", sale.OfflineID, "error", err)
	}
	if err := c.store.Remove(ctx, sale.OfflineID); err != nil {
		c.logger.Error("Failed to remove synced sale", "offlineId", sale.OfflineID, "error", err)
	}

	c.logger.Info("Offline sale synced", "offlineId", sale.OfflineID, "remoteId", remoteID, "invoiceNumber", invoiceNumber)
	c.emit(Event{Type: EventSaleProcessed, OfflineID: sale.OfflineID, RemoteID: remoteID, InvoiceNumber: invoiceNumber})
	return outcomeProcessed
}

// release puts a sale back as it was before the pass picked it up
func (c *Coordinator) release(ctx context.Context, sale *Sale) {
	status := StatusPending
	attempts := sale.Attempts
	if err := c.store.Update(ctx, sale.OfflineID, Patch{Status: &status, Attempts: &attempts}); err != nil {
		c.logger.Error("Failed to release deferred sale", "offlineId", sale.OfflineID, "error", err)
	}
}

func (c *Coordinator) fail(ctx context.Context, offlineID int64, attempts int, cause error) {
	status := StatusPending
	willRetry := attempts < MaxAttempts
	if !willRetry {
		status = StatusFailed
	}
	lastError := cause.Error()
	if err := c.store.Update(ctx, offlineID, Patch{Status: &status, LastError: &lastError}); err != nil {
		c.logger.Error("Failed to record sync failure", "offlineId", offlineID, "error", err)
	}

	c.logger.Warn("Offline sale sync failed", "offlineId", offlineID, "attempts", attempts, "willRetry", willRetry, "error", cause)
	c.emit(Event{Type: EventSaleFailed, OfflineID: offlineID, Error: lastError, WillRetry: willRetry})
}

// StartAutoSync runs a pass every time restored fires, after the debounce
// and only if still online. It returns when ctx is done or restored closes.
func (c *Coordinator) StartAutoSync(ctx context.Context, restored <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-restored:
			if !ok {
				return nil
			}
		}

		timer := time.NewTimer(c.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if c.connectivity != nil && !c.connectivity.Online() {
			c.logger.Debug("Connectivity lost again during debounce")
			continue
		}
		if _, err := c.ProcessPending(ctx); err != nil {
			c.logger.Error("Auto sync pass failed", "error", err)
		}
	}
}
