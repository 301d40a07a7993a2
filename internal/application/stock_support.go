package application

import (
	"context"
	"fmt"

	"github.com/cobrify/stock-service/internal/domain"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/metrics"
	"github.com/cobrify/stock-service/pkg/resilience"
)

// StockStore groups the repositories every stock mutation touches: the two
// item kinds, the movement log and the transaction runner.
type StockStore struct {
	Ingredients domain.IngredientRepository
	Products    domain.ProductRepository
	Movements   domain.MovementRepository
	Tx          domain.TxRunner
}

// stockWriter runs read-modify-write cycles on stock items. Each cycle runs
// in one transaction and is retried when another writer got there first.
type stockWriter struct {
	store   StockStore
	metrics *metrics.Metrics
	logger  *logging.Logger
}

func (w *stockWriter) retryConfig(operation string) *resilience.RetryConfig {
	return &resilience.RetryConfig{
		MaxAttempts:     resilience.ConcurrencyRetryMaxAttempts,
		InitialDelay:    resilience.ConcurrencyRetryInitialDelay,
		MaxDelay:        resilience.ConcurrencyRetryMaxDelay,
		BackoffFactor:   resilience.DefaultRetryBackoffFactor,
		RetryableErrors: resilience.RetryOn(domain.ErrConcurrentModification),
		OnRetry: func(attempt int, err error) {
			w.metrics.RecordConcurrencyRetry(operation)
			w.logger.Debug("Retrying after concurrent modification", "operation", operation, "attempt", attempt)
		},
	}
}

// atomically runs fn inside a transaction, retrying on version conflicts.
// fn must re-read everything it mutates from the context it is given.
func (w *stockWriter) atomically(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return resilience.Retry(ctx, w.retryConfig(operation), func() error {
		return w.store.Tx.WithinTransaction(ctx, fn)
	})
}

// loadItem fetches an ingredient or product by kind. It returns nil, nil
// when the item does not exist.
func (w *stockWriter) loadItem(ctx context.Context, businessID string, kind domain.ItemKind, id string) (domain.StockItem, error) {
	switch kind {
	case domain.ItemProduct:
		p, err := w.store.Products.FindByID(ctx, businessID, id)
		if err != nil || p == nil {
			return nil, err
		}
		return p, nil
	case domain.ItemIngredient, "":
		ing, err := w.store.Ingredients.FindByID(ctx, businessID, id)
		if err != nil || ing == nil {
			return nil, err
		}
		return ing, nil
	default:
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}
}

// mustLoadItem is loadItem with a not-found error for missing items
func (w *stockWriter) mustLoadItem(ctx context.Context, businessID string, kind domain.ItemKind, id string) (domain.StockItem, error) {
	item, err := w.loadItem(ctx, businessID, kind, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		if kind == domain.ItemProduct {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.ErrIngredientNotFound
	}
	return item, nil
}

// saveItem persists an item through the repository of its kind
func (w *stockWriter) saveItem(ctx context.Context, item domain.StockItem) error {
	switch it := item.(type) {
	case *domain.Ingredient:
		return w.store.Ingredients.Save(ctx, it)
	case *domain.Product:
		return w.store.Products.Save(ctx, it)
	default:
		return fmt.Errorf("unsupported stock item %T", item)
	}
}

// record appends movements and counts them
func (w *stockWriter) record(ctx context.Context, movements ...*domain.StockMovement) error {
	if err := w.store.Movements.Append(ctx, movements...); err != nil {
		return fmt.Errorf("failed to record stock movements: %w", err)
	}
	for _, m := range movements {
		w.metrics.RecordStockMovement(string(m.Type))
	}
	return nil
}

// convertToStockUnit converts a quantity into the item's stock unit and
// logs unsupported pairs, which pass through unchanged
func (w *stockWriter) convertToStockUnit(ctx context.Context, qty float64, unit string, item domain.StockItem) float64 {
	if unit == "" {
		return qty
	}
	converted, err := domain.ConvertChecked(qty, unit, item.StockUnit())
	if err != nil {
		w.logger.WithContext(ctx).Warn("Unit conversion not supported, using quantity as is",
			"itemId", item.ItemID(), "from", unit, "to", item.StockUnit())
	}
	return converted
}

// itemSet loads each item at most once per transaction attempt, so lines
// touching the same item share one copy and one versioned save
type itemSet struct {
	order   []domain.StockItem
	byKey   map[string]domain.StockItem
	missing map[string]bool
}

func newItemSet() *itemSet {
	return &itemSet{
		byKey:   make(map[string]domain.StockItem),
		missing: make(map[string]bool),
	}
}

func (s *itemSet) get(ctx context.Context, w *stockWriter, businessID string, kind domain.ItemKind, id string) (domain.StockItem, error) {
	key := string(kind) + "/" + id
	if item, ok := s.byKey[key]; ok {
		return item, nil
	}
	if s.missing[key] {
		return nil, nil
	}

	item, err := w.loadItem(ctx, businessID, kind, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		s.missing[key] = true
		return nil, nil
	}
	s.byKey[key] = item
	s.order = append(s.order, item)
	return item, nil
}

func (s *itemSet) saveAll(ctx context.Context, w *stockWriter) error {
	for _, item := range s.order {
		if err := w.saveItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
