// Package offline keeps sales created while the invoice API is unreachable
// and replays them once connectivity returns.
package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Status is the lifecycle state of a queued sale
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ErrNotFound is returned when a queued sale does not exist
var ErrNotFound = errors.New("offline sale not found")

// Sale is a sale recorded locally, waiting to be sent to the invoice API
type Sale struct {
	OfflineID     int64           `json:"offlineId"`
	UserID        string          `json:"userId"`
	InvoiceData   json.RawMessage `json:"invoiceData"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"lastError,omitempty"`
	RemoteID      string          `json:"remoteId,omitempty"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Patch lists the fields Update merges into a sale. Nil fields are kept.
type Patch struct {
	Status        *Status
	Attempts      *int
	LastError     *string
	RemoteID      *string
	InvoiceNumber *string
}

const schema = `
CREATE TABLE IF NOT EXISTS pending_sales (
	offline_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id        TEXT NOT NULL,
	invoice_data   TEXT NOT NULL,
	status         TEXT NOT NULL,
	attempts       INTEGER NOT NULL DEFAULT 0,
	last_error     TEXT NOT NULL DEFAULT '',
	remote_id      TEXT NOT NULL DEFAULT '',
	invoice_number TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pending_sales_created_at ON pending_sales (created_at);
CREATE INDEX IF NOT EXISTS idx_pending_sales_status ON pending_sales (status);
`

const saleColumns = `offline_id, user_id, invoice_data, status, attempts, last_error, remote_id, invoice_number, created_at, updated_at`

// Queue is a durable SQLite-backed queue of offline sales. It is owned by
// whoever opened it and must be closed by them.
type Queue struct {
	db  *sqlx.DB
	now func() time.Time
}

// OpenQueue opens (creating if needed) the queue database at path
func OpenQueue(path string) (*Queue, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open offline queue: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between goroutines
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create offline queue schema: %w", err)
	}
	q := &Queue{db: db, now: func() time.Time { return time.Now().UTC() }}

	// a pass interrupted by a crash leaves its sale in processing
	if _, err := q.RequeueProcessing(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return q, nil
}

// RequeueProcessing returns sales stuck in processing to pending, keeping
// their attempt count. Only the queue's owner may call it, and never while a
// sync pass runs.
func (q *Queue) RequeueProcessing(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE pending_sales SET status = ?, updated_at = ? WHERE status = ?`,
		StatusPending, formatTime(q.now()), StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue processing offline sales: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database handle
func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue stores a sale as pending with no attempts and returns its id
func (q *Queue) Enqueue(ctx context.Context, userID string, invoiceData json.RawMessage) (int64, error) {
	if !json.Valid(invoiceData) {
		return 0, fmt.Errorf("invoice data is not valid JSON")
	}
	now := formatTime(q.now())
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO pending_sales (user_id, invoice_data, status, attempts, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)`,
		userID, string(invoiceData), StatusPending, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue offline sale: %w", err)
	}
	return res.LastInsertId()
}

// Get returns a single sale
func (q *Queue) Get(ctx context.Context, offlineID int64) (*Sale, error) {
	var row saleRow
	err := q.db.GetContext(ctx, &row, `SELECT `+saleColumns+` FROM pending_sales WHERE offline_id = ?`, offlineID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offline sale %d: %w", offlineID, err)
	}
	return row.toSale()
}

// ListPending returns pending sales in insertion order
func (q *Queue) ListPending(ctx context.Context) ([]*Sale, error) {
	return q.list(ctx, `WHERE status = ?`, StatusPending)
}

// ListAll returns every sale regardless of status
func (q *Queue) ListAll(ctx context.Context) ([]*Sale, error) {
	return q.list(ctx, "")
}

// Count returns the number of pending sales
func (q *Queue) Count(ctx context.Context) (int, error) {
	var n int
	err := q.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM pending_sales WHERE status = ?`, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to count offline sales: %w", err)
	}
	return n, nil
}

// Update merges patch into a sale and stamps updatedAt
func (q *Queue) Update(ctx context.Context, offlineID int64, patch Patch) error {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Attempts != nil {
		add("attempts", *patch.Attempts)
	}
	if patch.LastError != nil {
		add("last_error", *patch.LastError)
	}
	if patch.RemoteID != nil {
		add("remote_id", *patch.RemoteID)
	}
	if patch.InvoiceNumber != nil {
		add("invoice_number", *patch.InvoiceNumber)
	}
	add("updated_at", formatTime(q.now()))
	args = append(args, offlineID)

	res, err := q.db.ExecContext(ctx,
		`UPDATE pending_sales SET `+strings.Join(sets, ", ")+` WHERE offline_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update offline sale %d: %w", offlineID, err)
	}
	return requireAffected(res)
}

// Remove deletes a sale permanently
func (q *Queue) Remove(ctx context.Context, offlineID int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM pending_sales WHERE offline_id = ?`, offlineID)
	if err != nil {
		return fmt.Errorf("failed to remove offline sale %d: %w", offlineID, err)
	}
	return requireAffected(res)
}

// ClearCompleted deletes completed sales and returns how many were removed
func (q *Queue) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM pending_sales WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("failed to clear completed offline sales: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queue) list(ctx context.Context, where string, args ...any) ([]*Sale, error) {
	var rows []saleRow
	if err := q.db.SelectContext(ctx, &rows, `SELECT `+saleColumns+` FROM pending_sales `+where+` ORDER BY offline_id`, args...); err != nil {
		return nil, fmt.Errorf("failed to list offline sales: %w", err)
	}

	sales := make([]*Sale, 0, len(rows))
	for _, row := range rows {
		sale, err := row.toSale()
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, nil
}

// saleRow mirrors a pending_sales row. Timestamps are stored as RFC 3339 text.
type saleRow struct {
	OfflineID     int64  `db:"offline_id"`
	UserID        string `db:"user_id"`
	InvoiceData   string `db:"invoice_data"`
	Status        Status `db:"status"`
	Attempts      int    `db:"attempts"`
	LastError     string `db:"last_error"`
	RemoteID      string `db:"remote_id"`
	InvoiceNumber string `db:"invoice_number"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
}

func (r saleRow) toSale() (*Sale, error) {
	sale := &Sale{
		OfflineID:     r.OfflineID,
		UserID:        r.UserID,
		InvoiceData:   json.RawMessage(r.InvoiceData),
		Status:        r.Status,
		Attempts:      r.Attempts,
		LastError:     r.LastError,
		RemoteID:      r.RemoteID,
		InvoiceNumber: r.InvoiceNumber,
	}
	var err error
	if sale.CreatedAt, err = time.Parse(time.RFC3339Nano, r.CreatedAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", r.CreatedAt, err)
	}
	if sale.UpdatedAt, err = time.Parse(time.RFC3339Nano, r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", r.UpdatedAt, err)
	}
	return sale, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
