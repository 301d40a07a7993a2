package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrify/stock-service/internal/offline"
)

type stubInvoices struct {
	err error
}

func (s *stubInvoices) CreateInvoice(ctx context.Context, userID string, data json.RawMessage) (string, string, error) {
	if s.err != nil {
		return "", "", s.err
	}
	return "inv-1", "B001-00000042", nil
}

type onlineFlag struct{ v atomic.Bool }

func (o *onlineFlag) Online() bool { return o.v.Load() }

type fixture struct {
	router   *gin.Engine
	queue    *offline.Queue
	online   *onlineFlag
	invoices *stubInvoices
	kicks    atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	queue, err := offline.OpenQueue(filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { queue.Close() })

	f := &fixture{queue: queue, online: &onlineFlag{}, invoices: &stubInvoices{}}
	f.online.v.Store(true)
	coordinator := offline.NewCoordinator(queue, f.invoices, f.online, nil)
	f.router = newAgentRouter(&agent{
		queue:        queue,
		coordinator:  coordinator,
		connectivity: f.online,
		kick:         func() { f.kicks.Add(1) },
		breaker:      func() string { return "closed" },
	}, slog.New(slog.DiscardHandler), nil)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAgent_EnqueueAndSync(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/sales", `{"userId":"user-1","invoiceData":{"total":12.5}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int32(1), f.kicks.Load())

	w = f.do(http.MethodGet, "/sales?status=pending", "")
	require.Equal(t, http.StatusOK, w.Code)
	var pending []offline.Sale
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.JSONEq(t, `{"total":12.5}`, string(pending[0].InvoiceData))

	w = f.do(http.MethodPost, "/sync", "")
	require.Equal(t, http.StatusOK, w.Code)
	var result offline.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, offline.Result{Processed: 1, Total: 1}, result)

	w = f.do(http.MethodGet, "/sales", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAgent_OfflineEnqueueDoesNotKick(t *testing.T) {
	f := newFixture(t)
	f.online.v.Store(false)

	w := f.do(http.MethodPost, "/sales", `{"userId":"user-1","invoiceData":{"total":3}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Zero(t, f.kicks.Load())

	w = f.do(http.MethodPost, "/sync", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"offline":true`)

	w = f.do(http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"online":false,"syncing":false,"pending":1,"invoiceBreaker":"closed"}`, w.Body.String())
}

func TestAgent_RetryFailedSale(t *testing.T) {
	f := newFixture(t)
	f.invoices.err = errors.New("invoice API returned status 503")

	w := f.do(http.MethodPost, "/sales", `{"userId":"user-1","invoiceData":{"total":3}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		OfflineID int64 `json:"offlineId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	for i := 0; i < offline.MaxAttempts; i++ {
		require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/sync", "").Code)
	}
	sale, err := f.queue.Get(context.Background(), created.OfflineID)
	require.NoError(t, err)
	assert.Equal(t, offline.StatusFailed, sale.Status)

	w = f.do(http.MethodPost, "/sales/"+jsonInt(created.OfflineID)+"/retry", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sale, err = f.queue.Get(context.Background(), created.OfflineID)
	require.NoError(t, err)
	assert.Equal(t, offline.StatusPending, sale.Status)
	assert.Zero(t, sale.Attempts)
}

func TestAgent_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"missing user", http.MethodPost, "/sales", `{"invoiceData":{"total":1}}`, http.StatusBadRequest},
		{"missing invoice data", http.MethodPost, "/sales", `{"userId":"user-1"}`, http.StatusBadRequest},
		{"bad id", http.MethodDelete, "/sales/abc", "", http.StatusBadRequest},
		{"unknown sale retry", http.MethodPost, "/sales/999/retry", "", http.StatusNotFound},
		{"unknown sale delete", http.MethodDelete, "/sales/999", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestAgent_RemoveAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.queue.Enqueue(ctx, "user-1", json.RawMessage(`{"total":1}`))
	require.NoError(t, err)
	done, err := f.queue.Enqueue(ctx, "user-1", json.RawMessage(`{"total":2}`))
	require.NoError(t, err)
	completed := offline.StatusCompleted
	require.NoError(t, f.queue.Update(ctx, done, offline.Patch{Status: &completed}))

	w := f.do(http.MethodDelete, "/sales/completed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":1}`, w.Body.String())

	w = f.do(http.MethodDelete, "/sales/"+jsonInt(id), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	all, err := f.queue.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAgent_EventStream(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/events", nil)
	require.NoError(t, err)
	defer conn.Close()

	_, err = f.queue.Enqueue(context.Background(), "user-1", json.RawMessage(`{"total":1}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/sync", "").Code)

	var types []offline.EventType
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for len(types) == 0 || types[len(types)-1] != offline.EventSyncCompleted {
		var e offline.Event
		require.NoError(t, conn.ReadJSON(&e))
		types = append(types, e.Type)
	}
	assert.Equal(t, []offline.EventType{
		offline.EventSyncStarted,
		offline.EventProcessingSale,
		offline.EventSaleProcessed,
		offline.EventSyncCompleted,
	}, types)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
