// Package invoice talks to the remote invoice API that offline sales are
// replayed against.
package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/metrics"
	"github.com/cobrify/stock-service/pkg/resilience"
)

// ErrRejected is returned when the API answered but refused the invoice.
// Rejections do not count against the circuit breaker.
var ErrRejected = errors.New("invoice rejected")

// Config holds the API location
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// createResponse is the API's answer to an invoice creation
type createResponse struct {
	Success       bool   `json:"success"`
	ID            string `json:"id"`
	InvoiceNumber string `json:"invoiceNumber"`
	Error         string `json:"error"`
}

// Client implements offline.InvoiceCreator and offline.HealthChecker
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
}

// NewClient creates a new invoice API client
func NewClient(cfg Config, logger *logging.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	breakerCfg := resilience.DefaultCircuitBreakerConfig("invoice-api")
	breakerCfg.IsFailure = func(err error) bool { return !errors.Is(err, ErrRejected) }
	if m != nil {
		breakerCfg.OnStateChange = m.SetCircuitBreakerState
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    resilience.NewCircuitBreaker(breakerCfg, logger.Logger),
		logger:     logger.WithComponent("invoice-client"),
	}
}

// CreateInvoice posts the stored invoice payload for userID and returns the
// remote id and invoice number
func (c *Client) CreateInvoice(ctx context.Context, userID string, invoiceData json.RawMessage) (string, string, error) {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.create(ctx, userID, invoiceData)
	})
	if err != nil {
		return "", "", err
	}
	created := result.(*createResponse)
	return created.ID, created.InvoiceNumber, nil
}

func (c *Client) create(ctx context.Context, userID string, invoiceData json.RawMessage) (*createResponse, error) {
	endpoint := fmt.Sprintf("%s/businesses/%s/invoices", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(invoiceData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send invoice: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice response: %w", err)
	}
	c.logger.Debug("Invoice API call", "userId", userID, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("invoice API returned status %d", resp.StatusCode)
	}

	var created createResponse
	if err := json.Unmarshal(body, &created); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode invoice response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !created.Success {
		reason := created.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, reason)
	}
	return &created, nil
}

// Health checks the API's health endpoint. It bypasses the breaker so that
// recovery can be observed while the breaker is open.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoice API unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("invoice API health returned status %d", resp.StatusCode)
	}
	return nil
}

// BreakerStatus exposes the breaker counters for health endpoints
func (c *Client) BreakerStatus() resilience.CircuitBreakerStatus {
	return c.breaker.Status()
}
