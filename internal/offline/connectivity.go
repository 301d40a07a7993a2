package offline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cobrify/stock-service/pkg/logging"
)

// HealthChecker probes the invoice API
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ConnectivityMonitor tracks whether the invoice API is reachable by probing
// its health endpoint. Every offline to online transition is signalled on
// Restored.
type ConnectivityMonitor struct {
	checker  HealthChecker
	interval time.Duration
	timeout  time.Duration
	logger   *logging.Logger

	online   atomic.Bool
	restored chan struct{}
}

// NewConnectivityMonitor creates a monitor that starts out offline
func NewConnectivityMonitor(checker HealthChecker, interval time.Duration, logger *logging.Logger) *ConnectivityMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &ConnectivityMonitor{
		checker:  checker,
		interval: interval,
		timeout:  interval / 2,
		logger:   logger.WithComponent("connectivity"),
		restored: make(chan struct{}, 1),
	}
}

// Online reports the result of the last probe
func (m *ConnectivityMonitor) Online() bool {
	return m.online.Load()
}

// Restored fires after a probe finds the API reachable again. Signals that
// nobody has consumed yet are coalesced.
func (m *ConnectivityMonitor) Restored() <-chan struct{} {
	return m.restored
}

// Probe checks the API once and returns the new state
func (m *ConnectivityMonitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.checker.Health(ctx)
	online := err == nil
	was := m.online.Swap(online)

	switch {
	case online && !was:
		m.logger.Info("Invoice API reachable")
		select {
		case m.restored <- struct{}{}:
		default:
		}
	case !online && was:
		m.logger.Warn("Invoice API unreachable", "error", err)
	}
	return online
}

// Run probes on every interval until ctx is done
func (m *ConnectivityMonitor) Run(ctx context.Context) error {
	m.Probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
