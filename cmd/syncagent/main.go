package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cobrify/stock-service/internal/config"
	"github.com/cobrify/stock-service/internal/infrastructure/invoice"
	"github.com/cobrify/stock-service/internal/offline"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/metrics"
)

var listenAddr = flag.String("listen", "127.0.0.1:8090", "Local address the point of sale posts offline sales to")

func main() {
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.LoggingConfig()).WithComponent("syncagent")
	logger.SetDefault()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue, err := offline.OpenQueue(cfg.Offline.DBPath)
	if err != nil {
		logger.WithError(err).Error("Failed to open offline queue", "path", cfg.Offline.DBPath)
		os.Exit(1)
	}
	defer queue.Close()

	m := metrics.New(metrics.DefaultConfig(serviceName))
	invoices := invoice.NewClient(cfg.Invoice, logger, m)
	monitor := offline.NewConnectivityMonitor(invoices, cfg.Offline.ProbeInterval, logger)
	coordinator := offline.NewCoordinator(queue, invoices, monitor, logger,
		offline.WithDebounce(cfg.Offline.SyncDebounce),
		offline.WithMetrics(m),
	)
	coordinator.AddListener(func(e offline.Event) {
		logger.Event(ctx, "offline_"+string(e.Type), map[string]any{
			"offlineId": e.OfflineID,
			"processed": e.Processed,
			"failed":    e.Failed,
			"willRetry": e.WillRetry,
		})
	})

	g, gctx := errgroup.WithContext(ctx)

	a := &agent{
		queue:        queue,
		coordinator:  coordinator,
		connectivity: monitor,
		kick: func() {
			g.Go(func() error {
				if _, err := coordinator.ProcessPending(gctx); err != nil {
					logger.WithError(err).Warn("Sync after enqueue failed")
				}
				return nil
			})
		},
		breaker: func() string { return invoices.BreakerStatus().State },
	}
	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           newAgentRouter(a, logger.Logger, m),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error { return monitor.Run(gctx) })
	g.Go(func() error { return coordinator.StartAutoSync(gctx, monitor.Restored()) })
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("Sync agent started", "addr", *listenAddr, "queue", cfg.Offline.DBPath, "invoiceApi", cfg.Invoice.BaseURL)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("Sync agent stopped")
		os.Exit(1)
	}
	logger.Info("Sync agent exited")
}
