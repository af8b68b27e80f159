package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/cinerec/internal/bootstrap"
	"github.com/kirillkom/cinerec/internal/config"
	"github.com/kirillkom/cinerec/internal/observability/logging"
	"github.com/kirillkom/cinerec/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app.SyncUC.WithObserver(workerMetrics)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", workerMetrics.Handler())
		if err := http.ListenAndServe(":"+cfg.WorkerMetricsPort, mux); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_error", "error", err)
		}
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeSyncRequested(ctx, func(handlerCtx context.Context, pages int) error {
		syncCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Minute)
		defer cancel()

		stored, err := app.SyncUC.Sync(syncCtx, pages)
		if err != nil {
			workerMetrics.RecordSyncRun(serviceName, "failed")
			return err
		}

		skipped, err := app.SyncUC.ReloadFacts(syncCtx)
		if err != nil {
			workerMetrics.RecordSyncRun(serviceName, "failed")
			return err
		}

		workerMetrics.RecordSyncRun(serviceName, "ok")
		logger.Info("catalog_sync_done", "pages", pages, "stored", stored, "skipped_facts", skipped)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
