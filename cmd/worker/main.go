package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"communitycentre/internal/app"
	"communitycentre/internal/config"
	"communitycentre/internal/logging"
	"communitycentre/internal/metrics"
	"communitycentre/internal/worker"
)

// Worker consumes attendance messages and keeps the cached report fresh.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.InitLogger("worker", cfg.Env, cfg.LogDir)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend == "memory" {
		logger.Fatal("the in-memory queue is consumed by the api process; set QUEUE_BACKEND=redis to run a separate worker")
	}

	rt, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer func() { _ = rt.Close(context.Background()) }()

	m := metrics.New(prometheus.DefaultRegisterer)
	go serveMetrics(ctx, cfg.WorkerMetricsPort, logger)

	// Warm the cache so the first download after a restart is served from Redis.
	if err := rt.Reports.Refresh(ctx); err != nil {
		logger.Warn("initial report refresh failed", zap.Error(err))
	}

	proc := worker.New(rt.Attendance, rt.Reports, m, logger.Named("worker"))
	if err := proc.Run(ctx, rt.Queue); err != nil {
		logger.Fatal("worker failed", zap.Error(err))
	}
}

func serveMetrics(ctx context.Context, port string, logger *zap.Logger) {
	if port == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics server failed", zap.Error(err))
	}
}
