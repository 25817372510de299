package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"communitycentre/internal/api"
	"communitycentre/internal/app"
	"communitycentre/internal/auth"
	"communitycentre/internal/config"
	"communitycentre/internal/logging"
	"communitycentre/internal/metrics"
	"communitycentre/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.InitLogger("api", cfg.Env, cfg.LogDir)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(context.Background()); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)

	// An in-memory queue only exists inside this process, so consume it here.
	if cfg.QueueBackend == "memory" {
		proc := worker.New(rt.Attendance, rt.Reports, m, logger.Named("worker"))
		go func() {
			if err := proc.Run(ctx, rt.Queue); err != nil {
				logger.Error("embedded worker failed", zap.Error(err))
			}
		}()
	}

	r := api.NewRouter(api.Deps{
		Config:     cfg,
		Attendance: rt.Attendance,
		Signer:     auth.NewSigner(cfg.JWTSigningKey, cfg.JWTIssuer),
		Queue:      rt.Queue,
		Reports:    rt.Reports,
		Metrics:    m,
		Gatherer:   prometheus.DefaultGatherer,
		Health:     rt.Checks(),
		Log:        logger.Named("http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("store", rt.Backend.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}
