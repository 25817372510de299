package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"communitycentre/internal/attendance"
	"communitycentre/internal/config"
	"communitycentre/internal/queue"
	"communitycentre/internal/report"
	"communitycentre/internal/store"
)

// Runtime is the set of connected components shared by the binaries.
type Runtime struct {
	Config     config.App
	Backend    *store.Backend
	Redis      *store.Redis
	Queue      queue.Queue
	Attendance *attendance.Service
	Reports    *report.Builder
}

// Open connects the store, Redis, queue and report cache selected by cfg.
// Redis is skipped when no address is configured and nothing needs it.
func Open(ctx context.Context, cfg config.App, log *zap.Logger) (*Runtime, error) {
	backend, err := store.OpenBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Backend: backend}

	if cfg.RedisAddr != "" || cfg.QueueBackend == "redis" {
		rt.Redis = store.NewRedis(cfg.RedisAddr)
		if !rt.Redis.Healthy(ctx) {
			log.Warn("redis not reachable", zap.String("addr", cfg.RedisAddr))
		}
	}

	if cfg.QueueBackend == "memory" {
		rt.Queue = queue.NewInMemory(64)
	} else {
		rt.Queue = queue.NewRedisQueue(rt.Redis.Client, cfg.QueueKey, log.Named("queue"))
	}

	rt.Attendance = attendance.NewService(backend.Repo, cfg.DedupWindow, log.Named("attendance"))

	var cache *report.Cache
	if rt.Redis != nil {
		cache = report.NewCache(rt.Redis.Client, "", cfg.ReportCacheTTL)
	}
	rt.Reports = report.NewBuilder(rt.Attendance, cache, report.Options{Centre: cfg.CentreName}, log.Named("report"))
	return rt, nil
}

// Checks returns health probes for the connected dependencies.
func (rt *Runtime) Checks() map[string]func(context.Context) bool {
	checks := map[string]func(context.Context) bool{"store": rt.Backend.Healthy}
	if rt.Redis != nil {
		checks["redis"] = rt.Redis.Healthy
	}
	return checks
}

// Close releases every connection.
func (rt *Runtime) Close(ctx context.Context) error {
	return errors.Join(rt.Redis.Close(), rt.Backend.Close(ctx))
}
