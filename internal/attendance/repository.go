package attendance

import (
	"context"
	"time"
)

// Repository is the persistence boundary for workers, records and the centre location.
// Lookups of a single item return ErrNotFound when absent, except GetCenterLocation
// which returns nil, nil: an unset centre is a valid state.
type Repository interface {
	ListWorkers(ctx context.Context) ([]Worker, error)
	GetWorker(ctx context.Context, id string) (Worker, error)
	FindWorkerByPIN(ctx context.Context, pin string) (Worker, error)
	CreateWorker(ctx context.Context, w Worker) (Worker, error)
	UpdateWorker(ctx context.Context, w Worker) error
	DeleteWorker(ctx context.Context, id string) error

	InsertRecord(ctx context.Context, r Record) (Record, error)
	GetRecord(ctx context.Context, id string) (Record, error)
	ListRecords(ctx context.Context) ([]Record, error)
	RecentRecord(ctx context.Context, workerID string, window time.Duration) (*Record, error)

	GetCenterLocation(ctx context.Context) (*CenterLocation, error)
	SetCenterLocation(ctx context.Context, loc CenterLocation) (CenterLocation, error)
}
