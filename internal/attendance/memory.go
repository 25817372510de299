package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps everything in process memory. It is used for local
// development and tests; contents are lost on restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	workers map[string]Worker
	records map[string]Record
	center  *CenterLocation
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		workers: make(map[string]Worker),
		records: make(map[string]Record),
	}
}

func (m *MemoryRepository) ListWorkers(ctx context.Context) ([]Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Worker, 0, len(m.workers))
	for _, w := range m.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemoryRepository) GetWorker(ctx context.Context, id string) (Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workers[id]
	if !ok {
		return Worker{}, ErrNotFound
	}
	return w, nil
}

func (m *MemoryRepository) FindWorkerByPIN(ctx context.Context, pin string) (Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.workers {
		if w.PIN == pin {
			return w, nil
		}
	}
	return Worker{}, ErrNotFound
}

func (m *MemoryRepository) CreateWorker(ctx context.Context, w Worker) (Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	m.workers[w.ID] = w
	return w, nil
}

func (m *MemoryRepository) UpdateWorker(ctx context.Context, w Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workers[w.ID]; !ok {
		return ErrNotFound
	}
	m.workers[w.ID] = w
	return nil
}

func (m *MemoryRepository) DeleteWorker(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workers[id]; !ok {
		return ErrNotFound
	}
	delete(m.workers, id)
	return nil
}

func (m *MemoryRepository) InsertRecord(ctx context.Context, r Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	m.records[r.ID] = r
	return r, nil
}

func (m *MemoryRepository) GetRecord(ctx context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryRepository) ListRecords(ctx context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryRepository) RecentRecord(ctx context.Context, workerID string, window time.Duration) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	since := time.Now().Add(-window)
	var latest *Record
	for _, r := range m.records {
		if r.WorkerID != workerID || r.Timestamp.Before(since) {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			rec := r
			latest = &rec
		}
	}
	return latest, nil
}

func (m *MemoryRepository) GetCenterLocation(ctx context.Context) (*CenterLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.center == nil {
		return nil, nil
	}
	loc := *m.center
	return &loc, nil
}

func (m *MemoryRepository) SetCenterLocation(ctx context.Context, loc CenterLocation) (CenterLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = time.Now().UTC()
	}
	m.center = &loc
	return loc, nil
}
