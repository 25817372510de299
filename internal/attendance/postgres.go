package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository persists attendance data in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo over an open pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const workerColumns = `id, name, role, shift, pin`

func scanWorker(row interface{ Scan(...any) error }) (Worker, error) {
	var w Worker
	if err := row.Scan(&w.ID, &w.Name, &w.Role, &w.Shift, &w.PIN); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Worker{}, ErrNotFound
		}
		return Worker{}, err
	}
	return w, nil
}

// ListWorkers returns all workers ordered by name.
func (r *PostgresRepository) ListWorkers(ctx context.Context) ([]Worker, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+workerColumns+` FROM workers ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	defer rows.Close()
	var res []Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

// GetWorker returns a single worker by id.
func (r *PostgresRepository) GetWorker(ctx context.Context, id string) (Worker, error) {
	return scanWorker(r.db.QueryRowContext(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = $1`, id))
}

// FindWorkerByPIN returns the worker holding pin.
func (r *PostgresRepository) FindWorkerByPIN(ctx context.Context, pin string) (Worker, error) {
	return scanWorker(r.db.QueryRowContext(ctx, `SELECT `+workerColumns+` FROM workers WHERE pin = $1 LIMIT 1`, pin))
}

// CreateWorker inserts a worker, assigning an id when empty.
func (r *PostgresRepository) CreateWorker(ctx context.Context, w Worker) (Worker, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO workers (id, name, role, shift, pin)
		VALUES ($1, $2, $3, $4, $5)
	`, w.ID, w.Name, w.Role, w.Shift, w.PIN)
	if err != nil {
		return Worker{}, fmt.Errorf("insert worker: %w", err)
	}
	return w, nil
}

// UpdateWorker overwrites the mutable worker fields.
func (r *PostgresRepository) UpdateWorker(ctx context.Context, w Worker) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE workers
		SET name = $2, role = $3, shift = $4, pin = $5, updated_at = NOW()
		WHERE id = $1
	`, w.ID, w.Name, w.Role, w.Shift, w.PIN)
	if err != nil {
		return fmt.Errorf("update worker: %w", err)
	}
	return expectOne(res)
}

// DeleteWorker removes a worker. Historical records keep their copied fields.
func (r *PostgresRepository) DeleteWorker(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM workers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete worker: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const recordColumns = `id, worker_id, name, role, shift, notes, status, occurred_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	if err := row.Scan(&rec.ID, &rec.WorkerID, &rec.Name, &rec.Role, &rec.Shift, &rec.Notes, &rec.Status, &rec.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// InsertRecord writes a new attendance record.
func (r *PostgresRepository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, worker_id, name, role, shift, notes, status, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, rec.ID, rec.WorkerID, rec.Name, rec.Role, rec.Shift, rec.Notes, rec.Status, rec.Timestamp)
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// GetRecord returns a single record by id.
func (r *PostgresRepository) GetRecord(ctx context.Context, id string) (Record, error) {
	return scanRecord(r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id))
}

// ListRecords returns every record, newest first.
func (r *PostgresRepository) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM attendance_records ORDER BY occurred_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// RecentRecord returns the worker's latest record inside window, or nil.
func (r *PostgresRepository) RecentRecord(ctx context.Context, workerID string, window time.Duration) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE worker_id = $1 AND occurred_at >= NOW() - ($2 * interval '1 second')
		ORDER BY occurred_at DESC
		LIMIT 1
	`, workerID, window.Seconds()))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetCenterLocation returns the singleton centre or nil when unset.
func (r *PostgresRepository) GetCenterLocation(ctx context.Context) (*CenterLocation, error) {
	var loc CenterLocation
	err := r.db.QueryRowContext(ctx, `
		SELECT lat, lon, radius, updated_at FROM center_location WHERE id = $1
	`, CenterLocationID).Scan(&loc.Lat, &loc.Lon, &loc.Radius, &loc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query center location: %w", err)
	}
	return &loc, nil
}

// SetCenterLocation upserts the singleton centre.
func (r *PostgresRepository) SetCenterLocation(ctx context.Context, loc CenterLocation) (CenterLocation, error) {
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO center_location (id, lat, lon, radius, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			radius = EXCLUDED.radius,
			updated_at = EXCLUDED.updated_at
	`, CenterLocationID, loc.Lat, loc.Lon, loc.Radius, loc.UpdatedAt)
	if err != nil {
		return CenterLocation{}, fmt.Errorf("upsert center location: %w", err)
	}
	return loc, nil
}
