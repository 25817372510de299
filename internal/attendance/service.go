package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// SubmitRequest is what a worker sends after passing the location gate.
type SubmitRequest struct {
	WorkerID string `json:"worker_id" validate:"required"`
	PIN      string `json:"pin" validate:"required,len=4,number"`
	Notes    string `json:"notes" validate:"required,min=5,max=500"`
}

type centerInput struct {
	Lat    float64 `validate:"gte=-90,lte=90"`
	Lon    float64 `validate:"gte=-180,lte=180"`
	Radius float64 `validate:"gt=0"`
}

// Service coordinates worker management, attendance submission and the centre location.
type Service struct {
	repo        Repository
	dedupWindow time.Duration
	validate    *validator.Validate
	log         *zap.Logger
	now         func() time.Time
}

// NewService creates a service backed by a repository. A non-positive dedupWindow
// disables duplicate suppression.
func NewService(repo Repository, dedupWindow time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:        repo,
		dedupWindow: dedupWindow,
		validate:    validator.New(),
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Repository exposes the underlying store, e.g. as the check-in centre source.
func (s *Service) Repository() Repository { return s.repo }

func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "number", "numeric":
		return field + " must contain only digits"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "lte":
		return field + " is out of range"
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// Workers lists the roster ordered by name.
func (s *Service) Workers(ctx context.Context) ([]Worker, error) {
	return s.repo.ListWorkers(ctx)
}

// Worker returns one worker.
func (s *Service) Worker(ctx context.Context, id string) (Worker, error) {
	return s.repo.GetWorker(ctx, id)
}

// AddWorker validates and stores a new worker. PINs must be unique across the roster.
func (s *Service) AddWorker(ctx context.Context, w Worker) (Worker, error) {
	w.ID = ""
	w.Name = strings.TrimSpace(w.Name)
	if err := s.check(w); err != nil {
		return Worker{}, err
	}
	if err := s.ensurePINFree(ctx, w.PIN, ""); err != nil {
		return Worker{}, err
	}
	created, err := s.repo.CreateWorker(ctx, w)
	if err != nil {
		return Worker{}, err
	}
	s.log.Info("worker added", zap.String("worker_id", created.ID), zap.String("role", string(created.Role)))
	return created, nil
}

// UpdateWorker replaces an existing worker's details.
func (s *Service) UpdateWorker(ctx context.Context, w Worker) error {
	w.Name = strings.TrimSpace(w.Name)
	if w.ID == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	if err := s.check(w); err != nil {
		return err
	}
	if _, err := s.repo.GetWorker(ctx, w.ID); err != nil {
		return err
	}
	if err := s.ensurePINFree(ctx, w.PIN, w.ID); err != nil {
		return err
	}
	if err := s.repo.UpdateWorker(ctx, w); err != nil {
		return err
	}
	s.log.Info("worker updated", zap.String("worker_id", w.ID))
	return nil
}

// DeleteWorker removes a worker. Their past records are kept.
func (s *Service) DeleteWorker(ctx context.Context, id string) error {
	if err := s.repo.DeleteWorker(ctx, id); err != nil {
		return err
	}
	s.log.Info("worker deleted", zap.String("worker_id", id))
	return nil
}

func (s *Service) ensurePINFree(ctx context.Context, pin, selfID string) error {
	holder, err := s.repo.FindWorkerByPIN(ctx, pin)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return err
	case holder.ID != selfID:
		return ErrPINTaken
	}
	return nil
}

// Submit records attendance for a worker after verifying their PIN. A repeat
// submission inside the dedup window returns the earlier record with duplicate=true.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (rec Record, duplicate bool, err error) {
	req.Notes = strings.TrimSpace(req.Notes)
	if err := s.check(req); err != nil {
		return Record{}, false, err
	}
	w, err := s.repo.GetWorker(ctx, req.WorkerID)
	if err != nil {
		return Record{}, false, err
	}
	// Plain comparison: PINs are stored as entered.
	if w.PIN != req.PIN {
		s.log.Warn("pin mismatch", zap.String("worker_id", w.ID))
		return Record{}, false, ErrInvalidPIN
	}

	if s.dedupWindow > 0 {
		recent, err := s.repo.RecentRecord(ctx, w.ID, s.dedupWindow)
		if err != nil {
			return Record{}, false, err
		}
		if recent != nil {
			return *recent, true, nil
		}
	}

	rec, err = s.repo.InsertRecord(ctx, Record{
		WorkerID:  w.ID,
		Name:      w.Name,
		Role:      w.Role,
		Shift:     w.Shift,
		Notes:     req.Notes,
		Status:    StatusPending,
		Timestamp: s.now(),
	})
	if err != nil {
		return Record{}, false, err
	}
	s.log.Info("attendance recorded", zap.String("record_id", rec.ID), zap.String("worker_id", w.ID))
	return rec, false, nil
}

// Records lists all attendance, newest first.
func (s *Service) Records(ctx context.Context) ([]Record, error) {
	return s.repo.ListRecords(ctx)
}

// Record returns one attendance record.
func (s *Service) Record(ctx context.Context, id string) (Record, error) {
	return s.repo.GetRecord(ctx, id)
}

// CenterLocation returns the configured centre, or nil when none has been set.
func (s *Service) CenterLocation(ctx context.Context) (*CenterLocation, error) {
	return s.repo.GetCenterLocation(ctx)
}

// SetCenterLocation overwrites the centre. A nil radius uses DefaultRadiusMeters.
func (s *Service) SetCenterLocation(ctx context.Context, lat, lon float64, radius *float64) (CenterLocation, error) {
	in := centerInput{Lat: lat, Lon: lon, Radius: DefaultRadiusMeters}
	if radius != nil {
		in.Radius = *radius
	}
	if err := s.check(in); err != nil {
		return CenterLocation{}, err
	}
	loc, err := s.repo.SetCenterLocation(ctx, CenterLocation{
		Lat:       in.Lat,
		Lon:       in.Lon,
		Radius:    in.Radius,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return CenterLocation{}, err
	}
	s.log.Info("center location set",
		zap.Float64("lat", loc.Lat), zap.Float64("lon", loc.Lon), zap.Float64("radius", loc.Radius))
	return loc, nil
}
