package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"communitycentre/internal/attendance"
	"communitycentre/internal/metrics"
	"communitycentre/internal/queue"
)

// RecordGetter loads a stored attendance record.
type RecordGetter interface {
	Record(ctx context.Context, id string) (attendance.Record, error)
}

// Refresher rebuilds derived artefacts after attendance changes.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Processor handles queue messages published by the API.
type Processor struct {
	records RecordGetter
	reports Refresher
	metrics *metrics.Metrics
	log     *zap.Logger
}

// New builds a processor. reports may be nil when no report cache is configured.
func New(records RecordGetter, reports Refresher, m *metrics.Metrics, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{records: records, reports: reports, metrics: m, log: log}
}

// Run consumes q until ctx ends or the queue closes.
func (p *Processor) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	p.log.Info("worker started, waiting for messages")
	for msg := range messages {
		result := "ok"
		if err := p.Handle(ctx, msg); err != nil {
			result = "error"
			p.log.Warn("message failed", zap.String("type", msg.Type), zap.Error(err))
		}
		p.count(msg.Type, result)
	}
	p.log.Info("worker stopped")
	return nil
}

// Handle processes one message. Unknown types are ignored.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeAttendanceRecorded {
		p.log.Debug("ignoring message", zap.String("type", msg.Type))
		return nil
	}
	var body queue.Recorded
	if err := msg.Decode(&body); err != nil {
		return fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	rec, err := p.records.Record(ctx, body.RecordID)
	if err != nil {
		return fmt.Errorf("fetch record %s: %w", body.RecordID, err)
	}
	p.log.Info("attendance recorded",
		zap.String("record_id", rec.ID),
		zap.String("worker", rec.Name),
		zap.String("shift", string(rec.Shift)),
		zap.Time("at", rec.Timestamp))

	if p.reports == nil {
		return nil
	}
	if err := p.reports.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh report: %w", err)
	}
	return nil
}

func (p *Processor) count(typ, result string) {
	if p.metrics == nil {
		return
	}
	p.metrics.WorkerProcessed.WithLabelValues(typ, result).Inc()
}
