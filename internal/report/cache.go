package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"communitycentre/internal/attendance"
)

// RecordLister is the read side the report builder needs.
type RecordLister interface {
	Records(ctx context.Context) ([]attendance.Record, error)
}

// Cache keeps the last rendered PDF report in Redis, stored as a hash holding the
// document and the marker of the records it was rendered from.
type Cache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewCache builds a cache; a zero ttl keeps entries until replaced.
func NewCache(client *redis.Client, key string, ttl time.Duration) *Cache {
	if key == "" {
		key = "attendance:report:pdf"
	}
	return &Cache{client: client, key: key, ttl: ttl}
}

// Get returns the cached report, its marker and whether it was present.
func (c *Cache) Get(ctx context.Context) (data []byte, marker string, ok bool, err error) {
	vals, err := c.client.HMGet(ctx, c.key, "marker", "pdf").Result()
	if err != nil {
		return nil, "", false, err
	}
	m, mok := vals[0].(string)
	pdf, pok := vals[1].(string)
	if !mok || !pok {
		return nil, "", false, nil
	}
	return []byte(pdf), m, true, nil
}

// Put stores data as the current report rendered from records matching marker.
func (c *Cache) Put(ctx context.Context, marker string, data []byte) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key)
		pipe.HSet(ctx, c.key, "marker", marker, "pdf", data)
		if c.ttl > 0 {
			pipe.Expire(ctx, c.key, c.ttl)
		}
		return nil
	})
	return err
}

// Invalidate drops the cached report.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

// Marker identifies a record set: the count plus the newest record. Records are
// append-only, so any submission changes it.
func Marker(recs []attendance.Record) string {
	if len(recs) == 0 {
		return "0"
	}
	newest := recs[0]
	for _, r := range recs[1:] {
		if r.Timestamp.After(newest.Timestamp) {
			newest = r
		}
	}
	return fmt.Sprintf("%d:%s:%d", len(recs), newest.ID, newest.Timestamp.UnixNano())
}

// Builder renders PDF reports and keeps the cache warm. A nil cache disables caching.
type Builder struct {
	records RecordLister
	cache   *Cache
	opts    Options
	log     *zap.Logger
}

// NewBuilder creates a builder.
func NewBuilder(records RecordLister, cache *Cache, opts Options, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{records: records, cache: cache, opts: opts, log: log}
}

func (b *Builder) list(ctx context.Context) ([]attendance.Record, error) {
	recs, err := b.records.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

func (b *Builder) render(recs []attendance.Record) ([]byte, error) {
	opts := b.opts
	opts.Now = time.Now()
	var buf bytes.Buffer
	if err := PDF(&buf, recs, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PDF returns the cached report when it was rendered from the current records,
// otherwise renders and caches a fresh one.
func (b *Builder) PDF(ctx context.Context) ([]byte, error) {
	recs, err := b.list(ctx)
	if err != nil {
		return nil, err
	}
	marker := Marker(recs)
	if b.cache != nil {
		data, cached, ok, err := b.cache.Get(ctx)
		switch {
		case err != nil:
			b.log.Warn("report cache read failed", zap.Error(err))
		case ok && cached == marker:
			return data, nil
		}
	}
	data, err := b.render(recs)
	if err != nil {
		return nil, err
	}
	if b.cache != nil {
		if err := b.cache.Put(ctx, marker, data); err != nil {
			b.log.Warn("report cache write failed", zap.Error(err))
		}
	}
	return data, nil
}

// Invalidate drops the cached report so the next PDF call renders current records.
func (b *Builder) Invalidate(ctx context.Context) error {
	if b.cache == nil {
		return nil
	}
	return b.cache.Invalidate(ctx)
}

// Refresh re-renders the report into the cache.
func (b *Builder) Refresh(ctx context.Context) error {
	if b.cache == nil {
		return nil
	}
	recs, err := b.list(ctx)
	if err != nil {
		return err
	}
	data, err := b.render(recs)
	if errors.Is(err, ErrNoRecords) {
		return b.cache.Invalidate(ctx)
	}
	if err != nil {
		return err
	}
	return b.cache.Put(ctx, Marker(recs), data)
}
