// Package cache is a Redis read-through decorator for ports.RecordService.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"caseintake/internal/intake/metrics"
	"caseintake/internal/intake/ports"
	"caseintake/pkg/domain"
	pstrings "caseintake/pkg/platform/strings"
)

const keyPrefix = "caseintake:record:"

// RecordCache serves lookups from Redis and falls back to the wrapped
// service on a miss. Only successful lookups are cached. Redis failures are
// logged and bypassed so the cache never turns a working lookup into an error.
type RecordCache struct {
	next    ports.RecordService
	client  redis.Cmdable
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*RecordCache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *RecordCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *RecordCache) {
		c.metrics = m
	}
}

// New wraps next with a cache entry lifetime of ttl.
func New(next ports.RecordService, client redis.Cmdable, ttl time.Duration, opts ...Option) (*RecordCache, error) {
	if next == nil {
		return nil, errors.New("record service is required")
	}
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if ttl <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}
	c := &RecordCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *RecordCache) Fetch(ctx context.Context, kind domain.RecordKind, id domain.RecordID, fields ...string) (*ports.Record, error) {
	key := Key(kind, id, fields)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec ports.Record
		if jsonErr := json.Unmarshal(raw, &rec); jsonErr == nil {
			c.metrics.IncrementCache("hit")
			return &rec, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable record cache entry", "key", key)
		c.metrics.IncrementCache("error")
	case errors.Is(err, redis.Nil):
		c.metrics.IncrementCache("miss")
	default:
		c.logger.WarnContext(ctx, "record cache read failed", "key", key, "error", err)
		c.metrics.IncrementCache("error")
	}

	rec, err := c.next.Fetch(ctx, kind, id, fields...)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(rec); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "record cache write failed", "key", key, "error", err)
		}
	}
	return rec, nil
}

// Invalidate removes every cached projection of a record.
func (c *RecordCache) Invalidate(ctx context.Context, kind domain.RecordKind, id domain.RecordID) error {
	pattern := keyPrefix + string(kind) + ":" + strings.ToLower(domain.NormalizeRecordID(id.String()).String()) + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Key is the cache key of one projection of a record. Field order and
// repeats do not matter and ids compare case-insensitively.
func Key(kind domain.RecordKind, id domain.RecordID, fields []string) string {
	sorted := pstrings.Unique(append([]string{}, fields...))
	sort.Strings(sorted)
	return keyPrefix + string(kind) + ":" +
		strings.ToLower(domain.NormalizeRecordID(id.String()).String()) + ":" +
		strings.Join(sorted, ",")
}
