package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arklim/confession-platform-api/internal/core/port"
)

// SlidingWindowConfig scopes the limiter keys and bounds their lifetime.
type SlidingWindowConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RateLimitStore keeps attempt timestamps in a sorted set per identifier,
// scored by nanosecond time so window queries are range queries.
type RateLimitStore struct {
	client *redis.Client
	cfg    SlidingWindowConfig
}

// NewRateLimitStore wires the store onto a shared Redis client.
func NewRateLimitStore(client *redis.Client, cfg SlidingWindowConfig) *RateLimitStore {
	return &RateLimitStore{client: client, cfg: cfg}
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)

// RecordAttempt appends the timestamp and refreshes the key TTL so abandoned
// identifiers age out of Redis on their own.
func (r *RateLimitStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	key := r.key(identifier)
	nanos := at.UnixNano()

	if err := r.client.ZAdd(ctx, key, redis.Z{Score: float64(nanos), Member: nanos}).Err(); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	if r.cfg.TTL > 0 {
		if err := r.client.Expire(ctx, key, r.cfg.TTL).Err(); err != nil {
			return fmt.Errorf("refresh attempt ttl: %w", err)
		}
	}
	return nil
}

// CountAttempts counts entries inside the window ending at reference.
func (r *RateLimitStore) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	min, max, err := windowBounds(window, reference)
	if err != nil {
		return 0, err
	}

	count, err := r.client.ZCount(ctx, r.key(identifier), min, max).Result()
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return int(count), nil
}

// TrimWindow drops entries that fell out of the window.
func (r *RateLimitStore) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	min, _, err := windowBounds(window, reference)
	if err != nil {
		return err
	}

	if err := r.client.ZRemRangeByScore(ctx, r.key(identifier), "-inf", min).Err(); err != nil {
		return fmt.Errorf("trim window: %w", err)
	}
	return nil
}

// OldestAttempt returns the earliest entry still inside the window; the
// second return is false when the window is empty.
func (r *RateLimitStore) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	min, max, err := windowBounds(window, reference)
	if err != nil {
		return time.Time{}, false, err
	}

	values, err := r.client.ZRangeByScore(ctx, r.key(identifier), &redis.ZRangeBy{
		Min:   min,
		Max:   max,
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("oldest attempt: %w", err)
	}
	if len(values) == 0 {
		return time.Time{}, false, nil
	}

	nanos, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse attempt timestamp: %w", err)
	}
	return time.Unix(0, nanos), true, nil
}

func windowBounds(window time.Duration, reference time.Time) (string, string, error) {
	if window <= 0 {
		return "", "", errors.New("window must be positive")
	}
	min := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))
	max := fmt.Sprintf("%f", float64(reference.UnixNano()))
	return min, max, nil
}

func (r *RateLimitStore) key(identifier string) string {
	if r.cfg.KeyPrefix == "" {
		return identifier
	}
	return r.cfg.KeyPrefix + ":" + identifier
}
