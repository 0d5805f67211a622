package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oraclesettle/parimutuel/internal/domain"
	"github.com/oraclesettle/parimutuel/internal/feed"
	"github.com/redis/go-redis/v9"
)

// ObservationCache caches the External Feed Adapter's most recent
// capitalization observation per tracked asset, so a short driver outage or
// a burst of cycles against the same asset does not re-hit upstream feed
// providers every cycle. Each observation is stored as a hash at key
// "obs:{trackedAsset}" with fields "cap" and "observed_at" (Unix seconds).
type ObservationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewObservationCache creates an ObservationCache backed by the given
// Client. ttl bounds how long a cached observation is eligible for reuse
// before a cycle must hit the feed providers again.
func NewObservationCache(c *Client, ttl time.Duration) *ObservationCache {
	return &ObservationCache{rdb: c.Underlying(), ttl: ttl}
}

func obsKey(trackedAsset string) string {
	return "obs:" + trackedAsset
}

// Set stores the latest observation for a tracked asset.
func (oc *ObservationCache) Set(ctx context.Context, trackedAsset string, obs feed.Observation) error {
	key := obsKey(trackedAsset)
	fields := map[string]interface{}{
		"cap":         strconv.FormatUint(obs.CapitalizationUSD, 10),
		"observed_at": strconv.FormatInt(obs.ObservedAt, 10),
	}
	pipe := oc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, oc.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: cache observation %s: %w", trackedAsset, err)
	}
	return nil
}

// Get retrieves the most recently cached observation for a tracked asset.
// It returns domain.ErrNotFound when no observation is cached or the entry
// has expired.
func (oc *ObservationCache) Get(ctx context.Context, trackedAsset string) (feed.Observation, error) {
	key := obsKey(trackedAsset)
	vals, err := oc.rdb.HGetAll(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return feed.Observation{}, fmt.Errorf("redis: get observation %s: %w", trackedAsset, err)
	}
	if len(vals) == 0 {
		return feed.Observation{}, domain.ErrNotFound
	}

	capStr, ok := vals["cap"]
	if !ok {
		return feed.Observation{}, domain.ErrNotFound
	}
	cap, err := strconv.ParseUint(capStr, 10, 64)
	if err != nil {
		return feed.Observation{}, fmt.Errorf("redis: parse cap %s: %w", trackedAsset, err)
	}

	tsStr, ok := vals["observed_at"]
	if !ok {
		return feed.Observation{}, domain.ErrNotFound
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return feed.Observation{}, fmt.Errorf("redis: parse observed_at %s: %w", trackedAsset, err)
	}

	return feed.Observation{CapitalizationUSD: cap, ObservedAt: ts}, nil
}
