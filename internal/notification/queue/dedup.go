package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupPrefix = "dedup:notification:"

// Deduper remembers notification keys in Redis for a while so a redelivered
// message is not emailed twice.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

// Acquire reports whether this is the first time key is seen. When Redis is
// unavailable it answers true: a rare duplicate email beats a lost one.
func (d *Deduper) Acquire(ctx context.Context, key string) bool {
	ok, err := d.rdb.SetNX(ctx, dedupPrefix+key, 1, d.ttl).Result()
	if err != nil {
		slog.Warn("dedup check failed, allowing delivery", "key", key, "error", err)
		return true
	}

	return ok
}

// Release forgets key so a failed delivery can be retried.
func (d *Deduper) Release(ctx context.Context, key string) {
	if err := d.rdb.Del(ctx, dedupPrefix+key).Err(); err != nil {
		slog.Warn("failed to release dedup key", "key", key, "error", err)
	}
}
