// Package varcache caches phrase-variant picks in Redis so a deal's caption
// stays byte-identical across re-renders (e.g. an admin preview followed by
// the real post) for the lifetime of the TTL window.
package varcache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealwire/social-engine/internal/logger"
)

// Cache stores small integer values under string keys with a TTL.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger logger.Logger
}

// New creates a variant cache with the given stability window.
func New(client redis.UniversalClient, ttl time.Duration, log logger.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (c *Cache) key(slot, lang, dealID string) string {
	return fmt.Sprintf("variant:%s:%s:%s", slot, lang, dealID)
}

// Get returns the cached pick for a (slot, lang, deal) triple. A Redis error
// is logged and reported as a miss; the caller recomputes deterministically,
// so a degraded cache only risks a phrase change across a deploy, never a
// render failure.
func (c *Cache) Get(ctx context.Context, slot, lang, dealID string) (int, bool) {
	val, err := c.client.Get(ctx, c.key(slot, lang, dealID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("variant cache read failed",
				logger.String("slot", slot),
				logger.Error(err),
			)
		}
		return 0, false
	}

	idx, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// Set stores a pick. Failures are logged and swallowed for the same reason
// as Get.
func (c *Cache) Set(ctx context.Context, slot, lang, dealID string, idx int) {
	err := c.client.Set(ctx, c.key(slot, lang, dealID), strconv.Itoa(idx), c.ttl).Err()
	if err != nil {
		c.logger.Warn("variant cache write failed",
			logger.String("slot", slot),
			logger.Error(err),
		)
	}
}
