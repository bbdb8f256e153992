// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/forum-polls/metrics"
	"github.com/danielhkuo/forum-polls/models"
)

// PollTTL bounds how stale a cached poll can get if an invalidation is lost.
const PollTTL = 5 * time.Minute

// generationTTL keeps a post's generation counter around well past any read
// that could still be racing a write.
const generationTTL = 24 * time.Hour

// Cache is a Redis cache-aside layer for poll reads. A Cache without a client
// turns every call into a no-op miss.
type Cache struct {
	rdb *redis.Client
}

// New connects to redisURL. An empty URL, a bad URL or a failed ping returns a
// disabled cache; the service keeps working without Redis.
func New(ctx context.Context, redisURL string) *Cache {
	if redisURL == "" {
		slog.Info("redis not configured, caching disabled")
		return &Cache{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("invalid redis url, caching disabled", "error", err)
		return &Cache{}
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unreachable, caching disabled", "error", err)
		rdb.Close()
		return &Cache{}
	}

	slog.Info("redis connected, caching enabled")
	return &Cache{rdb: rdb}
}

// NewWithClient wraps an existing client. A nil client disables the cache.
func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Enabled reports whether a Redis client is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// GetPoll returns the cached poll of a post and whether it was found.
func (c *Cache) GetPoll(ctx context.Context, postID string) (models.PollWithOptions, bool) {
	if !c.Enabled() {
		return models.PollWithOptions{}, false
	}

	data, err := c.rdb.Get(ctx, pollKey(postID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("failed to read poll from cache", "post_id", postID, "error", err)
		}
		metrics.CacheMisses.Inc()
		return models.PollWithOptions{}, false
	}

	var p models.PollWithOptions
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("failed to decode cached poll", "post_id", postID, "error", err)
		metrics.CacheMisses.Inc()
		return models.PollWithOptions{}, false
	}

	metrics.CacheHits.Inc()
	return p, true
}

// Generation returns the post's invalidation counter. Read it before loading a
// poll from the database and hand it to SetPoll.
func (c *Cache) Generation(ctx context.Context, postID string) string {
	if !c.Enabled() {
		return ""
	}
	gen, err := c.rdb.Get(ctx, generationKey(postID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("failed to read cache generation", "post_id", postID, "error", err)
	}
	return gen
}

// SetPoll stores a poll under its post, unless the post was invalidated since
// gen was read. A reader that loaded the poll before a concurrent write
// therefore never caches the old version.
func (c *Cache) SetPoll(ctx context.Context, postID, gen string, p models.PollWithOptions) {
	if !c.Enabled() {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		slog.Warn("failed to encode poll for cache", "post_id", postID, "error", err)
		return
	}

	genKey := generationKey(postID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errInvalidated
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, pollKey(postID), b, PollTTL)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errInvalidated), errors.Is(err, redis.TxFailedErr):
		slog.Debug("skipped caching poll invalidated during read", "post_id", postID)
	default:
		slog.Warn("failed to write poll to cache", "post_id", postID, "error", err)
	}
}

// InvalidatePoll bumps the post's generation and drops its cached poll.
// Called after every poll or option write.
func (c *Cache) InvalidatePoll(ctx context.Context, postID string) {
	if !c.Enabled() {
		return
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(postID))
		pipe.Expire(ctx, generationKey(postID), generationTTL)
		pipe.Del(ctx, pollKey(postID))
		return nil
	})
	if err != nil {
		slog.Warn("failed to invalidate cached poll", "post_id", postID, "error", err)
	}
}

// Close shuts down the Redis connection.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

var errInvalidated = errors.New("poll invalidated during read")

func pollKey(postID string) string {
	return fmt.Sprintf("forumpolls:poll:%s", postID)
}

func generationKey(postID string) string {
	return fmt.Sprintf("forumpolls:poll-gen:%s", postID)
}
