// Package cache memoizes progress summaries in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

const (
	keyPrefix = "progress:"
	genPrefix = "progress-gen:"
)

// NewClient parses url, connects and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// SummaryCache keeps every summary of a user in one hash, so a single
// delete invalidates all of them. A per-user counter next to the hash is the
// generation that guards writes.
type SummaryCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSummaryCache creates a new SummaryCache. A zero ttl keeps entries
// until they are invalidated.
func NewSummaryCache(client redis.UniversalClient, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

// Get returns the cached summary for scope, if any.
func (c *SummaryCache) Get(ctx context.Context, userID string, scope entities.Scope) (*entities.ProgressSummary, bool, error) {
	data, err := c.client.HGet(ctx, userKey(userID), scopeField(scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get summary: %w", err)
	}

	var summary entities.ProgressSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, false, fmt.Errorf("decode summary: %w", err)
	}
	return &summary, true, nil
}

// Generation returns the current generation of userID, 0 if it was never
// invalidated.
func (c *SummaryCache) Generation(ctx context.Context, userID string) (int64, error) {
	gen, err := generation(ctx, c.client, userID)
	if err != nil {
		return 0, fmt.Errorf("get generation: %w", err)
	}
	return gen, nil
}

// Set stores summary under its user and scope if the user's generation is
// still gen. A moved generation drops the write silently.
func (c *SummaryCache) Set(ctx context.Context, summary *entities.ProgressSummary, gen int64) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	key := userKey(summary.UserID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx, summary.UserID)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, scopeField(summary.Scope), data)
			if c.ttl > 0 {
				pipe.Expire(ctx, key, c.ttl)
			}
			return nil
		})
		return err
	}, genKey(summary.UserID))

	// The generation changed between WATCH and EXEC.
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	return nil
}

// Invalidate bumps the generation of userID and drops its summaries.
func (c *SummaryCache) Invalidate(ctx context.Context, userID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(userID))
		pipe.Del(ctx, userKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate summaries: %w", err)
	}
	return nil
}

func generation(ctx context.Context, client redis.Cmdable, userID string) (int64, error) {
	gen, err := client.Get(ctx, genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func userKey(userID string) string {
	return keyPrefix + userID
}

func genKey(userID string) string {
	return genPrefix + userID
}

func scopeField(scope entities.Scope) string {
	return string(scope.Kind) + ":" + scope.ID
}
