// Package cache memoizes external generator responses in Redis so repeated
// runs for the same pair do not pay for the same prompt twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/ai"
)

const (
	keyPrefix  = "matchmaker:ai:"
	DefaultTTL = 24 * time.Hour
)

// Generator wraps another ai.Generator. Only successful responses are cached;
// Redis errors degrade to a cache miss.
type Generator struct {
	next   ai.Generator
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ ai.Generator = (*Generator)(nil)

func New(next ai.Generator, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Generator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{next: next, client: client, ttl: ttl, logger: logger}
}

// NewClient builds the Redis client used by the cache.
func NewClient(address, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         address,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
}

func (g *Generator) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	key := g.key(system, prompt)

	cached, err := g.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		g.logger.Debug("ai response served from cache", zap.String("key", key))
		return cached, nil
	case !errors.Is(err, redis.Nil):
		g.logger.Warn("ai cache lookup failed", zap.Error(err))
	}

	out, err := g.next.GenerateContent(ctx, system, prompt)
	if err != nil {
		return "", err
	}

	if err := g.client.Set(ctx, key, out, g.ttl).Err(); err != nil {
		g.logger.Warn("ai cache store failed", zap.Error(err))
	}

	return out, nil
}

func (g *Generator) Model() string {
	return g.next.Model()
}

func (g *Generator) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// key is scoped by model so switching models never returns stale answers.
func (g *Generator) key(system, prompt string) string {
	h := sha256.New()
	h.Write([]byte(system))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return keyPrefix + g.next.Model() + ":" + hex.EncodeToString(h.Sum(nil))
}
