// Package cache puts a redis read-through cache in front of profile lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/matheus3301/campus/internal/domain"
)

// DefaultTTL is how long a cached profile lives.
const DefaultTTL = 5 * time.Minute

// ProfileStore is the source of truth behind the cache.
type ProfileStore interface {
	GetProfile(ctx context.Context, id domain.Identity) (*domain.Profile, error)
	UpsertProfile(ctx context.Context, p *domain.Profile) error
	SearchProfiles(ctx context.Context, query string, roles []domain.Role, limit int) ([]domain.Profile, error)
}

// NewRedisClient parses url and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Profiles serves profile reads from redis when possible. A nil client makes
// it a plain pass-through; redis errors fall back to the store.
type Profiles struct {
	store  ProfileStore
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewProfiles wraps store. rdb may be nil.
func NewProfiles(store ProfileStore, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Profiles {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiles{store: store, rdb: rdb, ttl: ttl, logger: logger.Named("cache")}
}

// Key returns the cache key of a profile.
func Key(id domain.Identity) string {
	return "profile:" + string(id.Role) + ":" + id.ID
}

// GetProfile returns the cached profile or loads and caches it.
func (c *Profiles) GetProfile(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, Key(id)).Bytes()
		switch {
		case err == nil:
			var p domain.Profile
			if err := json.Unmarshal(raw, &p); err == nil {
				return &p, nil
			}
			c.logger.Warn("corrupt cached profile", zap.String("key", Key(id)))
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("profile cache read failed", zap.String("key", Key(id)), zap.Error(err))
		}
	}

	p, err := c.store.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.rdb != nil {
		if raw, err := json.Marshal(p); err == nil {
			if err := c.rdb.Set(ctx, Key(id), raw, c.ttl).Err(); err != nil {
				c.logger.Debug("profile cache write failed", zap.String("key", Key(id)), zap.Error(err))
			}
		}
	}
	return p, nil
}

// UpsertProfile writes through to the store and drops the cached copy.
func (c *Profiles) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	if err := c.store.UpsertProfile(ctx, p); err != nil {
		return err
	}
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, Key(p.Identity)).Err(); err != nil {
			c.logger.Warn("profile cache invalidate failed", zap.String("key", Key(p.Identity)), zap.Error(err))
		}
	}
	return nil
}

// SearchProfiles is not cached.
func (c *Profiles) SearchProfiles(ctx context.Context, query string, roles []domain.Role, limit int) ([]domain.Profile, error) {
	return c.store.SearchProfiles(ctx, query, roles, limit)
}
