package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/campus/internal/domain"
)

type countingStore struct {
	profiles map[domain.Identity]domain.Profile
	gets     int
	upserts  int
}

func (s *countingStore) GetProfile(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	s.gets++
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *countingStore) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	s.upserts++
	s.profiles[p.Identity] = *p
	return nil
}

func (s *countingStore) SearchProfiles(ctx context.Context, query string, roles []domain.Role, limit int) ([]domain.Profile, error) {
	return nil, nil
}

var lecturer = domain.Identity{ID: "t1", Role: domain.Staff}

func TestKey(t *testing.T) {
	assert.Equal(t, "profile:staff:t1", Key(lecturer))
}

func TestPassThroughWithoutRedis(t *testing.T) {
	store := &countingStore{profiles: map[domain.Identity]domain.Profile{}}
	c := NewProfiles(store, nil, 0, nil)

	require.NoError(t, c.UpsertProfile(context.Background(), &domain.Profile{Identity: lecturer, Name: "T"}))
	p, err := c.GetProfile(context.Background(), lecturer)
	require.NoError(t, err)
	assert.Equal(t, "T", p.Name)

	_, err = c.GetProfile(context.Background(), domain.Identity{ID: "x", Role: domain.Parent})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, 2, store.gets)
}

func TestUnreachableRedisFallsBackToStore(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	store := &countingStore{profiles: map[domain.Identity]domain.Profile{
		lecturer: {Identity: lecturer, Name: "T"},
	}}
	c := NewProfiles(store, rdb, time.Minute, nil)

	p, err := c.GetProfile(context.Background(), lecturer)
	require.NoError(t, err)
	assert.Equal(t, "T", p.Name)
	require.NoError(t, c.UpsertProfile(context.Background(), &domain.Profile{Identity: lecturer, Name: "T2"}))
	assert.Equal(t, 1, store.upserts)
}

func TestNewRedisClientBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
