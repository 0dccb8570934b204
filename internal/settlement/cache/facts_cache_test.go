package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

type memSource struct {
	facts map[string]domain.MatchFacts
	reads int
}

func (m *memSource) MatchFacts(_ context.Context, id string) (*domain.MatchFacts, error) {
	m.reads++
	f, ok := m.facts[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (m *memSource) MatchSnapshot(_ context.Context, id string) (*domain.MatchSnapshot, error) {
	return &domain.MatchSnapshot{MatchID: id}, nil
}

func (m *memSource) SaveMatchFacts(_ context.Context, f domain.MatchFacts) error {
	if m.facts == nil {
		m.facts = map[string]domain.MatchFacts{}
	}
	m.facts[f.MatchID] = f
	return nil
}

func final(id string, home, away int) domain.MatchFacts {
	return domain.MatchFacts{MatchID: id, HomeGoals: domain.IntPtr(home), AwayGoals: domain.IntPtr(away), IsFinal: true}
}

func TestUnreachableRedisFallsBackToSource(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	src := &memSource{}
	c := NewFacts(zap.NewNop(), rdb, src, 0)
	assert.Equal(t, 24*time.Hour, c.TTL)

	ctx := context.Background()
	require.NoError(t, c.SaveMatchFacts(ctx, final("m1", 2, 1)))

	got, err := c.MatchFacts(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, *got.HomeGoals)

	missing, err := c.MatchFacts(ctx, "m2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	snap, err := c.MatchSnapshot(ctx, "m3")
	require.NoError(t, err)
	assert.Equal(t, "m3", snap.MatchID)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestFinalFactsAreServedFromCache(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	id := "cache-test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { rdb.Del(ctx, key(id)) })

	src := &memSource{}
	c := NewFacts(zap.NewNop(), rdb, src, time.Minute)
	require.NoError(t, c.SaveMatchFacts(ctx, final(id, 1, 1)))

	for i := 0; i < 3; i++ {
		got, err := c.MatchFacts(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, *got.AwayGoals)
	}
	assert.Equal(t, 1, src.reads)

	ttl, err := rdb.TTL(ctx, key(id)).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}

func TestProvisionalFactsAreNotCached(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	id := "cache-prov-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { rdb.Del(ctx, key(id)) })

	src := &memSource{}
	c := NewFacts(zap.NewNop(), rdb, src, time.Minute)
	require.NoError(t, c.SaveMatchFacts(ctx, domain.MatchFacts{MatchID: id, HomeGoals: domain.IntPtr(1), AwayGoals: domain.IntPtr(0)}))

	_, err := c.MatchFacts(ctx, id)
	require.NoError(t, err)
	n, err := rdb.Exists(ctx, key(id)).Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, c.SaveMatchFacts(ctx, final(id, 2, 0)))
	got, err := c.MatchFacts(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.IsFinal)
	assert.Equal(t, 2, *got.HomeGoals)
}
