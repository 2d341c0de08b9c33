package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testimonialRule = Rule{Limit: 3, Window: 15 * time.Minute}

func TestMemoryStoreLimit(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := s.Allow(ctx, "1.2.3.4", testimonialRule)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d should pass", i+1)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := s.Allow(ctx, "1.2.3.4", testimonialRule)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, res.RetryAfter > 0)

	res, err = s.Allow(ctx, "5.6.7.8", testimonialRule)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "other keys keep their own window")
}

func TestMemoryStoreZeroLimitRejects(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	rule := Rule{Limit: 0, Window: time.Minute}
	assert.NotPanics(t, func() {
		res, err := s.Allow(context.Background(), "1.2.3.4", rule)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, time.Minute, res.RetryAfter)
	})
}

func TestMemoryStoreWindowSlides(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		res, _ := s.Allow(ctx, "ip", testimonialRule)
		require.True(t, res.Allowed)
	}
	res, _ := s.Allow(ctx, "ip", testimonialRule)
	require.False(t, res.Allowed)

	now = now.Add(15*time.Minute + time.Second)
	res, _ = s.Allow(ctx, "ip", testimonialRule)
	assert.True(t, res.Allowed)
}

func TestMemoryStoreSweep(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Now()
	s.now = func() time.Time { return now }
	_, _ = s.Allow(context.Background(), "a", Rule{Limit: 1, Window: time.Minute})
	_, _ = s.Allow(context.Background(), "b", Rule{Limit: 1, Window: time.Hour})
	require.Equal(t, 2, s.size())

	now = now.Add(2 * time.Minute)
	s.sweep()
	assert.Equal(t, 1, s.size())
}

func TestRedisStoreSharedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer clientA.Close()
	defer clientB.Close()

	instanceA := NewRedisStore(clientA, "")
	instanceB := NewRedisStore(clientB, "")

	for i := 0; i < 3; i++ {
		store := instanceA
		if i%2 == 1 {
			store = instanceB
		}
		res, err := store.Allow(ctx, "testimonial:1.2.3.4", testimonialRule)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := instanceB.Allow(ctx, "testimonial:1.2.3.4", testimonialRule)
	require.NoError(t, err)
	assert.False(t, res.Allowed, "limit is shared across instances")
	assert.True(t, res.RetryAfter > 0)

	card, err := clientA.ZCard(ctx, "ratelimit:testimonial:1.2.3.4").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), card, "rejected hit is not recorded")
}
