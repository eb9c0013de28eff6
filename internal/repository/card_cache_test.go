package repository

import (
	"context"
	"testing"
	"time"

	"Foresight/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCardCache(t *testing.T) (*miniredis.Miniredis, *CardCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(cache.WithRedisAddr(mr.Addr()), cache.WithRedisPrefix("foresight"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return mr, NewCardCache(rc, time.Minute)
}

func TestCardCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, cc := newCardCache(t)
	card := sampleCard("card-1")

	require.NoError(t, cc.Put(ctx, "fp-1", card))
	assert.True(t, mr.Exists("foresight:card:id:card-1"))
	assert.True(t, mr.Exists("foresight:card:fp:fp-1"))

	got, ok, err := cc.GetByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "card-1", got.ID)
	assert.Equal(t, card.Probability, got.Probability)

	got, ok, err = cc.GetByID(ctx, "card-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, card.MarketURL, got.MarketURL)
}

func TestCardCacheMiss(t *testing.T) {
	ctx := context.Background()
	_, cc := newCardCache(t)

	_, ok, err := cc.GetByFingerprint(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = cc.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCardCacheExpires(t *testing.T) {
	ctx := context.Background()
	mr, cc := newCardCache(t)

	require.NoError(t, cc.Put(ctx, "fp-1", sampleCard("card-1")))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cc.GetByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCardCacheWithMemoryBackend(t *testing.T) {
	ctx := context.Background()
	cc := NewCardCache(cache.NewMemoryCache(), time.Minute)

	require.NoError(t, cc.Put(ctx, "", sampleCard("card-9")))
	got, ok, err := cc.GetByID(ctx, "card-9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "card-9", got.ID)
}
