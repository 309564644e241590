package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesage-ai/interview-server/internal/adapter/repo/redisstore"
	"github.com/codesage-ai/interview-server/internal/domain"
)

func newStore(t *testing.T) (*redisstore.ResumeStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.New(client, time.Hour), mr
}

func TestResumeStore_RoundTrip(t *testing.T) {
	t.Parallel()
	store, _ := newStore(t)

	id, err := store.Put(context.Background(), "Five years of Go.")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	text, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Five years of Go.", text)
}

func TestResumeStore_UnknownID(t *testing.T) {
	t.Parallel()
	store, _ := newStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResumeStore_Expiry(t *testing.T) {
	t.Parallel()
	store, mr := newStore(t)

	id, err := store.Put(context.Background(), "short lived")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = store.Get(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
