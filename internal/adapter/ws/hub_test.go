package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aistub "github.com/codesage-ai/interview-server/internal/adapter/ai/stub"
	"github.com/codesage-ai/interview-server/internal/domain"
	"github.com/codesage-ai/interview-server/internal/usecase"
)

func newTestCoordinator(repo *fakeRepo) *usecase.CompletionCoordinator {
	return usecase.NewCompletionCoordinator(repo, usecase.NewEnricher(aistub.New(), "stub"), nil)
}

func staleLiveSession(id string, idle time.Duration) (*LiveSession, *[]Outbound) {
	sess := domain.NewSession(id, "user-1", domain.ModeTopicBased, []string{"Go"}, time.Now().Add(-idle))
	sess.Persisted = true
	client := NewClient(nil)
	frames := &[]Outbound{}
	client.SetSendHook(func(f Outbound) { *frames = append(*frames, f) })
	return &LiveSession{Session: sess, Client: client}, frames
}

func TestHubSweep_CompletesStaleSessions(t *testing.T) {
	t.Parallel()
	repo := newFakeRepo()
	hub := NewHub()

	stale, staleFrames := staleLiveSession("stale-1", time.Hour)
	fresh, freshFrames := staleLiveSession("fresh-1", 0)
	hub.Put("stale-1", stale)
	hub.Put("fresh-1", fresh)

	hub.sweep(context.Background(), newTestCoordinator(repo), 30*time.Minute)

	method, ok := repo.completionMethod("stale-1")
	require.True(t, ok)
	assert.Equal(t, domain.CompletedTimeout, method)

	require.Len(t, *staleFrames, 1)
	assert.Equal(t, "ended", (*staleFrames)[0].Type)
	assert.Equal(t, string(domain.CompletedTimeout), (*staleFrames)[0].CompletionMethod)

	_, gone := hub.Get("stale-1")
	assert.False(t, gone)

	_, kept := hub.Get("fresh-1")
	assert.True(t, kept)
	assert.Empty(t, *freshFrames)
	_, completed := repo.completionMethod("fresh-1")
	assert.False(t, completed)
}

func TestHubSweep_SkipsAlreadyEnded(t *testing.T) {
	t.Parallel()
	repo := newFakeRepo()
	hub := NewHub()

	ls, frames := staleLiveSession("ended-1", time.Hour)
	ls.Session.Ended = true
	hub.Put("ended-1", ls)

	hub.sweep(context.Background(), newTestCoordinator(repo), 30*time.Minute)

	assert.Empty(t, *frames)
	_, completed := repo.completionMethod("ended-1")
	assert.False(t, completed)
	// Ended sessions still get dropped from the registry.
	_, kept := hub.Get("ended-1")
	assert.False(t, kept)
}

func TestHubRunCleanup_StopsOnContextCancel(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		hub.RunCleanup(ctx, newTestCoordinator(newFakeRepo()), time.Hour, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
