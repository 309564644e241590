package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codesage-ai/interview-server/internal/adapter/observability"
	"github.com/codesage-ai/interview-server/internal/domain"
	"github.com/codesage-ai/interview-server/internal/usecase"
)

// LiveSession pairs an in-memory session with its connection. The mutex
// serializes the read loop against the question-generation goroutine and
// the cleanup janitor; within the read loop handling stays sequential.
type LiveSession struct {
	mu      sync.Mutex
	Session *domain.InterviewSession
	Client  *Client
}

// WithLock runs fn while holding the session lock.
func (l *LiveSession) WithLock(fn func(*domain.InterviewSession)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.Session)
}

// Hub is the registry of live sessions, owned by the transport layer and
// injected where needed rather than kept as a process-wide singleton.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*LiveSession
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*LiveSession)}
}

func (h *Hub) Put(id string, ls *LiveSession) {
	h.mu.Lock()
	h.sessions[id] = ls
	h.mu.Unlock()
	observability.SessionsActive.WithLabelValues(string(ls.Session.Mode)).Inc()
}

func (h *Hub) Get(id string) (*LiveSession, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ls, ok := h.sessions[id]
	return ls, ok
}

func (h *Hub) Delete(id string) {
	h.mu.Lock()
	ls, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if ok {
		observability.SessionsActive.WithLabelValues(string(ls.Session.Mode)).Dec()
	}
}

func (h *Hub) snapshot() []*LiveSession {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*LiveSession, 0, len(h.sessions))
	for _, ls := range h.sessions {
		out = append(out, ls)
	}
	return out
}

// RunCleanup completes sessions idle past maxAge with the timeout method,
// then drops them from the registry. Runs until ctx is cancelled.
func (h *Hub) RunCleanup(ctx context.Context, coordinator *usecase.CompletionCoordinator, maxAge, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep(ctx, coordinator, maxAge)
		}
	}
}

func (h *Hub) sweep(ctx context.Context, coordinator *usecase.CompletionCoordinator, maxAge time.Duration) {
	now := time.Now()
	for _, ls := range h.snapshot() {
		ls.WithLock(func(sess *domain.InterviewSession) {
			if sess.Ended || now.Sub(sess.LastActivity) < maxAge {
				return
			}
			slog.Info("cleaning up stale session",
				slog.String("session_id", sess.ID),
				slog.Time("last_activity", sess.LastActivity))
			if _, err := coordinator.Complete(ctx, sess, domain.CompletedTimeout, now); err != nil {
				slog.Warn("stale session completion failed",
					slog.String("session_id", sess.ID), slog.Any("error", err))
			}
			ls.Client.Send(endedFrame(domain.CompletedTimeout))
			ls.Client.Close()
		})
		if ended := func() bool { ls.mu.Lock(); defer ls.mu.Unlock(); return ls.Session.Ended }(); ended {
			h.Delete(ls.Session.ID)
		}
	}
}
