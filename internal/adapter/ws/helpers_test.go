package ws

import (
	"sync"

	"github.com/codesage-ai/interview-server/internal/domain"
)

type fakeRepo struct {
	mu        sync.Mutex
	records   map[string]domain.InterviewRecord
	responses map[string][]domain.QuestionResponse
	completed map[string]domain.Completion
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records:   map[string]domain.InterviewRecord{},
		responses: map[string][]domain.QuestionResponse{},
		completed: map[string]domain.Completion{},
	}
}

func (r *fakeRepo) Create(_ domain.Context, rec domain.InterviewRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.SessionID] = rec
	return nil
}

func (r *fakeRepo) UpdateProgress(_ domain.Context, _ string, _ domain.Progress) error { return nil }

func (r *fakeRepo) StoreQuestionResponse(_ domain.Context, qr domain.QuestionResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[qr.SessionID] = append(r.responses[qr.SessionID], qr)
	return nil
}

func (r *fakeRepo) Complete(_ domain.Context, sessionID string, c domain.Completion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, done := r.completed[sessionID]; done {
		return domain.ErrConflict
	}
	r.completed[sessionID] = c
	return nil
}

func (r *fakeRepo) Get(_ domain.Context, sessionID string) (domain.InterviewRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[sessionID]
	if !ok {
		return domain.InterviewRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (r *fakeRepo) ListByUser(_ domain.Context, _ string, _, _ int) ([]domain.InterviewRecord, error) {
	return nil, nil
}

func (r *fakeRepo) ListResponses(_ domain.Context, sessionID string) ([]domain.QuestionResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.QuestionResponse(nil), r.responses[sessionID]...), nil
}

func (r *fakeRepo) storedResponses(sessionID string) []domain.QuestionResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.QuestionResponse(nil), r.responses[sessionID]...)
}

func (r *fakeRepo) completionMethod(sessionID string) (domain.CompletionMethod, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.completed[sessionID]
	return c.Method, ok
}

// gatedAI blocks every model call until the gate closes, then degrades to
// the canned fallbacks. It simulates a slow upstream during batch
// generation.
type gatedAI struct {
	gate chan struct{}
}

func (g *gatedAI) ChatJSON(ctx domain.Context, _, _ string, _ int) (string, error) {
	select {
	case <-g.gate:
	case <-ctx.Done():
	}
	return "", domain.ErrUpstreamUnavailable
}

func (g *gatedAI) ChatText(ctx domain.Context, _, _ string, _ int) (string, error) {
	select {
	case <-g.gate:
	case <-ctx.Done():
	}
	return "", domain.ErrUpstreamUnavailable
}

type fakeResumes struct {
	mu    sync.Mutex
	texts map[string]string
}

func newFakeResumes() *fakeResumes { return &fakeResumes{texts: map[string]string{}} }

func (s *fakeResumes) Put(_ domain.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := "resume-1"
	s.texts[id] = text
	return id, nil
}

func (s *fakeResumes) Get(_ domain.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.texts[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return text, nil
}
