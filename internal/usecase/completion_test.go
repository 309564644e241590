package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesage-ai/interview-server/internal/domain"
	"github.com/codesage-ai/interview-server/internal/usecase"
)

// memRepo is an in-memory SessionRepository with the same exactly-once
// completion contract as the Postgres implementation.
type memRepo struct {
	mu        sync.Mutex
	records   map[string]domain.InterviewRecord
	responses map[string][]domain.QuestionResponse
	completed map[string]domain.Completion
	createErr error
	failOnce  bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		records:   map[string]domain.InterviewRecord{},
		responses: map[string][]domain.QuestionResponse{},
		completed: map[string]domain.Completion{},
	}
}

func (r *memRepo) Create(_ domain.Context, rec domain.InterviewRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		err := r.createErr
		if r.failOnce {
			r.createErr = nil
		}
		return err
	}
	r.records[rec.SessionID] = rec
	return nil
}

func (r *memRepo) UpdateProgress(_ domain.Context, sessionID string, p domain.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.CurrentQuestionIndex = p.CurrentQuestionIndex
	rec.CompletedQuestions = p.CompletedQuestions
	rec.AverageScore = p.AverageScore
	rec.IndividualScores = p.IndividualScores
	r.records[sessionID] = rec
	return nil
}

func (r *memRepo) StoreQuestionResponse(_ domain.Context, qr domain.QuestionResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[qr.SessionID] = append(r.responses[qr.SessionID], qr)
	return nil
}

func (r *memRepo) Complete(_ domain.Context, sessionID string, c domain.Completion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, done := r.completed[sessionID]; done {
		return domain.ErrConflict
	}
	r.completed[sessionID] = c
	rec := r.records[sessionID]
	rec.EndTime = &c.EndTime
	rec.AverageScore = c.AverageScore
	rec.CompletionMethod = &c.Method
	rec.FinalResults = &c.FinalResults
	r.records[sessionID] = rec
	return nil
}

func (r *memRepo) Get(_ domain.Context, sessionID string) (domain.InterviewRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[sessionID]
	if !ok {
		return domain.InterviewRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (r *memRepo) ListByUser(_ domain.Context, userID string, _, _ int) ([]domain.InterviewRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.InterviewRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRepo) ListResponses(_ domain.Context, sessionID string) ([]domain.QuestionResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.responses[sessionID], nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []domain.CompletedEvent
	err    error
}

func (p *memPublisher) PublishCompleted(_ domain.Context, ev domain.CompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func newCoordinator(repo *memRepo, pub *memPublisher) *usecase.CompletionCoordinator {
	enricher := usecase.NewEnricher(&fakeAI{jsonErr: domain.ErrUpstreamUnavailable}, "test-model")
	return usecase.NewCompletionCoordinator(repo, enricher, pub)
}

func persistedSession(repo *memRepo) *domain.InterviewSession {
	sess := technicalSession(70, 80)
	_ = repo.Create(context.Background(), sess.Record())
	sess.Persisted = true
	return sess
}

func TestComplete_WritesTerminalStateOnce(t *testing.T) {
	t.Parallel()
	repo := newMemRepo()
	pub := &memPublisher{}
	coord := newCoordinator(repo, pub)
	sess := persistedSession(repo)
	now := sess.StartTime.Add(10 * time.Minute)

	sum, err := coord.Complete(context.Background(), sess, domain.CompletedAutomatic, now)
	require.NoError(t, err)
	assert.NotEmpty(t, sum.InterviewSummary.OverallAssessment)

	rec, err := repo.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.CompletionMethod)
	assert.Equal(t, domain.CompletedAutomatic, *rec.CompletionMethod)
	assert.Equal(t, 75, rec.AverageScore)
	require.NotNil(t, rec.EndTime)
	assert.Equal(t, 600, repo.completed[sess.ID].DurationSeconds)

	// Second completion attempt is rejected before any storage access.
	_, err = coord.Complete(context.Background(), sess, domain.CompletedManually, now.Add(time.Minute))
	assert.ErrorIs(t, err, domain.ErrSessionEnded)
	assert.Equal(t, domain.CompletedAutomatic, *repoRecord(t, repo, sess.ID).CompletionMethod)
	assert.Len(t, pub.events, 1)
}

func repoRecord(t *testing.T, repo *memRepo, id string) domain.InterviewRecord {
	t.Helper()
	rec, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func TestComplete_ConcurrentCallersOneWinner(t *testing.T) {
	t.Parallel()
	repo := newMemRepo()
	coord := newCoordinator(repo, &memPublisher{})

	// Two sessions racing in storage for the same id simulates a duplicate
	// terminal path that slipped past the in-memory guard.
	a := persistedSession(repo)
	b := technicalSession(70, 80)
	b.Persisted = true

	now := time.Now()
	_, err := coord.Complete(context.Background(), a, domain.CompletedAutomatic, now)
	require.NoError(t, err)
	_, err = coord.Complete(context.Background(), b, domain.CompletedTimeout, now)
	require.NoError(t, err, "storage conflict is absorbed, not surfaced")

	assert.Equal(t, domain.CompletedAutomatic, repo.completed[a.ID].Method, "first writer wins")
}

func TestComplete_LateInsertWhenNeverPersisted(t *testing.T) {
	t.Parallel()
	repo := newMemRepo()
	coord := newCoordinator(repo, &memPublisher{})
	sess := technicalSession(60)
	require.False(t, sess.Persisted)

	_, err := coord.Complete(context.Background(), sess, domain.CompletedDisconnected, time.Now())
	require.NoError(t, err)
	assert.True(t, sess.Persisted)

	rec := repoRecord(t, repo, sess.ID)
	require.NotNil(t, rec.CompletionMethod)
	assert.Equal(t, domain.CompletedDisconnected, *rec.CompletionMethod)
}

func TestComplete_PublishFailureDoesNotFailCompletion(t *testing.T) {
	t.Parallel()
	repo := newMemRepo()
	coord := newCoordinator(repo, &memPublisher{err: domain.ErrUpstreamUnavailable})
	sess := persistedSession(repo)

	_, err := coord.Complete(context.Background(), sess, domain.CompletedManually, time.Now())
	assert.NoError(t, err)
	assert.NotNil(t, repoRecord(t, repo, sess.ID).CompletionMethod)
}
