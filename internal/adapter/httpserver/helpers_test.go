package httpserver

import (
	"time"

	"github.com/codesage-ai/interview-server/internal/adapter/textextract"
	"github.com/codesage-ai/interview-server/internal/config"
	"github.com/codesage-ai/interview-server/internal/domain"
)

type stubRepo struct {
	records   map[string]domain.InterviewRecord
	responses map[string][]domain.QuestionResponse
	listErr   error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		records:   map[string]domain.InterviewRecord{},
		responses: map[string][]domain.QuestionResponse{},
	}
}

func (r *stubRepo) Create(_ domain.Context, rec domain.InterviewRecord) error {
	r.records[rec.SessionID] = rec
	return nil
}

func (r *stubRepo) UpdateProgress(_ domain.Context, _ string, _ domain.Progress) error { return nil }

func (r *stubRepo) StoreQuestionResponse(_ domain.Context, qr domain.QuestionResponse) error {
	r.responses[qr.SessionID] = append(r.responses[qr.SessionID], qr)
	return nil
}

func (r *stubRepo) Complete(_ domain.Context, _ string, _ domain.Completion) error { return nil }

func (r *stubRepo) Get(_ domain.Context, sessionID string) (domain.InterviewRecord, error) {
	rec, ok := r.records[sessionID]
	if !ok {
		return domain.InterviewRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (r *stubRepo) ListByUser(_ domain.Context, userID string, _, _ int) ([]domain.InterviewRecord, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.InterviewRecord, 0)
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *stubRepo) ListResponses(_ domain.Context, sessionID string) ([]domain.QuestionResponse, error) {
	return r.responses[sessionID], nil
}

type stubResumes struct {
	lastText string
	err      error
}

func (s *stubResumes) Put(_ domain.Context, text string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.lastText = text
	return "resume-abc", nil
}

func (s *stubResumes) Get(_ domain.Context, _ string) (string, error) {
	return s.lastText, nil
}

func newTestServer(repo *stubRepo, resumes *stubResumes) *Server {
	cfg := config.Config{MaxUploadMB: 5, Port: 8080, AppEnv: "test"}
	return NewServer(cfg, repo, resumes, textextract.New(), nil, nil)
}

func record(sessionID, userID string, mode domain.Mode, method *domain.CompletionMethod, avg int) domain.InterviewRecord {
	return domain.InterviewRecord{
		SessionID:          sessionID,
		UserID:             userID,
		Mode:               mode,
		Topics:             []string{"arrays"},
		StartTime:          time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		DurationSeconds:    600,
		TotalQuestions:     4,
		CompletedQuestions: 4,
		AverageScore:       avg,
		CompletionMethod:   method,
	}
}

func methodPtr(m domain.CompletionMethod) *domain.CompletionMethod { return &m }
