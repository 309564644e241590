package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codesage-ai/interview-server/internal/adapter/observability"
	"github.com/codesage-ai/interview-server/internal/domain"
)

// StartSession builds the in-memory session and inserts its record. A failed
// insert degrades the session instead of refusing it: the interview runs
// in memory and the completion coordinator inserts the record at the end.
func StartSession(ctx context.Context, repo domain.SessionRepository, id, userID string, mode domain.Mode, topics []string, now time.Time) *domain.InterviewSession {
	sess := domain.NewSession(id, userID, mode, topics, now)
	if err := repo.Create(ctx, sess.Record()); err != nil {
		slog.Error("session insert failed, continuing in memory",
			slog.String("session_id", id), slog.Any("error", err))
	} else {
		sess.Persisted = true
	}
	observability.SessionsStartedTotal.WithLabelValues(string(mode)).Inc()
	return sess
}

// TechnicalService drives coding interviews: a generated question batch,
// per-question hint and discussion accounting, and code evaluation.
type TechnicalService struct {
	questions *QuestionService
	evaluator *CodeEvaluator
	hints     *HintService
	repo      domain.SessionRepository
}

func NewTechnicalService(questions *QuestionService, evaluator *CodeEvaluator, hints *HintService, repo domain.SessionRepository) *TechnicalService {
	return &TechnicalService{questions: questions, evaluator: evaluator, hints: hints, repo: repo}
}

// BuildQuestions generates a question batch for the topics without touching
// session state, so callers can run the slow part outside the session lock.
func (s *TechnicalService) BuildQuestions(ctx context.Context, topics []string) []domain.Question {
	return s.questions.GenerateBatch(ctx, topics)
}

// InstallQuestions places a built batch on the session and flips the ready
// flag.
func (s *TechnicalService) InstallQuestions(sess *domain.InterviewSession, qs []domain.Question) {
	sess.Questions = qs
	sess.QuestionsReady = true
}

// GenerateQuestions builds and installs the batch in one step.
func (s *TechnicalService) GenerateQuestions(ctx context.Context, sess *domain.InterviewSession) []domain.Question {
	qs := s.BuildQuestions(ctx, sess.Topics)
	s.InstallQuestions(sess, qs)
	return qs
}

// SubmitResult is the outcome of one code submission.
type SubmitResult struct {
	Evaluation   domain.CodeEvaluation
	NextQuestion *domain.Question
	Completed    bool
}

// SubmitCode evaluates a submission for the current question. A question
// accepts exactly one submission; the cursor advances on acceptance and the
// final question's acceptance signals completion.
func (s *TechnicalService) SubmitCode(ctx context.Context, sess *domain.InterviewSession, code, language string, now time.Time) (SubmitResult, error) {
	if err := s.guard(sess); err != nil {
		return SubmitResult{}, err
	}
	if sess.Counters.Submitted {
		return SubmitResult{}, fmt.Errorf("op=submit_code question=%d: %w", sess.CurrentQuestionIndex+1, domain.ErrAlreadySubmitted)
	}
	question, ok := sess.CurrentQuestion()
	if !ok {
		return SubmitResult{}, fmt.Errorf("op=submit_code: no current question: %w", domain.ErrInvalidArgument)
	}

	sess.Counters.Submitted = true
	sess.RecordSubmission(code, language, now)

	ev := s.evaluator.Evaluate(ctx, question, code, language, sess.Counters)
	sess.AddScore(ev.FinalScore)
	sess.LastEvaluation = &ev
	sess.LastActivity = now

	s.persistResponse(ctx, sess, question, code, language, ev, now)

	res := SubmitResult{Evaluation: ev}
	if sess.OnLastQuestion() {
		res.Completed = true
		return res, nil
	}
	next, _ := sess.Advance(now)
	res.NextQuestion = &next
	persistProgress(ctx, s.repo, sess)
	return res, nil
}

// RequestHint serves the next hint for the current question and counts it
// toward the submission deduction.
func (s *TechnicalService) RequestHint(ctx context.Context, sess *domain.InterviewSession, code string, now time.Time) (string, error) {
	if err := s.guard(sess); err != nil {
		return "", err
	}
	question, ok := sess.CurrentQuestion()
	if !ok {
		return "", fmt.Errorf("op=request_hint: no current question: %w", domain.ErrInvalidArgument)
	}
	hint := s.hints.Hint(ctx, question, code, sess.Counters.HintsUsed)
	sess.Counters.HintsUsed++
	sess.LastActivity = now
	return hint, nil
}

// DiscussApproach records an approach-discussion transcript and reacts to
// it. Discussion turns and clarification questions feed the deduction
// arithmetic at submission time.
func (s *TechnicalService) DiscussApproach(ctx context.Context, sess *domain.InterviewSession, transcript string, now time.Time) (string, error) {
	if err := s.guard(sess); err != nil {
		return "", err
	}
	question, ok := sess.CurrentQuestion()
	if !ok {
		return "", fmt.Errorf("op=discuss_approach: no current question: %w", domain.ErrInvalidArgument)
	}
	sess.RecordVoice(transcript, "approach", now)
	sess.Counters.ApproachDiscussed = true
	sess.LastActivity = now
	return s.hints.ApproachFeedback(ctx, question, transcript), nil
}

func (s *TechnicalService) guard(sess *domain.InterviewSession) error {
	if sess.Ended {
		return fmt.Errorf("op=technical session_id=%s: %w", sess.ID, domain.ErrSessionEnded)
	}
	if !sess.QuestionsReady {
		return fmt.Errorf("op=technical session_id=%s: %w", sess.ID, domain.ErrQuestionsNotReady)
	}
	return nil
}

func (s *TechnicalService) persistResponse(ctx context.Context, sess *domain.InterviewSession, q domain.Question, code, language string, ev domain.CodeEvaluation, now time.Time) {
	qr := domain.QuestionResponse{
		SessionID:        sess.ID,
		QuestionIndex:    sess.CurrentQuestionIndex + 1,
		QuestionText:     q.Text,
		UserResponse:     code,
		Score:            ev.FinalScore,
		Feedback:         ev.Feedback,
		TimeTakenSeconds: int(now.Sub(sess.Counters.QuestionStart).Seconds()),
		HintsUsed:        sess.Counters.HintsUsed,
		Difficulty:       q.Difficulty,
		Language:         language,
		CreatedAt:        now,
	}
	if err := s.repo.StoreQuestionResponse(ctx, qr); err != nil {
		slog.Error("question response write failed",
			slog.String("session_id", sess.ID),
			slog.Int("question_index", qr.QuestionIndex),
			slog.Any("error", err))
	}
}

// persistProgress mirrors the in-memory cursor and scores to the session
// row. Skipped when the initial insert failed and the row does not exist.
func persistProgress(ctx context.Context, repo domain.SessionRepository, sess *domain.InterviewSession) {
	if !sess.Persisted {
		return
	}
	p := domain.Progress{
		CurrentQuestionIndex: sess.CurrentQuestionIndex,
		CompletedQuestions:   len(sess.Scores),
		AverageScore:         sess.AverageScore(),
		IndividualScores:     append([]int(nil), sess.Scores...),
	}
	if err := repo.UpdateProgress(ctx, sess.ID, p); err != nil {
		slog.Warn("progress write failed",
			slog.String("session_id", sess.ID), slog.Any("error", err))
	}
}
