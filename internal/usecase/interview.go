package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codesage-ai/interview-server/internal/adapter/ai"
	"github.com/codesage-ai/interview-server/internal/adapter/observability"
	"github.com/codesage-ai/interview-server/internal/domain"
)

// Opening questions per conversational mode.
const (
	firstQuestionTopics = "Let's begin. Can you introduce yourself?"
	firstQuestionResume = "Thanks for sharing your resume. Could you give a brief overview of your background?"
)

// genericFollowUps stand in for the model-generated next question when the
// model is unavailable mid-interview.
var genericFollowUps = []string{
	"Tell me about a challenging project you worked on recently. What made it difficult?",
	"How do you approach debugging a problem you have never seen before?",
	"Describe a time you disagreed with a teammate on a technical decision. How was it resolved?",
	"What part of your technical skill set are you actively trying to improve, and how?",
	"Walk me through how you would explain a complex system you built to a non-technical stakeholder.",
}

const fallbackEvaluation = "Thanks for sharing that. Your answer was adequate and covered the main points."

// ConversationService drives topic-based and resume-based interviews. Each
// answer is evaluated and the next question generated in a single model
// call; attribution runs one turn in arrears, so the stored turn pairs the
// answer with the question it actually responded to.
type ConversationService struct {
	ai            domain.AIClient
	questionCount int
	budget        *ai.TokenBudget
	repo          domain.SessionRepository
}

func NewConversationService(aiClient domain.AIClient, questionCount int, repo domain.SessionRepository) *ConversationService {
	if questionCount <= 0 {
		questionCount = 4
	}
	return &ConversationService{ai: aiClient, questionCount: questionCount, budget: ai.NewTokenBudget(), repo: repo}
}

// Begin records and returns the opening question for the session's mode.
func (s *ConversationService) Begin(sess *domain.InterviewSession) string {
	q := firstQuestionTopics
	if sess.Mode == domain.ModeResume {
		q = firstQuestionResume
	}
	sess.Questions = append(sess.Questions, domain.Question{Text: q})
	return q
}

// AnswerResult is what one processed answer produces.
type AnswerResult struct {
	Turn      domain.ConversationTurn
	Completed bool
}

// Answer evaluates the candidate's reply to the current question, records
// the turn, and either asks the next question or signals that the question
// budget is exhausted. The model is consulted once; any failure degrades to
// a neutral evaluation and a canned follow-up.
func (s *ConversationService) Answer(ctx context.Context, sess *domain.InterviewSession, answer string, now time.Time) AnswerResult {
	current, ok := sess.CurrentQuestion()
	if !ok {
		current = domain.Question{Text: firstQuestionTopics}
	}

	evaluation, nextQuestion := s.evaluate(ctx, sess, current.Text, answer)
	score := ExtractScore(evaluation)
	observability.ScoreHistogram.Observe(float64(score))

	timeTaken := int(now.Sub(sess.Counters.QuestionStart).Seconds())
	turn := domain.ConversationTurn{
		Question:   current.Text,
		Answer:     answer,
		Evaluation: evaluation,
		Score:      score,
		TimeTaken:  timeTaken,
	}

	sess.AddScore(score)
	s.persistTurn(ctx, sess, turn, now)

	completed := len(sess.Scores) >= s.questionCount
	if !completed {
		turn.NextQuestion = nextQuestion
		sess.Questions = append(sess.Questions, domain.Question{Text: nextQuestion})
		sess.Advance(now)
	}
	sess.Conversation = append(sess.Conversation, turn)
	sess.LastActivity = now
	persistProgress(ctx, s.repo, sess)

	return AnswerResult{Turn: turn, Completed: completed}
}

// persistTurn stores the turn as a question-response row keyed by the index
// of the question it answered.
func (s *ConversationService) persistTurn(ctx context.Context, sess *domain.InterviewSession, turn domain.ConversationTurn, now time.Time) {
	qr := domain.QuestionResponse{
		SessionID:        sess.ID,
		QuestionIndex:    sess.CurrentQuestionIndex + 1,
		QuestionText:     turn.Question,
		UserResponse:     turn.Answer,
		Score:            turn.Score,
		Feedback:         turn.Evaluation,
		TimeTakenSeconds: turn.TimeTaken,
		CreatedAt:        now,
	}
	if err := s.repo.StoreQuestionResponse(ctx, qr); err != nil {
		slog.Error("question response write failed",
			slog.String("session_id", sess.ID),
			slog.Int("question_index", qr.QuestionIndex),
			slog.Any("error", err))
	}
}

type conversationalReply struct {
	Evaluation   string `json:"evaluation"`
	NextQuestion string `json:"next_question"`
}

func (s *ConversationService) evaluate(ctx context.Context, sess *domain.InterviewSession, question, answer string) (evaluation, nextQuestion string) {
	raw, err := s.ai.ChatJSON(ctx, conversationSystemPrompt, s.buildTurnPrompt(sess, question, answer), 700)
	if err == nil {
		var reply conversationalReply
		if perr := ai.ParseLLMJSON(raw, &reply); perr == nil &&
			strings.TrimSpace(reply.Evaluation) != "" && strings.TrimSpace(reply.NextQuestion) != "" {
			return reply.Evaluation, reply.NextQuestion
		}
		err = fmt.Errorf("op=conversation_turn: incomplete reply: %w", domain.ErrSchemaInvalid)
	}
	slog.Warn("conversation turn fell back",
		slog.String("session_id", sess.ID), slog.Any("error", err))
	observability.FallbacksTotal.WithLabelValues("conversation").Inc()
	return fallbackEvaluation, genericFollowUps[len(sess.Conversation)%len(genericFollowUps)]
}

const conversationSystemPrompt = `You are a friendly but rigorous interviewer. Given the question asked and the candidate's answer, respond with a single JSON object: evaluation (2-3 sentences of assessment ending with "Rating: n/10"), next_question (one follow-up question that goes deeper or changes topic naturally). No prose outside the JSON.`

func (s *ConversationService) buildTurnPrompt(sess *domain.InterviewSession, question, answer string) string {
	var sb strings.Builder
	if sess.Mode == domain.ModeResume && sess.ResumeText != "" {
		fmt.Fprintf(&sb, "Candidate resume:\n%s\n\n", s.budget.Truncate(sess.ResumeText, 1500))
	}
	if len(sess.Topics) > 0 {
		fmt.Fprintf(&sb, "Interview focus areas: %s\n\n", strings.Join(sess.Topics, ", "))
	}
	if n := len(sess.Conversation); n > 0 {
		sb.WriteString("Earlier exchanges:\n")
		start := 0
		if n > 3 {
			start = n - 3
		}
		for _, turn := range sess.Conversation[start:] {
			fmt.Fprintf(&sb, "Q: %s\nA: %s\n", turn.Question, turn.Answer)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Question just asked:\n%s\n\nCandidate's answer:\n%s\n", question, answer)
	return sb.String()
}
