// Package domain holds the core entities and ports of the interview server.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrSchemaInvalid       = errors.New("schema invalid")
	ErrSessionEnded        = errors.New("session ended")
	ErrAlreadySubmitted    = errors.New("question already submitted")
	ErrQuestionsNotReady   = errors.New("questions not ready")
	ErrInternal            = errors.New("internal error")
)

// Mode selects which state-machine variant governs a session.
type Mode string

const (
	ModeTopicBased Mode = "topics"
	ModeResume     Mode = "resume"
	ModeTechnical  Mode = "technical"
)

// Difficulty is the fixed ordered scale for generated questions.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "very_hard"
)

// TechnicalDifficulties is the progressive ladder used for a technical batch.
var TechnicalDifficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyVeryHard}

// CompletionMethod records how a session ended. Set exactly once.
type CompletionMethod string

const (
	CompletedAutomatic    CompletionMethod = "automatic"
	CompletedManually     CompletionMethod = "manually_ended"
	CompletedTimeout      CompletionMethod = "timeout_cleanup"
	CompletedForceStopped CompletionMethod = "force_stopped"
	CompletedDisconnected CompletionMethod = "disconnected"
)

// Correctness is the classification of a code submission used as scoring base.
type Correctness string

const (
	FullyCorrect     Correctness = "fully_correct"
	MostlyCorrect    Correctness = "mostly_correct"
	PartiallyCorrect Correctness = "partially_correct"
	Incorrect        Correctness = "incorrect"
)

// TestCase is a sample input/output pair attached to a generated question.
type TestCase struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation"`
}

// Question is immutable once generated.
type Question struct {
	Text               string     `json:"question"`
	Difficulty         Difficulty `json:"difficulty"`
	Topics             []string   `json:"topics"`
	Hints              []string   `json:"hints"`
	TestCases          []TestCase `json:"test_cases"`
	EvaluationCriteria []string   `json:"evaluation_criteria"`
}

// QuestionResponse is persisted once per answered question, keyed by
// session id plus 1-based question index. Never mutated after creation.
type QuestionResponse struct {
	SessionID        string
	QuestionIndex    int // 1-based
	QuestionText     string
	UserResponse     string
	Score            int
	Feedback         string
	TimeTakenSeconds int
	HintsUsed        int
	Difficulty       Difficulty
	Language         string
	CreatedAt        time.Time
}

// CodeEvaluation is the detail attached to a scored code submission.
type CodeEvaluation struct {
	Correctness         Correctness `json:"technical_correctness"`
	Feedback            string      `json:"feedback"`
	CorrectnessReason   string      `json:"correctness_reason"`
	EdgeCasesHandled    []string    `json:"edge_cases_handled"`
	AreasForImprovement []string    `json:"areas_for_improvement"`
	BaseScore           int         `json:"base_score"`
	Deductions          int         `json:"deductions"`
	FinalScore          int         `json:"final_score"`
}

// InterviewRecord is the persisted projection of a session.
type InterviewRecord struct {
	SessionID            string
	UserID               string
	Mode                 Mode
	Topics               []string
	StartTime            time.Time
	EndTime              *time.Time
	DurationSeconds      int
	TotalQuestions       int
	CompletedQuestions   int
	CurrentQuestionIndex int
	AverageScore         int
	IndividualScores     []int
	CompletionMethod     *CompletionMethod
	FinalResults         *Summary
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Progress is the non-terminal, best-effort state update.
type Progress struct {
	CurrentQuestionIndex int
	CompletedQuestions   int
	AverageScore         int
	IndividualScores     []int
}

// Completion carries the consistent terminal fields written exactly once.
type Completion struct {
	EndTime            time.Time
	DurationSeconds    int
	CompletedQuestions int
	AverageScore       int
	IndividualScores   []int
	FinalResults       Summary
	Method             CompletionMethod
}

// CompletedEvent is published to the analytics stream on terminal transitions.
type CompletedEvent struct {
	EventID            string           `json:"event_id"`
	SessionID          string           `json:"session_id"`
	UserID             string           `json:"user_id"`
	Mode               Mode             `json:"mode"`
	Method             CompletionMethod `json:"completion_method"`
	AverageScore       int              `json:"average_score"`
	CompletedQuestions int              `json:"completed_questions"`
	EndedAt            time.Time        `json:"ended_at"`
}

// Ports

// SessionRepository persists interview sessions and question responses.
// All writes are keyed by session id and must tolerate concurrent writes to
// distinct keys. Complete must reject a second completion with ErrConflict.
type SessionRepository interface {
	Create(ctx Context, rec InterviewRecord) error
	UpdateProgress(ctx Context, sessionID string, p Progress) error
	StoreQuestionResponse(ctx Context, qr QuestionResponse) error
	Complete(ctx Context, sessionID string, c Completion) error
	Get(ctx Context, sessionID string) (InterviewRecord, error)
	ListByUser(ctx Context, userID string, limit, offset int) ([]InterviewRecord, error)
	ListResponses(ctx Context, sessionID string) ([]QuestionResponse, error)
}

// AIClient is the opaque text-generation capability.
type AIClient interface {
	// ChatJSON requests a JSON-shaped reply constrained by the system prompt.
	ChatJSON(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
	// ChatText requests a free-form reply.
	ChatText(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx Context, audio []byte, filename string) (string, error)
}

// TextExtractor extracts plain text from an uploaded document.
type TextExtractor interface {
	ExtractPath(ctx Context, fileName, path string) (string, error)
}

// ResumeStore keeps uploaded resume text addressable by id until a session
// claims it.
type ResumeStore interface {
	Put(ctx Context, text string) (string, error)
	Get(ctx Context, id string) (string, error)
}

// EventPublisher emits analytics events for completed interviews.
type EventPublisher interface {
	PublishCompleted(ctx Context, ev CompletedEvent) error
}

// Context is an alias so the domain does not import std context everywhere;
// adapters and usecases pass context.Context through.
type Context = context.Context
