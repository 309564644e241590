// Package ws carries the live interview over a websocket connection.
package ws

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/codesage-ai/interview-server/internal/domain"
)

var validate = validator.New()

// Inbound is the client frame envelope. Type selects which fields matter;
// requiredFields validates the selection before dispatch.
type Inbound struct {
	Type       string   `json:"type"`
	Mode       string   `json:"mode,omitempty"`
	Topics     []string `json:"topics,omitempty"`
	ResumeID   string   `json:"resume_id,omitempty"`
	Text       string   `json:"text,omitempty"`
	Code       string   `json:"code,omitempty"`
	Language   string   `json:"language,omitempty"`
	TimeSpent  int      `json:"time_spent,omitempty"`
	HintsUsed  int      `json:"hints_used,omitempty"`
	Transcript string   `json:"transcript,omitempty"`
	Audio      string   `json:"audio,omitempty"`
	SessionID  string   `json:"session_id,omitempty"`
}

// Per-type required field sets. Unknown types fail dispatch, not validation.
type initFields struct {
	Mode string `validate:"required,oneof=topics resume technical"`
}
type answerFields struct {
	Text string `validate:"required"`
}
type codeFields struct {
	Code string `validate:"required"`
}
type submitFields struct {
	Code     string `validate:"required"`
	Language string `validate:"required"`
}
type approachFields struct {
	Transcript string `validate:"required_without=Audio"`
	Audio      string `validate:"required_without=Transcript"`
}

// Validate checks the fields required by the frame's type.
func (m Inbound) Validate() error {
	var err error
	switch m.Type {
	case "init", "init_technical":
		err = validate.Struct(initFields{Mode: m.Mode})
		if err == nil && m.Mode != "resume" && len(m.Topics) == 0 {
			return fmt.Errorf("message type %q: topics must not be empty for %s mode: %w", m.Type, m.Mode, domain.ErrInvalidArgument)
		}
	case "answer":
		err = validate.Struct(answerFields{Text: m.Text})
	case "code_submission":
		err = validate.Struct(codeFields{Code: m.Code})
	case "submit_code":
		err = validate.Struct(submitFields{Code: m.Code, Language: m.Language})
	case "request_hint":
		err = validate.Struct(codeFields{Code: m.Code})
	case "voice_approach", "record_audio":
		err = validate.Struct(approachFields{Transcript: m.Transcript, Audio: m.Audio})
	case "end", "end_interview", "stop_interview":
		// No payload.
	default:
		return fmt.Errorf("unknown message type %q: %w", m.Type, domain.ErrInvalidArgument)
	}
	if err != nil {
		return fmt.Errorf("message type %q: %v: %w", m.Type, err, domain.ErrInvalidArgument)
	}
	return nil
}

// Outbound is the server frame envelope.
type Outbound struct {
	Type string `json:"type"`

	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`

	Question       string `json:"question,omitempty"`
	QuestionIndex  int    `json:"question_index,omitempty"`
	TotalQuestions int    `json:"total_questions,omitempty"`
	Difficulty     string `json:"difficulty,omitempty"`

	Evaluation string `json:"evaluation,omitempty"`
	Score      int    `json:"score,omitempty"`

	CodeFeedback *domain.CodeEvaluation `json:"code_feedback,omitempty"`

	Hint             string `json:"hint,omitempty"`
	ApproachFeedback string `json:"approach_feedback,omitempty"`

	Results *domain.Summary `json:"results,omitempty"`

	CompletionMethod string `json:"completion_method,omitempty"`
	AverageScore     int    `json:"average_score,omitempty"`
}

func readyFrame(sessionID string) Outbound {
	return Outbound{Type: "ready", SessionID: sessionID}
}

func initializingFrame() Outbound {
	return Outbound{Type: "initializing", Message: "Generating your questions, hang tight."}
}

func questionFrame(q domain.Question, index, total int) Outbound {
	return Outbound{
		Type:           "question",
		Question:       q.Text,
		QuestionIndex:  index,
		TotalQuestions: total,
		Difficulty:     string(q.Difficulty),
	}
}

func assessmentFrame(turn domain.ConversationTurn) Outbound {
	return Outbound{
		Type:       "assessment",
		Evaluation: turn.Evaluation,
		Score:      turn.Score,
	}
}

func codeFeedbackFrame(ev domain.CodeEvaluation) Outbound {
	return Outbound{Type: "code_feedback", CodeFeedback: &ev, Score: ev.FinalScore}
}

func questionCompleteFrame(next domain.Question, index, total int) Outbound {
	f := questionFrame(next, index, total)
	f.Type = "question_complete"
	return f
}

func interviewCompleteFrame(sum domain.Summary, method domain.CompletionMethod, avg int) Outbound {
	return Outbound{
		Type:             "interview_complete",
		Results:          &sum,
		CompletionMethod: string(method),
		AverageScore:     avg,
	}
}

func hintFrame(hint string) Outbound {
	return Outbound{Type: "hint", Hint: hint}
}

func approachFrame(feedback string) Outbound {
	return Outbound{Type: "approach_feedback", ApproachFeedback: feedback}
}

func errorFrame(msg string) Outbound {
	return Outbound{Type: "error", Message: msg}
}

func endedFrame(method domain.CompletionMethod) Outbound {
	return Outbound{Type: "ended", CompletionMethod: string(method)}
}
