package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codesage-ai/interview-server/internal/adapter/observability"
	"github.com/codesage-ai/interview-server/internal/domain"
)

// HintService produces progressive hints and approach feedback during a
// technical question. Both operations are best-effort: when the model is
// down the question's own hint ladder (or a generic nudge) is served.
type HintService struct {
	ai domain.AIClient
}

func NewHintService(aiClient domain.AIClient) *HintService {
	return &HintService{ai: aiClient}
}

// Hint returns the next hint for the question. hintIndex is zero-based and
// counts hints already given, so later hints get more specific.
func (s *HintService) Hint(ctx context.Context, q domain.Question, code string, hintIndex int) string {
	prompt := buildHintPrompt(q, code, hintIndex)
	text, err := s.ai.ChatText(ctx, hintSystemPrompt, prompt, 200)
	if err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	if err != nil {
		slog.Warn("hint generation failed", slog.Any("error", err))
	}
	observability.FallbacksTotal.WithLabelValues("hint_service").Inc()
	return ladderHint(q, hintIndex)
}

// ladderHint serves the pre-generated hint for the requested rung, clamping
// to the last one when the candidate keeps asking.
func ladderHint(q domain.Question, hintIndex int) string {
	if len(q.Hints) == 0 {
		return "Break the problem into smaller steps: what is the simplest case you can solve, and how does the full input reduce to it?"
	}
	if hintIndex >= len(q.Hints) {
		hintIndex = len(q.Hints) - 1
	}
	if hintIndex < 0 {
		hintIndex = 0
	}
	return q.Hints[hintIndex]
}

// ApproachFeedback reacts to the candidate explaining their plan before
// coding. It never blocks the session on a model failure.
func (s *HintService) ApproachFeedback(ctx context.Context, q domain.Question, approach string) string {
	prompt := fmt.Sprintf("Question:\n%s\n\nThe candidate describes this approach before coding:\n%s\n\nReact in 2-3 sentences. Confirm what is sound, flag one risk or missed case if any, and do not reveal the solution.", q.Text, approach)
	text, err := s.ai.ChatText(ctx, approachSystemPrompt, prompt, 250)
	if err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	if err != nil {
		slog.Warn("approach feedback failed", slog.Any("error", err))
	}
	observability.FallbacksTotal.WithLabelValues("hint_service").Inc()
	return "That sounds like a reasonable direction. Think about the edge cases before you start, and go ahead and code it up."
}

const hintSystemPrompt = `You are a technical interviewer. Give exactly one hint for the current question. Never reveal the full solution. Keep it to one or two sentences.`

const approachSystemPrompt = `You are a technical interviewer listening to a candidate outline their approach. Be encouraging but honest. Never write code for them.`

func buildHintPrompt(q domain.Question, code string, hintIndex int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question:\n%s\n\n", q.Text)
	if strings.TrimSpace(code) != "" {
		fmt.Fprintf(&sb, "Their code so far:\n%s\n\n", code)
	}
	fmt.Fprintf(&sb, "They have already received %d hint(s). Give hint number %d, more specific than the previous ones.\n", hintIndex, hintIndex+1)
	return sb.String()
}
