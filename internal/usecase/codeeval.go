package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codesage-ai/interview-server/internal/adapter/ai"
	"github.com/codesage-ai/interview-server/internal/adapter/observability"
	"github.com/codesage-ai/interview-server/internal/domain"
)

// Base score per correctness classification. Unknown classifications from
// the model score as partially correct.
var correctnessBase = map[domain.Correctness]int{
	domain.FullyCorrect:     100,
	domain.MostlyCorrect:    75,
	domain.PartiallyCorrect: 60,
	domain.Incorrect:        30,
}

// boilerplateMarkers are editor-template fragments. A submission containing
// one of them was never edited.
var boilerplateMarkers = []string{
	"# Write your solution here",
	"// Write your solution here",
	"Your code here",
	"pass\n\nif __name__",
	"function solution() {\n}",
	"public static void main(String[] args) {\n    }",
	"int main() {\n    return 0;\n}",
}

// CodeEvaluator scores code submissions. The classification comes from the
// model; the deduction arithmetic is local so the final score is a pure
// function of the classification and the per-question counters.
type CodeEvaluator struct {
	ai domain.AIClient
}

func NewCodeEvaluator(aiClient domain.AIClient) *CodeEvaluator {
	return &CodeEvaluator{ai: aiClient}
}

// Evaluate scores a submission against its question. Boilerplate and
// near-empty submissions score zero without consulting the model. Model
// failures degrade to a structural heuristic, never to an error.
func (e *CodeEvaluator) Evaluate(ctx context.Context, q domain.Question, code, language string, counters domain.PerQuestionCounters) domain.CodeEvaluation {
	if isBoilerplate(code) {
		return domain.CodeEvaluation{
			Correctness:       domain.Incorrect,
			Feedback:          "The submission is unchanged template code. Try implementing your approach before submitting.",
			CorrectnessReason: "no solution attempted",
			BaseScore:         0,
			FinalScore:        0,
		}
	}

	ev, err := e.classify(ctx, q, code, language)
	if err != nil {
		slog.Warn("code classification failed, using heuristic",
			slog.String("language", language), slog.Any("error", err))
		observability.FallbacksTotal.WithLabelValues("code_evaluator").Inc()
		ev = heuristicClassify(code)
	}

	base, ok := correctnessBase[ev.Correctness]
	if !ok {
		ev.Correctness = domain.PartiallyCorrect
		base = correctnessBase[domain.PartiallyCorrect]
	}
	ev.BaseScore = base
	ev.Deductions = deductions(ev.Correctness, counters)
	ev.FinalScore = finalScore(ev.Correctness, base, ev.Deductions)
	observability.ScoreHistogram.Observe(float64(ev.FinalScore))
	return ev
}

type classified struct {
	Correctness         string   `json:"technical_correctness"`
	Feedback            string   `json:"feedback"`
	CorrectnessReason   string   `json:"correctness_reason"`
	EdgeCasesHandled    []string `json:"edge_cases_handled"`
	AreasForImprovement []string `json:"areas_for_improvement"`
}

func (e *CodeEvaluator) classify(ctx context.Context, q domain.Question, code, language string) (domain.CodeEvaluation, error) {
	prompt := buildEvalPrompt(q, code, language)
	raw, err := e.ai.ChatJSON(ctx, codeEvalSystemPrompt, prompt, 900)
	if err != nil {
		return domain.CodeEvaluation{}, err
	}
	var c classified
	if err := ai.ParseLLMJSON(raw, &c); err != nil {
		return domain.CodeEvaluation{}, err
	}
	if c.Correctness == "" {
		return domain.CodeEvaluation{}, fmt.Errorf("op=classify_code: missing correctness: %w", domain.ErrSchemaInvalid)
	}
	return domain.CodeEvaluation{
		Correctness:         domain.Correctness(strings.ToLower(strings.TrimSpace(c.Correctness))),
		Feedback:            c.Feedback,
		CorrectnessReason:   c.CorrectnessReason,
		EdgeCasesHandled:    c.EdgeCasesHandled,
		AreasForImprovement: c.AreasForImprovement,
	}, nil
}

// heuristicClassify grades on structure alone when the model is unreachable.
func heuristicClassify(code string) domain.CodeEvaluation {
	lower := strings.ToLower(code)
	hasFunction := strings.Contains(lower, "def ") || strings.Contains(lower, "function") ||
		strings.Contains(lower, "func ") || strings.Contains(lower, "public ") ||
		strings.Contains(lower, "=>")
	hasLogic := strings.Contains(lower, "if ") || strings.Contains(lower, "for ") ||
		strings.Contains(lower, "while ") || strings.Contains(lower, "return")
	hasStructure := len(strings.TrimSpace(code)) > 50

	var correctness domain.Correctness
	var reason string
	switch {
	case hasFunction && hasLogic && hasStructure:
		correctness = domain.MostlyCorrect
		reason = "structurally complete solution, automated review unavailable"
	case hasFunction || hasLogic:
		correctness = domain.PartiallyCorrect
		reason = "partial structure detected, automated review unavailable"
	default:
		correctness = domain.Incorrect
		reason = "no recognizable solution structure"
	}
	return domain.CodeEvaluation{
		Correctness:       correctness,
		Feedback:          "Automated review was unavailable; the score reflects the structure of your submission.",
		CorrectnessReason: reason,
	}
}

// deductions applies the hint, discussion, and clarification penalties.
// Fully correct submissions keep their discussion turns penalty-free.
func deductions(c domain.Correctness, counters domain.PerQuestionCounters) int {
	d := counters.HintsUsed * 10
	if c != domain.FullyCorrect {
		d += counters.DiscussionTurns * 5
	}
	if counters.ClarificationQuestions > 2 {
		d += (counters.ClarificationQuestions - 2) * 5
	}
	return d
}

func finalScore(c domain.Correctness, base, deductions int) int {
	score := base - deductions
	floor := 30
	if c == domain.FullyCorrect || c == domain.MostlyCorrect {
		floor = 60
	}
	if score < floor {
		score = floor
	}
	if score > 100 {
		score = 100
	}
	return score
}

// isBoilerplate reports whether code is an untouched template or has fewer
// than five meaningful lines.
func isBoilerplate(code string) bool {
	for _, marker := range boilerplateMarkers {
		if strings.Contains(code, marker) {
			return true
		}
	}
	meaningful := 0
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "pass" ||
			strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
			continue
		}
		meaningful++
	}
	return meaningful < 5
}

const codeEvalSystemPrompt = `You are a senior engineer reviewing an interview code submission. Respond with a single JSON object with keys: technical_correctness (one of fully_correct, mostly_correct, partially_correct, incorrect), feedback (2-3 sentences addressed to the candidate), correctness_reason (one sentence), edge_cases_handled (array of strings), areas_for_improvement (array of strings). Judge only whether the code solves the stated problem. No prose outside the JSON.`

func buildEvalPrompt(q domain.Question, code, language string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question (%s):\n%s\n\n", q.Difficulty, q.Text)
	if len(q.EvaluationCriteria) > 0 {
		sb.WriteString("Evaluation criteria:\n")
		for _, c := range q.EvaluationCriteria {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Submission (%s):\n%s\n", language, code)
	return sb.String()
}
