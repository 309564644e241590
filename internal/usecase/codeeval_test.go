package usecase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codesage-ai/interview-server/internal/domain"
	"github.com/codesage-ai/interview-server/internal/usecase"
)

const workingSolution = `def two_sum(nums, target):
    seen = {}
    for i, n in enumerate(nums):
        if target - n in seen:
            return [seen[target - n], i]
        seen[n] = i
    return []`

func evalJSON(correctness string) string {
	return fmt.Sprintf(`{"technical_correctness":%q,"feedback":"Nice work.","correctness_reason":"passes the stated cases","edge_cases_handled":["empty input"],"areas_for_improvement":["naming"]}`, correctness)
}

func TestEvaluate_DeductionArithmetic(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		correctness string
		counters    domain.PerQuestionCounters
		wantBase    int
		wantDeduct  int
		wantFinal   int
	}{
		{
			name:        "fully correct keeps discussion free",
			correctness: "fully_correct",
			counters:    domain.PerQuestionCounters{HintsUsed: 1, DiscussionTurns: 4},
			wantBase:    100, wantDeduct: 10, wantFinal: 90,
		},
		{
			name:        "mostly correct pays for discussion",
			correctness: "mostly_correct",
			counters:    domain.PerQuestionCounters{DiscussionTurns: 2},
			wantBase:    75, wantDeduct: 10, wantFinal: 65,
		},
		{
			name:        "heavy help floors at sixty",
			correctness: "mostly_correct",
			counters:    domain.PerQuestionCounters{HintsUsed: 2, DiscussionTurns: 3},
			wantBase:    75, wantDeduct: 35, wantFinal: 60,
		},
		{
			name:        "clarifications over two cost five each",
			correctness: "partially_correct",
			counters:    domain.PerQuestionCounters{ClarificationQuestions: 5},
			wantBase:    60, wantDeduct: 15, wantFinal: 45,
		},
		{
			name:        "incorrect floors at thirty",
			correctness: "incorrect",
			counters:    domain.PerQuestionCounters{HintsUsed: 1},
			wantBase:    30, wantDeduct: 10, wantFinal: 30,
		},
		{
			name:        "unknown classification treated as partial",
			correctness: "somewhat_correct",
			counters:    domain.PerQuestionCounters{},
			wantBase:    60, wantDeduct: 0, wantFinal: 60,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			fake := &fakeAI{jsonQueue: []string{evalJSON(tc.correctness)}}
			e := usecase.NewCodeEvaluator(fake)

			ev := e.Evaluate(context.Background(), domain.Question{Text: "two sum"}, workingSolution, "python", tc.counters)
			assert.Equal(t, tc.wantBase, ev.BaseScore)
			assert.Equal(t, tc.wantDeduct, ev.Deductions)
			assert.Equal(t, tc.wantFinal, ev.FinalScore)
		})
	}
}

func TestEvaluate_DeterministicForSameInputs(t *testing.T) {
	t.Parallel()
	counters := domain.PerQuestionCounters{HintsUsed: 1, DiscussionTurns: 2, ClarificationQuestions: 3}
	var scores []int
	for i := 0; i < 3; i++ {
		fake := &fakeAI{jsonQueue: []string{evalJSON("mostly_correct")}}
		e := usecase.NewCodeEvaluator(fake)
		ev := e.Evaluate(context.Background(), domain.Question{Text: "two sum"}, workingSolution, "python", counters)
		scores = append(scores, ev.FinalScore)
	}
	assert.Equal(t, scores[0], scores[1])
	assert.Equal(t, scores[1], scores[2])
}

func TestEvaluate_BoilerplateScoresZeroWithoutModelCall(t *testing.T) {
	t.Parallel()
	submissions := []string{
		"def solve():\n    # Write your solution here\n    pass",
		"// Write your solution here\nfunction solve() {}",
		"",
		"# comment only\n\npass",
		"x = 1\ny = 2",
	}
	for _, code := range submissions {
		fake := &fakeAI{}
		e := usecase.NewCodeEvaluator(fake)
		ev := e.Evaluate(context.Background(), domain.Question{Text: "two sum"}, code, "python", domain.PerQuestionCounters{})
		assert.Equal(t, 0, ev.FinalScore, "code: %q", code)
		assert.Equal(t, domain.Incorrect, ev.Correctness)
		assert.Equal(t, 0, fake.calls, "model must not be consulted for %q", code)
	}
}

func TestEvaluate_HeuristicFallbackWhenModelDown(t *testing.T) {
	t.Parallel()
	fake := &fakeAI{jsonErr: domain.ErrUpstreamTimeout}
	e := usecase.NewCodeEvaluator(fake)

	ev := e.Evaluate(context.Background(), domain.Question{Text: "two sum"}, workingSolution, "python", domain.PerQuestionCounters{})
	assert.Equal(t, domain.MostlyCorrect, ev.Correctness)
	assert.Equal(t, 75, ev.BaseScore)
	assert.Equal(t, 75, ev.FinalScore)
	assert.NotEmpty(t, ev.Feedback)
}

func TestEvaluate_HeuristicTiers(t *testing.T) {
	t.Parallel()
	fake := &fakeAI{jsonErr: domain.ErrUpstreamUnavailable}
	e := usecase.NewCodeEvaluator(fake)

	partial := "def solve():\n    x = compute()\n    y = x + 1\n    z = y * 2\n    print(z)"
	ev := e.Evaluate(context.Background(), domain.Question{}, partial, "python", domain.PerQuestionCounters{})
	assert.Equal(t, domain.PartiallyCorrect, ev.Correctness)

	junk := "a\nb\nc\nd\ne\nf"
	ev = e.Evaluate(context.Background(), domain.Question{}, junk, "text", domain.PerQuestionCounters{})
	assert.Equal(t, domain.Incorrect, ev.Correctness)
}
