package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/codesage-ai/interview-server/internal/adapter/ai"
	"github.com/codesage-ai/interview-server/internal/adapter/observability"
	"github.com/codesage-ai/interview-server/internal/domain"
)

//go:embed fallback_questions.yaml
var fallbackBankYAML []byte

type fallbackEntry struct {
	Question string   `yaml:"question"`
	Hints    []string `yaml:"hints"`
}

type fallbackBank struct {
	Topics  map[string]fallbackEntry `yaml:"topics"`
	Default fallbackEntry            `yaml:"default"`
}

var questionBank = mustLoadBank()

func mustLoadBank() fallbackBank {
	var bank fallbackBank
	if err := yaml.Unmarshal(fallbackBankYAML, &bank); err != nil {
		panic(fmt.Sprintf("fallback question bank: %v", err))
	}
	return bank
}

const (
	generationAttempts = 2
	dedupAttempts      = 3
	// Two question texts sharing more than this fraction of words are
	// considered the same question.
	duplicateThreshold = 0.8
)

// QuestionService generates coding questions for technical sessions,
// falling back to a canned per-topic bank when the model is unavailable
// or returns unusable output.
type QuestionService struct {
	ai     domain.AIClient
	count  int
	pacing time.Duration
}

func NewQuestionService(aiClient domain.AIClient, count int, pacing time.Duration) *QuestionService {
	if count <= 0 {
		count = 4
	}
	return &QuestionService{ai: aiClient, count: count, pacing: pacing}
}

type generatedQuestion struct {
	Question           string            `json:"question"`
	Hints              []string          `json:"hints"`
	TestCases          []domain.TestCase `json:"test_cases"`
	EvaluationCriteria []string          `json:"evaluation_criteria"`
}

// GenerateQuestion produces one question for the topic at the given
// difficulty. It never returns an error: model failures degrade to the
// canned bank.
func (s *QuestionService) GenerateQuestion(ctx context.Context, topic string, difficulty domain.Difficulty, avoid []string) domain.Question {
	for attempt := 0; attempt < generationAttempts; attempt++ {
		q, err := s.generateOnce(ctx, topic, difficulty, avoid)
		if err == nil {
			return q
		}
		slog.Warn("question generation failed",
			slog.String("topic", topic),
			slog.String("difficulty", string(difficulty)),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
	}
	observability.FallbacksTotal.WithLabelValues("question_generator").Inc()
	return s.fallbackQuestion(topic, difficulty, avoid)
}

func (s *QuestionService) generateOnce(ctx context.Context, topic string, difficulty domain.Difficulty, avoid []string) (domain.Question, error) {
	prompt := buildQuestionPrompt(topic, difficulty, avoid)
	raw, err := s.ai.ChatJSON(ctx, questionSystemPrompt, prompt, 1200)
	if err != nil {
		return domain.Question{}, err
	}
	var gen generatedQuestion
	if err := ai.ParseLLMJSON(raw, &gen); err != nil {
		return domain.Question{}, err
	}
	if strings.TrimSpace(gen.Question) == "" {
		return domain.Question{}, fmt.Errorf("op=generate_question: empty question text: %w", domain.ErrSchemaInvalid)
	}
	return domain.Question{
		Text:               gen.Question,
		Difficulty:         difficulty,
		Topics:             []string{topic},
		Hints:              gen.Hints,
		TestCases:          gen.TestCases,
		EvaluationCriteria: gen.EvaluationCriteria,
	}, nil
}

// GenerateBatch produces the full question set for a technical session.
// Difficulties follow the easy-to-very-hard ladder, duplicates within the
// batch are regenerated up to a few times, and a short delay between
// questions keeps the upstream rate limiter happy.
func (s *QuestionService) GenerateBatch(ctx context.Context, topics []string) []domain.Question {
	questions := make([]domain.Question, 0, s.count)
	seen := make([]string, 0, s.count)

	for i := 0; i < s.count; i++ {
		topic := "general problem solving"
		if len(topics) > 0 {
			topic = topics[i%len(topics)]
		}
		difficulty := domain.TechnicalDifficulties[i%len(domain.TechnicalDifficulties)]

		q := s.GenerateQuestion(ctx, topic, difficulty, seen)
		for attempt := 0; attempt < dedupAttempts && isDuplicate(q.Text, seen); attempt++ {
			q = s.GenerateQuestion(ctx, topic, difficulty, seen)
		}
		if isDuplicate(q.Text, seen) {
			q = s.fallbackQuestion(topic, difficulty, seen)
		}

		questions = append(questions, q)
		seen = append(seen, q.Text)

		if s.pacing > 0 && i < s.count-1 {
			select {
			case <-time.After(s.pacing):
			case <-ctx.Done():
				return questions
			}
		}
	}
	return questions
}

// fallbackQuestion picks a canned question for the topic. When the topic's
// own bank entry already appears among the avoid texts, it rotates to a
// differently worded entry so a batch never repeats a question.
func (s *QuestionService) fallbackQuestion(topic string, difficulty domain.Difficulty, avoid []string) domain.Question {
	entry, ok := questionBank.Topics[strings.ToLower(strings.TrimSpace(topic))]
	if !ok {
		entry = questionBank.Default
	}
	if isDuplicate(entry.Question, avoid) {
		entry = alternateBankEntry(avoid)
	}
	return domain.Question{
		Text:       entry.Question,
		Difficulty: difficulty,
		Topics:     []string{topic},
		Hints:      entry.Hints,
		EvaluationCriteria: []string{
			"Correctness of the approach",
			"Time and space complexity analysis",
			"Handling of edge cases",
		},
	}
}

func alternateBankEntry(avoid []string) fallbackEntry {
	keys := make([]string, 0, len(questionBank.Topics))
	for k := range questionBank.Topics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if e := questionBank.Topics[k]; !isDuplicate(e.Question, avoid) {
			return e
		}
	}
	return questionBank.Default
}

// isDuplicate reports whether text shares more than duplicateThreshold of
// its words with any previously generated question.
func isDuplicate(text string, previous []string) bool {
	for _, p := range previous {
		if wordOverlap(text, p) > duplicateThreshold {
			return true
		}
	}
	return false
}

func wordOverlap(a, b string) float64 {
	sa := wordSet(a)
	sb := wordSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	shared := 0
	for w := range sb {
		if _, ok := sa[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(max(len(sa), len(sb)))
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

const questionSystemPrompt = `You are a technical interviewer creating coding questions. Respond with a single JSON object with keys: question (string), hints (array of 3 strings, progressively more specific), test_cases (array of objects with input, output, explanation), evaluation_criteria (array of strings). No prose outside the JSON.`

func buildQuestionPrompt(topic string, difficulty domain.Difficulty, avoid []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create one %s coding interview question about %s.\n", difficulty, topic)
	sb.WriteString("The question must be self-contained and solvable in 15-20 minutes.\n")
	if len(avoid) > 0 {
		sb.WriteString("Do not repeat or closely resemble any of these questions:\n")
		for _, q := range avoid {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
	}
	return sb.String()
}
