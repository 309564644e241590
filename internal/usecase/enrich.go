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

// transcriptTokenBudget bounds the interview transcript inside the
// enrichment prompt; older turns are cut first.
const transcriptTokenBudget = 6000

var (
	resumeRiskFlags = []string{
		"vague_explanations", "resume_overclaim", "shallow_examples", "low_impact_work",
	}
	technicalRiskFlags = []string{
		"over_reliance_on_hints", "weak_fundamentals", "copy_pattern_solutions", "poor_time_management",
	}
	hireRecommendations = []string{"strong_yes", "yes", "borderline", "no"}
)

// Enricher turns a finished session into the recruiter-facing summary.
// Enrichment never fails: a deterministic score-derived summary stands in
// whenever the model output is missing or malformed, and every field of the
// returned summary is populated.
type Enricher struct {
	ai     domain.AIClient
	budget *ai.TokenBudget
	model  string
}

func NewEnricher(aiClient domain.AIClient, model string) *Enricher {
	return &Enricher{ai: aiClient, budget: ai.NewTokenBudget(), model: model}
}

func (e *Enricher) Enrich(ctx context.Context, s *domain.InterviewSession, method domain.CompletionMethod) domain.Summary {
	technical := s.Mode == domain.ModeTechnical
	avg := s.AverageScore()

	raw, err := e.ai.ChatJSON(ctx, enrichSystemPrompt(technical), e.buildPrompt(s), 1500)
	scoring := "llm_enriched"
	var summary domain.Summary
	if err == nil {
		err = ai.ParseLLMJSON(raw, &summary)
	}
	if err != nil {
		slog.Warn("enrichment failed, using score-derived summary",
			slog.String("session_id", s.ID), slog.Any("error", err))
		observability.FallbacksTotal.WithLabelValues("enricher").Inc()
		summary = domain.Summary{}
		scoring = "heuristic_fallback"
	}

	e.backfill(&summary, s, avg, technical)
	summary.Metadata = domain.EvaluationMetadata{
		EvaluationModel:  e.model,
		ScoringMethod:    scoring,
		CompletionMethod: string(method),
		SignalsUsed:      signalsUsed(s),
	}
	return summary
}

// backfill guarantees every summary field holds a sane value, whether the
// model skipped it or the whole call failed.
func (e *Enricher) backfill(sum *domain.Summary, s *domain.InterviewSession, avg int, technical bool) {
	if technical {
		sum.InterviewType = "technical"
	} else {
		sum.InterviewType = "conversational"
	}

	if sum.InterviewSummary.OverallAssessment == "" {
		sum.InterviewSummary.OverallAssessment = fmt.Sprintf(
			"The candidate completed %d of %d questions with an average score of %d.",
			len(s.Scores), len(s.Questions), avg)
	}
	if !contains(hireRecommendations, sum.InterviewSummary.HireRecommendation) {
		sum.InterviewSummary.HireRecommendation = recommendationFor(avg)
	}
	if sum.InterviewSummary.ConfidenceLevel == "" {
		if len(s.Scores) >= 3 {
			sum.InterviewSummary.ConfidenceLevel = "medium"
		} else {
			sum.InterviewSummary.ConfidenceLevel = "low"
		}
	}
	if sum.InterviewSummary.ProblemSolvingQuality == "" {
		sum.InterviewSummary.ProblemSolvingQuality = qualityFor(avg)
	}
	if technical && sum.InterviewSummary.CodingConfidence == "" {
		sum.InterviewSummary.CodingConfidence = qualityFor(avg)
	}

	if len(sum.Strengths) == 0 {
		sum.Strengths = []string{"Completed the interview session"}
	}
	if len(sum.AreasForImprovement) == 0 {
		sum.AreasForImprovement = []string{"Provide more detailed and specific answers"}
	}

	if sum.SkillSignalMap == nil {
		sum.SkillSignalMap = map[string]int{}
	}
	for k, v := range sum.SkillSignalMap {
		if v < 0 {
			sum.SkillSignalMap[k] = 0
		} else if v > 10 {
			sum.SkillSignalMap[k] = 10
		}
	}
	if len(sum.SkillSignalMap) == 0 {
		fallback := avg / 10
		if fallback > 10 {
			fallback = 10
		}
		for _, topic := range s.Topics {
			sum.SkillSignalMap[topic] = fallback
		}
		if len(sum.SkillSignalMap) == 0 {
			sum.SkillSignalMap["communication"] = fallback
		}
	}

	allowed := resumeRiskFlags
	if technical {
		allowed = technicalRiskFlags
	}
	sum.RiskFlags = intersect(sum.RiskFlags, allowed)

	if s.Mode == domain.ModeResume {
		if sum.ResumeAlignment == nil {
			sum.ResumeAlignment = &domain.ResumeAlignment{ConsistencyLevel: "unverified"}
		}
		if sum.ResumeAlignment.ConsistencyLevel == "" {
			sum.ResumeAlignment.ConsistencyLevel = "unverified"
		}
		if sum.ResumeAlignment.VerifiedSkills == nil {
			sum.ResumeAlignment.VerifiedSkills = []string{}
		}
		if sum.ResumeAlignment.WeakOrUnverifiedSkills == nil {
			sum.ResumeAlignment.WeakOrUnverifiedSkills = []string{}
		}
	} else {
		sum.ResumeAlignment = nil
	}

	if technical {
		if sum.TechnicalBreakdown == nil {
			sum.TechnicalBreakdown = &domain.TechnicalBreakdown{}
		}
		fillDefault(&sum.TechnicalBreakdown.CorrectnessTrend, trendFor(s.Scores))
		fillDefault(&sum.TechnicalBreakdown.HintDependency, hintDependencyFor(s))
		fillDefault(&sum.TechnicalBreakdown.DebuggingAbility, "not_observed")
		fillDefault(&sum.TechnicalBreakdown.OptimizationAwareness, "not_observed")
	} else {
		sum.TechnicalBreakdown = nil
	}
}

func recommendationFor(avg int) string {
	switch {
	case avg >= 70:
		return "yes"
	case avg >= 50:
		return "borderline"
	default:
		return "no"
	}
}

func qualityFor(avg int) string {
	switch {
	case avg >= 80:
		return "strong"
	case avg >= 60:
		return "adequate"
	default:
		return "weak"
	}
}

func trendFor(scores []int) string {
	if len(scores) < 2 {
		return "flat"
	}
	first, last := scores[0], scores[len(scores)-1]
	switch {
	case last > first+10:
		return "improving"
	case last < first-10:
		return "declining"
	default:
		return "flat"
	}
}

func hintDependencyFor(s *domain.InterviewSession) string {
	total := 0
	for _, sub := range s.CodeSubmissions {
		total += sub.HintsUsedSoFar
	}
	switch {
	case total == 0:
		return "low"
	case total <= len(s.Questions):
		return "moderate"
	default:
		return "high"
	}
}

func signalsUsed(s *domain.InterviewSession) []string {
	signals := []string{"question_scores"}
	if len(s.Conversation) > 0 {
		signals = append(signals, "conversation_transcript")
	}
	if len(s.VoiceResponses) > 0 {
		signals = append(signals, "approach_discussions")
	}
	if len(s.CodeSubmissions) > 0 {
		signals = append(signals, "code_submissions")
	}
	if s.ResumeText != "" {
		signals = append(signals, "resume_text")
	}
	return signals
}

func (e *Enricher) buildPrompt(s *domain.InterviewSession) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Interview mode: %s\n", s.Mode)
	fmt.Fprintf(&sb, "Questions answered: %d of %d\n", len(s.Scores), len(s.Questions))
	fmt.Fprintf(&sb, "Scores: %v (average %d)\n\n", s.Scores, s.AverageScore())

	if s.ResumeText != "" {
		fmt.Fprintf(&sb, "Resume:\n%s\n\n", e.budget.Truncate(s.ResumeText, 2000))
	}
	sb.WriteString("Transcript:\n")
	sb.WriteString(e.budget.Truncate(e.transcript(s), transcriptTokenBudget))
	return sb.String()
}

// transcript renders newest-first. Truncate keeps the head of the text, so
// when the budget cuts in it is the oldest turns that fall off.
func (e *Enricher) transcript(s *domain.InterviewSession) string {
	var sb strings.Builder
	for i := len(s.Conversation) - 1; i >= 0; i-- {
		turn := s.Conversation[i]
		fmt.Fprintf(&sb, "Q: %s\nA: %s\nScore: %d\n\n", turn.Question, turn.Answer, turn.Score)
	}
	for i := len(s.CodeSubmissions) - 1; i >= 0; i-- {
		sub := s.CodeSubmissions[i]
		fmt.Fprintf(&sb, "Code submission for question %d (%s, %d hints used):\n%s\n\n",
			sub.QuestionID, sub.Language, sub.HintsUsedSoFar, sub.Code)
	}
	for i := len(s.VoiceResponses) - 1; i >= 0; i-- {
		v := s.VoiceResponses[i]
		fmt.Fprintf(&sb, "Discussion (question %d): %s\n", v.QuestionID, v.Transcript)
	}
	return sb.String()
}

func enrichSystemPrompt(technical bool) string {
	base := `You are an experienced hiring panel reviewer producing a structured interview report. Respond with a single JSON object with keys: interview_summary (object with overall_assessment, hire_recommendation one of strong_yes|yes|borderline|no, confidence_level, problem_solving_quality`
	if technical {
		base += `, coding_confidence), strengths (array), areas_for_improvement (array), skill_signal_map (object mapping skill name to integer 0-10), technical_signal_breakdown (object with correctness_trend, hint_dependency, debugging_ability, optimization_awareness), risk_flags (array drawn only from: over_reliance_on_hints, weak_fundamentals, copy_pattern_solutions, poor_time_management).`
	} else {
		base += `), strengths (array), areas_for_improvement (array), skill_signal_map (object mapping skill name to integer 0-10), resume_alignment (object with verified_skills, weak_or_unverified_skills, consistency_level), risk_flags (array drawn only from: vague_explanations, resume_overclaim, shallow_examples, low_impact_work).`
	}
	return base + ` Base every judgement on the transcript. No prose outside the JSON.`
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func intersect(values, allowed []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if contains(allowed, v) {
			out = append(out, v)
		}
	}
	return out
}

func fillDefault(field *string, def string) {
	if *field == "" {
		*field = def
	}
}
