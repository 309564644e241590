package domain

// Summary is the enriched, recruiter-facing result of a completed session.
// Every field is guaranteed present after enrichment; callers treat the
// summary as authoritative persisted data.
type Summary struct {
	InterviewType       string              `json:"interview_type"`
	InterviewSummary    InterviewSummary    `json:"interview_summary"`
	Strengths           []string            `json:"strengths"`
	AreasForImprovement []string            `json:"areas_for_improvement"`
	SkillSignalMap      map[string]int      `json:"skill_signal_map"`
	ResumeAlignment     *ResumeAlignment    `json:"resume_alignment,omitempty"`
	TechnicalBreakdown  *TechnicalBreakdown `json:"technical_signal_breakdown,omitempty"`
	RiskFlags           []string            `json:"risk_flags"`
	Metadata            EvaluationMetadata  `json:"evaluation_metadata"`
}

// InterviewSummary is the headline assessment block.
type InterviewSummary struct {
	OverallAssessment     string `json:"overall_assessment"`
	HireRecommendation    string `json:"hire_recommendation"` // strong_yes|yes|borderline|no
	ConfidenceLevel       string `json:"confidence_level,omitempty"`
	ProblemSolvingQuality string `json:"problem_solving_quality,omitempty"`
	CodingConfidence      string `json:"coding_confidence,omitempty"`
}

// ResumeAlignment compares interview answers against resume claims.
type ResumeAlignment struct {
	VerifiedSkills        []string `json:"verified_skills"`
	WeakOrUnverifiedSkills []string `json:"weak_or_unverified_skills"`
	ConsistencyLevel      string   `json:"consistency_level"`
}

// TechnicalBreakdown captures per-signal trends for technical interviews.
type TechnicalBreakdown struct {
	CorrectnessTrend      string `json:"correctness_trend"`
	HintDependency        string `json:"hint_dependency"`
	DebuggingAbility      string `json:"debugging_ability"`
	OptimizationAwareness string `json:"optimization_awareness"`
}

// EvaluationMetadata records how the summary was produced.
type EvaluationMetadata struct {
	EvaluationModel  string   `json:"evaluation_model"`
	ScoringMethod    string   `json:"scoring_method"`
	CompletionMethod string   `json:"completion_method"`
	SignalsUsed      []string `json:"signals_used"`
}
