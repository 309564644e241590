package domain

import (
	"strings"
	"time"
)

// clarificationMarkers flag a transcript as a clarification question when any
// of them appear; a literal "?" counts as well.
var clarificationMarkers = []string{"what", "how", "why", "can you", "could you", "explain", "clarify"}

// PerQuestionCounters holds the ephemeral per-question state that is cleared
// every time the session advances to the next question.
type PerQuestionCounters struct {
	HintsUsed              int
	DiscussionTurns        int
	ClarificationQuestions int
	Submitted              bool
	ApproachDiscussed      bool
	QuestionStart          time.Time
}

// ResetForNextQuestion clears all counters and restarts the question timer.
func (c *PerQuestionCounters) ResetForNextQuestion(now time.Time) {
	*c = PerQuestionCounters{QuestionStart: now}
}

// ConversationTurn is one Q&A exchange in a conversational session. The
// stored question is the one the candidate just answered; the answer to
// NextQuestion arrives one message in arrears.
type ConversationTurn struct {
	Question     string
	Answer       string
	Evaluation   string
	Score        int
	TimeTaken    int
	NextQuestion string
}

// VoiceResponse is a logged approach-discussion transcript.
type VoiceResponse struct {
	Transcript string
	Kind       string
	Timestamp  time.Time
	QuestionID int
}

// CodeSubmission is a logged code submission.
type CodeSubmission struct {
	Code           string
	Language       string
	Timestamp      time.Time
	QuestionID     int
	HintsUsedSoFar int
}

// InterviewSession is the in-memory aggregate root for one live interview.
// One connection owns one session; handlers for a session never run
// concurrently, so no locking is needed on the fields below.
type InterviewSession struct {
	ID     string
	UserID string
	Mode   Mode
	Topics []string

	Questions            []Question
	CurrentQuestionIndex int
	Scores               []int

	StartTime time.Time
	EndTime   *time.Time

	Counters PerQuestionCounters

	Conversation    []ConversationTurn
	VoiceResponses  []VoiceResponse
	CodeSubmissions []CodeSubmission

	// QuestionsReady flips once the technical batch generation finishes;
	// answer-type messages before that are rejected.
	QuestionsReady bool

	// Persisted is set when the initial record insert succeeded. The
	// completion coordinator creates the record on the fly when it is false.
	Persisted bool

	// Ended guards all terminal paths; checked by late-arriving async work.
	Ended  bool
	Method CompletionMethod

	ResumeID   string
	ResumeText string

	LastEvaluation *CodeEvaluation
	LastActivity   time.Time
}

// NewSession constructs a session with a fresh question timer.
func NewSession(id, userID string, mode Mode, topics []string, now time.Time) *InterviewSession {
	return &InterviewSession{
		ID:           id,
		UserID:       userID,
		Mode:         mode,
		Topics:       topics,
		StartTime:    now,
		Counters:     PerQuestionCounters{QuestionStart: now},
		LastActivity: now,
	}
}

// CurrentQuestion returns the question under the cursor, if any.
func (s *InterviewSession) CurrentQuestion() (Question, bool) {
	if s.CurrentQuestionIndex < len(s.Questions) {
		return s.Questions[s.CurrentQuestionIndex], true
	}
	return Question{}, false
}

// OnLastQuestion reports whether the cursor sits on the final question.
func (s *InterviewSession) OnLastQuestion() bool {
	return s.CurrentQuestionIndex >= len(s.Questions)-1
}

// Advance moves the cursor forward and clears per-question counters.
// The cursor never decreases.
func (s *InterviewSession) Advance(now time.Time) (Question, bool) {
	s.CurrentQuestionIndex++
	s.Counters.ResetForNextQuestion(now)
	return s.CurrentQuestion()
}

// AddScore appends a 0-100 score. len(Scores) <= len(Questions) is preserved
// by the submission guard in the technical flow; conversational sessions grow
// questions and scores in lockstep.
func (s *InterviewSession) AddScore(score int) {
	s.Scores = append(s.Scores, score)
}

// AverageScore returns the rounded mean of recorded scores, 0 when empty.
func (s *InterviewSession) AverageScore() int {
	if len(s.Scores) == 0 {
		return 0
	}
	sum := 0
	for _, v := range s.Scores {
		sum += v
	}
	return (sum + len(s.Scores)/2) / len(s.Scores)
}

// RecordVoice logs an approach-discussion transcript and updates the
// discussion metrics that feed code-evaluation deductions.
func (s *InterviewSession) RecordVoice(transcript, kind string, now time.Time) {
	s.VoiceResponses = append(s.VoiceResponses, VoiceResponse{
		Transcript: transcript,
		Kind:       kind,
		Timestamp:  now,
		QuestionID: s.CurrentQuestionIndex + 1,
	})
	s.Counters.DiscussionTurns++
	if IsClarification(transcript) {
		s.Counters.ClarificationQuestions++
	}
}

// RecordSubmission logs a code submission for later analysis.
func (s *InterviewSession) RecordSubmission(code, language string, now time.Time) {
	s.CodeSubmissions = append(s.CodeSubmissions, CodeSubmission{
		Code:           code,
		Language:       language,
		Timestamp:      now,
		QuestionID:     s.CurrentQuestionIndex + 1,
		HintsUsedSoFar: s.Counters.HintsUsed,
	})
}

// IsClarification reports whether a transcript reads like a clarification
// question rather than an answer.
func IsClarification(transcript string) bool {
	if strings.Contains(transcript, "?") {
		return true
	}
	lower := strings.ToLower(transcript)
	for _, m := range clarificationMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ValidTranscript filters out transcriptions that cannot be a real answer:
// blank text and the one-token-repeated garble some transcribers emit on
// silence. Short genuine answers pass.
func ValidTranscript(transcript string) bool {
	words := strings.Fields(strings.ToLower(transcript))
	if len(words) == 0 {
		return false
	}
	if len(words) >= 3 {
		repeated := true
		for _, w := range words[1:] {
			if w != words[0] {
				repeated = false
				break
			}
		}
		if repeated {
			return false
		}
	}
	return true
}

// Record projects the session into its persisted form.
func (s *InterviewSession) Record() InterviewRecord {
	return InterviewRecord{
		SessionID:            s.ID,
		UserID:               s.UserID,
		Mode:                 s.Mode,
		Topics:               s.Topics,
		StartTime:            s.StartTime,
		TotalQuestions:       len(s.Questions),
		CompletedQuestions:   len(s.Scores),
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		AverageScore:         s.AverageScore(),
		IndividualScores:     append([]int(nil), s.Scores...),
	}
}
