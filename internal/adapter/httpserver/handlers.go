package httpserver

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/codesage-ai/interview-server/internal/config"
	"github.com/codesage-ai/interview-server/internal/domain"
)

// Server aggregates the REST handler dependencies.
type Server struct {
	Cfg        config.Config
	Repo       domain.SessionRepository
	Resumes    domain.ResumeStore
	Extractor  domain.TextExtractor
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs a REST server with all handlers wired.
func NewServer(cfg config.Config, repo domain.SessionRepository, resumes domain.ResumeStore, extractor domain.TextExtractor, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Repo: repo, Resumes: resumes, Extractor: extractor, DBCheck: dbCheck, RedisCheck: redisCheck}
}

// allowedExt enforces an allowlist for resume uploads: .txt and .pdf.
func allowedExt(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".txt") || strings.HasSuffix(n, ".pdf")
}

func allowedMIME(m string) bool {
	m = strings.ToLower(m)
	if strings.HasPrefix(m, "text/plain") {
		return true
	}
	return m == "application/pdf"
}

// UploadResumeHandler accepts a multipart resume file, extracts its text and
// stores it for a later interview session to claim.
func (s *Server) UploadResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code: "INVALID_ARGUMENT", Message: "payload too large",
					Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		file, header, err := r.FormFile("resume")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: resume file required", domain.ErrInvalidArgument), map[string]string{"field": "resume"})
			return
		}
		defer func() { _ = file.Close() }()

		if !allowedExt(header.Filename) {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "unsupported media type (extension)",
				Details: map[string]any{"filename": header.Filename},
			}})
			return
		}
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: resume read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		mime := mimetype.Detect(data)
		if !allowedMIME(mime.String()) {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "unsupported media type (content)",
				Details: map[string]any{"mime": mime.String(), "filename": header.Filename},
			}})
			return
		}

		text, err := s.extractText(r.Context(), header.Filename, data)
		if err != nil {
			writeError(w, r, fmt.Errorf("resume extract: %w", err), nil)
			return
		}
		id, err := s.Resumes.Put(r.Context(), text)
		if err != nil {
			writeError(w, r, fmt.Errorf("resume store: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"resume_id": id})
	}
}

// extractText stages the upload in a temp file so the extractor can sniff
// the real content type from disk.
func (s *Server) extractText(ctx context.Context, filename string, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "resume-*"+filepath.Ext(filename))
	if err != nil {
		return "", fmt.Errorf("op=upload.tempfile: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()); _ = tmp.Close() }()
	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("op=upload.tempfile: %w", err)
	}
	return s.Extractor.ExtractPath(ctx, filename, tmp.Name())
}

type interviewSummary struct {
	SessionID          string    `json:"session_id"`
	Mode               string    `json:"mode"`
	Topics             []string  `json:"topics"`
	StartTime          time.Time `json:"start_time"`
	DurationSeconds    int       `json:"duration_seconds"`
	TotalQuestions     int       `json:"total_questions"`
	CompletedQuestions int       `json:"completed_questions"`
	AverageScore       int       `json:"average_score"`
	Status             string    `json:"status"`
	CompletionMethod   string    `json:"completion_method,omitempty"`
}

// deriveStatus projects the stored completion method onto the three-valued
// status the clients filter on.
func deriveStatus(method *domain.CompletionMethod) string {
	if method == nil {
		return "in_progress"
	}
	switch *method {
	case domain.CompletedTimeout, domain.CompletedDisconnected:
		return "incomplete"
	default:
		return "completed"
	}
}

func toSummary(rec domain.InterviewRecord) interviewSummary {
	out := interviewSummary{
		SessionID:          rec.SessionID,
		Mode:               string(rec.Mode),
		Topics:             rec.Topics,
		StartTime:          rec.StartTime,
		DurationSeconds:    rec.DurationSeconds,
		TotalQuestions:     rec.TotalQuestions,
		CompletedQuestions: rec.CompletedQuestions,
		AverageScore:       rec.AverageScore,
		Status:             deriveStatus(rec.CompletionMethod),
	}
	if rec.CompletionMethod != nil {
		out.CompletionMethod = string(*rec.CompletionMethod)
	}
	return out
}

// ListInterviewsHandler returns the caller's interview history, newest first.
func (s *Server) ListInterviewsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 20)
		offset := queryInt(r, "offset", 0)
		recs, err := s.Repo.ListByUser(r.Context(), UserIDFrom(r), limit, offset)
		if err != nil {
			writeError(w, r, fmt.Errorf("list interviews: %w", err), nil)
			return
		}
		items := make([]interviewSummary, 0, len(recs))
		for _, rec := range recs {
			items = append(items, toSummary(rec))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"interviews": items,
			"limit":      limit,
			"offset":     offset,
		})
	}
}

// GetInterviewHandler returns one interview with its question responses.
func (s *Server) GetInterviewHandler() http.HandlerFunc {
	type response struct {
		QuestionIndex    int    `json:"question_index"`
		QuestionText     string `json:"question_text"`
		UserResponse     string `json:"user_response"`
		Score            int    `json:"score"`
		Feedback         string `json:"feedback"`
		TimeTakenSeconds int    `json:"time_taken_seconds"`
		HintsUsed        int    `json:"hints_used"`
		Difficulty       string `json:"difficulty"`
		Language         string `json:"language,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "session_id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: session_id missing", domain.ErrInvalidArgument), nil)
			return
		}
		rec, err := s.Repo.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, fmt.Errorf("get interview: %w", err), nil)
			return
		}
		// Records belong to their owner; everyone else sees not found.
		if rec.UserID != UserIDFrom(r) {
			writeError(w, r, fmt.Errorf("get interview: %w", domain.ErrNotFound), nil)
			return
		}
		qrs, err := s.Repo.ListResponses(r.Context(), id)
		if err != nil {
			writeError(w, r, fmt.Errorf("list responses: %w", err), nil)
			return
		}
		responses := make([]response, 0, len(qrs))
		for _, qr := range qrs {
			responses = append(responses, response{
				QuestionIndex:    qr.QuestionIndex,
				QuestionText:     qr.QuestionText,
				UserResponse:     qr.UserResponse,
				Score:            qr.Score,
				Feedback:         qr.Feedback,
				TimeTakenSeconds: qr.TimeTakenSeconds,
				HintsUsed:        qr.HintsUsed,
				Difficulty:       string(qr.Difficulty),
				Language:         qr.Language,
			})
		}
		out := map[string]any{
			"interview": toSummary(rec),
			"responses": responses,
		}
		if rec.FinalResults != nil {
			out["results"] = rec.FinalResults
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// StatsOverviewHandler aggregates the caller's history into headline numbers.
func (s *Server) StatsOverviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := s.Repo.ListByUser(r.Context(), UserIDFrom(r), 100, 0)
		if err != nil {
			writeError(w, r, fmt.Errorf("stats: %w", err), nil)
			return
		}
		var completed, scoreSum, scored, practiceSeconds int
		byMode := map[string]int{}
		for _, rec := range recs {
			byMode[string(rec.Mode)]++
			practiceSeconds += rec.DurationSeconds
			if deriveStatus(rec.CompletionMethod) == "completed" {
				completed++
			}
			if rec.AverageScore > 0 {
				scoreSum += rec.AverageScore
				scored++
			}
		}
		avg := 0
		if scored > 0 {
			avg = scoreSum / scored
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total_interviews":       len(recs),
			"completed_interviews":   completed,
			"average_score":          avg,
			"total_practice_seconds": practiceSeconds,
			"by_mode":                byMode,
		})
	}
}

var exportHeader = []string{
	"session_id", "mode", "start_time", "duration_seconds",
	"total_questions", "completed_questions", "average_score",
	"status", "completion_method",
}

// ExportInterviewsHandler streams the caller's history as CSV or JSON.
func (s *Server) ExportInterviewsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		if format == "" {
			format = "csv"
		}
		if format != "csv" && format != "json" {
			writeError(w, r, fmt.Errorf("%w: format must be csv or json", domain.ErrInvalidArgument), map[string]string{"format": format})
			return
		}
		recs, err := s.Repo.ListByUser(r.Context(), UserIDFrom(r), 100, 0)
		if err != nil {
			writeError(w, r, fmt.Errorf("export: %w", err), nil)
			return
		}
		if format == "json" {
			items := make([]interviewSummary, 0, len(recs))
			for _, rec := range recs {
				items = append(items, toSummary(rec))
			}
			w.Header().Set("Content-Disposition", `attachment; filename="interviews.json"`)
			writeJSON(w, http.StatusOK, map[string]any{"interviews": items})
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="interviews.csv"`)
		cw := csv.NewWriter(w)
		_ = cw.Write(exportHeader)
		for _, rec := range recs {
			sum := toSummary(rec)
			_ = cw.Write([]string{
				sum.SessionID,
				sum.Mode,
				sum.StartTime.UTC().Format(time.RFC3339),
				strconv.Itoa(sum.DurationSeconds),
				strconv.Itoa(sum.TotalQuestions),
				strconv.Itoa(sum.CompletedQuestions),
				strconv.Itoa(sum.AverageScore),
				sum.Status,
				sum.CompletionMethod,
			})
		}
		cw.Flush()
	}
}

// ReadyzHandler probes the backing stores.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		if s.DBCheck != nil {
			c := check{Name: "db", OK: true}
			if err := s.DBCheck(ctx); err != nil {
				c.OK, c.Details = false, err.Error()
			}
			checks = append(checks, c)
		}
		if s.RedisCheck != nil {
			c := check{Name: "redis", OK: true}
			if err := s.RedisCheck(ctx); err != nil {
				c.OK, c.Details = false, err.Error()
			}
			checks = append(checks, c)
		}
		status := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				status = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, status, map[string]any{"checks": checks})
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
