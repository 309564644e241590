package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/codesage-ai/interview-server/internal/domain"
)

// SessionRepo persists interview sessions and their question responses.
type SessionRepo struct{ Pool PgxPool }

// NewSessionRepo constructs a SessionRepo with the given pool.
func NewSessionRepo(p PgxPool) *SessionRepo { return &SessionRepo{Pool: p} }

// Create inserts the initial session record.
func (r *SessionRepo) Create(ctx domain.Context, rec domain.InterviewRecord) error {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "interviews"),
	)

	topics, err := json.Marshal(rec.Topics)
	if err != nil {
		return fmt.Errorf("op=interview.create: %w", err)
	}
	scores, err := json.Marshal(rec.IndividualScores)
	if err != nil {
		return fmt.Errorf("op=interview.create: %w", err)
	}
	now := time.Now().UTC()
	q := `INSERT INTO interviews
		(session_id, user_id, mode, topics, start_time, total_questions, completed_questions,
		 current_question_index, average_score, individual_scores, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`
	_, err = r.Pool.Exec(ctx, q, rec.SessionID, rec.UserID, rec.Mode, topics, rec.StartTime.UTC(),
		rec.TotalQuestions, rec.CompletedQuestions, rec.CurrentQuestionIndex, rec.AverageScore, scores, now)
	if err != nil {
		return fmt.Errorf("op=interview.create: %w", err)
	}
	return nil
}

// UpdateProgress writes the non-terminal progress fields. Lost updates are
// acceptable; the completion write is the consistent one.
func (r *SessionRepo) UpdateProgress(ctx domain.Context, sessionID string, p domain.Progress) error {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.UpdateProgress")
	defer span.End()

	scores, err := json.Marshal(p.IndividualScores)
	if err != nil {
		return fmt.Errorf("op=interview.update_progress: %w", err)
	}
	q := `UPDATE interviews SET current_question_index=$2, completed_questions=$3,
		average_score=$4, individual_scores=$5, updated_at=$6
		WHERE session_id=$1 AND completion_method IS NULL`
	tag, err := r.Pool.Exec(ctx, q, sessionID, p.CurrentQuestionIndex, p.CompletedQuestions,
		p.AverageScore, scores, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=interview.update_progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=interview.update_progress session_id=%s: %w", sessionID, domain.ErrNotFound)
	}
	return nil
}

// Complete writes the terminal state. The guard on completion_method makes
// the first writer win; later writers get ErrConflict.
func (r *SessionRepo) Complete(ctx domain.Context, sessionID string, c domain.Completion) error {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("completion.method", string(c.Method)))

	results, err := json.Marshal(c.FinalResults)
	if err != nil {
		return fmt.Errorf("op=interview.complete: %w", err)
	}
	scores, err := json.Marshal(c.IndividualScores)
	if err != nil {
		return fmt.Errorf("op=interview.complete: %w", err)
	}
	q := `UPDATE interviews SET end_time=$2, duration_seconds=$3, completed_questions=$4,
		average_score=$5, individual_scores=$6, final_results=$7, completion_method=$8, updated_at=$9
		WHERE session_id=$1 AND completion_method IS NULL`
	tag, err := r.Pool.Exec(ctx, q, sessionID, c.EndTime.UTC(), c.DurationSeconds,
		c.CompletedQuestions, c.AverageScore, scores, results, c.Method, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=interview.complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if qerr := r.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM interviews WHERE session_id=$1)`, sessionID).Scan(&exists); qerr == nil && !exists {
			return fmt.Errorf("op=interview.complete session_id=%s: %w", sessionID, domain.ErrNotFound)
		}
		return fmt.Errorf("op=interview.complete session_id=%s: %w", sessionID, domain.ErrConflict)
	}
	return nil
}

const recordColumns = `session_id, user_id, mode, topics, start_time, end_time, duration_seconds,
	total_questions, completed_questions, current_question_index, average_score,
	individual_scores, completion_method, final_results, created_at, updated_at`

// Get loads one session record.
func (r *SessionRepo) Get(ctx domain.Context, sessionID string) (domain.InterviewRecord, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Get")
	defer span.End()

	row := r.Pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM interviews WHERE session_id=$1`, sessionID)
	rec, err := scanRecord(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.InterviewRecord{}, fmt.Errorf("op=interview.get session_id=%s: %w", sessionID, domain.ErrNotFound)
		}
		return domain.InterviewRecord{}, fmt.Errorf("op=interview.get: %w", err)
	}
	return rec, nil
}

// ListByUser returns a user's sessions, newest first.
func (r *SessionRepo) ListByUser(ctx domain.Context, userID string, limit, offset int) ([]domain.InterviewRecord, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.ListByUser")
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+recordColumns+` FROM interviews
		WHERE user_id=$1 ORDER BY start_time DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("op=interview.list: %w", err)
	}
	defer rows.Close()

	var out []domain.InterviewRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("op=interview.list: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=interview.list: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (domain.InterviewRecord, error) {
	var (
		rec      domain.InterviewRecord
		topics   []byte
		scores   []byte
		method   *string
		results  []byte
		duration *int
	)
	err := row.Scan(&rec.SessionID, &rec.UserID, &rec.Mode, &topics, &rec.StartTime, &rec.EndTime,
		&duration, &rec.TotalQuestions, &rec.CompletedQuestions, &rec.CurrentQuestionIndex,
		&rec.AverageScore, &scores, &method, &results, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return domain.InterviewRecord{}, err
	}
	if duration != nil {
		rec.DurationSeconds = *duration
	}
	if len(topics) > 0 {
		if err := json.Unmarshal(topics, &rec.Topics); err != nil {
			return domain.InterviewRecord{}, err
		}
	}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &rec.IndividualScores); err != nil {
			return domain.InterviewRecord{}, err
		}
	}
	if method != nil {
		m := domain.CompletionMethod(*method)
		rec.CompletionMethod = &m
	}
	if len(results) > 0 {
		var sum domain.Summary
		if err := json.Unmarshal(results, &sum); err != nil {
			return domain.InterviewRecord{}, err
		}
		rec.FinalResults = &sum
	}
	return rec, nil
}
