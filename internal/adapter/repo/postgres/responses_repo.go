package postgres

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/codesage-ai/interview-server/internal/domain"
)

// StoreQuestionResponse appends one answered question. The unique key on
// (session_id, question_index) makes retries idempotent.
func (r *SessionRepo) StoreQuestionResponse(ctx domain.Context, qr domain.QuestionResponse) error {
	tracer := otel.Tracer("repo.responses")
	ctx, span := tracer.Start(ctx, "responses.Store")
	defer span.End()

	created := qr.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	q := `INSERT INTO question_responses
		(session_id, question_index, question_text, user_response, score, feedback,
		 time_taken_seconds, hints_used, difficulty, language, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (session_id, question_index) DO NOTHING`
	_, err := r.Pool.Exec(ctx, q, qr.SessionID, qr.QuestionIndex, qr.QuestionText, qr.UserResponse,
		qr.Score, qr.Feedback, qr.TimeTakenSeconds, qr.HintsUsed, qr.Difficulty, qr.Language, created.UTC())
	if err != nil {
		return fmt.Errorf("op=response.store: %w", err)
	}
	return nil
}

// ListResponses returns a session's answered questions in asked order.
func (r *SessionRepo) ListResponses(ctx domain.Context, sessionID string) ([]domain.QuestionResponse, error) {
	tracer := otel.Tracer("repo.responses")
	ctx, span := tracer.Start(ctx, "responses.List")
	defer span.End()

	q := `SELECT session_id, question_index, question_text, user_response, score, feedback,
		time_taken_seconds, hints_used, difficulty, language, created_at
		FROM question_responses WHERE session_id=$1 ORDER BY question_index`
	rows, err := r.Pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("op=response.list: %w", err)
	}
	defer rows.Close()

	var out []domain.QuestionResponse
	for rows.Next() {
		var qr domain.QuestionResponse
		if err := rows.Scan(&qr.SessionID, &qr.QuestionIndex, &qr.QuestionText, &qr.UserResponse,
			&qr.Score, &qr.Feedback, &qr.TimeTakenSeconds, &qr.HintsUsed, &qr.Difficulty,
			&qr.Language, &qr.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=response.list: %w", err)
		}
		out = append(out, qr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=response.list: %w", err)
	}
	return out, nil
}
