package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/codesage-ai/interview-server/internal/adapter/observability"
	"github.com/codesage-ai/interview-server/internal/domain"
)

// CompletionCoordinator owns the terminal transition of a session. All
// completion paths converge here so the consistent final write, the
// enrichment, and the analytics event happen exactly once per session.
type CompletionCoordinator struct {
	repo      domain.SessionRepository
	enricher  *Enricher
	publisher domain.EventPublisher
}

func NewCompletionCoordinator(repo domain.SessionRepository, enricher *Enricher, publisher domain.EventPublisher) *CompletionCoordinator {
	return &CompletionCoordinator{repo: repo, enricher: enricher, publisher: publisher}
}

// Complete finalizes the session. The second and later calls return
// ErrSessionEnded without touching storage. A session whose initial insert
// failed is created on the fly so the final results are never lost.
func (c *CompletionCoordinator) Complete(ctx context.Context, sess *domain.InterviewSession, method domain.CompletionMethod, now time.Time) (domain.Summary, error) {
	if sess.Ended {
		return domain.Summary{}, fmt.Errorf("op=complete session_id=%s: %w", sess.ID, domain.ErrSessionEnded)
	}
	sess.Ended = true
	sess.Method = method
	sess.EndTime = &now

	summary := c.enricher.Enrich(ctx, sess, method)

	if !sess.Persisted {
		if err := c.repo.Create(ctx, sess.Record()); err != nil {
			slog.Error("late session insert failed",
				slog.String("session_id", sess.ID), slog.Any("error", err))
		} else {
			sess.Persisted = true
		}
	}

	completion := domain.Completion{
		EndTime:            now,
		DurationSeconds:    int(now.Sub(sess.StartTime).Seconds()),
		CompletedQuestions: len(sess.Scores),
		AverageScore:       sess.AverageScore(),
		IndividualScores:   append([]int(nil), sess.Scores...),
		FinalResults:       summary,
		Method:             method,
	}
	if err := c.repo.Complete(ctx, sess.ID, completion); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			slog.Warn("session already completed in storage",
				slog.String("session_id", sess.ID), slog.String("method", string(method)))
			return summary, nil
		}
		slog.Error("completion write failed",
			slog.String("session_id", sess.ID), slog.Any("error", err))
		return summary, fmt.Errorf("op=complete session_id=%s: %w", sess.ID, err)
	}

	observability.SessionsCompletedTotal.WithLabelValues(string(sess.Mode), string(method)).Inc()

	if c.publisher != nil {
		ev := domain.CompletedEvent{
			EventID:            ulid.Make().String(),
			SessionID:          sess.ID,
			UserID:             sess.UserID,
			Mode:               sess.Mode,
			Method:             method,
			AverageScore:       completion.AverageScore,
			CompletedQuestions: completion.CompletedQuestions,
			EndedAt:            now,
		}
		if err := c.publisher.PublishCompleted(ctx, ev); err != nil {
			slog.Warn("completed event publish failed",
				slog.String("session_id", sess.ID), slog.Any("error", err))
		}
	}
	return summary, nil
}
