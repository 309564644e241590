package postgres_test

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesage-ai/interview-server/internal/domain"
)

func TestStoreQuestionResponse(t *testing.T) {
	t.Parallel()
	repo, m := newMockRepo(t)

	m.ExpectExec("INSERT INTO question_responses").
		WithArgs("sess-1", 2, "Reverse a list", "def rev(): ...", 75, "Good.",
			120, 1, domain.DifficultyMedium, "python", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.StoreQuestionResponse(context.Background(), domain.QuestionResponse{
		SessionID:        "sess-1",
		QuestionIndex:    2,
		QuestionText:     "Reverse a list",
		UserResponse:     "def rev(): ...",
		Score:            75,
		Feedback:         "Good.",
		TimeTakenSeconds: 120,
		HintsUsed:        1,
		Difficulty:       domain.DifficultyMedium,
		Language:         "python",
	})
	require.NoError(t, err)
	require.NoError(t, m.ExpectationsWereMet())
}

func TestListResponses_OrderedByIndex(t *testing.T) {
	t.Parallel()
	repo, m := newMockRepo(t)

	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"session_id", "question_index", "question_text", "user_response", "score",
		"feedback", "time_taken_seconds", "hints_used", "difficulty", "language", "created_at",
	}).
		AddRow("sess-1", 1, "q1", "a1", 80, "f1", 60, 0, domain.DifficultyEasy, "python", now).
		AddRow("sess-1", 2, "q2", "a2", 70, "f2", 90, 2, domain.DifficultyMedium, "python", now)

	m.ExpectQuery("SELECT (.+) FROM question_responses").
		WithArgs("sess-1").
		WillReturnRows(rows)

	out, err := repo.ListResponses(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].QuestionIndex)
	assert.Equal(t, 2, out[1].QuestionIndex)
	assert.Equal(t, 2, out[1].HintsUsed)
}
