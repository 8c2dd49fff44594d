package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jnv-alumni-api/internal/models"
)

var suggestionRowColumns = []string{"id", "name", "email", "phone", "profession", "role", "organisation", "message", "requested_by_email", "requested_by_id", "created_at"}

func TestSuggestionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSuggestionRepository(db)

	mock.ExpectExec("INSERT INTO alumni_suggestions").WillReturnResult(sqlmock.NewResult(1, 1))

	s := &models.AlumniSuggestion{Name: "Ravi", Email: "ravi@example.com", RequestedByEmail: "asha@example.com"}
	require.NoError(t, repo.Create(context.Background(), s))
	assert.NotEmpty(t, s.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuggestionRepositoryCompleteMovesToHistory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSuggestionRepository(db)

	created := time.Now().Add(-time.Hour)
	completed := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM alumni_suggestions WHERE id = $1 FOR UPDATE")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(suggestionRowColumns).
			AddRow("s1", "Ravi", "ravi@example.com", "", "", "", "", "", "asha@example.com", "u1", created))
	mock.ExpectExec("INSERT INTO alumni_suggestion_history").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM alumni_suggestions WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry, err := repo.Complete(context.Background(), "s1", "Invited", completed)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", entry.Name)
	assert.Equal(t, "Invited", entry.StatusMessage)
	assert.Equal(t, completed, entry.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuggestionRepositoryCompleteMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSuggestionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM alumni_suggestions WHERE id").WithArgs("nope").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Complete(context.Background(), "nope", "x", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuggestionRepositoryListHistory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSuggestionRepository(db)

	now := time.Now()
	cols := append(append([]string{}, suggestionRowColumns...), "status_message", "completed_at")
	mock.ExpectQuery(regexp.QuoteMeta("FROM alumni_suggestion_history ORDER BY completed_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("s1", "Ravi", "ravi@example.com", "", "", "", "", "", "asha@example.com", "", now, "Invited", now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM alumni_suggestion_history")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.ListHistory(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Invited", items[0].StatusMessage)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
