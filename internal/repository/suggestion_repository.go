package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/jnv-alumni-api/internal/models"
)

const suggestionColumns = `id, name, email, phone, profession, role, organisation, message, requested_by_email, requested_by_id, created_at`

// SuggestionRepository stores open suggestions and their completed history.
type SuggestionRepository struct {
	db *sqlx.DB
}

// NewSuggestionRepository constructs the repository.
func NewSuggestionRepository(db *sqlx.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

// Create inserts an open suggestion.
func (r *SuggestionRepository) Create(ctx context.Context, s *models.AlumniSuggestion) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO alumni_suggestions (id, name, email, phone, profession, role, organisation, message, requested_by_email, requested_by_id, created_at) VALUES (:id, :name, :email, :phone, :profession, :role, :organisation, :message, :requested_by_email, :requested_by_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("create suggestion: %w", err)
	}
	return nil
}

// List returns open suggestions newest first.
func (r *SuggestionRepository) List(ctx context.Context, page, pageSize int) ([]models.AlumniSuggestion, int, error) {
	page, pageSize = normalizePage(page, pageSize)
	query := fmt.Sprintf("SELECT %s FROM alumni_suggestions ORDER BY created_at DESC LIMIT %d OFFSET %d", suggestionColumns, pageSize, (page-1)*pageSize)

	items := []models.AlumniSuggestion{}
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, 0, fmt.Errorf("list suggestions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM alumni_suggestions`); err != nil {
		return nil, 0, fmt.Errorf("count suggestions: %w", err)
	}
	return items, total, nil
}

// ListHistory returns completed suggestions, most recently completed first.
func (r *SuggestionRepository) ListHistory(ctx context.Context, page, pageSize int) ([]models.SuggestionHistory, int, error) {
	page, pageSize = normalizePage(page, pageSize)
	query := fmt.Sprintf("SELECT %s, status_message, completed_at FROM alumni_suggestion_history ORDER BY completed_at DESC LIMIT %d OFFSET %d", suggestionColumns, pageSize, (page-1)*pageSize)

	items := []models.SuggestionHistory{}
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, 0, fmt.Errorf("list suggestion history: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM alumni_suggestion_history`); err != nil {
		return nil, 0, fmt.Errorf("count suggestion history: %w", err)
	}
	return items, total, nil
}

// Complete moves a suggestion into history with the given status message.
// A missing suggestion yields sql.ErrNoRows.
func (r *SuggestionRepository) Complete(ctx context.Context, id, statusMessage string, at time.Time) (entry *models.SuggestionHistory, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin complete suggestion: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var open models.AlumniSuggestion
	selectQuery := `SELECT ` + suggestionColumns + ` FROM alumni_suggestions WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &open, selectQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("load suggestion: %w", err)
	}

	entry = &models.SuggestionHistory{AlumniSuggestion: open, StatusMessage: statusMessage, CompletedAt: at}
	const insertQuery = `INSERT INTO alumni_suggestion_history (id, name, email, phone, profession, role, organisation, message, requested_by_email, requested_by_id, status_message, created_at, completed_at) VALUES (:id, :name, :email, :phone, :profession, :role, :organisation, :message, :requested_by_email, :requested_by_id, :status_message, :created_at, :completed_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, entry); err != nil {
		return nil, fmt.Errorf("archive suggestion: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM alumni_suggestions WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("remove suggestion: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit complete suggestion: %w", err)
	}
	return entry, nil
}
