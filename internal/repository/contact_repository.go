package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/jnv-alumni-api/internal/models"
)

// ContactRepository stores messages from the public contact form.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository constructs the repository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create inserts a message.
func (r *ContactRepository) Create(ctx context.Context, msg *models.ContactMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO contact_messages (id, type, email, message, created_at) VALUES (:id, :type, :email, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("create contact message: %w", err)
	}
	return nil
}

// List returns messages newest first with the total count.
func (r *ContactRepository) List(ctx context.Context, filter models.ContactFilter) ([]models.ContactMessage, int, error) {
	baseQuery := `FROM contact_messages`
	var args []interface{}
	if filter.Type != "" {
		baseQuery += ` WHERE type = $1`
		args = append(args, string(filter.Type))
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT id, type, email, message, created_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, (page-1)*pageSize)

	messages := []models.ContactMessage{}
	if err := r.db.SelectContext(ctx, &messages, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list contact messages: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count contact messages: %w", err)
	}
	return messages, total, nil
}

// Delete removes a message; a missing id yields sql.ErrNoRows.
func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM contact_messages WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete contact message: %w", err)
	}
	changed, err := rowsChanged(res, "delete contact message")
	if err != nil {
		return err
	}
	if !changed {
		return sql.ErrNoRows
	}
	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
