package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/jnv-alumni-api/internal/dto"
	"github.com/noah-isme/jnv-alumni-api/internal/models"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
	"github.com/noah-isme/jnv-alumni-api/pkg/textnorm"
)

const (
	defaultListPageSize = 20
	maxListPageSize     = 100
)

type contactRepository interface {
	Create(ctx context.Context, msg *models.ContactMessage) error
	List(ctx context.Context, filter models.ContactFilter) ([]models.ContactMessage, int, error)
	Delete(ctx context.Context, id string) error
}

// ContactService accepts public contact messages and lets privileged members moderate them.
type ContactService struct {
	repo      contactRepository
	viewers   alumniReader
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContactService constructs the service.
func NewContactService(repo contactRepository, viewers alumniReader, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ContactService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{repo: repo, viewers: viewers, audit: audit, validator: validate, logger: logger}
}

// Submit stores a message from the public form.
func (s *ContactService) Submit(ctx context.Context, req dto.ContactRequest) (*models.ContactMessage, error) {
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	req.Message = strings.TrimSpace(req.Message)
	if err := validateInput(s.validator, &req); err != nil {
		return nil, validationError(err, "invalid contact payload")
	}

	msg := &models.ContactMessage{
		ID:        uuid.NewString(),
		Type:      models.ContactType(req.Type),
		Email:     textnorm.NormalizeEmail(req.Email),
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, remoteError(err, "failed to store contact message")
	}
	return msg, nil
}

// List returns messages newest first.
func (s *ContactService) List(ctx context.Context, viewerID string, filter models.ContactFilter) ([]models.ContactMessage, *models.Pagination, error) {
	if err := s.authorize(ctx, viewerID); err != nil {
		return nil, nil, err
	}
	filter.Page, filter.PageSize = listBounds(filter.Page, filter.PageSize)
	messages, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, remoteError(err, "failed to list contact messages")
	}
	return messages, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Delete removes a message.
func (s *ContactService) Delete(ctx context.Context, viewerID, id string) error {
	if err := s.authorize(ctx, viewerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "contact message not found")
		}
		return remoteError(err, "failed to delete contact message")
	}
	recordAudit(ctx, s.audit, s.logger, viewerID, models.AuditActionContactDelete, models.AuditResourceContact, id, nil)
	return nil
}

func (s *ContactService) authorize(ctx context.Context, viewerID string) error {
	viewer, err := loadViewer(ctx, s.viewers, viewerID)
	if err != nil {
		return err
	}
	return requirePrivileged(viewer)
}

func listBounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxListPageSize {
		pageSize = defaultListPageSize
	}
	return page, pageSize
}
