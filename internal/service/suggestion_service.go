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

type suggestionRepository interface {
	Create(ctx context.Context, s *models.AlumniSuggestion) error
	List(ctx context.Context, page, pageSize int) ([]models.AlumniSuggestion, int, error)
	ListHistory(ctx context.Context, page, pageSize int) ([]models.SuggestionHistory, int, error)
	Complete(ctx context.Context, id, statusMessage string, at time.Time) (*models.SuggestionHistory, error)
}

// SuggestionService records who members would like invited and tracks follow-up.
type SuggestionService struct {
	repo      suggestionRepository
	viewers   alumniReader
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSuggestionService constructs the service.
func NewSuggestionService(repo suggestionRepository, viewers alumniReader, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *SuggestionService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionService{repo: repo, viewers: viewers, audit: audit, validator: validate, logger: logger}
}

// Submit stores a suggestion on behalf of the authenticated requester.
func (s *SuggestionService) Submit(ctx context.Context, requesterID, requesterEmail string, req dto.SuggestionRequest) (*models.AlumniSuggestion, error) {
	if requesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if err := validateInput(s.validator, &req); err != nil {
		return nil, validationError(err, "invalid suggestion payload")
	}

	suggestion := &models.AlumniSuggestion{
		ID:               uuid.NewString(),
		Name:             textnorm.TitleCase(req.Name),
		Email:            textnorm.NormalizeEmail(req.Email),
		Phone:            strings.TrimSpace(req.Phone),
		Profession:       strings.TrimSpace(req.Profession),
		Role:             strings.TrimSpace(req.Role),
		Organisation:     textnorm.TitleCase(req.Organisation),
		Message:          strings.TrimSpace(req.Message),
		RequestedByEmail: textnorm.NormalizeEmail(requesterEmail),
		RequestedByID:    requesterID,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, suggestion); err != nil {
		return nil, remoteError(err, "failed to store suggestion")
	}
	return suggestion, nil
}

// List returns open suggestions.
func (s *SuggestionService) List(ctx context.Context, viewerID string, page, pageSize int) ([]models.AlumniSuggestion, *models.Pagination, error) {
	if err := s.authorize(ctx, viewerID); err != nil {
		return nil, nil, err
	}
	page, pageSize = listBounds(page, pageSize)
	items, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, nil, remoteError(err, "failed to list suggestions")
	}
	return items, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Complete closes a suggestion and moves it into history.
func (s *SuggestionService) Complete(ctx context.Context, viewerID, id string, req dto.CompleteSuggestionRequest) (*models.SuggestionHistory, error) {
	if err := s.authorize(ctx, viewerID); err != nil {
		return nil, err
	}
	if err := validateInput(s.validator, &req); err != nil {
		return nil, validationError(err, "invalid completion payload")
	}

	entry, err := s.repo.Complete(ctx, id, strings.TrimSpace(req.StatusMessage), time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "suggestion not found")
		}
		return nil, remoteError(err, "failed to complete suggestion")
	}
	recordAudit(ctx, s.audit, s.logger, viewerID, models.AuditActionSuggestionComplete, models.AuditResourceSuggestion, id, map[string]interface{}{
		"statusMessage": entry.StatusMessage,
	})
	return entry, nil
}

// History returns completed suggestions.
func (s *SuggestionService) History(ctx context.Context, viewerID string, page, pageSize int) ([]models.SuggestionHistory, *models.Pagination, error) {
	if err := s.authorize(ctx, viewerID); err != nil {
		return nil, nil, err
	}
	page, pageSize = listBounds(page, pageSize)
	items, total, err := s.repo.ListHistory(ctx, page, pageSize)
	if err != nil {
		return nil, nil, remoteError(err, "failed to list suggestion history")
	}
	return items, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *SuggestionService) authorize(ctx context.Context, viewerID string) error {
	viewer, err := loadViewer(ctx, s.viewers, viewerID)
	if err != nil {
		return err
	}
	return requirePrivileged(viewer)
}
