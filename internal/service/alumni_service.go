package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/jnv-alumni-api/internal/dto"
	"github.com/noah-isme/jnv-alumni-api/internal/models"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
)

type alumniRepository interface {
	FindByID(ctx context.Context, id string) (*models.AlumniRecord, error)
	AddSupporter(ctx context.Context, id, supporterID string, at time.Time) (bool, error)
	Approve(ctx context.Context, id, approverID string, promoted models.UserRole, at time.Time) (bool, error)
	UpdateProfile(ctx context.Context, record *models.AlumniRecord) error
	UpdateDonation(ctx context.Context, id string, amount float64, transactionID, details string, at time.Time) error
	UpdateUserRole(ctx context.Context, id string, role models.UserRole, at time.Time) error
}

type approvalNotifier interface {
	RegistrationApproved(name, email string)
}

// AlumniService covers endorsement, approval and edits of individual records.
type AlumniService struct {
	repo      alumniRepository
	audit     auditRecorder
	directory directoryInvalidator
	notifier  approvalNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAlumniService constructs the service.
func NewAlumniService(repo alumniRepository, audit auditRecorder, directory directoryInvalidator, notifier approvalNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AlumniService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlumniService{
		repo:      repo,
		audit:     audit,
		directory: directory,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Me returns the caller's own record with every field.
func (s *AlumniService) Me(ctx context.Context, userID string) (*models.AlumniRecord, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	return s.find(ctx, userID, "alumni profile not found")
}

// Get returns a record projected for the viewer. Owners always see their own contact number.
func (s *AlumniService) Get(ctx context.Context, viewerID, id string) (*models.DirectoryEntry, error) {
	viewer, err := loadViewer(ctx, s.repo, viewerID)
	if err != nil {
		return nil, err
	}
	if viewer.ID == id {
		entry := Project(viewer, viewer)
		entry.Mobile = viewer.Mobile
		return &entry, nil
	}
	if err := requireDirectoryAccess(viewer); err != nil {
		return nil, err
	}
	target, err := s.find(ctx, id, "alumni not found")
	if err != nil {
		return nil, err
	}
	entry := Project(target, viewer)
	return &entry, nil
}

// Support adds the endorser to a pending record's supporters. Repeating it changes nothing.
func (s *AlumniService) Support(ctx context.Context, endorserID, targetID string) (*dto.SupportResponse, error) {
	endorser, err := loadViewer(ctx, s.repo, endorserID)
	if err != nil {
		return nil, err
	}
	if !endorser.CanViewDirectory() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only approved members can support registrations")
	}
	if endorser.ID == targetID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "you cannot support your own registration")
	}

	target, err := s.find(ctx, targetID, "alumni not found")
	if err != nil {
		return nil, err
	}
	if target.IsApproved() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration is already approved")
	}
	if target.HasSupporter(endorser.ID) {
		return supportResponse(target, false), nil
	}

	added, err := s.repo.AddSupporter(ctx, target.ID, endorser.ID, s.now())
	if err != nil {
		return nil, remoteError(err, "failed to record support")
	}
	if !added {
		current, err := s.find(ctx, targetID, "alumni not found")
		if err != nil {
			return nil, err
		}
		if current.IsApproved() {
			return nil, appErrors.Clone(appErrors.ErrConflict, "registration is already approved")
		}
		return supportResponse(current, false), nil
	}

	target.SupportedBy = append(target.SupportedBy, endorser.ID)
	s.metrics.RecordEndorsement()
	recordAudit(ctx, s.audit, s.logger, endorser.ID, models.AuditActionAlumniSupport, models.AuditResourceAlumni, target.ID, map[string]interface{}{
		"supportCount": len(target.SupportedBy),
	})
	s.invalidate(ctx)
	return supportResponse(target, true), nil
}

// Approve moves a pending record to approved. Only privileged roles may approve.
func (s *AlumniService) Approve(ctx context.Context, approverID, targetID string) (*models.AlumniRecord, error) {
	approver, err := loadViewer(ctx, s.repo, approverID)
	if err != nil {
		return nil, err
	}
	if err := requirePrivileged(approver); err != nil {
		return nil, err
	}

	target, err := s.find(ctx, targetID, "alumni not found")
	if err != nil {
		return nil, err
	}
	if target.IsApproved() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration is already approved")
	}

	promoted := target.ApprovedRole()
	at := s.now()
	ok, err := s.repo.Approve(ctx, target.ID, approver.ID, promoted, at)
	if err != nil {
		return nil, remoteError(err, "failed to approve registration")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration is already approved")
	}

	target.Status = models.StatusApproved
	target.UserRole = promoted
	target.ApprovedBy = &approver.ID
	target.ApprovedAt = &at
	target.UpdatedAt = at

	s.metrics.RecordApproval()
	recordAudit(ctx, s.audit, s.logger, approver.ID, models.AuditActionAlumniApprove, models.AuditResourceAlumni, target.ID, map[string]interface{}{
		"status":       target.Status,
		"userRole":     target.UserRole,
		"supportCount": len(target.SupportedBy),
	})
	if s.notifier != nil {
		s.notifier.RegistrationApproved(target.FullName, target.Email)
	}
	s.invalidate(ctx)

	s.logger.Info("alumni approved", zap.String("alumni_id", target.ID), zap.String("approver_id", approver.ID))
	return target, nil
}

// UpdateProfile edits the owner's non-identity fields.
func (s *AlumniService) UpdateProfile(ctx context.Context, ownerID string, req dto.UpdateProfileRequest) (*models.AlumniRecord, error) {
	if ownerID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	req.Profession = canonicalProfession(req.Profession)
	if err := validateInput(s.validator, &req); err != nil {
		return nil, validationError(err, "invalid profile payload")
	}

	record, err := s.find(ctx, ownerID, "alumni profile not found")
	if err != nil {
		return nil, err
	}

	record.FullName = req.FullName
	record.Mobile = strings.TrimSpace(req.Mobile)
	record.BloodGroup = req.BloodGroup
	record.Profession = req.Profession
	record.ProfessionOther = req.ProfessionOther
	record.OrganisationName = req.OrganisationName
	record.WorkRole = req.WorkRole
	record.School = req.School
	record.CurrentCity = req.CurrentCity
	record.CurrentState = req.CurrentState
	record.WorkCity = req.WorkCity
	record.WorkState = req.WorkState
	normalizeProfile(record)

	if err := s.repo.UpdateProfile(ctx, record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alumni profile not found")
		}
		return nil, remoteError(err, "failed to update profile")
	}

	recordAudit(ctx, s.audit, s.logger, ownerID, models.AuditActionAlumniUpdate, models.AuditResourceAlumni, record.ID, nil)
	s.invalidate(ctx)
	return record, nil
}

// RecordDonation stores donation details on a record. Treasurers and admins only.
func (s *AlumniService) RecordDonation(ctx context.Context, actorID, targetID string, req dto.DonationRequest) (*models.AlumniRecord, error) {
	actor, err := loadViewer(ctx, s.repo, actorID)
	if err != nil {
		return nil, err
	}
	if err := requireRole(actor, models.RoleTreasurer, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateInput(s.validator, &req); err != nil {
		return nil, validationError(err, "invalid donation payload")
	}

	err = s.repo.UpdateDonation(ctx, targetID, req.Amount, strings.TrimSpace(req.TransactionID), strings.TrimSpace(req.Details), s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alumni not found")
		}
		return nil, remoteError(err, "failed to record donation")
	}

	recordAudit(ctx, s.audit, s.logger, actor.ID, models.AuditActionAlumniDonation, models.AuditResourceAlumni, targetID, map[string]interface{}{
		"amount":        req.Amount,
		"transactionId": req.TransactionID,
	})
	s.invalidate(ctx)
	return s.find(ctx, targetID, "alumni not found")
}

// SetUserRole changes a record's privilege level. Admins only.
func (s *AlumniService) SetUserRole(ctx context.Context, actorID, targetID string, req dto.SetRoleRequest) (*models.AlumniRecord, error) {
	actor, err := loadViewer(ctx, s.repo, actorID)
	if err != nil {
		return nil, err
	}
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateInput(s.validator, &req); err != nil {
		return nil, validationError(err, "invalid role payload")
	}
	role, ok := models.ParseUserRole(req.UserRole)
	if !ok {
		return nil, fieldError("invalid role payload", map[string]string{"userRole": "is not a known role"})
	}
	return s.assignRole(ctx, actor.ID, targetID, role)
}

// AssignRole sets a role without an acting user. It backs the operator CLI.
func (s *AlumniService) AssignRole(ctx context.Context, targetID string, role models.UserRole) (*models.AlumniRecord, error) {
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role "+string(role))
	}
	return s.assignRole(ctx, "", targetID, role)
}

func (s *AlumniService) assignRole(ctx context.Context, actorID, targetID string, role models.UserRole) (*models.AlumniRecord, error) {
	if err := s.repo.UpdateUserRole(ctx, targetID, role, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alumni not found")
		}
		return nil, remoteError(err, "failed to update role")
	}
	recordAudit(ctx, s.audit, s.logger, actorID, models.AuditActionAlumniRoleChange, models.AuditResourceAlumni, targetID, map[string]interface{}{
		"userRole": role,
	})
	s.invalidate(ctx)
	s.logger.Info("alumni role changed", zap.String("alumni_id", targetID), zap.String("user_role", string(role)))
	return s.find(ctx, targetID, "alumni not found")
}

func (s *AlumniService) find(ctx context.Context, id, notFound string) (*models.AlumniRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, notFound)
		}
		return nil, remoteError(err, "failed to load alumni record")
	}
	return record, nil
}

func (s *AlumniService) invalidate(ctx context.Context) {
	if s.directory != nil {
		s.directory.InvalidateDirectory(ctx)
	}
}

func supportResponse(record *models.AlumniRecord, added bool) *dto.SupportResponse {
	supporters := make([]string, len(record.SupportedBy))
	copy(supporters, record.SupportedBy)
	return &dto.SupportResponse{ID: record.ID, SupportedBy: supporters, Added: added}
}
