package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/jnv-alumni-api/internal/dto"
	"github.com/noah-isme/jnv-alumni-api/internal/models"
	"github.com/noah-isme/jnv-alumni-api/internal/repository"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
	"github.com/noah-isme/jnv-alumni-api/pkg/textnorm"
)

const professionOther = "Other"

type registrationRepository interface {
	ExistsByHallTicket(ctx context.Context, hallTicket string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Register(ctx context.Context, account *models.Account, record *models.AlumniRecord) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type directoryInvalidator interface {
	InvalidateDirectory(ctx context.Context)
}

type registrationNotifier interface {
	RegistrationReceived(name, email string)
}

// RegistrationService admits new registrants as pending records.
type RegistrationService struct {
	repo              registrationRepository
	audit             auditRecorder
	directory         directoryInvalidator
	notifier          registrationNotifier
	metrics           *MetricsService
	validator         *validator.Validate
	logger            *zap.Logger
	minPasswordLength int
}

// NewRegistrationService constructs the service. minPasswordLength below 6 is raised to 6.
func NewRegistrationService(repo registrationRepository, audit auditRecorder, directory directoryInvalidator, notifier registrationNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, minPasswordLength int) *RegistrationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if minPasswordLength < 6 {
		minPasswordLength = 6
	}
	return &RegistrationService{
		repo:              repo,
		audit:             audit,
		directory:         directory,
		notifier:          notifier,
		metrics:           metrics,
		validator:         validate,
		logger:            logger,
		minPasswordLength: minPasswordLength,
	}
}

// Register validates and normalises the form, rejects duplicates and stores a pending record.
func (s *RegistrationService) Register(ctx context.Context, req dto.RegisterRequest) (*models.AlumniRecord, error) {
	record, password, err := s.buildRecord(req)
	if err != nil {
		s.metrics.RecordRegistration(RegistrationInvalid)
		return nil, err
	}

	if err := s.checkDuplicates(ctx, record); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.metrics.RecordRegistration(RegistrationFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        record.Email,
		PasswordHash: string(hash),
		PhotoURL:     record.PhotoURL,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	record.ID = account.ID
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := s.repo.Register(ctx, account, record); err != nil {
		switch {
		case errors.Is(err, repository.ErrHallTicketTaken):
			s.metrics.RecordRegistration(RegistrationDuplicate)
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "hall ticket already registered")
		case errors.Is(err, repository.ErrEmailTaken):
			s.metrics.RecordRegistration(RegistrationDuplicate)
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "email already registered")
		}
		s.metrics.RecordRegistration(RegistrationFailed)
		return nil, remoteError(err, "failed to store registration")
	}

	s.metrics.RecordRegistration(RegistrationCreated)
	recordAudit(ctx, s.audit, s.logger, record.ID, models.AuditActionAlumniRegister, models.AuditResourceAlumni, record.ID, map[string]interface{}{
		"hallTicket": record.HallTicket,
		"role":       record.Role,
		"status":     record.Status,
	})
	if s.notifier != nil {
		s.notifier.RegistrationReceived(record.FullName, record.Email)
	}
	if s.directory != nil {
		s.directory.InvalidateDirectory(ctx)
	}

	s.logger.Info("alumni registered", zap.String("alumni_id", record.ID), zap.String("role", string(record.Role)))
	return record, nil
}

func (s *RegistrationService) buildRecord(req dto.RegisterRequest) (*models.AlumniRecord, string, error) {
	req.Profession = canonicalProfession(req.Profession)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := validateInput(s.validator, &req); err != nil {
		return nil, "", validationError(err, "invalid registration payload")
	}
	if len(req.Password) < s.minPasswordLength {
		return nil, "", fieldError("invalid registration payload", map[string]string{
			"password": "must be at least " + strconv.Itoa(s.minPasswordLength) + " characters",
		})
	}

	joined, _ := strconv.Atoi(req.JoinedYear)
	passedOut, _ := strconv.Atoi(req.PassedOutYear)
	if joined > passedOut {
		return nil, "", fieldError("invalid registration payload", map[string]string{
			"passedOutYear": "must not be earlier than joinedYear",
		})
	}

	category := models.AlumniCategory(strings.ToLower(req.Role))
	if !category.Valid() {
		category = models.CategoryAlumni
	}

	record := &models.AlumniRecord{
		Role:             category,
		UserRole:         models.RoleUser,
		Status:           models.StatusPending,
		FullName:         req.FullName,
		Email:            textnorm.NormalizeEmail(req.Email),
		Mobile:           strings.TrimSpace(req.Mobile),
		HallTicket:       strings.TrimSpace(req.HallTicket),
		BloodGroup:       req.BloodGroup,
		Profession:       req.Profession,
		ProfessionOther:  req.ProfessionOther,
		OrganisationName: req.OrganisationName,
		WorkRole:         req.WorkRole,
		School:           req.School,
		PhotoURL:         strings.TrimSpace(req.PhotoURL),
		JoinedYear:       joined,
		PassedOutYear:    passedOut,
		JoinedClass:      strings.TrimSpace(req.JoinedClass),
		PassedOutClass:   strings.TrimSpace(req.PassedOutClass),
		CurrentCity:      req.CurrentCity,
		CurrentState:     req.CurrentState,
		WorkCity:         req.WorkCity,
		WorkState:        req.WorkState,
		SupportedBy:      pq.StringArray{},
	}
	if req.DonationAmount != nil {
		amount := *req.DonationAmount
		record.DonationAmount = &amount
		record.TransactionID = strings.TrimSpace(req.TransactionID)
		record.DonationDetails = strings.TrimSpace(req.DonationDetails)
	}
	normalizeProfile(record)
	return record, req.Password, nil
}

func (s *RegistrationService) checkDuplicates(ctx context.Context, record *models.AlumniRecord) error {
	taken, err := s.repo.ExistsByHallTicket(ctx, record.HallTicket)
	if err != nil {
		s.metrics.RecordRegistration(RegistrationFailed)
		return remoteError(err, "failed to check hall ticket")
	}
	if taken {
		s.metrics.RecordRegistration(RegistrationDuplicate)
		return appErrors.Clone(appErrors.ErrDuplicate, "hall ticket already registered")
	}

	taken, err = s.repo.ExistsByEmail(ctx, record.Email)
	if err != nil {
		s.metrics.RecordRegistration(RegistrationFailed)
		return remoteError(err, "failed to check email")
	}
	if taken {
		s.metrics.RecordRegistration(RegistrationDuplicate)
		return appErrors.Clone(appErrors.ErrDuplicate, "email already registered")
	}
	return nil
}

// normalizeProfile applies the casing rules shared by registration and profile edits.
func normalizeProfile(record *models.AlumniRecord) {
	record.FullName = textnorm.TitleCase(record.FullName)
	record.BloodGroup = strings.ToUpper(strings.TrimSpace(record.BloodGroup))
	record.Profession = canonicalProfession(record.Profession)
	if record.Profession == professionOther {
		record.ProfessionOther = textnorm.TitleCase(record.ProfessionOther)
	} else {
		record.ProfessionOther = ""
	}
	record.OrganisationName = textnorm.TitleCase(record.OrganisationName)
	record.WorkRole = textnorm.TitleCase(record.WorkRole)
	record.School = textnorm.FormatSchoolName(record.School)
	record.CurrentCity = textnorm.TitleCase(record.CurrentCity)
	record.CurrentState = textnorm.TitleCase(record.CurrentState)
	record.WorkCity = textnorm.TitleCase(record.WorkCity)
	record.WorkState = textnorm.TitleCase(record.WorkState)
}
