package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/jnv-alumni-api/internal/dto"
	"github.com/noah-isme/jnv-alumni-api/internal/models"
	"github.com/noah-isme/jnv-alumni-api/internal/repository"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
)

func validRegistration() dto.RegisterRequest {
	return dto.RegisterRequest{
		Email:            "  Ravi.Kumar@Example.com ",
		Password:         "secret1",
		Role:             "alumni",
		FullName:         "ravi  kumar",
		JoinedYear:       "2005",
		PassedOutYear:    "2012",
		JoinedClass:      "6",
		PassedOutClass:   "12",
		HallTicket:       " HT-2012-001 ",
		Mobile:           "9876543210",
		BloodGroup:       "b+",
		Profession:       "Other",
		ProfessionOther:  "wildlife photographer",
		OrganisationName: "nat geo",
		School:           "rangareddy",
		CurrentCity:      "hyderabad",
		CurrentState:     "telangana",
	}
}

func newRegistrationServiceForTest(repo *fakeAlumniRepo) (*RegistrationService, *fakeInvalidator, *fakeNotifier, *MetricsService) {
	inv := &fakeInvalidator{}
	notifier := &fakeNotifier{}
	metrics := NewMetricsService()
	return NewRegistrationService(repo, &fakeAudit{}, inv, notifier, metrics, nil, zap.NewNop(), 6), inv, notifier, metrics
}

func TestRegistrationServiceCreatesPendingRecord(t *testing.T) {
	repo := newFakeAlumniRepo()
	svc, inv, notifier, metrics := newRegistrationServiceForTest(repo)

	record, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, models.StatusPending, record.Status)
	assert.Equal(t, models.RoleUser, record.UserRole)
	assert.Equal(t, models.CategoryAlumni, record.Role)
	assert.Empty(t, record.SupportedBy)
	assert.NotNil(t, record.SupportedBy)
	assert.False(t, record.CreatedAt.IsZero())

	assert.Equal(t, "ravi.kumar@example.com", record.Email)
	assert.Equal(t, "HT-2012-001", record.HallTicket)
	assert.Equal(t, "Ravi Kumar", record.FullName)
	assert.Equal(t, "B+", record.BloodGroup)
	assert.Equal(t, "Wildlife Photographer", record.ProfessionOther)
	assert.Equal(t, "Nat Geo", record.OrganisationName)
	assert.Equal(t, "Jnv Rangareddy", record.School)
	assert.Equal(t, "Hyderabad", record.CurrentCity)
	assert.Equal(t, 2005, record.JoinedYear)
	assert.Equal(t, 2012, record.PassedOutYear)

	account := repo.accounts[record.ID]
	require.NotNil(t, account)
	assert.True(t, account.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("secret1")))

	assert.Equal(t, []string{"ravi.kumar@example.com"}, notifier.received)
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, uint64(1), metrics.Snapshot().Registrations[RegistrationCreated])
}

func TestRegistrationServiceRejectsDuplicateHallTicket(t *testing.T) {
	existing := approvedMember("u1")
	existing.HallTicket = "HT-2012-001"
	repo := newFakeAlumniRepo(existing)
	svc, _, notifier, metrics := newRegistrationServiceForTest(repo)

	_, err := svc.Register(context.Background(), validRegistration())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErr.Code)
	assert.Equal(t, "hall ticket already registered", appErr.Message)

	assert.Len(t, repo.records, 1)
	assert.Empty(t, repo.accounts)
	assert.Empty(t, notifier.received)
	assert.Equal(t, uint64(1), metrics.Snapshot().Registrations[RegistrationDuplicate])
}

func TestRegistrationServiceRejectsDuplicateEmail(t *testing.T) {
	existing := approvedMember("u1")
	existing.Email = "ravi.kumar@example.com"
	repo := newFakeAlumniRepo(existing)
	svc, _, _, _ := newRegistrationServiceForTest(repo)

	_, err := svc.Register(context.Background(), validRegistration())
	require.Error(t, err)
	assert.Equal(t, "email already registered", appErrors.FromError(err).Message)
}

func TestRegistrationServiceMapsUniqueViolations(t *testing.T) {
	repo := newFakeAlumniRepo()
	repo.registerErr = repository.ErrHallTicketTaken
	svc, _, _, _ := newRegistrationServiceForTest(repo)

	_, err := svc.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, appErrors.ErrDuplicate)

	repo.registerErr = repository.ErrEmailTaken
	_, err = svc.Register(context.Background(), validRegistration())
	require.ErrorIs(t, err, appErrors.ErrDuplicate)
	assert.Equal(t, "email already registered", appErrors.FromError(err).Message)
}

func TestRegistrationServiceValidation(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(r *dto.RegisterRequest)
		field string
	}{
		{name: "missing name", edit: func(r *dto.RegisterRequest) { r.FullName = "" }, field: "fullName"},
		{name: "bad blood group", edit: func(r *dto.RegisterRequest) { r.BloodGroup = "C+" }, field: "bloodGroup"},
		{name: "short password", edit: func(r *dto.RegisterRequest) { r.Password = "abc" }, field: "password"},
		{name: "year not numeric", edit: func(r *dto.RegisterRequest) { r.JoinedYear = "20x5" }, field: "joinedYear"},
		{name: "batch reversed", edit: func(r *dto.RegisterRequest) { r.JoinedYear = "2013" }, field: "passedOutYear"},
		{name: "other without detail", edit: func(r *dto.RegisterRequest) { r.ProfessionOther = "" }, field: "professionOther"},
		{name: "bad email", edit: func(r *dto.RegisterRequest) { r.Email = "nope" }, field: "email"},
		{name: "blank name", edit: func(r *dto.RegisterRequest) { r.FullName = "   " }, field: "fullName"},
		{name: "blank hall ticket", edit: func(r *dto.RegisterRequest) { r.HallTicket = " \t " }, field: "hallTicket"},
		{name: "blank city", edit: func(r *dto.RegisterRequest) { r.CurrentCity = "  " }, field: "currentCity"},
		{name: "lowercase other without detail", edit: func(r *dto.RegisterRequest) {
			r.Profession = "other"
			r.ProfessionOther = " "
		}, field: "professionOther"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeAlumniRepo()
			svc, _, _, _ := newRegistrationServiceForTest(repo)
			req := validRegistration()
			req.Email = "ravi@example.com"
			tc.edit(&req)

			_, err := svc.Register(context.Background(), req)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Contains(t, appErr.Fields, tc.field)
			assert.Empty(t, repo.records)
		})
	}
}

func TestRegistrationServiceClearsProfessionOther(t *testing.T) {
	repo := newFakeAlumniRepo()
	svc, _, _, _ := newRegistrationServiceForTest(repo)
	req := validRegistration()
	req.Profession = "Doctor"
	req.Role = "teacher"

	record, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, record.ProfessionOther)
	assert.Equal(t, models.CategoryTeacher, record.Role)
}

func TestRegistrationServiceTrimsBeforeValidating(t *testing.T) {
	repo := newFakeAlumniRepo()
	svc, _, _, _ := newRegistrationServiceForTest(repo)
	req := validRegistration()
	req.Email = "\t Ravi@Example.com  "
	req.Profession = " OTHER "
	req.Role = " Teacher "
	req.Password = " secret1 "

	record, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ravi@example.com", record.Email)
	assert.Equal(t, "Other", record.Profession)
	assert.Equal(t, "Wildlife Photographer", record.ProfessionOther)
	assert.Equal(t, models.CategoryTeacher, record.Role)

	account := repo.accounts[record.ID]
	require.NotNil(t, account)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(" secret1 ")))
}

func TestRegistrationServiceBlankHallTicketDoesNotClaimSlot(t *testing.T) {
	repo := newFakeAlumniRepo()
	svc, _, _, _ := newRegistrationServiceForTest(repo)

	for i := 0; i < 2; i++ {
		req := validRegistration()
		req.HallTicket = "   "
		_, err := svc.Register(context.Background(), req)
		require.ErrorIs(t, err, appErrors.ErrValidation)
	}
	assert.Empty(t, repo.records)
}
