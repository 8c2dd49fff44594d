package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/jnv-alumni-api/internal/dto"
	"github.com/noah-isme/jnv-alumni-api/internal/models"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
)

type fakeAlumniRepo struct {
	mu          sync.Mutex
	records     map[string]*models.AlumniRecord
	accounts    map[string]*models.Account
	registerErr error
	listErr     error
	listCalls   int
}

func newFakeAlumniRepo(records ...models.AlumniRecord) *fakeAlumniRepo {
	repo := &fakeAlumniRepo{records: make(map[string]*models.AlumniRecord), accounts: make(map[string]*models.Account)}
	for i := range records {
		r := records[i]
		if r.SupportedBy == nil {
			r.SupportedBy = pq.StringArray{}
		}
		repo.records[r.ID] = &r
	}
	return repo
}

func (f *fakeAlumniRepo) FindByID(ctx context.Context, id string) (*models.AlumniRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *r
	copy.SupportedBy = append(pq.StringArray{}, r.SupportedBy...)
	return &copy, nil
}

func (f *fakeAlumniRepo) FindByIDs(ctx context.Context, ids []string) ([]models.AlumniRecord, error) {
	out := []models.AlumniRecord{}
	for _, id := range ids {
		if r, err := f.FindByID(ctx, id); err == nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeAlumniRepo) ListAll(ctx context.Context) ([]models.AlumniRecord, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AlumniRecord, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeAlumniRepo) ExistsByHallTicket(ctx context.Context, hallTicket string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.HallTicket == hallTicket {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAlumniRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.Email == email {
			return true, nil
		}
	}
	for _, a := range f.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAlumniRepo) Register(ctx context.Context, account *models.Account, record *models.AlumniRecord) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := *account
	r := *record
	f.accounts[a.ID] = &a
	f.records[r.ID] = &r
	return nil
}

func (f *fakeAlumniRepo) AddSupporter(ctx context.Context, id, supporterID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok || r.Status != models.StatusPending || r.HasSupporter(supporterID) {
		return false, nil
	}
	r.SupportedBy = append(r.SupportedBy, supporterID)
	r.UpdatedAt = at
	return true, nil
}

func (f *fakeAlumniRepo) Approve(ctx context.Context, id, approverID string, promoted models.UserRole, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok || r.Status != models.StatusPending {
		return false, nil
	}
	r.Status = models.StatusApproved
	r.ApprovedBy = &approverID
	r.ApprovedAt = &at
	if r.UserRole == models.RoleUser {
		r.UserRole = promoted
	}
	return true, nil
}

func (f *fakeAlumniRepo) UpdateProfile(ctx context.Context, record *models.AlumniRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[record.ID]
	if !ok {
		return sql.ErrNoRows
	}
	r.FullName = record.FullName
	r.Mobile = record.Mobile
	r.BloodGroup = record.BloodGroup
	r.Profession = record.Profession
	r.ProfessionOther = record.ProfessionOther
	r.OrganisationName = record.OrganisationName
	r.WorkRole = record.WorkRole
	r.School = record.School
	r.CurrentCity = record.CurrentCity
	r.CurrentState = record.CurrentState
	r.WorkCity = record.WorkCity
	r.WorkState = record.WorkState
	return nil
}

func (f *fakeAlumniRepo) UpdateDonation(ctx context.Context, id string, amount float64, transactionID, details string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.DonationAmount = &amount
	r.TransactionID = transactionID
	r.DonationDetails = details
	return nil
}

func (f *fakeAlumniRepo) UpdateUserRole(ctx context.Context, id string, role models.UserRole, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.UserRole = role
	return nil
}

type fakeAudit struct {
	logs []*models.AuditLog
}

func (f *fakeAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidateDirectory(ctx context.Context) {
	f.calls++
}

type fakeNotifier struct {
	received []string
	approved []string
	resets   []string
}

func (f *fakeNotifier) RegistrationReceived(name, email string) {
	f.received = append(f.received, email)
}

func (f *fakeNotifier) RegistrationApproved(name, email string) {
	f.approved = append(f.approved, email)
}

func (f *fakeNotifier) PasswordReset(email, token string, ttl time.Duration) {
	f.resets = append(f.resets, token)
}

func approvedMember(id string) models.AlumniRecord {
	return models.AlumniRecord{ID: id, FullName: "Member " + id, Email: id + "@example.com", Mobile: "9000000000", Role: models.CategoryAlumni, UserRole: models.RoleAlumni, Status: models.StatusApproved}
}

func pendingMember(id string) models.AlumniRecord {
	return models.AlumniRecord{ID: id, FullName: "Pending " + id, Email: id + "@example.com", Mobile: "9111111111", Role: models.CategoryAlumni, UserRole: models.RoleUser, Status: models.StatusPending}
}

func adminMember(id string) models.AlumniRecord {
	r := approvedMember(id)
	r.UserRole = models.RoleAdmin
	return r
}

func newAlumniServiceForTest(repo *fakeAlumniRepo) (*AlumniService, *fakeAudit, *fakeInvalidator, *fakeNotifier) {
	audit := &fakeAudit{}
	inv := &fakeInvalidator{}
	notifier := &fakeNotifier{}
	return NewAlumniService(repo, audit, inv, notifier, nil, nil, zap.NewNop()), audit, inv, notifier
}

func TestAlumniServiceSupportIsIdempotent(t *testing.T) {
	repo := newFakeAlumniRepo(approvedMember("u1"), pendingMember("p1"))
	svc, audit, inv, _ := newAlumniServiceForTest(repo)

	first, err := svc.Support(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.True(t, first.Added)
	assert.Equal(t, []string{"u1"}, first.SupportedBy)

	second, err := svc.Support(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.False(t, second.Added)
	assert.Equal(t, first.SupportedBy, second.SupportedBy)

	stored, _ := repo.FindByID(context.Background(), "p1")
	assert.Len(t, stored.SupportedBy, 1)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Len(t, audit.logs, 1)
	assert.Equal(t, 1, inv.calls)
}

func TestAlumniServiceSupportRequiresApprovedEndorser(t *testing.T) {
	repo := newFakeAlumniRepo(pendingMember("p0"), pendingMember("p1"))
	svc, _, _, _ := newAlumniServiceForTest(repo)

	_, err := svc.Support(context.Background(), "p0", "p1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Support(context.Background(), "", "p1")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAlumniServiceSupportPrivilegedPendingEndorser(t *testing.T) {
	treasurer := pendingMember("t1")
	treasurer.UserRole = models.RoleTreasurer
	repo := newFakeAlumniRepo(treasurer, pendingMember("p1"))
	svc, _, _, _ := newAlumniServiceForTest(repo)

	res, err := svc.Support(context.Background(), "t1", "p1")
	require.NoError(t, err)
	assert.True(t, res.Added)
}

func TestAlumniServiceSupportRejectsSelfAndApprovedTargets(t *testing.T) {
	repo := newFakeAlumniRepo(adminMember("a1"), approvedMember("u2"))
	svc, _, _, _ := newAlumniServiceForTest(repo)

	_, err := svc.Support(context.Background(), "a1", "a1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Support(context.Background(), "a1", "u2")
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Support(context.Background(), "a1", "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAlumniServiceSupportNeverApprovesByCount(t *testing.T) {
	repo := newFakeAlumniRepo(pendingMember("p1"))
	for _, id := range []string{"u1", "u2", "u3", "u4", "u5"} {
		m := approvedMember(id)
		repo.records[id] = &m
	}
	svc, _, _, _ := newAlumniServiceForTest(repo)

	for _, id := range []string{"u1", "u2", "u3", "u4", "u5"} {
		_, err := svc.Support(context.Background(), id, "p1")
		require.NoError(t, err)
	}
	stored, _ := repo.FindByID(context.Background(), "p1")
	assert.Len(t, stored.SupportedBy, 5)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestAlumniServiceApproveRequiresPrivilegedRole(t *testing.T) {
	repo := newFakeAlumniRepo(approvedMember("u1"), pendingMember("p1"))
	svc, _, _, notifier := newAlumniServiceForTest(repo)

	_, err := svc.Approve(context.Background(), "u1", "p1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	stored, _ := repo.FindByID(context.Background(), "p1")
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Empty(t, notifier.approved)
}

func TestAlumniServiceApproveIsOneWay(t *testing.T) {
	repo := newFakeAlumniRepo(adminMember("a1"), pendingMember("p1"))
	svc, audit, inv, notifier := newAlumniServiceForTest(repo)

	record, err := svc.Approve(context.Background(), "a1", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, record.Status)
	assert.Equal(t, models.RoleAlumni, record.UserRole)
	require.NotNil(t, record.ApprovedBy)
	assert.Equal(t, "a1", *record.ApprovedBy)
	assert.NotNil(t, record.ApprovedAt)

	_, err = svc.Approve(context.Background(), "a1", "p1")
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	assert.Equal(t, []string{"p1@example.com"}, notifier.approved)
	assert.Len(t, audit.logs, 1)
	assert.Equal(t, 1, inv.calls)
}

func TestAlumniServiceApprovePromotesTeachers(t *testing.T) {
	teacher := pendingMember("t1")
	teacher.Role = models.CategoryTeacher
	committee := approvedMember("v1")
	committee.UserRole = models.RoleVerificationCommittee
	repo := newFakeAlumniRepo(committee, teacher)
	svc, _, _, _ := newAlumniServiceForTest(repo)

	record, err := svc.Approve(context.Background(), "v1", "t1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, record.UserRole)
}

func TestAlumniServiceUpdateProfileKeepsIdentity(t *testing.T) {
	owner := approvedMember("u1")
	owner.HallTicket = "HT-1"
	repo := newFakeAlumniRepo(owner)
	svc, _, inv, _ := newAlumniServiceForTest(repo)

	record, err := svc.UpdateProfile(context.Background(), "u1", dto.UpdateProfileRequest{
		FullName:     "  ravi   kumar ",
		Mobile:       "9876543210",
		BloodGroup:   "o+",
		Profession:   "Engineer",
		School:       "navodaya hyderabad",
		CurrentCity:  "hyderabad",
		CurrentState: "telangana",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", record.FullName)
	assert.Equal(t, "O+", record.BloodGroup)
	assert.Equal(t, "Jnv Navodaya Hyderabad", record.School)
	assert.Equal(t, "u1@example.com", record.Email)
	assert.Equal(t, "HT-1", record.HallTicket)
	assert.Equal(t, models.StatusApproved, record.Status)
	assert.Equal(t, 1, inv.calls)
}

func TestAlumniServiceUpdateProfileValidation(t *testing.T) {
	repo := newFakeAlumniRepo(approvedMember("u1"))
	svc, _, _, _ := newAlumniServiceForTest(repo)

	_, err := svc.UpdateProfile(context.Background(), "u1", dto.UpdateProfileRequest{FullName: "X", Mobile: "9876543210", BloodGroup: "Z+", Profession: "Other", CurrentCity: "A", CurrentState: "B"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "bloodGroup")
	assert.Contains(t, appErr.Fields, "professionOther")
}

func TestAlumniServiceUpdateProfileRejectsBlankFields(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(r *dto.UpdateProfileRequest)
		field string
	}{
		{name: "blank name", edit: func(r *dto.UpdateProfileRequest) { r.FullName = "  " }, field: "fullName"},
		{name: "blank state", edit: func(r *dto.UpdateProfileRequest) { r.CurrentState = "\t" }, field: "currentState"},
		{name: "lowercase other", edit: func(r *dto.UpdateProfileRequest) { r.Profession = "other" }, field: "professionOther"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeAlumniRepo(approvedMember("u1"))
			svc, _, _, _ := newAlumniServiceForTest(repo)
			req := dto.UpdateProfileRequest{FullName: "ravi", Mobile: "9876543210", BloodGroup: "O+", Profession: "Doctor", CurrentCity: "Pune", CurrentState: "Maharashtra"}
			tc.edit(&req)

			_, err := svc.UpdateProfile(context.Background(), "u1", req)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Contains(t, appErr.Fields, tc.field)
		})
	}
}

func TestAlumniServiceRecordDonation(t *testing.T) {
	treasurer := approvedMember("t1")
	treasurer.UserRole = models.RoleTreasurer
	repo := newFakeAlumniRepo(treasurer, approvedMember("u1"), adminMember("gb"))
	repo.records["gb"].UserRole = models.RoleGoverningBody
	svc, _, _, _ := newAlumniServiceForTest(repo)

	record, err := svc.RecordDonation(context.Background(), "t1", "u1", dto.DonationRequest{Amount: 500, TransactionID: "TX1"})
	require.NoError(t, err)
	require.NotNil(t, record.DonationAmount)
	assert.Equal(t, 500.0, *record.DonationAmount)
	assert.Equal(t, "TX1", record.TransactionID)

	_, err = svc.RecordDonation(context.Background(), "gb", "u1", dto.DonationRequest{Amount: 10, TransactionID: "TX2"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.RecordDonation(context.Background(), "t1", "u1", dto.DonationRequest{Amount: 0, TransactionID: "TX3"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAlumniServiceSetUserRole(t *testing.T) {
	repo := newFakeAlumniRepo(adminMember("a1"), approvedMember("u1"))
	svc, audit, _, _ := newAlumniServiceForTest(repo)

	record, err := svc.SetUserRole(context.Background(), "a1", "u1", dto.SetRoleRequest{UserRole: "treasurer"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTreasurer, record.UserRole)
	assert.Len(t, audit.logs, 1)

	_, err = svc.SetUserRole(context.Background(), "u1", "a1", dto.SetRoleRequest{UserRole: "Admin"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.SetUserRole(context.Background(), "a1", "u1", dto.SetRoleRequest{UserRole: "superuser"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.AssignRole(context.Background(), "missing", models.RoleAdmin)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAlumniServiceGetProjection(t *testing.T) {
	repo := newFakeAlumniRepo(adminMember("a1"), approvedMember("u1"), approvedMember("u2"), pendingMember("p1"))
	svc, _, _, _ := newAlumniServiceForTest(repo)

	asAdmin, err := svc.Get(context.Background(), "a1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "9000000000", asAdmin.Mobile)

	asMember, err := svc.Get(context.Background(), "u1", "u2")
	require.NoError(t, err)
	assert.Empty(t, asMember.Mobile)
	assert.Equal(t, "u2@example.com", asMember.Email)

	own, err := svc.Get(context.Background(), "p1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "9111111111", own.Mobile)

	_, err = svc.Get(context.Background(), "p1", "u1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAlumniServiceMe(t *testing.T) {
	repo := newFakeAlumniRepo(approvedMember("u1"))
	svc, _, _, _ := newAlumniServiceForTest(repo)

	record, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "9000000000", record.Mobile)

	_, err = svc.Me(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
