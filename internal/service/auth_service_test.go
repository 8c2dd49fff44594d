package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/jnv-alumni-api/internal/models"
	appErrors "github.com/noah-isme/jnv-alumni-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail         *models.Account
	userByID            *models.Account
	findByEmailErr      error
	findByIDErr         error
	refreshTokens       map[string]*models.RefreshToken
	resetTokens         map[string]*models.PasswordResetToken
	refreshTokenErr     error
	createRefreshErr    error
	revokeRefreshErr    error
	revokeUserTokensErr error
	revokedUsers        []string
	updatePasswordErr   error
	auditLogs           []*models.AuditLog
	lastLoginUpdated    bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil || m.userByEmail.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	if m.userByEmail != nil && m.userByEmail.ID == id {
		m.userByEmail.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	return m.revokeUserTokensErr
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if m.refreshTokenErr != nil {
		return nil, m.refreshTokenErr
	}
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if m.revokeRefreshErr != nil {
		return m.revokeRefreshErr
	}
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreatePasswordResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	if m.resetTokens == nil {
		m.resetTokens = make(map[string]*models.PasswordResetToken)
	}
	m.resetTokens[token.TokenHash] = token
	return nil
}

func (m *mockAuthRepo) FindPasswordResetToken(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	token, ok := m.resetTokens[tokenHash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *token
	return &copy, nil
}

func (m *mockAuthRepo) ConsumePasswordResetToken(ctx context.Context, id string, usedAt time.Time) (bool, error) {
	for _, token := range m.resetTokens {
		if token.ID == id && token.UsedAt == nil {
			token.UsedAt = &usedAt
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, RefreshTokenExpiry: 24 * time.Hour, ResetTokenExpiry: time.Hour}
}

func activeAccount(t *testing.T, password string) *models.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.Account{ID: "u1", Email: "user@example.com", PasswordHash: string(hash), Active: true}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeAccount(t, "password")}
	profiles := newFakeAlumniRepo(adminMember("u1"))
	svc := NewAuthService(repo, profiles, nil, nil, zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: " USER@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.True(t, repo.lastLoginUpdated)
	assert.NotEmpty(t, repo.refreshTokens)
	assert.Equal(t, models.RoleAdmin, res.User.UserRole)
	assert.Equal(t, models.StatusApproved, res.User.Status)
	assert.Equal(t, "Member u1", res.User.FullName)
}

func TestAuthServiceLoginWithoutProfile(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeAccount(t, "password")}
	svc := NewAuthService(repo, newFakeAlumniRepo(), nil, nil, zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, res.User.UserRole)
}

func TestAuthServiceLoginRejectsBadCredentials(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeAccount(t, "password")}
	svc := NewAuthService(repo, nil, nil, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "other@example.com", Password: "password"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: " password "})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	account := activeAccount(t, "password")
	account.Active = false
	repo := &mockAuthRepo{userByEmail: account}
	svc := NewAuthService(repo, nil, nil, nil, zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceRefreshToken(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: make(map[string]*models.RefreshToken)}
	user := &models.Account{ID: "u1", Email: "user@example.com", PasswordHash: "hash", Active: true}
	repo.userByEmail = user
	repo.userByID = user
	token := &models.RefreshToken{ID: "rt1", UserID: user.ID, Token: "token", ExpiresAt: time.Now().Add(time.Hour)}
	repo.refreshTokens[token.Token] = token

	svc := NewAuthService(repo, newFakeAlumniRepo(approvedMember("u1")), nil, nil, zap.NewNop(), testAuthConfig())

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceLogout(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: "u1", Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := NewAuthService(repo, nil, nil, nil, zap.NewNop(), testAuthConfig())

	err := svc.Logout(context.Background(), "token", "u2", models.LoginRequest{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.Logout(context.Background(), "token", "u1", models.LoginRequest{}))
	assert.True(t, repo.refreshTokens["token"].Revoked)
}

func TestAuthServiceChangePassword(t *testing.T) {
	account := activeAccount(t, "oldpass")
	oldHash := account.PasswordHash
	repo := &mockAuthRepo{userByEmail: account}
	svc := NewAuthService(repo, nil, nil, nil, zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newpassword"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	err = svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "oldpass", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, repo.userByEmail.PasswordHash)
}

func TestAuthServicePasswordResetFlow(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeAccount(t, "oldpass")}
	notifier := &fakeNotifier{}
	svc := NewAuthService(repo, nil, notifier, nil, zap.NewNop(), testAuthConfig())

	require.NoError(t, svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "User@Example.com"}))
	require.Len(t, notifier.resets, 1)
	raw := notifier.resets[0]
	require.Len(t, repo.resetTokens, 1)
	_, stored := repo.resetTokens[raw]
	assert.False(t, stored, "raw token must not be persisted")

	require.NoError(t, svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: raw, NewPassword: "brandnew"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.userByEmail.PasswordHash), []byte("brandnew")))

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: raw, NewPassword: "another1"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceForgotPasswordUnknownEmail(t *testing.T) {
	repo := &mockAuthRepo{}
	notifier := &fakeNotifier{}
	svc := NewAuthService(repo, nil, notifier, nil, zap.NewNop(), testAuthConfig())

	require.NoError(t, svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "ghost@example.com"}))
	assert.Empty(t, notifier.resets)
	assert.Empty(t, repo.resetTokens)
}

func TestAuthServiceResetPasswordExpired(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeAccount(t, "oldpass"), resetTokens: map[string]*models.PasswordResetToken{
		hashToken("stale"): {ID: "r1", UserID: "u1", TokenHash: hashToken("stale"), ExpiresAt: time.Now().Add(-time.Minute)},
	}}
	svc := NewAuthService(repo, nil, nil, nil, zap.NewNop(), testAuthConfig())

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: "stale", NewPassword: "brandnew"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceMe(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeAccount(t, "password")}
	member := pendingMember("u1")
	svc := NewAuthService(repo, newFakeAlumniRepo(member), nil, nil, zap.NewNop(), testAuthConfig())

	info, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, info.Status)
	assert.Equal(t, models.RoleUser, info.UserRole)
}

func TestValidateToken(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := NewAuthService(repo, nil, nil, nil, zap.NewNop(), testAuthConfig())
	user := &models.UserInfo{ID: "u1", Email: "user@example.com", UserRole: models.RoleAdmin}
	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.UserRole)

	_, err = svc.ValidateToken(token + "x")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenChecksIssuerAndAudience(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Issuer = "jnv-alumni-api"
	cfg.Audience = []string{"jnv-web"}
	svc := NewAuthService(&mockAuthRepo{}, nil, nil, nil, zap.NewNop(), cfg)
	token, _, err := svc.generateAccessToken(&models.UserInfo{ID: "u1", UserRole: models.RoleUser})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "jnv-alumni-api", claims.Issuer)

	other := cfg
	other.Audience = []string{"jnv-admin"}
	_, err = NewAuthService(&mockAuthRepo{}, nil, nil, nil, zap.NewNop(), other).ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other = cfg
	other.Issuer = "someone-else"
	_, err = NewAuthService(&mockAuthRepo{}, nil, nil, nil, zap.NewNop(), other).ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceSingleSessionRevokesOnLogin(t *testing.T) {
	cfg := testAuthConfig()
	cfg.SingleSession = true
	repo := &mockAuthRepo{userByEmail: activeAccount(t, "password")}
	svc := NewAuthService(repo, nil, nil, nil, zap.NewNop(), cfg)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, repo.revokedUsers)

	repo.revokedUsers = nil
	cfg.SingleSession = false
	_, err = NewAuthService(repo, nil, nil, nil, zap.NewNop(), cfg).Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.Empty(t, repo.revokedUsers)
}

func TestAuthServiceCurrentRole(t *testing.T) {
	member := approvedMember("u1")
	member.UserRole = models.RoleTreasurer
	svc := NewAuthService(&mockAuthRepo{}, newFakeAlumniRepo(member), nil, nil, zap.NewNop(), testAuthConfig())

	role, err := svc.CurrentRole(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTreasurer, role)

	role, err = svc.CurrentRole(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)

	role, err = NewAuthService(&mockAuthRepo{}, nil, nil, nil, zap.NewNop(), testAuthConfig()).CurrentRole(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, role)
}
