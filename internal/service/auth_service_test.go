package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memProfiles struct {
	byID map[uuid.UUID]*model.UserProfile
}

func newMemProfiles(profiles ...*model.UserProfile) *memProfiles {
	m := &memProfiles{byID: map[uuid.UUID]*model.UserProfile{}}
	for _, p := range profiles {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProfiles) GetByID(_ context.Context, id uuid.UUID) (*model.UserProfile, error) {
	if p, ok := m.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memProfiles) GetByEmail(_ context.Context, email string) (*model.UserProfile, error) {
	for _, p := range m.byID {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memProfiles) List(context.Context) ([]model.UserProfile, error) {
	out := make([]model.UserProfile, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memProfiles) Create(_ context.Context, p *model.UserProfile) error {
	p.ID = uuid.New()
	m.byID[p.ID] = p
	return nil
}

func (m *memProfiles) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.PasswordHash = hash
	return nil
}

func (m *memProfiles) AssignRoles(_ context.Context, id uuid.UUID, roles []model.Role) error {
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Roles = append(p.Roles, roles...)
	return nil
}

func (m *memProfiles) RevokeRole(_ context.Context, id uuid.UUID, role model.Role) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: 4}
}

func TestAuthTokenRoundTrip(t *testing.T) {
	auth := NewAuthService(testConfig(), nil, newMemProfiles())
	profile := &model.UserProfile{ID: uuid.New(), Email: "gestor@example.org", Roles: []model.Role{model.RoleGestorTurmas, model.RoleFinanceiro}}

	token, err := auth.GenerateToken(profile)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, profile.ID.String(), claims.UserID)

	caller := claims.Caller()
	assert.Equal(t, profile.ID, caller.UserID)
	assert.True(t, caller.HasRole(model.RoleFinanceiro))
	assert.False(t, caller.IsAdmin())

	other := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour}, nil, nil)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthRejectsForeignTokens(t *testing.T) {
	auth := NewAuthService(testConfig(), nil, nil)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		UserID:           uuid.NewString(),
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = auth.ValidateToken(signed)
	assert.Error(t, err)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "admin",
	})
	signed, err = badSubject.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = auth.ValidateToken(signed)
	assert.Error(t, err)
}

func TestAuthLogin(t *testing.T) {
	auth := NewAuthService(testConfig(), nil, nil)
	hash, err := auth.HashPassword("segredo123")
	require.NoError(t, err)

	active := &model.UserProfile{ID: uuid.New(), Email: "ana@example.org", PasswordHash: hash, Active: true, Roles: []model.Role{model.RoleAdmin}}
	disabled := &model.UserProfile{ID: uuid.New(), Email: "rui@example.org", PasswordHash: hash}
	auth = NewAuthService(testConfig(), nil, newMemProfiles(active, disabled))
	ctx := context.Background()

	res, err := auth.Login(ctx, model.LoginRequest{Email: " ANA@example.org ", Password: "segredo123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, active.ID, res.User.ID)

	_, err = auth.Login(ctx, model.LoginRequest{Email: "ana@example.org", Password: "errada"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = auth.Login(ctx, model.LoginRequest{Email: "rui@example.org", Password: "segredo123"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = auth.Login(ctx, model.LoginRequest{Email: "ninguem@example.org", Password: "segredo123"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestResetPasswordChecks(t *testing.T) {
	target := &model.UserProfile{ID: uuid.New(), Email: "rui@example.org", PasswordHash: "old"}
	profiles := newMemProfiles(target)
	users := NewUserService(profiles, NewAuthService(testConfig(), nil, profiles), nil, testLog)
	ctx := context.Background()

	viewer := model.Caller{UserID: uuid.New(), Roles: []model.Role{model.RoleVisualizador}}
	err := users.ResetPassword(ctx, viewer, model.ResetPasswordRequest{UserID: target.ID.String(), NewPassword: "novasenha"})
	assert.Equal(t, KindForbidden, KindOf(err))

	err = users.ResetPassword(ctx, adminCaller, model.ResetPasswordRequest{UserID: "x", NewPassword: "novasenha"})
	assert.Equal(t, KindValidation, KindOf(err))

	err = users.ResetPassword(ctx, adminCaller, model.ResetPasswordRequest{UserID: target.ID.String(), NewPassword: "123"})
	assert.Equal(t, KindValidation, KindOf(err))

	err = users.ResetPassword(ctx, adminCaller, model.ResetPasswordRequest{UserID: uuid.NewString(), NewPassword: "novasenha"})
	assert.Equal(t, KindNotFound, KindOf(err))

	assert.Equal(t, "old", profiles.byID[target.ID].PasswordHash)
}

func TestAssignRoles(t *testing.T) {
	target := &model.UserProfile{ID: uuid.New(), Email: "rui@example.org", Roles: []model.Role{model.RoleVisualizador}}
	profiles := newMemProfiles(target)
	audit := &recordingAudit{}
	users := NewUserService(profiles, NewAuthService(testConfig(), nil, profiles), audit, testLog)
	ctx := context.Background()

	err := users.AssignRoles(ctx, adminCaller, model.AssignRolesRequest{UserID: "x", Roles: []model.Role{model.RoleFinanceiro}})
	assert.Equal(t, KindValidation, KindOf(err))

	err = users.AssignRoles(ctx, adminCaller, model.AssignRolesRequest{UserID: target.ID.String()})
	assert.Equal(t, KindValidation, KindOf(err))

	err = users.AssignRoles(ctx, adminCaller, model.AssignRolesRequest{UserID: target.ID.String(), Roles: []model.Role{"superuser"}})
	assert.Equal(t, KindValidation, KindOf(err))

	err = users.AssignRoles(ctx, adminCaller, model.AssignRolesRequest{UserID: uuid.NewString(), Roles: []model.Role{model.RoleFinanceiro}})
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Empty(t, audit.entries)

	err = users.AssignRoles(ctx, adminCaller, model.AssignRolesRequest{UserID: target.ID.String(), Roles: []model.Role{model.RoleFinanceiro}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Role{model.RoleVisualizador, model.RoleFinanceiro}, profiles.byID[target.ID].Roles)
	assert.Len(t, audit.entries, 1)
}
