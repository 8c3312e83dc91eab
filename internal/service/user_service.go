package service

import (
	"context"
	"strings"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UserService manages staff accounts and role assignments.
type UserService struct {
	profiles ProfileStore
	auth     *AuthService
	audit    AuditSink
	log      zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(profiles ProfileStore, auth *AuthService, audit AuditSink, log zerolog.Logger) *UserService {
	if audit == nil {
		audit = nopAudit{}
	}
	return &UserService{
		profiles: profiles,
		auth:     auth,
		audit:    audit,
		log:      log.With().Str("component", "user_service").Logger(),
	}
}

func (s *UserService) List(ctx context.Context) ([]model.UserProfile, error) {
	users, err := s.profiles.List(ctx)
	return users, storeError("user.list", "Utilizador", err)
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*model.UserProfile, error) {
	user, err := s.profiles.GetByID(ctx, id)
	return user, storeError("user.get", "Utilizador", err)
}

// Create registers a staff account with its initial roles.
func (s *UserService) Create(ctx context.Context, caller model.Caller, req model.CreateUserRequest) (*model.UserProfile, error) {
	const op = "user.create"

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, &Error{Kind: KindBackend, Op: op, Message: "Não foi possível processar a palavra-passe.", Err: err}
	}
	profile := &model.UserProfile{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, storeError(op, "Utilizador", err)
	}
	if len(req.Roles) > 0 {
		if err := s.profiles.AssignRoles(ctx, profile.ID, req.Roles); err != nil {
			return nil, partialError(op, "Utilizador criado, mas as funções não foram atribuídas.", err)
		}
		profile.Roles = req.Roles
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditCreate, model.TableProfiles, profile.ID.String(), nil, profile))
	return profile, nil
}

// AssignRoles inserts one assignment per role. Roles already held are kept.
func (s *UserService) AssignRoles(ctx context.Context, caller model.Caller, req model.AssignRolesRequest) error {
	const op = "user.assign_roles"

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return validationError(op, "userId inválido.", map[string]string{"userId": "inválido"})
	}
	if len(req.Roles) == 0 {
		return validationError(op, "Indique pelo menos uma função.", map[string]string{"roles": "obrigatório"})
	}
	for _, r := range req.Roles {
		if !r.Valid() {
			return validationError(op, "Função desconhecida: "+string(r)+".", map[string]string{"roles": "inválido"})
		}
	}
	if err := s.profiles.AssignRoles(ctx, userID, req.Roles); err != nil {
		return storeError(op, "Utilizador", err)
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditCreate, model.TableUserRoles, userID.String(), nil, req.Roles))
	return nil
}

// RevokeRole removes one role from a user.
func (s *UserService) RevokeRole(ctx context.Context, caller model.Caller, userID uuid.UUID, role model.Role) error {
	if err := s.profiles.RevokeRole(ctx, userID, role); err != nil {
		return storeError("user.revoke_role", "Função", err)
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditDelete, model.TableUserRoles, userID.String(), role, nil))
	return nil
}

// ResetPassword sets a new password for a user. Only admins may call it.
// Tokens issued to the user before the reset stop working.
func (s *UserService) ResetPassword(ctx context.Context, caller model.Caller, req model.ResetPasswordRequest) error {
	const op = "user.reset_password"

	if !caller.IsAdmin() {
		return newError(KindForbidden, op, "Apenas administradores podem redefinir palavras-passe.")
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return validationError(op, "userId inválido.", map[string]string{"userId": "inválido"})
	}
	if len(req.NewPassword) < 6 {
		return validationError(op, "A palavra-passe deve ter pelo menos 6 caracteres.", map[string]string{"newPassword": "mínimo 6 caracteres"})
	}

	hash, err := s.auth.HashPassword(req.NewPassword)
	if err != nil {
		return &Error{Kind: KindBackend, Op: op, Message: "Não foi possível processar a palavra-passe.", Err: err}
	}
	if err := s.profiles.UpdatePassword(ctx, userID, hash); err != nil {
		return storeError(op, "Utilizador", err)
	}
	if err := s.auth.RevokeTokens(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to revoke tokens after password reset")
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditUpdate, model.TableProfiles, userID.String(), nil, map[string]string{"password": "reset"}))
	return nil
}
