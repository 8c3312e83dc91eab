package model

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is a staff account.
type UserProfile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"nome_completo"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"ativo"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoginRequest is the payload for staff authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}

// CreateUserRequest creates a staff account with its initial roles.
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	FullName string `json:"nome_completo" binding:"required,min=2,max=200"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Roles    []Role `json:"roles" binding:"omitempty,dive,role"`
}

// AssignRolesRequest is the assign-user-roles function body.
type AssignRolesRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
	Roles  []Role `json:"roles" binding:"required,min=1,dive,role"`
}

// ResetPasswordRequest is the reset-user-password function body.
type ResetPasswordRequest struct {
	UserID      string `json:"userId" binding:"required,uuid"`
	NewPassword string `json:"newPassword" binding:"required,min=6,max=128"`
}

// Caller is the authenticated identity on whose behalf a workflow runs.
type Caller struct {
	UserID uuid.UUID
	Email  string
	Roles  []Role
}

// HasRole reports whether the caller holds r.
func (c Caller) HasRole(r Role) bool {
	for _, have := range c.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool {
	return c.HasRole(RoleAdmin)
}

// Anonymous reports whether the caller carries no identity.
func (c Caller) Anonymous() bool {
	return c.UserID == uuid.Nil
}
