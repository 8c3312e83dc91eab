package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is an application role. Roles gate API route groups.
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleInscricaoSimples  Role = "inscricao_simples"
	RoleInscricaoCompleta Role = "inscricao_completa"
	RoleVisualizador      Role = "visualizador"
	RoleFinanceiro        Role = "financeiro"
	RoleGestorTurmas      Role = "gestor_turmas"
)

// Roles lists every known role.
var Roles = []Role{
	RoleAdmin, RoleInscricaoSimples, RoleInscricaoCompleta, RoleVisualizador, RoleFinanceiro, RoleGestorTurmas,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// UserRole is one row of user_roles.
type UserRole struct {
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
