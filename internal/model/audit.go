package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction is the kind of write recorded in audit_logs.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

// Audited table names.
const (
	TableCourses    = "cursos"
	TableRooms      = "salas"
	TableClassPairs = "turma_pairs"
	TableClasses    = "turmas"
	TableStudents   = "alunos"
	TableProfiles   = "profiles"
	TableUserRoles  = "user_roles"
)

// AuditLog is an append-only record of a write.
type AuditLog struct {
	ID        int64           `json:"id"`
	UserID    *uuid.UUID      `json:"user_id"`
	UserEmail string          `json:"user_email,omitempty"`
	Action    AuditAction     `json:"acao"`
	Table     string          `json:"tabela"`
	RecordID  string          `json:"registro_id"`
	OldValues json.RawMessage `json:"valores_antigos,omitempty"`
	NewValues json.RawMessage `json:"valores_novos,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditView records that a user opened a record.
type AuditView struct {
	UserID    uuid.UUID `json:"user_id"`
	Table     string    `json:"tabela"`
	RecordID  string    `json:"registro_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditUserStats aggregates audit activity by user.
type AuditUserStats struct {
	UserID       uuid.UUID  `json:"user_id"`
	Email        string     `json:"email"`
	FullName     string     `json:"nome_completo"`
	Creates      int        `json:"creates"`
	Updates      int        `json:"updates"`
	Deletes      int        `json:"deletes"`
	Views        int        `json:"views"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	UserID  *uuid.UUID  `form:"-"`
	Table   string      `form:"tabela" binding:"omitempty,max=50"`
	Action  AuditAction `form:"acao" binding:"omitempty,oneof=create update delete"`
	Page    int         `form:"page" binding:"omitempty,min=1"`
	PerPage int         `form:"per_page" binding:"omitempty,min=1,max=200"`
}

// LogViewRequest is the body of the log-view call.
type LogViewRequest struct {
	Table    string `json:"tabela" binding:"required,max=50"`
	RecordID string `json:"registro_id" binding:"required,max=64"`
}
