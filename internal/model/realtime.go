package model

import (
	"time"

	"github.com/google/uuid"
)

// ChangeOp is the row operation carried by a change event.
type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

// ChangeEvent is a row change notification for one of the watched tables.
// PairID is set when the row belongs to a single class pair.
type ChangeEvent struct {
	Table  string     `json:"table"`
	Op     ChangeOp   `json:"op"`
	ID     string     `json:"id"`
	PairID *uuid.UUID `json:"turma_pair_id,omitempty"`
	At     time.Time  `json:"at"`
}

// ConsistencyResult is the outcome of checking a student against its pair.
type ConsistencyResult struct {
	IsConsistent bool     `json:"isConsistent"`
	Warnings     []string `json:"warnings"`
	Errors       []string `json:"errors"`
}

// EnrollmentStats feeds the dashboard.
type EnrollmentStats struct {
	TotalStudents   int              `json:"total_alunos"`
	ByStatus        map[string]int   `json:"por_status"`
	ByCourse        map[string]int   `json:"por_curso"`
	TotalPaid       float64          `json:"total_pago"`
	ActivePairs     int              `json:"pares_ativos"`
	ClassOccupation []ClassOccupancy `json:"ocupacao_turmas"`
}

// ClassOccupancy is the real and cached head count of one class.
type ClassOccupancy struct {
	ClassID  uuid.UUID `json:"turma_id"`
	PairName string    `json:"par"`
	Variant  Variant   `json:"variante"`
	RoomCode string    `json:"sala"`
	Capacity int       `json:"capacidade"`
	Cached   int       `json:"alunos_inscritos"`
	Actual   int       `json:"alunos_reais"`
}
