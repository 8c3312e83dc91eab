package model

import (
	"time"

	"github.com/google/uuid"
)

// Period is the half-day a class pair runs in.
type Period string

const (
	PeriodManha Period = "manha"
	PeriodTarde Period = "tarde"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	return p == PeriodManha || p == PeriodTarde
}

// Label is the display name used in generated pair names.
func (p Period) Label() string {
	if p == PeriodTarde {
		return "Tarde"
	}
	return "Manhã"
}

// TimeRange is the formatted period-time-range stored on the pair.
func (p Period) TimeRange() string {
	if p == PeriodTarde {
		return "13:00 - 17:00"
	}
	return "08:00 - 12:00"
}

// RoomPrefix is the letter used by auto-generated room codes.
func (p Period) RoomPrefix() string {
	if p == PeriodTarde {
		return "T"
	}
	return "M"
}

// ClassPair groups two parallel classes (A and B) that share a course roster.
type ClassPair struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"nome"`
	Period            Period         `json:"periodo"`
	PeriodRange       string         `json:"horario_periodo"`
	Courses           []string       `json:"cursos"`
	CommonDisciplines []string       `json:"disciplinas_comuns"`
	Schedule          WeeklySchedule `json:"horario"`
	Active            bool           `json:"ativo"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// HasCourse reports whether code is in the pair's course list.
func (p *ClassPair) HasCourse(code string) bool {
	for _, c := range p.Courses {
		if c == code {
			return true
		}
	}
	return false
}

// ClassPairAggregate is the read model served to the pair management view:
// the pair, both classes with their rooms, and the students assigned to it.
type ClassPairAggregate struct {
	ClassPair
	ClassA   *Class           `json:"turma_a"`
	ClassB   *Class           `json:"turma_b"`
	Students []StudentSummary `json:"alunos"`
}

// Class returns the class for a variant, or nil.
func (a *ClassPairAggregate) Class(v Variant) *Class {
	switch v {
	case VariantA:
		return a.ClassA
	case VariantB:
		return a.ClassB
	}
	return nil
}

// ClassSpec describes one class of a pair by room code and capacity.
type ClassSpec struct {
	RoomCode string `json:"sala_codigo" binding:"required,min=1,max=32"`
	Capacity int    `json:"capacidade" binding:"required,min=1,max=1000"`
}

// CreateClassPairRequest is the payload for creating a pair and its classes.
type CreateClassPairRequest struct {
	Period  Period    `json:"periodo" binding:"required,period"`
	Courses []string  `json:"cursos" binding:"required,min=1,dive,required"`
	ClassA  ClassSpec `json:"turma_a" binding:"required"`
	ClassB  ClassSpec `json:"turma_b" binding:"required"`
}

// UpdateClassPairRequest is a partial update. A nil Courses slice keeps the
// current list; an empty one clears it.
type UpdateClassPairRequest struct {
	Name    *string    `json:"nome" binding:"omitempty,min=1,max=120"`
	Period  *Period    `json:"periodo" binding:"omitempty,period"`
	Courses []string   `json:"cursos" binding:"omitempty,dive,required"`
	Active  *bool      `json:"ativo"`
	ClassA  *ClassSpec `json:"turma_a"`
	ClassB  *ClassSpec `json:"turma_b"`
}

// DuplicateClassPairRequest creates an empty pair in a period.
type DuplicateClassPairRequest struct {
	Period Period `json:"periodo" binding:"required,period"`
}

// ClassPairFields is the set of pair scalar fields written by an update.
type ClassPairFields struct {
	Name              *string
	Period            *Period
	PeriodRange       *string
	Courses           []string
	CommonDisciplines []string
	Schedule          WeeklySchedule
	Active            *bool
}

// Empty reports whether no field is set.
func (f ClassPairFields) Empty() bool {
	return f.Name == nil && f.Period == nil && f.PeriodRange == nil && f.Courses == nil &&
		f.CommonDisciplines == nil && f.Schedule == nil && f.Active == nil
}
