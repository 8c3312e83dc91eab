package model

import (
	"time"

	"github.com/google/uuid"
)

// Variant identifies one of the two classes in a pair.
type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

// Valid reports whether v is A or B.
func (v Variant) Valid() bool {
	return v == VariantA || v == VariantB
}

// Class is one physical section of a class pair.
type Class struct {
	ID        uuid.UUID      `json:"id"`
	PairID    uuid.UUID      `json:"turma_pair_id"`
	Variant   Variant        `json:"variante"`
	RoomID    uuid.UUID      `json:"sala_id"`
	Room      *RoomRef       `json:"sala,omitempty"`
	Capacity  int            `json:"capacidade"`
	Enrolled  int            `json:"alunos_inscritos"`
	Schedule  WeeklySchedule `json:"horario"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Full reports whether the cached enrolled count has reached capacity.
func (c *Class) Full() bool {
	return c.Enrolled >= c.Capacity
}

// ClassFilter narrows class listings.
type ClassFilter struct {
	PairID  *uuid.UUID
	Variant Variant
}

// ClassFields is the set of class columns an update may touch.
type ClassFields struct {
	RoomID   *uuid.UUID
	Capacity *int
	Schedule WeeklySchedule
}

// Empty reports whether no field is set.
func (f ClassFields) Empty() bool {
	return f.RoomID == nil && f.Capacity == nil && f.Schedule == nil
}

// UpdateClassRequest edits a single class directly.
type UpdateClassRequest struct {
	RoomCode *string `json:"sala_codigo" binding:"omitempty,min=1,max=32"`
	Capacity *int    `json:"capacidade" binding:"omitempty,min=1,max=1000"`
}
