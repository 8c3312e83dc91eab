package model

import (
	"time"

	"github.com/google/uuid"
)

// CourseGroup is the fixed grouping used to organise the catalog.
type CourseGroup string

const (
	GroupSaude           CourseGroup = "saude"
	GroupEngenharia      CourseGroup = "engenharia"
	GroupTecnologia      CourseGroup = "tecnologia"
	GroupGestao          CourseGroup = "gestao"
	GroupCienciasSociais CourseGroup = "ciencias_sociais"
	GroupOutros          CourseGroup = "outros"
)

// CourseGroups lists every accepted group in display order.
var CourseGroups = []CourseGroup{
	GroupSaude, GroupEngenharia, GroupTecnologia, GroupGestao, GroupCienciasSociais, GroupOutros,
}

// Valid reports whether g is one of CourseGroups.
func (g CourseGroup) Valid() bool {
	for _, known := range CourseGroups {
		if g == known {
			return true
		}
	}
	return false
}

// WeeklySchedule maps a weekday ("segunda", "terca", ...) to a discipline label.
type WeeklySchedule map[string]string

// Clone returns an independent copy so snapshots never alias the source.
func (w WeeklySchedule) Clone() WeeklySchedule {
	if w == nil {
		return WeeklySchedule{}
	}
	out := make(WeeklySchedule, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Course is a catalog entry referenced by code from students and class pairs.
type Course struct {
	ID          uuid.UUID      `json:"id"`
	Code        string         `json:"codigo"`
	Name        string         `json:"nome"`
	Group       CourseGroup    `json:"grupo"`
	Disciplines []string       `json:"disciplinas"`
	Schedule    WeeklySchedule `json:"horario"`
	Active      bool           `json:"ativo"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CourseFilter narrows course listings. Zero values are ignored.
type CourseFilter struct {
	Group  CourseGroup `form:"grupo" binding:"omitempty,course_group"`
	Active *bool       `form:"ativo"`
	Search string      `form:"q" binding:"omitempty,max=100"`
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Code        string         `json:"codigo" binding:"required,slug,max=64"`
	Name        string         `json:"nome" binding:"required,min=2,max=200"`
	Group       CourseGroup    `json:"grupo" binding:"required,course_group"`
	Disciplines []string       `json:"disciplinas" binding:"omitempty,dive,required,max=120"`
	Schedule    WeeklySchedule `json:"horario"`
	Active      *bool          `json:"ativo"`
}

// UpdateCourseRequest carries a partial course update; nil fields are kept.
type UpdateCourseRequest struct {
	Code        *string        `json:"codigo" binding:"omitempty,slug,max=64"`
	Name        *string        `json:"nome" binding:"omitempty,min=2,max=200"`
	Group       *CourseGroup   `json:"grupo" binding:"omitempty,course_group"`
	Disciplines []string       `json:"disciplinas" binding:"omitempty,dive,required,max=120"`
	Schedule    WeeklySchedule `json:"horario"`
	Active      *bool          `json:"ativo"`
}
