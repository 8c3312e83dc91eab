package service

import (
	"context"
	"slices"
	"strings"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CourseService handles the course catalog.
type CourseService struct {
	repo  CourseStore
	audit AuditSink
	log   zerolog.Logger
}

// NewCourseService creates a new CourseService.
func NewCourseService(repo CourseStore, audit AuditSink, log zerolog.Logger) *CourseService {
	if audit == nil {
		audit = nopAudit{}
	}
	return &CourseService{
		repo:  repo,
		audit: audit,
		log:   log.With().Str("component", "course_service").Logger(),
	}
}

func (s *CourseService) List(ctx context.Context, filter model.CourseFilter) ([]model.Course, error) {
	courses, err := s.repo.List(ctx, filter)
	return courses, storeError("course.list", "Curso", err)
}

func (s *CourseService) Get(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	course, err := s.repo.GetByID(ctx, id)
	return course, storeError("course.get", "Curso", err)
}

func (s *CourseService) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	course, err := s.repo.GetByCode(ctx, strings.TrimSpace(code))
	return course, storeError("course.get_by_code", "Curso", err)
}

// Catalog returns every course keyed by code, for consistency checks.
func (s *CourseService) Catalog(ctx context.Context) (CourseCatalog, error) {
	courses, err := s.repo.List(ctx, model.CourseFilter{})
	if err != nil {
		return nil, storeError("course.catalog", "Curso", err)
	}
	return NewCourseCatalog(courses), nil
}

func (s *CourseService) Create(ctx context.Context, caller model.Caller, req model.CreateCourseRequest) (*model.Course, error) {
	course := &model.Course{
		Code:        strings.TrimSpace(req.Code),
		Name:        strings.TrimSpace(req.Name),
		Group:       req.Group,
		Disciplines: req.Disciplines,
		Schedule:    req.Schedule.Clone(),
		Active:      req.Active == nil || *req.Active,
	}
	if course.Disciplines == nil {
		course.Disciplines = []string{}
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, storeError("course.create", "Curso", err)
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditCreate, model.TableCourses, course.ID.String(), nil, course))
	return course, nil
}

func (s *CourseService) Update(ctx context.Context, caller model.Caller, id uuid.UUID, req model.UpdateCourseRequest) (*model.Course, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("course.update", "Curso", err)
	}
	before := *current

	if req.Code != nil {
		current.Code = strings.TrimSpace(*req.Code)
	}
	if req.Name != nil {
		current.Name = strings.TrimSpace(*req.Name)
	}
	if req.Group != nil {
		current.Group = *req.Group
	}
	if req.Disciplines != nil {
		current.Disciplines = req.Disciplines
	}
	if req.Schedule != nil {
		current.Schedule = req.Schedule.Clone()
	}
	if req.Active != nil {
		current.Active = *req.Active
	}

	if err := s.repo.Update(ctx, current); err != nil {
		return nil, storeError("course.update", "Curso", err)
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditUpdate, model.TableCourses, id.String(), before, current))
	return current, nil
}

// Delete removes a course. Courses still referenced by students cannot be
// deleted; deactivate them instead.
func (s *CourseService) Delete(ctx context.Context, caller model.Caller, id uuid.UUID) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return storeError("course.delete", "Curso", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError("course.delete", "Curso", err)
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditDelete, model.TableCourses, id.String(), current, nil))
	return nil
}

// CourseCatalog indexes courses by code.
type CourseCatalog map[string]model.Course

// NewCourseCatalog builds a catalog from a course list.
func NewCourseCatalog(courses []model.Course) CourseCatalog {
	out := make(CourseCatalog, len(courses))
	for _, c := range courses {
		out[c.Code] = c
	}
	return out
}

// CommonDisciplines returns the disciplines shared by every course, in the
// order they appear in the first course. An empty input yields an empty list.
func CommonDisciplines(courses []model.Course) []string {
	out := []string{}
	if len(courses) == 0 {
		return out
	}

	seen := make(map[string]bool)
	for _, d := range courses[0].Disciplines {
		if seen[d] {
			continue
		}
		shared := true
		for _, other := range courses[1:] {
			if !slices.Contains(other.Disciplines, d) {
				shared = false
				break
			}
		}
		if shared {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
