package service

import (
	"context"
	"io"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
)

// The store interfaces below are satisfied by the Postgres repositories and
// by in-memory fakes in tests.

// CourseStore persists the course catalog.
type CourseStore interface {
	List(ctx context.Context, filter model.CourseFilter) ([]model.Course, error)
	ListByCodes(ctx context.Context, codes []string) ([]model.Course, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error)
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	Create(ctx context.Context, course *model.Course) error
	Update(ctx context.Context, course *model.Course) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RoomStore persists rooms.
type RoomStore interface {
	List(ctx context.Context, filter model.RoomFilter) ([]model.Room, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error)
	GetByCode(ctx context.Context, code string) (*model.Room, error)
	Create(ctx context.Context, rm *model.Room) error
	Update(ctx context.Context, rm *model.Room) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ClassStore persists the A/B classes of each pair.
type ClassStore interface {
	List(ctx context.Context, filter model.ClassFilter) ([]model.Class, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Class, error)
	GetByPairAndVariant(ctx context.Context, pairID uuid.UUID, v model.Variant) (*model.Class, error)
	Create(ctx context.Context, c *model.Class) error
	Update(ctx context.Context, id uuid.UUID, f model.ClassFields) error
	IncrementEnrolled(ctx context.Context, id uuid.UUID, delta int) error
	RecountEnrolled(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByPair(ctx context.Context, pairID uuid.UUID) (int64, error)
}

// ClassPairStore persists class pairs and loads their aggregates.
type ClassPairStore interface {
	List(ctx context.Context, ids []uuid.UUID) ([]model.ClassPair, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ClassPair, error)
	CountByPeriod(ctx context.Context, period model.Period) (int, error)
	Create(ctx context.Context, p *model.ClassPair) error
	Update(ctx context.Context, id uuid.UUID, f model.ClassPairFields) error
	Delete(ctx context.Context, id uuid.UUID) error
	LoadAggregates(ctx context.Context, ids []uuid.UUID) ([]model.ClassPairAggregate, error)
}

// StudentStore persists students.
type StudentStore interface {
	ListPaginated(ctx context.Context, filter model.StudentFilter) ([]model.Student, int, error)
	ListAll(ctx context.Context, filter model.StudentFilter) ([]model.Student, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error)
	CountByPair(ctx context.Context, pairID uuid.UUID) (int, error)
	Create(ctx context.Context, s *model.Student) error
	Update(ctx context.Context, id uuid.UUID, f model.StudentFields) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByPair(ctx context.Context, pairID uuid.UUID) (int64, error)
}

// ProfileStore persists staff accounts and their roles.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	List(ctx context.Context) ([]model.UserProfile, error)
	Create(ctx context.Context, p *model.UserProfile) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	AssignRoles(ctx context.Context, userID uuid.UUID, roles []model.Role) error
	RevokeRole(ctx context.Context, userID uuid.UUID, role model.Role) error
}

// Bucket stores enrollment documents under bucket-relative paths.
type Bucket interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader, size int64) error
	Download(ctx context.Context, path string) ([]byte, string, error)
}

// AuditSink receives audit records. Record never fails the caller.
type AuditSink interface {
	Record(ctx context.Context, entry model.AuditLog)
}

// DocumentNotifier is told about a finished enrollment so the documents can
// be forwarded to the secretariat.
type DocumentNotifier interface {
	NotifyEnrollment(ctx context.Context, student *model.Student, pairName string) error
}

// TuitionSource returns the current enrollment fee.
type TuitionSource interface {
	TuitionFee(ctx context.Context) float64
}

// PairState is the client-side view of class pairs that optimistic toggles
// write to before the store confirms.
type PairState interface {
	// Apply mutates the cached pair and marks it pending. It returns false
	// when the pair is not cached.
	Apply(id uuid.UUID, mutate func(*model.ClassPairAggregate)) bool
	Confirm(id uuid.UUID)
	Revert(ctx context.Context, id uuid.UUID)
	// Reload refetches one pair, or every pair when id is nil.
	Reload(ctx context.Context, id *uuid.UUID)
}

// NopPairState is used when no realtime view is running.
type NopPairState struct{}

func (NopPairState) Apply(uuid.UUID, func(*model.ClassPairAggregate)) bool { return false }
func (NopPairState) Confirm(uuid.UUID)                                  {}
func (NopPairState) Revert(context.Context, uuid.UUID)                  {}
func (NopPairState) Reload(context.Context, *uuid.UUID)                 {}

// nopAudit drops every record.
type nopAudit struct{}

func (nopAudit) Record(context.Context, model.AuditLog) {}
