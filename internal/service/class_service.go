package service

import (
	"context"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
)

// ClassService serves direct reads and edits of single classes. Pair level
// changes go through ClassPairWorkflow.
type ClassService struct {
	repo  ClassStore
	rooms *RoomService
	audit AuditSink
}

// NewClassService creates a new ClassService.
func NewClassService(repo ClassStore, rooms *RoomService, audit AuditSink) *ClassService {
	if audit == nil {
		audit = nopAudit{}
	}
	return &ClassService{repo: repo, rooms: rooms, audit: audit}
}

func (s *ClassService) List(ctx context.Context, filter model.ClassFilter) ([]model.Class, error) {
	classes, err := s.repo.List(ctx, filter)
	return classes, storeError("class.list", "Turma", err)
}

func (s *ClassService) Get(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	class, err := s.repo.GetByID(ctx, id)
	return class, storeError("class.get", "Turma", err)
}

// Update changes the room or capacity of one class. A new room code is
// resolved with get-or-create.
func (s *ClassService) Update(ctx context.Context, caller model.Caller, id uuid.UUID, req model.UpdateClassRequest) (*model.Class, error) {
	const op = "class.update"

	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(op, "Turma", err)
	}

	var fields model.ClassFields
	if req.RoomCode != nil {
		capacity := before.Capacity
		if req.Capacity != nil {
			capacity = *req.Capacity
		}
		room, err := s.rooms.GetOrCreateByCode(ctx, caller, *req.RoomCode, capacity)
		if err != nil {
			return nil, err
		}
		if room.ID != before.RoomID {
			fields.RoomID = &room.ID
		}
	}
	if req.Capacity != nil && *req.Capacity != before.Capacity {
		fields.Capacity = req.Capacity
	}
	if fields.Empty() {
		return before, nil
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, storeError(op, "Turma", err)
	}
	after, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(op, "Turma", err)
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditUpdate, model.TableClasses, id.String(), before, after))
	return after, nil
}

// Recount recomputes the cached enrolled count of a class from its students.
func (s *ClassService) Recount(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	if err := s.repo.RecountEnrolled(ctx, id); err != nil {
		return nil, storeError("class.recount", "Turma", err)
	}
	return s.Get(ctx, id)
}
