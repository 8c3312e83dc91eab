package service

import (
	"context"
	"errors"
	"strings"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RoomService handles rooms.
type RoomService struct {
	repo  RoomStore
	audit AuditSink
	log   zerolog.Logger
}

// NewRoomService creates a new RoomService.
func NewRoomService(repo RoomStore, audit AuditSink, log zerolog.Logger) *RoomService {
	if audit == nil {
		audit = nopAudit{}
	}
	return &RoomService{
		repo:  repo,
		audit: audit,
		log:   log.With().Str("component", "room_service").Logger(),
	}
}

func (s *RoomService) List(ctx context.Context, filter model.RoomFilter) ([]model.Room, error) {
	rooms, err := s.repo.List(ctx, filter)
	return rooms, storeError("room.list", "Sala", err)
}

func (s *RoomService) Get(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	room, err := s.repo.GetByID(ctx, id)
	return room, storeError("room.get", "Sala", err)
}

func (s *RoomService) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	room, err := s.repo.GetByCode(ctx, strings.TrimSpace(code))
	return room, storeError("room.get_by_code", "Sala", err)
}

func (s *RoomService) Create(ctx context.Context, caller model.Caller, req model.CreateRoomRequest) (*model.Room, error) {
	room := &model.Room{
		Code:     strings.TrimSpace(req.Code),
		Capacity: req.Capacity,
		Type:     req.Type,
		Active:   req.Active == nil || *req.Active,
	}
	if room.Type == "" {
		room.Type = model.DefaultRoomType
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, storeError("room.create", "Sala", err)
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditCreate, model.TableRooms, room.ID.String(), nil, room))
	return room, nil
}

func (s *RoomService) Update(ctx context.Context, caller model.Caller, id uuid.UUID, req model.UpdateRoomRequest) (*model.Room, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("room.update", "Sala", err)
	}
	before := *room

	if req.Code != nil {
		room.Code = strings.TrimSpace(*req.Code)
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.Type != nil {
		room.Type = *req.Type
	}
	if req.Active != nil {
		room.Active = *req.Active
	}
	if err := s.repo.Update(ctx, room); err != nil {
		return nil, storeError("room.update", "Sala", err)
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditUpdate, model.TableRooms, id.String(), before, room))
	return room, nil
}

func (s *RoomService) Delete(ctx context.Context, caller model.Caller, id uuid.UUID) error {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return storeError("room.delete", "Sala", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError("room.delete", "Sala", err)
	}
	s.audit.Record(ctx, auditEntry(caller, model.AuditDelete, model.TableRooms, id.String(), room, nil))
	return nil
}

// GetOrCreateByCode returns the room with code, creating it with capacity
// when it does not exist. An existing room is returned unchanged, even if its
// capacity differs. Two callers racing on the same code both end up with the
// single stored room.
func (s *RoomService) GetOrCreateByCode(ctx context.Context, caller model.Caller, code string, capacity int) (*model.Room, error) {
	const op = "room.get_or_create"

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, validationError(op, "O código da sala é obrigatório.", map[string]string{"sala_codigo": "obrigatório"})
	}

	room, err := s.repo.GetByCode(ctx, code)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(op, "Sala", err)
	}

	room = &model.Room{Code: code, Capacity: capacity, Type: model.DefaultRoomType, Active: true}
	if err := s.repo.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			existing, getErr := s.repo.GetByCode(ctx, code)
			if getErr != nil {
				return nil, storeError(op, "Sala", getErr)
			}
			return existing, nil
		}
		return nil, storeError(op, "Sala", err)
	}

	s.log.Info().Str("code", code).Int("capacity", capacity).Msg("room created on demand")
	s.audit.Record(ctx, auditEntry(caller, model.AuditCreate, model.TableRooms, room.ID.String(), nil, room))
	return room, nil
}
