package repository

import (
	"context"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoomRepository handles room data access.
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

const roomColumns = `id, codigo, capacidade, tipo, ativo, created_at, updated_at`

func scanRoom(row scanner) (*model.Room, error) {
	rm := &model.Room{}
	if err := row.Scan(&rm.ID, &rm.Code, &rm.Capacity, &rm.Type, &rm.Active, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return rm, nil
}

// List retrieves rooms ordered by code.
func (r *RoomRepository) List(ctx context.Context, filter model.RoomFilter) ([]model.Room, error) {
	var w whereClause
	if filter.Type != "" {
		w.add("tipo = ?", filter.Type)
	}
	if filter.Active != nil {
		w.add("ativo = ?", *filter.Active)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+roomColumns+` FROM salas`+w.sql()+` ORDER BY codigo`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := []model.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *rm)
	}
	return rooms, rows.Err()
}

// GetByID retrieves a room by its ID.
func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	return scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM salas WHERE id = $1`, id))
}

// GetByCode retrieves a room by its unique code.
func (r *RoomRepository) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	return scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM salas WHERE codigo = $1`, code))
}

// Create inserts a new room. A duplicate code yields ErrDuplicate.
func (r *RoomRepository) Create(ctx context.Context, rm *model.Room) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO salas (codigo, capacidade, tipo, ativo)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		rm.Code, rm.Capacity, rm.Type, rm.Active,
	).Scan(&rm.ID, &rm.CreatedAt, &rm.UpdatedAt)
	return mapError(err)
}

// Update modifies an existing room.
func (r *RoomRepository) Update(ctx context.Context, rm *model.Room) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE salas SET codigo = $1, capacidade = $2, tipo = $3, ativo = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING updated_at`,
		rm.Code, rm.Capacity, rm.Type, rm.Active, rm.ID,
	).Scan(&rm.UpdatedAt)
	return mapError(err)
}

// Delete removes a room. Rooms still bound to a class yield ErrHasDependents.
func (r *RoomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return requireAffected(r.pool.Exec(ctx, `DELETE FROM salas WHERE id = $1`, id))
}
