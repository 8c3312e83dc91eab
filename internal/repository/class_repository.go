package repository

import (
	"context"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClassRepository handles class data access. Reads always join the room.
type ClassRepository struct {
	pool *pgxpool.Pool
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

const classSelect = `
	SELECT t.id, t.turma_pair_id, t.variante, t.sala_id, t.capacidade, t.alunos_inscritos, t.horario,
	       t.created_at, t.updated_at, s.codigo, s.capacidade, s.tipo
	FROM turmas t
	JOIN salas s ON s.id = t.sala_id`

func scanClass(row scanner) (*model.Class, error) {
	c := &model.Class{Room: &model.RoomRef{}}
	err := row.Scan(&c.ID, &c.PairID, &c.Variant, &c.RoomID, &c.Capacity, &c.Enrolled, &c.Schedule,
		&c.CreatedAt, &c.UpdatedAt, &c.Room.Code, &c.Room.Capacity, &c.Room.Type)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *ClassRepository) queryClasses(ctx context.Context, query string, args ...any) ([]model.Class, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	classes := []model.Class{}
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

// List retrieves classes with their rooms.
func (r *ClassRepository) List(ctx context.Context, filter model.ClassFilter) ([]model.Class, error) {
	var w whereClause
	if filter.PairID != nil {
		w.add("t.turma_pair_id = ?", *filter.PairID)
	}
	if filter.Variant != "" {
		w.add("t.variante = ?", filter.Variant)
	}
	return r.queryClasses(ctx, classSelect+w.sql()+` ORDER BY t.created_at, t.variante`, w.args...)
}

// ListByPairs retrieves the classes of several pairs in one query.
func (r *ClassRepository) ListByPairs(ctx context.Context, pairIDs []uuid.UUID) ([]model.Class, error) {
	return r.queryClasses(ctx, classSelect+` WHERE t.turma_pair_id = ANY($1) ORDER BY t.variante`, pairIDs)
}

// GetByID retrieves a class by its ID.
func (r *ClassRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	return scanClass(r.pool.QueryRow(ctx, classSelect+` WHERE t.id = $1`, id))
}

// GetByPairAndVariant retrieves the A or B class of a pair.
func (r *ClassRepository) GetByPairAndVariant(ctx context.Context, pairID uuid.UUID, v model.Variant) (*model.Class, error) {
	return scanClass(r.pool.QueryRow(ctx, classSelect+` WHERE t.turma_pair_id = $1 AND t.variante = $2`, pairID, v))
}

// Create inserts a new class with a zero enrolled count.
func (r *ClassRepository) Create(ctx context.Context, c *model.Class) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO turmas (turma_pair_id, variante, sala_id, capacidade, alunos_inscritos, horario)
		 VALUES ($1, $2, $3, $4, 0, $5)
		 RETURNING id, alunos_inscritos, created_at, updated_at`,
		c.PairID, c.Variant, c.RoomID, c.Capacity, c.Schedule.Clone(),
	).Scan(&c.ID, &c.Enrolled, &c.CreatedAt, &c.UpdatedAt)
	return mapError(err)
}

// Update writes only the supplied fields.
func (r *ClassRepository) Update(ctx context.Context, id uuid.UUID, f model.ClassFields) error {
	var s setClause
	if f.RoomID != nil {
		s.set("sala_id", *f.RoomID)
	}
	if f.Capacity != nil {
		s.set("capacidade", *f.Capacity)
	}
	if f.Schedule != nil {
		s.set("horario", f.Schedule.Clone())
	}
	if s.empty() {
		return nil
	}
	query, args := s.update("turmas", id)
	return requireAffected(r.pool.Exec(ctx, query, args...))
}

// IncrementEnrolled adjusts the cached enrolled count. The count never goes
// below zero.
func (r *ClassRepository) IncrementEnrolled(ctx context.Context, id uuid.UUID, delta int) error {
	return requireAffected(r.pool.Exec(ctx,
		`UPDATE turmas SET alunos_inscritos = GREATEST(alunos_inscritos + $1, 0), updated_at = NOW() WHERE id = $2`,
		delta, id))
}

// RecountEnrolled resets the cached count from the students table. Cancelled
// students do not occupy a seat.
func (r *ClassRepository) RecountEnrolled(ctx context.Context, id uuid.UUID) error {
	return requireAffected(r.pool.Exec(ctx,
		`UPDATE turmas t
		 SET alunos_inscritos = (SELECT COUNT(*) FROM alunos a WHERE a.turma_id = t.id AND a.status <> 'cancelado'), updated_at = NOW()
		 WHERE t.id = $1`, id))
}

// Delete removes a class by its ID.
func (r *ClassRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return requireAffected(r.pool.Exec(ctx, `DELETE FROM turmas WHERE id = $1`, id))
}

// DeleteByPair removes both classes of a pair and returns how many were removed.
func (r *ClassRepository) DeleteByPair(ctx context.Context, pairID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM turmas WHERE turma_pair_id = $1`, pairID)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}
