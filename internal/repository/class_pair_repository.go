package repository

import (
	"context"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClassPairRepository handles class pair data access and the aggregate
// read model of the pair management view.
type ClassPairRepository struct {
	pool    *pgxpool.Pool
	classes *ClassRepository
}

// NewClassPairRepository creates a new ClassPairRepository.
func NewClassPairRepository(pool *pgxpool.Pool, classes *ClassRepository) *ClassPairRepository {
	return &ClassPairRepository{pool: pool, classes: classes}
}

const pairColumns = `id, nome, periodo, horario_periodo, cursos, disciplinas_comuns, horario, ativo, created_at, updated_at`

func scanPair(row scanner) (*model.ClassPair, error) {
	p := &model.ClassPair{}
	err := row.Scan(&p.ID, &p.Name, &p.Period, &p.PeriodRange, &p.Courses, &p.CommonDisciplines,
		&p.Schedule, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

// List retrieves pairs, optionally restricted to the given IDs.
func (r *ClassPairRepository) List(ctx context.Context, ids []uuid.UUID) ([]model.ClassPair, error) {
	query := `SELECT ` + pairColumns + ` FROM turma_pairs`
	var args []any
	if ids != nil {
		query += ` WHERE id = ANY($1)`
		args = append(args, ids)
	}
	query += ` ORDER BY periodo, created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := []model.ClassPair{}
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, *p)
	}
	return pairs, rows.Err()
}

// GetByID retrieves a pair by its ID.
func (r *ClassPairRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ClassPair, error) {
	return scanPair(r.pool.QueryRow(ctx, `SELECT `+pairColumns+` FROM turma_pairs WHERE id = $1`, id))
}

// CountByPeriod returns how many pairs exist in a period.
func (r *ClassPairRepository) CountByPeriod(ctx context.Context, period model.Period) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM turma_pairs WHERE periodo = $1`, period).Scan(&n)
	return n, mapError(err)
}

// Create inserts a new pair.
func (r *ClassPairRepository) Create(ctx context.Context, p *model.ClassPair) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO turma_pairs (nome, periodo, horario_periodo, cursos, disciplinas_comuns, horario, ativo)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.Period, p.PeriodRange, nonNil(p.Courses), nonNil(p.CommonDisciplines), p.Schedule.Clone(), p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapError(err)
}

// Update writes only the supplied pair fields.
func (r *ClassPairRepository) Update(ctx context.Context, id uuid.UUID, f model.ClassPairFields) error {
	var s setClause
	if f.Name != nil {
		s.set("nome", *f.Name)
	}
	if f.Period != nil {
		s.set("periodo", *f.Period)
	}
	if f.PeriodRange != nil {
		s.set("horario_periodo", *f.PeriodRange)
	}
	if f.Courses != nil {
		s.set("cursos", f.Courses)
	}
	if f.CommonDisciplines != nil {
		s.set("disciplinas_comuns", f.CommonDisciplines)
	}
	if f.Schedule != nil {
		s.set("horario", f.Schedule.Clone())
	}
	if f.Active != nil {
		s.set("ativo", *f.Active)
	}
	if s.empty() {
		return nil
	}
	query, args := s.update("turma_pairs", id)
	return requireAffected(r.pool.Exec(ctx, query, args...))
}

// Delete removes a pair. Remaining classes or students yield ErrHasDependents.
func (r *ClassPairRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return requireAffected(r.pool.Exec(ctx, `DELETE FROM turma_pairs WHERE id = $1`, id))
}

// LoadAggregates builds the pair view for the given pairs, or for all pairs
// when ids is nil. It runs three queries regardless of the number of pairs.
func (r *ClassPairRepository) LoadAggregates(ctx context.Context, ids []uuid.UUID) ([]model.ClassPairAggregate, error) {
	pairs, err := r.List(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return []model.ClassPairAggregate{}, nil
	}

	pairIDs := make([]uuid.UUID, len(pairs))
	index := make(map[uuid.UUID]int, len(pairs))
	aggs := make([]model.ClassPairAggregate, len(pairs))
	for i, p := range pairs {
		pairIDs[i] = p.ID
		index[p.ID] = i
		aggs[i] = model.ClassPairAggregate{ClassPair: p, Students: []model.StudentSummary{}}
	}

	classes, err := r.classes.ListByPairs(ctx, pairIDs)
	if err != nil {
		return nil, err
	}
	for i := range classes {
		c := classes[i]
		agg := &aggs[index[c.PairID]]
		switch c.Variant {
		case model.VariantA:
			agg.ClassA = &c
		case model.VariantB:
			agg.ClassB = &c
		}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, nome, numero_estudante, curso_codigo, turma_id, status, turma_pair_id
		 FROM alunos WHERE turma_pair_id = ANY($1) ORDER BY nome`, pairIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s model.StudentSummary
		var pairID uuid.UUID
		if err := rows.Scan(&s.ID, &s.Name, &s.StudentNumber, &s.CourseCode, &s.ClassID, &s.Status, &pairID); err != nil {
			return nil, err
		}
		if i, ok := index[pairID]; ok {
			aggs[i].Students = append(aggs[i].Students, s)
		}
	}
	return aggs, rows.Err()
}
