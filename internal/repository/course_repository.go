package repository

import (
	"context"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CourseRepository interface {
	List(ctx context.Context, filter model.CourseFilter) ([]model.Course, error)
	ListByCodes(ctx context.Context, codes []string) ([]model.Course, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error)
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	Create(ctx context.Context, course *model.Course) error
	Update(ctx context.Context, course *model.Course) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type courseRepository struct {
	db *pgxpool.Pool
}

func NewCourseRepository(db *pgxpool.Pool) CourseRepository {
	return &courseRepository{db: db}
}

const courseColumns = `id, codigo, nome, grupo, disciplinas, horario, ativo, created_at, updated_at`

func scanCourse(row scanner) (*model.Course, error) {
	c := &model.Course{}
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Group, &c.Disciplines, &c.Schedule, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *courseRepository) List(ctx context.Context, filter model.CourseFilter) ([]model.Course, error) {
	var w whereClause
	if filter.Group != "" {
		w.add("grupo = ?", filter.Group)
	}
	if filter.Active != nil {
		w.add("ativo = ?", *filter.Active)
	}
	if filter.Search != "" {
		w.add("(nome ILIKE ? OR codigo ILIKE ?)", "%"+filter.Search+"%")
	}

	rows, err := r.db.Query(ctx, `SELECT `+courseColumns+` FROM cursos`+w.sql()+` ORDER BY nome ASC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

// ListByCodes returns the courses whose code is in codes, in no particular order.
func (r *courseRepository) ListByCodes(ctx context.Context, codes []string) ([]model.Course, error) {
	rows, err := r.db.Query(ctx, `SELECT `+courseColumns+` FROM cursos WHERE codigo = ANY($1)`, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

func (r *courseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	return scanCourse(r.db.QueryRow(ctx, `SELECT `+courseColumns+` FROM cursos WHERE id = $1`, id))
}

func (r *courseRepository) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	return scanCourse(r.db.QueryRow(ctx, `SELECT `+courseColumns+` FROM cursos WHERE codigo = $1`, code))
}

func (r *courseRepository) Create(ctx context.Context, course *model.Course) error {
	query := `
		INSERT INTO cursos (codigo, nome, grupo, disciplinas, horario, ativo)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		course.Code, course.Name, course.Group, nonNil(course.Disciplines), course.Schedule.Clone(), course.Active,
	).Scan(&course.ID, &course.CreatedAt, &course.UpdatedAt)
	return mapError(err)
}

func (r *courseRepository) Update(ctx context.Context, course *model.Course) error {
	query := `
		UPDATE cursos
		SET codigo = $1, nome = $2, grupo = $3, disciplinas = $4, horario = $5, ativo = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		course.Code, course.Name, course.Group, nonNil(course.Disciplines), course.Schedule.Clone(), course.Active, course.ID,
	).Scan(&course.UpdatedAt)
	return mapError(err)
}

func (r *courseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return requireAffected(r.db.Exec(ctx, `DELETE FROM cursos WHERE id = $1`, id))
}
