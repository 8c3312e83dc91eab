package repository

import (
	"context"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = `id, nome, email, telefone, numero_bi, data_nascimento, endereco, numero_estudante,
	curso_codigo, turma_pair_id, turma_id, turno, duracao, data_inicio, metodo_pagamento, valor_pago, status,
	data_inscricao, foto_url, copia_bi_url, declaracao_certificado_url, comprovativo_pagamento_url,
	created_by, created_at, updated_at`

func scanStudent(row scanner) (*model.Student, error) {
	s := &model.Student{}
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.IDNumber, &s.BirthDate, &s.Address, &s.StudentNumber,
		&s.CourseCode, &s.PairID, &s.ClassID, &s.Shift, &s.Duration, &s.StartDate, &s.PaymentMethod, &s.AmountPaid, &s.Status,
		&s.EnrolledAt, &s.PhotoPath, &s.IDCopyPath, &s.CertificatePath, &s.PaymentProofPath,
		&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

func (r *StudentRepository) queryStudents(ctx context.Context, query string, args ...any) ([]model.Student, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []model.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

func studentWhere(filter model.StudentFilter) whereClause {
	var w whereClause
	if filter.PairID != nil {
		w.add("turma_pair_id = ?", *filter.PairID)
	}
	if filter.ClassID != nil {
		w.add("turma_id = ?", *filter.ClassID)
	}
	if filter.CourseCode != "" {
		w.add("curso_codigo = ?", filter.CourseCode)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.Search != "" {
		w.add("(nome ILIKE ? OR numero_bi ILIKE ? OR numero_estudante ILIKE ?)", "%"+filter.Search+"%")
	}
	return w
}

// ListPaginated retrieves students matching filter with pagination.
func (r *StudentRepository) ListPaginated(ctx context.Context, filter model.StudentFilter) ([]model.Student, int, error) {
	w := studentWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alunos`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageOffset(filter.Page, filter.PerPage, 20)
	query := `SELECT ` + studentColumns + ` FROM alunos` + w.sql() +
		` ORDER BY data_inscricao DESC LIMIT ` + w.placeholder(limit) + ` OFFSET ` + w.placeholder(offset)

	students, err := r.queryStudents(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

// ListAll retrieves every student matching filter, without pagination.
func (r *StudentRepository) ListAll(ctx context.Context, filter model.StudentFilter) ([]model.Student, error) {
	w := studentWhere(filter)
	return r.queryStudents(ctx, `SELECT `+studentColumns+` FROM alunos`+w.sql()+` ORDER BY nome`, w.args...)
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM alunos WHERE id = $1`, id))
}

// ExistsByIDNumber reports whether a national ID number is already registered.
func (r *StudentRepository) ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM alunos WHERE numero_bi = $1)`, idNumber).Scan(&exists)
	return exists, err
}

// CountByPair returns how many students are assigned to a pair.
func (r *StudentRepository) CountByPair(ctx context.Context, pairID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alunos WHERE turma_pair_id = $1`, pairID).Scan(&n)
	return n, err
}

// Create inserts a student. The database assigns the student number and
// enrollment timestamp.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO alunos (nome, email, telefone, numero_bi, data_nascimento, endereco, curso_codigo,
		    turma_pair_id, turma_id, turno, duracao, data_inicio, metodo_pagamento, valor_pago, status,
		    foto_url, copia_bi_url, declaracao_certificado_url, comprovativo_pagamento_url, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		 RETURNING id, numero_estudante, data_inscricao, created_at, updated_at`,
		s.Name, s.Email, s.Phone, s.IDNumber, s.BirthDate, s.Address, s.CourseCode,
		s.PairID, s.ClassID, s.Shift, s.Duration, s.StartDate, s.PaymentMethod, s.AmountPaid, s.Status,
		s.PhotoPath, s.IDCopyPath, s.CertificatePath, s.PaymentProofPath, s.CreatedBy,
	).Scan(&s.ID, &s.StudentNumber, &s.EnrolledAt, &s.CreatedAt, &s.UpdatedAt)
	return mapError(err)
}

// Update writes only the supplied fields.
func (r *StudentRepository) Update(ctx context.Context, id uuid.UUID, f model.StudentFields) error {
	var s setClause
	if f.Name != nil {
		s.set("nome", *f.Name)
	}
	if f.Email != nil {
		s.set("email", *f.Email)
	}
	if f.Phone != nil {
		s.set("telefone", *f.Phone)
	}
	if f.IDNumber != nil {
		s.set("numero_bi", *f.IDNumber)
	}
	if f.BirthDate != nil {
		s.set("data_nascimento", *f.BirthDate)
	}
	if f.Address != nil {
		s.set("endereco", *f.Address)
	}
	if f.CourseCode != nil {
		s.set("curso_codigo", *f.CourseCode)
	}
	if f.PairID != nil {
		s.set("turma_pair_id", *f.PairID)
	}
	if f.ClassID != nil {
		s.set("turma_id", *f.ClassID)
	}
	if f.Shift != nil {
		s.set("turno", *f.Shift)
	}
	if f.Duration != nil {
		s.set("duracao", *f.Duration)
	}
	if f.StartDate != nil {
		s.set("data_inicio", *f.StartDate)
	}
	if f.PaymentMethod != nil {
		s.set("metodo_pagamento", *f.PaymentMethod)
	}
	if f.AmountPaid != nil {
		s.set("valor_pago", *f.AmountPaid)
	}
	if f.Status != nil {
		s.set("status", *f.Status)
	}
	if s.empty() {
		return nil
	}
	query, args := s.update("alunos", id)
	return requireAffected(r.pool.Exec(ctx, query, args...))
}

// Delete removes a student by ID.
func (r *StudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return requireAffected(r.pool.Exec(ctx, `DELETE FROM alunos WHERE id = $1`, id))
}

// DeleteByPair removes every student of a pair and returns how many were removed.
func (r *StudentRepository) DeleteByPair(ctx context.Context, pairID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM alunos WHERE turma_pair_id = $1`, pairID)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}
