package repository

import (
	"context"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardRepository handles admin dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummary retrieves totals for students, payments and active pairs.
func (r *DashboardRepository) GetSummary(ctx context.Context) (totalStudents int, totalPaid float64, activePairs int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM alunos),
			(SELECT COALESCE(SUM(valor_pago), 0) FROM alunos WHERE status <> 'cancelado'),
			(SELECT COUNT(*) FROM turma_pairs WHERE ativo)`,
	).Scan(&totalStudents, &totalPaid, &activePairs)
	return
}

// GetCountsBy groups students by status or course code.
func (r *DashboardRepository) GetCountsBy(ctx context.Context, column string) (map[string]int, error) {
	if column != "status" && column != "curso_codigo" {
		column = "status"
	}
	rows, err := r.pool.Query(ctx, `SELECT `+column+`, COUNT(*) FROM alunos GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// GetClassOccupancy compares each class's cached count with the real one.
func (r *DashboardRepository) GetClassOccupancy(ctx context.Context) ([]model.ClassOccupancy, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, p.nome, t.variante, s.codigo, t.capacidade, t.alunos_inscritos,
		        (SELECT COUNT(*) FROM alunos a WHERE a.turma_id = t.id AND a.status <> 'cancelado')
		 FROM turmas t
		 JOIN turma_pairs p ON p.id = t.turma_pair_id
		 JOIN salas s ON s.id = t.sala_id
		 ORDER BY p.periodo, p.created_at, t.variante`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ClassOccupancy{}
	for rows.Next() {
		var o model.ClassOccupancy
		if err := rows.Scan(&o.ClassID, &o.PairName, &o.Variant, &o.RoomCode, &o.Capacity, &o.Cached, &o.Actual); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
