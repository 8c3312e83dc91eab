package repository

import (
	"context"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository handles audit_logs and audit_views.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// InsertBatch writes audit entries with COPY.
func (r *AuditRepository) InsertBatch(ctx context.Context, logs []model.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"audit_logs"},
		[]string{"user_id", "acao", "tabela", "registro_id", "valores_antigos", "valores_novos", "created_at"},
		pgx.CopyFromSlice(len(logs), func(i int) ([]any, error) {
			l := logs[i]
			return []any{l.UserID, string(l.Action), l.Table, l.RecordID, jsonOrNil(l.OldValues), jsonOrNil(l.NewValues), l.CreatedAt}, nil
		}),
	)
	return mapError(err)
}

// Insert writes a single audit entry.
func (r *AuditRepository) Insert(ctx context.Context, l model.AuditLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (user_id, acao, tabela, registro_id, valores_antigos, valores_novos, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.UserID, l.Action, l.Table, l.RecordID, jsonOrNil(l.OldValues), jsonOrNil(l.NewValues), l.CreatedAt)
	return mapError(err)
}

// InsertViews writes view events with COPY.
func (r *AuditRepository) InsertViews(ctx context.Context, views []model.AuditView) error {
	if len(views) == 0 {
		return nil
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"audit_views"},
		[]string{"user_id", "tabela", "registro_id", "created_at"},
		pgx.CopyFromSlice(len(views), func(i int) ([]any, error) {
			v := views[i]
			return []any{v.UserID, v.Table, v.RecordID, v.CreatedAt}, nil
		}),
	)
	return mapError(err)
}

// List retrieves audit entries, newest first.
func (r *AuditRepository) List(ctx context.Context, filter model.AuditFilter) ([]model.AuditLog, int, error) {
	var w whereClause
	if filter.UserID != nil {
		w.add("l.user_id = ?", *filter.UserID)
	}
	if filter.Table != "" {
		w.add("l.tabela = ?", filter.Table)
	}
	if filter.Action != "" {
		w.add("l.acao = ?", filter.Action)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs l`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageOffset(filter.Page, filter.PerPage, 50)
	query := `SELECT l.id, l.user_id, COALESCE(p.email, ''), l.acao, l.tabela, l.registro_id,
	                 l.valores_antigos, l.valores_novos, l.created_at
	          FROM audit_logs l
	          LEFT JOIN profiles p ON p.id = l.user_id` + w.sql() +
		` ORDER BY l.created_at DESC LIMIT ` + w.placeholder(limit) + ` OFFSET ` + w.placeholder(offset)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []model.AuditLog{}
	for rows.Next() {
		var l model.AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.UserEmail, &l.Action, &l.Table, &l.RecordID,
			&l.OldValues, &l.NewValues, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

// StatsByUser aggregates write and view counts per staff user.
func (r *AuditRepository) StatsByUser(ctx context.Context) ([]model.AuditUserStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.email, p.nome_completo,
		       COALESCE(l.creates, 0), COALESCE(l.updates, 0), COALESCE(l.deletes, 0),
		       COALESCE(v.views, 0),
		       GREATEST(l.last_at, v.last_at)
		FROM profiles p
		LEFT JOIN (
			SELECT user_id,
			       COUNT(*) FILTER (WHERE acao = 'create') AS creates,
			       COUNT(*) FILTER (WHERE acao = 'update') AS updates,
			       COUNT(*) FILTER (WHERE acao = 'delete') AS deletes,
			       MAX(created_at) AS last_at
			FROM audit_logs GROUP BY user_id
		) l ON l.user_id = p.id
		LEFT JOIN (
			SELECT user_id, COUNT(*) AS views, MAX(created_at) AS last_at
			FROM audit_views GROUP BY user_id
		) v ON v.user_id = p.id
		ORDER BY p.nome_completo`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []model.AuditUserStats{}
	for rows.Next() {
		var s model.AuditUserStats
		if err := rows.Scan(&s.UserID, &s.Email, &s.FullName, &s.Creates, &s.Updates, &s.Deletes, &s.Views, &s.LastActivity); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// jsonOrNil keeps empty snapshots as SQL NULL.
func jsonOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
