package repository

import (
	"context"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository handles staff accounts and their roles.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// roles are aggregated in the same query so a profile read is one round trip.
const profileSelect = `
	SELECT p.id, p.email, p.nome_completo, p.password_hash, p.ativo, p.created_at, p.updated_at,
	       COALESCE(array_agg(ur.role ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
	FROM profiles p
	LEFT JOIN user_roles ur ON ur.user_id = p.id`

func scanProfile(row scanner) (*model.UserProfile, error) {
	p := &model.UserProfile{}
	var roles []string
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.PasswordHash, &p.Active, &p.CreatedAt, &p.UpdatedAt, &roles)
	if err != nil {
		return nil, mapError(err)
	}
	p.Roles = make([]model.Role, 0, len(roles))
	for _, r := range roles {
		p.Roles = append(p.Roles, model.Role(r))
	}
	return p, nil
}

// GetByID retrieves a profile with its roles.
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.UserProfile, error) {
	return scanProfile(r.pool.QueryRow(ctx, profileSelect+` WHERE p.id = $1 GROUP BY p.id`, id))
}

// GetByEmail retrieves a profile by its unique email.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	return scanProfile(r.pool.QueryRow(ctx, profileSelect+` WHERE lower(p.email) = lower($1) GROUP BY p.id`, email))
}

// List retrieves every profile ordered by name.
func (r *ProfileRepository) List(ctx context.Context) ([]model.UserProfile, error) {
	rows, err := r.pool.Query(ctx, profileSelect+` GROUP BY p.id ORDER BY p.nome_completo`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.UserProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *p)
	}
	return users, rows.Err()
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, p *model.UserProfile) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO profiles (email, nome_completo, password_hash, ativo)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		p.Email, p.FullName, p.PasswordHash, p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapError(err)
}

// UpdatePassword replaces a profile's password hash.
func (r *ProfileRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return requireAffected(r.pool.Exec(ctx,
		`UPDATE profiles SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id))
}

// AssignRoles inserts one user_roles row per role. Roles already held are kept.
func (r *ProfileRepository) AssignRoles(ctx context.Context, userID uuid.UUID, roles []model.Role) error {
	if len(roles) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, role := range roles {
		batch.Queue(`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, role)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range roles {
		if _, err := br.Exec(); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// RevokeRole removes one role from a user.
func (r *ProfileRepository) RevokeRole(ctx context.Context, userID uuid.UUID, role model.Role) error {
	return requireAffected(r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role))
}
