package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// UserRepository handles database operations for user accounts.
type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) ports.UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, organization_id, full_name, email, hashed_password, role, is_active, created_at, last_active_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user         domain.User
		id           pgtype.UUID
		orgID        pgtype.UUID
		createdAt    pgtype.Timestamptz
		lastActiveAt pgtype.Timestamptz
		role         string
	)

	err := row.Scan(&id, &orgID, &user.FullName, &user.Email, &user.HashedPassword, &role, &user.IsActive, &createdAt, &lastActiveAt)
	if err != nil {
		return nil, err
	}

	user.ID = id.Bytes
	user.OrganizationID = orgID.Bytes
	user.Role = domain.Role(role)
	user.CreatedAt = createdAt.Time
	if lastActiveAt.Valid {
		t := lastActiveAt.Time
		user.LastActiveAt = &t
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (organization_id, full_name, email, hashed_password, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	row := queryRunner(ctx, r.pool).QueryRow(ctx, query,
		pgtype.UUID{Bytes: user.OrganizationID, Valid: true},
		user.FullName,
		user.Email,
		user.HashedPassword,
		string(user.Role),
		user.IsActive,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(queryRunner(ctx, r.pool).QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(queryRunner(ctx, r.pool).QueryRow(ctx, query, pgtype.UUID{Bytes: id, Valid: true}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 ORDER BY full_name, email`

	return r.queryUsers(ctx, query, pgtype.UUID{Bytes: orgID, Valid: true})
}

func (r *UserRepository) ListByRole(ctx context.Context, orgID uuid.UUID, role domain.Role) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE organization_id = $1 AND role = $2 AND is_active
		ORDER BY created_at`

	return r.queryUsers(ctx, query, pgtype.UUID{Bytes: orgID, Valid: true}, string(role))
}

func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	query := `UPDATE users SET role = $2 WHERE id = $1`

	tag, err := queryRunner(ctx, r.pool).Exec(ctx, query, pgtype.UUID{Bytes: id, Valid: true}, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*domain.User, error) {
	rows, err := queryRunner(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
