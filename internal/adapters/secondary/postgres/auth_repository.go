package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// AuthorizationRepository handles database operations for RBAC.
type AuthorizationRepository struct {
	pool *pgxpool.Pool
}

// Ensure implementation matches the interface.
var _ ports.AuthorizationRepository = (*AuthorizationRepository)(nil)

// NewAuthorizationRepository creates a new repository for authorization queries.
func NewAuthorizationRepository(pool *pgxpool.Pool) ports.AuthorizationRepository {
	return &AuthorizationRepository{pool: pool}
}

// GetUserPermissions fetches all distinct permissions for a given user ID.
func (r *AuthorizationRepository) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT p.code
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		INNER JOIN user_roles ur ON rp.role_id = ur.role_id
		WHERE ur.user_id = $1
	`

	rows, err := queryRunner(ctx, r.pool).Query(ctx, query, pgtype.UUID{Bytes: userID, Valid: true})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		permissions = append(permissions, code)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return permissions, nil
}

// AssignRole replaces the user's role assignment with the named role.
// The delete and insert run in one transaction so a user is never left
// with zero or two roles.
func (r *AuthorizationRepository) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	return withTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var roleID int32
		err := tx.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, role).Scan(&roleID)
		if err != nil {
			return fmt.Errorf("looking up role %q: %w", role, err)
		}

		uid := pgtype.UUID{Bytes: userID, Valid: true}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, uid); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`,
			uid, roleID)
		return err
	})
}
