package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
)

func createTestUser(t *testing.T, role domain.Role) *domain.User {
	t.Helper()
	pool := requirePool(t)
	repo := NewUserRepository(pool)

	user, err := repo.Create(context.Background(), &domain.User{
		OrganizationID: uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		FullName:       "Test User",
		Email:          fmt.Sprintf("user-%s@example.com", uuid.NewString()),
		HashedPassword: "$2a$10$notarealhashnotarealhashnotarealhash",
		Role:           role,
		IsActive:       true,
	})
	require.NoError(t, err)
	return user
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	pool := requirePool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	created := createTestUser(t, domain.RoleMember)
	require.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, domain.RoleMember, created.Role)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)

	byEmail, err := repo.GetByEmail(ctx, created.Email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestUserRepository_GetMissingReturnsNotFound(t *testing.T) {
	pool := requirePool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = repo.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserRepository_UpdateRole(t *testing.T) {
	pool := requirePool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	user := createTestUser(t, domain.RoleMember)

	require.NoError(t, repo.UpdateRole(ctx, user.ID, domain.RoleTechnician))

	updated, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTechnician, updated.Role)

	err = repo.UpdateRole(ctx, uuid.New(), domain.RoleTechnician)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserRepository_ListByRole(t *testing.T) {
	pool := requirePool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	director := createTestUser(t, domain.RoleTechnicalDirector)

	directors, err := repo.ListByRole(ctx, director.OrganizationID, domain.RoleTechnicalDirector)
	require.NoError(t, err)

	found := false
	for _, u := range directors {
		assert.Equal(t, domain.RoleTechnicalDirector, u.Role)
		if u.ID == director.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAuthorizationRepository_AssignRoleReplacesPrevious(t *testing.T) {
	pool := requirePool(t)
	repo := NewAuthorizationRepository(pool)
	ctx := context.Background()

	user := createTestUser(t, domain.RoleMember)

	require.NoError(t, repo.AssignRole(ctx, user.ID, "member"))
	perms, err := repo.GetUserPermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, perms, "tickets:create")
	assert.NotContains(t, perms, "tickets:read_all")

	require.NoError(t, repo.AssignRole(ctx, user.ID, "technician"))
	perms, err = repo.GetUserPermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, perms, "tickets:read_all")
	assert.Contains(t, perms, "replies:internal")
}

func TestAuthorizationRepository_AssignUnknownRoleFails(t *testing.T) {
	pool := requirePool(t)
	repo := NewAuthorizationRepository(pool)

	user := createTestUser(t, domain.RoleMember)
	err := repo.AssignRole(context.Background(), user.ID, "warlord")
	assert.Error(t, err)
}
