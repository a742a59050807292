package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/mocks"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/services"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	defaultOrgID := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	t.Run("success", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, defaultOrgID)

		mockUserRepo.On("GetByEmail", ctx, "newuser@example.com").
			Return(nil, apperrors.ErrUserNotFound)
		mockUserRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
			Return(&domain.User{
				ID:             uuid.New(),
				OrganizationID: defaultOrgID,
				FullName:       "New User",
				Email:          "newuser@example.com",
				Role:           domain.RoleMember,
			}, nil)

		user, err := svc.Register(ctx, "New User", "newuser@example.com", "Password123", uuid.Nil)

		require.NoError(t, err)
		assert.Equal(t, "New User", user.FullName)
		assert.Equal(t, defaultOrgID, user.OrganizationID)
		mockUserRepo.AssertExpectations(t)
	})

	t.Run("falls back to default organization", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, defaultOrgID)

		mockUserRepo.On("GetByEmail", ctx, "user@example.com").
			Return(nil, apperrors.ErrUserNotFound)
		mockUserRepo.On("Create", ctx, mock.MatchedBy(func(user *domain.User) bool {
			return user.OrganizationID == defaultOrgID
		})).Return(&domain.User{ID: uuid.New(), OrganizationID: defaultOrgID}, nil)

		_, err := svc.Register(ctx, "User", "user@example.com", "Password123", uuid.Nil)

		require.NoError(t, err)
		mockUserRepo.AssertExpectations(t)
	})

	t.Run("user already exists", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, defaultOrgID)

		mockUserRepo.On("GetByEmail", ctx, "existing@example.com").
			Return(&domain.User{ID: uuid.New(), Email: "existing@example.com"}, nil)

		user, err := svc.Register(ctx, "User", "existing@example.com", "Password123", uuid.Nil)

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrUserExists)
		mockUserRepo.AssertNotCalled(t, "Create")
	})

	t.Run("weak password", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, defaultOrgID)

		user, err := svc.Register(ctx, "User", "user@example.com", "weak", uuid.Nil)

		assert.Nil(t, user)
		var validationErr *apperrors.ValidationErrors
		assert.ErrorAs(t, err, &validationErr)
		mockUserRepo.AssertNotCalled(t, "GetByEmail")
	})

	t.Run("invalid email", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, defaultOrgID)

		user, err := svc.Register(ctx, "User", "not-an-email", "Password123", uuid.Nil)

		assert.Nil(t, user)
		assert.Error(t, err)
		mockUserRepo.AssertNotCalled(t, "Create")
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	defaultOrgID := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	t.Run("success", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, defaultOrgID)

		hash, err := domain.HashPassword("Password123")
		require.NoError(t, err)

		mockUserRepo.On("GetByEmail", ctx, "user@example.com").
			Return(&domain.User{
				ID:             uuid.New(),
				Email:          "user@example.com",
				HashedPassword: hash,
				IsActive:       true,
			}, nil)

		user, err := svc.Login(ctx, "user@example.com", "Password123")

		require.NoError(t, err)
		assert.Equal(t, "user@example.com", user.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, defaultOrgID)

		hash, _ := domain.HashPassword("Password123")
		mockUserRepo.On("GetByEmail", ctx, "user@example.com").
			Return(&domain.User{Email: "user@example.com", HashedPassword: hash, IsActive: true}, nil)

		user, err := svc.Login(ctx, "user@example.com", "WrongPassword1")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("unknown email does not leak existence", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, defaultOrgID)

		mockUserRepo.On("GetByEmail", ctx, "ghost@example.com").
			Return(nil, apperrors.ErrUserNotFound)

		user, err := svc.Login(ctx, "ghost@example.com", "Password123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("deactivated account", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, defaultOrgID)

		hash, _ := domain.HashPassword("Password123")
		mockUserRepo.On("GetByEmail", ctx, "user@example.com").
			Return(&domain.User{Email: "user@example.com", HashedPassword: hash, IsActive: false}, nil)

		user, err := svc.Login(ctx, "user@example.com", "Password123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("empty credentials", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo, defaultOrgID)

		_, err := svc.Login(ctx, "", "Password123")
		assert.ErrorIs(t, err, apperrors.ErrEmailRequired)

		_, err = svc.Login(ctx, "user@example.com", "")
		assert.ErrorIs(t, err, apperrors.ErrPasswordRequired)
	})
}
