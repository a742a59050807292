package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// AuthService handles account registration and credential checks.
type AuthService struct {
	userRepo     ports.UserRepository
	defaultOrgID uuid.UUID
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(userRepo ports.UserRepository, defaultOrgID uuid.UUID) ports.AuthService {
	return &AuthService{
		userRepo:     userRepo,
		defaultOrgID: defaultOrgID,
	}
}

// Register creates a member account. Accounts without an explicit
// organization land in the default one.
func (s *AuthService) Register(ctx context.Context, fullName, email, password string, orgID uuid.UUID) (*domain.User, error) {
	params := domain.UserRegistrationParams{
		FullName: fullName,
		Email:    email,
		Password: password,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	switch _, err := s.userRepo.GetByEmail(ctx, email); {
	case err == nil:
		return nil, apperrors.ErrUserExists
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return nil, err
	}

	if orgID == uuid.Nil {
		orgID = s.defaultOrgID
	}

	user, err := domain.NewUser(params, orgID)
	if err != nil {
		return nil, err
	}
	return s.userRepo.Create(ctx, user)
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords return the same error so the endpoint cannot be used to
// enumerate accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" {
		return nil, apperrors.ErrEmailRequired
	}
	if password == "" {
		return nil, apperrors.ErrPasswordRequired
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrForbidden
	}
	return user, nil
}
