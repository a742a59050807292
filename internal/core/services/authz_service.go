package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// AuthorizationService implements permission checks backed by the RBAC tables.
type AuthorizationService struct {
	authzRepo   ports.AuthorizationRepository
	logger      *slog.Logger
	defaultRole string
}

var _ ports.AuthorizationService = (*AuthorizationService)(nil)

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(authzRepo ports.AuthorizationRepository, logger *slog.Logger) ports.AuthorizationService {
	return &AuthorizationService{
		authzRepo:   authzRepo,
		logger:      logger,
		defaultRole: "member",
	}
}

// Can reports whether the user holds the given permission.
func (s *AuthorizationService) Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	perms, err := s.ensurePermissions(ctx, userID)
	if err != nil {
		return false, err
	}

	for _, p := range perms {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

// GetPermissions returns all permissions granted to the user.
func (s *AuthorizationService) GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.ensurePermissions(ctx, userID)
}

// ensurePermissions loads the user's permissions, assigning the default
// role first when the user has no role rows yet (accounts created before
// RBAC was introduced).
func (s *AuthorizationService) ensurePermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	perms, err := s.authzRepo.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(perms) > 0 {
		return perms, nil
	}

	if err := s.authzRepo.AssignRole(ctx, userID, s.defaultRole); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "assigned default role to user",
		slog.String("user_id", userID.String()),
		slog.String("role", s.defaultRole))

	return s.authzRepo.GetUserPermissions(ctx, userID)
}
