package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// AdminService implements admin-only operations
type AdminService struct {
	userRepo      ports.UserRepository
	authzRepo     ports.AuthorizationRepository
	analyticsRepo ports.AnalyticsRepository
	authz         ports.AuthorizationService
	logger        *slog.Logger
}

var _ ports.AdminService = (*AdminService)(nil)

// NewAdminService creates a new admin service
func NewAdminService(
	userRepo ports.UserRepository,
	authzRepo ports.AuthorizationRepository,
	analyticsRepo ports.AnalyticsRepository,
	authz ports.AuthorizationService,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		userRepo:      userRepo,
		authzRepo:     authzRepo,
		analyticsRepo: analyticsRepo,
		authz:         authz,
		logger:        logger,
	}
}

// ListUsers returns every user in the organization.
func (s *AdminService) ListUsers(ctx context.Context, actorID, orgID uuid.UUID) ([]*domain.User, error) {
	if err := s.require(ctx, actorID, PermUsersManage); err != nil {
		return nil, err
	}
	return s.userRepo.ListByOrg(ctx, orgID)
}

// UpdateUserRole changes a user's role and syncs the RBAC assignment.
func (s *AdminService) UpdateUserRole(ctx context.Context, actorID, userID uuid.UUID, role domain.Role) error {
	if err := s.require(ctx, actorID, PermUsersManage); err != nil {
		return err
	}
	if !role.IsValid() {
		return apperrors.ErrInvalidRole
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == role {
		return apperrors.ErrRoleAlreadyAssigned
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	if err := s.authzRepo.AssignRole(ctx, userID, string(role)); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "user role updated",
		slog.String("user_id", userID.String()),
		slog.String("role", string(role)),
		slog.String("actor_id", actorID.String()))
	return nil
}

// DashboardOverview returns the staff dashboard aggregates over the last
// N days, defaulting to 30.
func (s *AdminService) DashboardOverview(ctx context.Context, actorID, orgID uuid.UUID, days int) (*domain.DashboardOverview, error) {
	if err := s.require(ctx, actorID, PermAnalyticsRead); err != nil {
		return nil, err
	}
	if days <= 0 || days > 365 {
		days = 30
	}
	return s.analyticsRepo.GetOverview(ctx, orgID, days)
}

func (s *AdminService) require(ctx context.Context, userID uuid.UUID, permission string) error {
	allowed, err := s.authz.Can(ctx, userID, permission)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.NewForbiddenError("admin access required")
	}
	return nil
}
