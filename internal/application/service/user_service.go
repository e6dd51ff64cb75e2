package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medialert/reportflow/internal/application/port"
	"github.com/medialert/reportflow/internal/domain/entity"
	"github.com/medialert/reportflow/pkg/utils"
)

// UserService maintains the local mirror of identity-provider users
type UserService interface {
	// ProvisionUser creates or updates a directory entry. Only admins and the system may call it.
	ProvisionUser(ctx context.Context, caller entity.Caller, user entity.User) (*entity.User, error)
	GetUser(ctx context.Context, id string) (*entity.User, error)
}

type userServiceImpl struct {
	userRepo port.UserRepository
	logger   Logger
	now      func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(userRepo port.UserRepository, logger Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ProvisionUser upserts user into the directory
func (s *userServiceImpl) ProvisionUser(ctx context.Context, caller entity.Caller, user entity.User) (*entity.User, error) {
	if caller.Role != entity.RoleAdmin && caller.Role != entity.RoleSystem {
		return nil, fmt.Errorf("%w: only admins provision users", ErrNotAuthorized)
	}

	if err := utils.ValidateIdentifier("id", user.ID); err != nil {
		return nil, invalid("id", err)
	}
	if !user.Role.IsValid() {
		return nil, invalidf("role", "unknown role %q", user.Role)
	}
	// Admins act across institutions; everyone else belongs to one
	if user.Role != entity.RoleAdmin {
		if err := utils.ValidateIdentifier("institution_id", user.InstitutionID); err != nil {
			return nil, invalid("institution_id", err)
		}
	}
	user.DisplayName = utils.SanitizeString(user.DisplayName)
	if err := utils.ValidateMaxLength("display_name", user.DisplayName, maxFreeTextLength); err != nil {
		return nil, invalid("display_name", err)
	}

	now := s.now()
	existing, err := s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.CreatedAt = now
	if existing != nil {
		user.CreatedAt = existing.CreatedAt
	}
	user.UpdatedAt = now

	if err := s.userRepo.Upsert(ctx, &user); err != nil {
		s.logger.Error("Failed to provision user", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	s.logger.Info("User provisioned", "user_id", user.ID, "role", user.Role, "institution_id", user.InstitutionID)
	return &user, nil
}

// GetUser returns nil, nil when the user is unknown
func (s *userServiceImpl) GetUser(ctx context.Context, id string) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
