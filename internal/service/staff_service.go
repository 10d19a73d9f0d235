package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/repository"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// StaffService manages teams and user accounts. All operations are admin only.
type StaffService struct {
	store      repository.Store
	logger     *zap.Logger
	now        Clock
	bcryptCost int
}

// StaffDependencies bundles collaborators for the staff service.
type StaffDependencies struct {
	Store      repository.Store
	Logger     *zap.Logger
	Clock      Clock
	BcryptCost int
}

// UserListFilters define listing parameters.
type UserListFilters struct {
	Role       *domain.UserRole
	TeamID     *string
	ActiveOnly bool
}

// CreateUserInput describes an account created by an admin.
type CreateUserInput struct {
	FullName string
	Email    string
	Password string
	Role     domain.UserRole
	TeamID   *string
}

// UserPatch is a partial account update. Nil fields are left unchanged.
type UserPatch struct {
	FullName *string
	Role     *domain.UserRole
	TeamID   *string
	// ClearTeam removes the team membership; it wins over TeamID.
	ClearTeam bool
	IsActive  *bool
}

// NewStaffService constructs the service.
func NewStaffService(deps StaffDependencies) *StaffService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &StaffService{store: deps.Store, logger: logger, now: now, bcryptCost: deps.BcryptCost}
}

func requireAdmin(actor *domain.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.Role != domain.UserRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateTeam adds a team tickets can be routed to.
func (s *StaffService) CreateTeam(ctx context.Context, actor *domain.User, name, description string) (*domain.Team, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("team name is required", nil)
	}
	teams := s.store.Repositories().Teams
	if _, err := teams.GetByName(ctx, name); err == nil {
		return nil, apperrors.NewConflict("team already exists", map[string]any{"name": name})
	} else if !repository.IsNotFound(err) {
		return nil, apperrors.NewInternalError(err)
	}
	team := &domain.Team{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC(),
	}
	if err := teams.Create(ctx, team); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return team, nil
}

// ListTeams returns every team. Any authenticated user may list teams.
func (s *StaffService) ListTeams(ctx context.Context, actor *domain.User) ([]domain.Team, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	teams, err := s.store.Repositories().Teams.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return teams, nil
}

// CreateUser adds an account with any role.
func (s *StaffService) CreateUser(ctx context.Context, actor *domain.User, input CreateUserInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	repos := s.store.Repositories()
	if err := s.checkTeam(ctx, repos, input.TeamID); err != nil {
		return nil, err
	}
	user, err := newUserRecord(input.FullName, input.Email, input.Password, input.Role, input.TeamID, s.bcryptCost, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := createUnique(ctx, repos, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("admin_id", actor.ID))
	return user, nil
}

// ListUsers lists accounts with filters.
func (s *StaffService) ListUsers(ctx context.Context, actor *domain.User, filters UserListFilters) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.store.Repositories().Users.List(ctx, repository.UserFilter{
		Role:       filters.Role,
		TeamID:     filters.TeamID,
		ActiveOnly: filters.ActiveOnly,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// UpdateUser changes an account's name, role, team or activity flag.
func (s *StaffService) UpdateUser(ctx context.Context, actor *domain.User, userID string, patch UserPatch) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *patch.Role})
	}
	if patch.IsActive != nil && !*patch.IsActive && userID == actor.ID {
		return nil, apperrors.NewInvalidState("admins cannot deactivate themselves", nil)
	}

	var user *domain.User
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		user, err = repos.Users.GetByID(ctx, userID)
		if err != nil {
			return storeError(err, "user", userID)
		}
		if patch.FullName != nil {
			name := strings.TrimSpace(*patch.FullName)
			if name == "" {
				return apperrors.NewValidationError("full name is required", nil)
			}
			user.FullName = name
		}
		if patch.Role != nil {
			user.Role = *patch.Role
		}
		switch {
		case patch.ClearTeam:
			user.TeamID = nil
		case patch.TeamID != nil:
			if err := s.checkTeam(ctx, repos, patch.TeamID); err != nil {
				return err
			}
			user.TeamID = copyID(patch.TeamID)
		}
		if patch.IsActive != nil {
			user.IsActive = *patch.IsActive
		}
		user.UpdatedAt = s.now().UTC()
		return repos.Users.Update(ctx, user)
	})
	if err != nil {
		return nil, storeError(err, "user", userID)
	}
	return user, nil
}

func (s *StaffService) checkTeam(ctx context.Context, repos repository.Repositories, teamID *string) error {
	if teamID == nil {
		return nil
	}
	if _, err := repos.Teams.GetByID(ctx, *teamID); err != nil {
		if repository.IsNotFound(err) {
			return apperrors.NewValidationError("team does not exist", map[string]any{"team_id": *teamID})
		}
		return apperrors.NewInternalError(err)
	}
	return nil
}
