package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tickettally/ticket-engine/internal/auth"
	"github.com/tickettally/ticket-engine/internal/config"
	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/events"
	"github.com/tickettally/ticket-engine/internal/repository"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// AuthService coordinates registration, login and password reset flows.
type AuthService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	logger     *zap.Logger
	now        Clock
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// AuthResult is a successful login or registration.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	ttl := cfg.PasswordResetTTLMinutes
	if ttl <= 0 {
		ttl = 60
	}
	return &AuthService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		logger:     logger,
		now:        now,
		bcryptCost: cfg.BcryptCost,
		resetTTL:   time.Duration(ttl) * time.Minute,
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates an employee account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, fullName, email, password string) (*AuthResult, error) {
	user, err := newUserRecord(fullName, email, password, domain.UserRoleEmployee, nil, s.bcryptCost, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := createUnique(ctx, s.store.Repositories(), user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.Repositories().Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorized("account disabled")
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// RequestPasswordReset issues a single-use reset token for email. Unknown addresses succeed
// without doing anything.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.Repositories().Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return apperrors.NewInternalError(err)
	}
	if !user.IsActive {
		return nil
	}

	now := s.now().UTC()
	token := &domain.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	if err := s.store.Repositories().PasswordResets.Create(ctx, token); err != nil {
		return apperrors.NewInternalError(err)
	}

	if s.dispatcher != nil {
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventPasswordResetRequested,
			Actor:     events.UserActor(user),
			Timestamp: now,
			Payload: events.PasswordResetRequestedPayload{
				UserID:    user.ID,
				Email:     user.Email,
				FullName:  user.FullName,
				Token:     token.Token,
				ExpiresAt: token.ExpiresAt,
			},
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("password reset notification failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return nil
}

// ConfirmPasswordReset redeems a reset token and sets a new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	hash, err := hashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		token, err := repos.PasswordResets.GetByToken(ctx, tokenStr)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperrors.NewValidationError("reset token is invalid or expired", nil)
			}
			return err
		}
		if !token.Usable(now) {
			return apperrors.NewValidationError("reset token is invalid or expired", nil)
		}
		user, err := repos.Users.GetByID(ctx, token.UserID)
		if err != nil {
			return storeError(err, "user", token.UserID)
		}
		user.PasswordHash = hash
		user.UpdatedAt = now
		if err := repos.Users.Update(ctx, user); err != nil {
			return err
		}
		if err := repos.PasswordResets.MarkUsed(ctx, token.ID, now); err != nil {
			if repository.IsNotFound(err) {
				return apperrors.NewValidationError("reset token is invalid or expired", nil)
			}
			return err
		}
		return nil
	})
	return storeError(err, "password_reset", "")
}

// ChangePassword verifies the current password before storing the new one.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	users := s.store.Repositories().Users
	user, err := users.GetByID(ctx, actor.ID)
	if err != nil {
		return storeError(err, "user", actor.ID)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()
	if err := users.Update(ctx, user); err != nil {
		return storeError(err, "user", actor.ID)
	}
	return nil
}

// ProfilePatch is a self-service account update. Nil fields are left unchanged; Preferences are
// merged key by key into the stored set.
type ProfilePatch struct {
	FullName    *string
	Department  *string
	Preferences map[string]any
}

// UpdateProfile applies patch to the actor's own account. Only employees manage a department.
func (s *AuthService) UpdateProfile(ctx context.Context, actor *domain.User, patch ProfilePatch) (*domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if patch.Department != nil && actor.Role != domain.UserRoleEmployee {
		return nil, apperrors.NewForbidden("only employees can set a department")
	}
	var fullName string
	if patch.FullName != nil {
		fullName = strings.TrimSpace(*patch.FullName)
		if fullName == "" {
			return nil, apperrors.NewValidationError("full name is required", nil)
		}
	}

	var user *domain.User
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		user, err = repos.Users.GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		if patch.FullName != nil {
			user.FullName = fullName
		}
		if patch.Department != nil {
			user.Department = strings.TrimSpace(*patch.Department)
		}
		if len(patch.Preferences) > 0 {
			merged := make(map[string]any, len(user.Preferences)+len(patch.Preferences))
			for k, v := range user.Preferences {
				merged[k] = v
			}
			for k, v := range patch.Preferences {
				merged[k] = v
			}
			user.Preferences = merged
		}
		user.UpdatedAt = s.now().UTC()
		return repos.Users.Update(ctx, user)
	})
	if err != nil {
		return nil, storeError(err, "user", actor.ID)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return "", apperrors.NewValidationError("password is too short",
				map[string]any{"min_length": auth.MinPasswordLength})
		}
		return "", apperrors.NewInternalError(err)
	}
	return hash, nil
}

func newUserRecord(fullName, email, password string, role domain.UserRole, teamID *string, cost int, now time.Time) (*domain.User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, apperrors.NewValidationError("full name is required", nil)
	}
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("email is invalid", map[string]any{"email": email})
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	hash, err := hashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		TeamID:       copyID(teamID),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func createUnique(ctx context.Context, repos repository.Repositories, user *domain.User) error {
	if _, err := repos.Users.GetByEmail(ctx, user.Email); err == nil {
		return apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
	} else if !repository.IsNotFound(err) {
		return apperrors.NewInternalError(err)
	}
	if err := repos.Users.Create(ctx, user); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}
