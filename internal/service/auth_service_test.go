package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/config"
	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/events"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

func newTestAuthService(env *testEnv) *AuthService {
	return NewAuthService(config.AuthConfig{
		JWTSecret:               "test-secret",
		AccessTokenTTLMinutes:   15,
		PasswordResetTTLMinutes: 30,
		BcryptCost:              4,
	}, AuthDependencies{Store: env.store, Dispatcher: env.dispatcher, Clock: env.clock.Now})
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(env)

	result, err := svc.Register(env.ctx, "Dana Doe", " Dana@Example.com ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleEmployee, result.User.Role)
	assert.Equal(t, "dana@example.com", result.User.Email)
	assert.NotEmpty(t, result.Token)

	_, err = svc.Register(env.ctx, "Dana Again", "dana@example.com", "correct-horse")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.Register(env.ctx, "Short", "short@example.com", "abc")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	login, err := svc.Login(env.ctx, "DANA@example.com", "correct-horse")
	require.NoError(t, err)
	claims, err := svc.TokenManager().ParseToken(login.Token)
	require.NoError(t, err)
	assert.NotNil(t, claims)

	_, err = svc.Login(env.ctx, "dana@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(env)
	_, err := svc.Register(env.ctx, "Dana Doe", "dana@example.com", "old-password")
	require.NoError(t, err)

	var token string
	env.dispatcher.Subscribe(events.EventPasswordResetRequested, func(_ context.Context, event events.Event) error {
		token = event.Payload.(events.PasswordResetRequestedPayload).Token
		return nil
	})

	require.NoError(t, svc.RequestPasswordReset(env.ctx, "nobody@example.com"))
	assert.Empty(t, token, "unknown addresses do not issue tokens")

	require.NoError(t, svc.RequestPasswordReset(env.ctx, "dana@example.com"))
	require.NotEmpty(t, token)

	require.NoError(t, svc.ConfirmPasswordReset(env.ctx, token, "new-password"))
	err = svc.ConfirmPasswordReset(env.ctx, token, "another-password")
	assert.ErrorIs(t, err, apperrors.ErrValidation, "tokens are single use")

	_, err = svc.Login(env.ctx, "dana@example.com", "new-password")
	assert.NoError(t, err)
}

func TestPasswordResetTokenExpires(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(env)
	_, err := svc.Register(env.ctx, "Dana Doe", "dana@example.com", "old-password")
	require.NoError(t, err)

	var token string
	env.dispatcher.Subscribe(events.EventPasswordResetRequested, func(_ context.Context, event events.Event) error {
		token = event.Payload.(events.PasswordResetRequestedPayload).Token
		return nil
	})
	require.NoError(t, svc.RequestPasswordReset(env.ctx, "dana@example.com"))

	env.clock.Advance(31 * time.Minute)
	err = svc.ConfirmPasswordReset(env.ctx, token, "new-password")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(env)
	result, err := svc.Register(env.ctx, "Dana Doe", "dana@example.com", "old-password")
	require.NoError(t, err)

	err = svc.ChangePassword(env.ctx, result.User, "not-it", "new-password")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.NoError(t, svc.ChangePassword(env.ctx, result.User, "old-password", "new-password"))
	_, err = svc.Login(env.ctx, "dana@example.com", "new-password")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(env)
	employee := env.user("dana", domain.UserRoleEmployee, nil)
	staff := env.user("sam", domain.UserRoleITStaff, nil)

	name := "  Dana Doe "
	department := "Finance"
	updated, err := svc.UpdateProfile(env.ctx, employee, ProfilePatch{
		FullName:    &name,
		Department:  &department,
		Preferences: map[string]any{"theme": "dark"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana Doe", updated.FullName)
	assert.Equal(t, "Finance", updated.Department)

	updated, err = svc.UpdateProfile(env.ctx, employee, ProfilePatch{Preferences: map[string]any{"language": "de"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"theme": "dark", "language": "de"}, updated.Preferences)

	stored, err := env.repos().Users.GetByID(env.ctx, employee.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dana Doe", stored.FullName)
	assert.Equal(t, "Finance", stored.Department)
	assert.Equal(t, "de", stored.Preferences["language"])

	t.Run("only employees set a department", func(t *testing.T) {
		_, err := svc.UpdateProfile(env.ctx, staff, ProfilePatch{Department: &department})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("full name cannot be blanked", func(t *testing.T) {
		blank := "   "
		_, err := svc.UpdateProfile(env.ctx, employee, ProfilePatch{FullName: &blank})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("staff may rename themselves", func(t *testing.T) {
		renamed := "Sam Staff"
		updated, err := svc.UpdateProfile(env.ctx, staff, ProfilePatch{FullName: &renamed})
		require.NoError(t, err)
		assert.Equal(t, "Sam Staff", updated.FullName)
		assert.Empty(t, updated.Department)
	})
}
