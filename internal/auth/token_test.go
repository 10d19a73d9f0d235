package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	user := &domain.User{ID: "u-1", Role: domain.UserRoleITStaff}

	token, expiresAt, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, domain.UserRoleITStaff, claims.Role)
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	token, _, err := tm.GenerateToken(&domain.User{ID: "u-1", Role: domain.UserRoleEmployee})
	require.NoError(t, err)

	_, err = NewTokenManager("other-secret", 15).ParseToken(token)
	assert.Error(t, err)

	expired := NewTokenManager("secret", 15)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.GenerateToken(&domain.User{ID: "u-1"})
	require.NoError(t, err)
	_, err = tm.ParseToken(old)
	assert.Error(t, err)

	_, _, err = tm.GenerateToken(&domain.User{})
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short", 4)
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("long-enough", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "long-enough"))
	assert.Error(t, ComparePassword(hash, "long-enougH"))
}
