package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMatchesSentinelByCode(t *testing.T) {
	err := NewConflict("ticket already claimed", map[string]any{"ticket_id": "t-1"})

	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)

	wrapped := fmt.Errorf("claim: %w", err)
	assert.ErrorIs(t, wrapped, ErrConflict)
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	original := NewCapacityExceeded("workload cap reached", nil)
	assert.Same(t, original, ToDomainError(fmt.Errorf("wrap: %w", original)))

	notFound := ToDomainError(fmt.Errorf("scan: %w", pgx.ErrNoRows))
	require.NotNil(t, notFound)
	assert.Equal(t, CodeNotFound, notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	boom := errors.New("boom")
	internal := ToDomainError(boom)
	assert.Equal(t, CodeInternal, internal.Code)
	assert.ErrorIs(t, internal, boom)
	assert.Equal(t, "internal server error: boom", internal.Error())
}

func TestMapErrorKeepsNil(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.ErrorIs(t, MapError(NewForbidden("no")), ErrForbidden)
}
