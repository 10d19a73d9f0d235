package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/domain"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

func TestClaimTicketAssignsAndRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	employee := env.user("emp", domain.UserRoleEmployee, nil)
	staff := env.user("staff", domain.UserRoleITStaff, nil)
	ticket := env.openTicket(employee, "Printer jam", domain.TicketPriorityHigh)

	env.clock.Advance(time.Minute)
	claimed, err := env.assignments.ClaimTicket(env.ctx, staff, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, claimed.Status)
	require.NotNil(t, claimed.AssignedToID)
	assert.Equal(t, staff.ID, *claimed.AssignedToID)
	assert.Equal(t, baseTime.Add(time.Minute), claimed.UpdatedAt)

	history, err := env.repos().History.ListByTicket(env.ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[1].OldStatus)
	assert.Equal(t, domain.TicketStatusOpen, *history[1].OldStatus)
	assert.Equal(t, domain.TicketStatusInProgress, history[1].NewStatus)
	require.NotNil(t, history[1].ChangedByID)
	assert.Equal(t, staff.ID, *history[1].ChangedByID)
}

func TestClaimTicketConcurrentClaimsExactlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	employee := env.user("emp", domain.UserRoleEmployee, nil)
	first := env.user("first", domain.UserRoleITStaff, nil)
	second := env.user("second", domain.UserRoleITStaff, nil)
	ticket := env.openTicket(employee, "VPN down", domain.TicketPriorityCritical)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, actor := range []*domain.User{first, second} {
		wg.Add(1)
		go func(i int, actor *domain.User) {
			defer wg.Done()
			_, results[i] = env.assignments.ClaimTicket(env.ctx, actor, ticket.ID)
		}(i, actor)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, apperrors.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	history, err := env.repos().History.ListByTicket(env.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestClaimTicketWorkloadCap(t *testing.T) {
	env := newTestEnv(t)
	employee := env.user("emp", domain.UserRoleEmployee, nil)
	staff := env.user("staff", domain.UserRoleITStaff, nil)

	for i := 0; i < 2; i++ {
		ticket := env.openTicket(employee, "ticket", domain.TicketPriorityLow)
		_, err := env.assignments.ClaimTicket(env.ctx, staff, ticket.ID)
		require.NoError(t, err)
	}

	third := env.openTicket(employee, "third", domain.TicketPriorityLow)
	_, err := env.assignments.ClaimTicket(env.ctx, staff, third.ID)
	require.NoError(t, err, "an actor holding two tickets may claim a third")

	fourth := env.openTicket(employee, "fourth", domain.TicketPriorityLow)
	_, err = env.assignments.ClaimTicket(env.ctx, staff, fourth.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)

	unchanged, err := env.repos().Tickets.GetByID(env.ctx, fourth.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, unchanged.Status)
	assert.Nil(t, unchanged.AssignedToID)
}

func TestClaimTicketResolvedTicketsDoNotCountTowardsCap(t *testing.T) {
	env := newTestEnv(t)
	employee := env.user("emp", domain.UserRoleEmployee, nil)
	staff := env.user("staff", domain.UserRoleITStaff, nil)
	for i := 0; i < 3; i++ {
		env.resolvedTicket(employee, staff, "done")
	}

	ticket := env.openTicket(employee, "next", domain.TicketPriorityLow)
	_, err := env.assignments.ClaimTicket(env.ctx, staff, ticket.ID)
	assert.NoError(t, err)
}

func TestClaimTicketErrors(t *testing.T) {
	env := newTestEnv(t)
	employee := env.user("emp", domain.UserRoleEmployee, nil)
	staff := env.user("staff", domain.UserRoleITStaff, nil)

	_, err := env.assignments.ClaimTicket(env.ctx, staff, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	withdrawn := env.openTicket(employee, "never mind", domain.TicketPriorityLow)
	_, err = env.tickets.WithdrawTicket(env.ctx, employee, withdrawn.ID)
	require.NoError(t, err)
	_, err = env.assignments.ClaimTicket(env.ctx, staff, withdrawn.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	resolved := env.resolvedTicket(employee, staff, "fixed")
	_, err = env.assignments.ClaimTicket(env.ctx, staff, resolved.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	open := env.openTicket(employee, "mine", domain.TicketPriorityLow)
	_, err = env.assignments.ClaimTicket(env.ctx, employee, open.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestAutoCloseResolvedIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	employee := env.user("emp", domain.UserRoleEmployee, nil)
	staff := env.user("staff", domain.UserRoleITStaff, nil)

	stale := env.resolvedTicket(employee, staff, "old fix")
	env.clock.Advance(48 * time.Hour)
	fresh := env.resolvedTicket(employee, staff, "new fix")
	env.clock.Advance(time.Hour)

	closed, err := env.assignments.AutoCloseResolved(env.ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	got, err := env.repos().Tickets.GetByID(env.ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, got.Status)
	require.NotNil(t, got.AssignedToID, "closed tickets keep their assignee")

	history, err := env.repos().History.ListByTicket(env.ctx, stale.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, domain.TicketStatusClosed, history[3].NewStatus)
	assert.Nil(t, history[3].ChangedByID)

	closed, err = env.assignments.AutoCloseResolved(env.ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, closed)

	history, err = env.repos().History.ListByTicket(env.ctx, stale.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)

	untouched, err := env.repos().Tickets.GetByID(env.ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, untouched.Status)
}

func TestAutoCloseResolvedRejectsNegativeAge(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.assignments.AutoCloseResolved(env.ctx, -time.Hour)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
