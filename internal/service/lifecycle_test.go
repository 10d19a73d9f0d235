package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/domain"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.TicketStatus
		to      domain.TicketStatus
		trigger transitionTrigger
		wantErr error
	}{
		{"claim open ticket", domain.TicketStatusOpen, domain.TicketStatusInProgress, triggerClaim, nil},
		{"claim in progress ticket", domain.TicketStatusInProgress, domain.TicketStatusResolved, triggerClaim, apperrors.ErrInvalidState},
		{"withdraw open ticket", domain.TicketStatusOpen, domain.TicketStatusWithdrawn, triggerWithdraw, nil},
		{"withdraw in progress ticket", domain.TicketStatusInProgress, domain.TicketStatusWithdrawn, triggerWithdraw, apperrors.ErrInvalidState},
		{"resolve in progress ticket", domain.TicketStatusInProgress, domain.TicketStatusResolved, triggerUpdate, nil},
		{"reopen resolved ticket", domain.TicketStatusResolved, domain.TicketStatusInProgress, triggerUpdate, nil},
		{"close resolved ticket", domain.TicketStatusResolved, domain.TicketStatusClosed, triggerUpdate, nil},
		{"update to withdrawn", domain.TicketStatusOpen, domain.TicketStatusWithdrawn, triggerUpdate, apperrors.ErrInvalidState},
		{"same status", domain.TicketStatusOpen, domain.TicketStatusOpen, triggerUpdate, apperrors.ErrInvalidState},
		{"leave closed", domain.TicketStatusClosed, domain.TicketStatusOpen, triggerUpdate, apperrors.ErrInvalidState},
		{"leave withdrawn", domain.TicketStatusWithdrawn, domain.TicketStatusOpen, triggerUpdate, apperrors.ErrInvalidState},
		{"unknown target", domain.TicketStatusOpen, domain.TicketStatus("PAUSED"), triggerUpdate, apperrors.ErrValidation},
		{"auto-close resolved", domain.TicketStatusResolved, domain.TicketStatusClosed, triggerAutoClose, nil},
		{"auto-close in progress", domain.TicketStatusInProgress, domain.TicketStatusClosed, triggerAutoClose, apperrors.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkTransition(tt.from, tt.to, tt.trigger)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTicketScope(t *testing.T) {
	team := "team-1"
	other := "team-2"
	employee := &domain.User{ID: "emp", Role: domain.UserRoleEmployee}
	staff := &domain.User{ID: "staff", Role: domain.UserRoleITStaff, TeamID: &team}
	floater := &domain.User{ID: "floater", Role: domain.UserRoleITStaff}
	admin := &domain.User{ID: "admin", Role: domain.UserRoleAdmin}

	assigned := "staff"
	own := &domain.Ticket{ID: "t1", CreatedByID: "emp", TeamID: &other}
	teamTicket := &domain.Ticket{ID: "t2", CreatedByID: "someone", TeamID: &team}
	claimed := &domain.Ticket{ID: "t3", CreatedByID: "someone", TeamID: &other, AssignedToID: &assigned}

	assert.True(t, canView(employee, own))
	assert.False(t, canView(employee, teamTicket))

	assert.True(t, canView(staff, teamTicket))
	assert.True(t, canView(staff, claimed))
	assert.False(t, canView(staff, own))

	assert.True(t, canView(floater, own))
	assert.True(t, canView(admin, own))
}
