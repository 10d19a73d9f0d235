package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/domain"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

func TestEvaluateSLA(t *testing.T) {
	created := baseTime
	cfg := &domain.SLAConfig{Priority: domain.TicketPriorityHigh, ResolutionTimeHours: 8}

	tests := []struct {
		name   string
		status domain.TicketStatus
		cfg    *domain.SLAConfig
		now    time.Time
		want   domain.SLAStatus
	}{
		{"pending before deadline", domain.TicketStatusOpen, cfg, created.Add(7 * time.Hour), domain.SLAStatusPending},
		{"pending at deadline", domain.TicketStatusInProgress, cfg, created.Add(8 * time.Hour), domain.SLAStatusPending},
		{"breached after deadline", domain.TicketStatusInProgress, cfg, created.Add(9 * time.Hour), domain.SLAStatusBreached},
		{"resolved is achieved", domain.TicketStatusResolved, cfg, created.Add(100 * time.Hour), domain.SLAStatusAchieved},
		{"closed is achieved", domain.TicketStatusClosed, nil, created.Add(100 * time.Hour), domain.SLAStatusAchieved},
		{"no config breaches immediately", domain.TicketStatusOpen, nil, created.Add(time.Second), domain.SLAStatusBreached},
		{"no config at creation is pending", domain.TicketStatusOpen, nil, created, domain.SLAStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := &domain.Ticket{Status: tt.status, Priority: domain.TicketPriorityHigh, CreatedAt: created}
			assert.Equal(t, tt.want, EvaluateSLA(ticket, tt.cfg, tt.now))
		})
	}
}

func TestSLAServiceCriticalWithoutConfigIsBreached(t *testing.T) {
	env := newTestEnv(t)
	employee := env.user("emp", domain.UserRoleEmployee, nil)
	ticket := env.openTicket(employee, "server down", domain.TicketPriorityCritical)

	env.clock.Advance(5 * time.Hour)
	deadline, err := env.sla.Deadline(env.ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, ticket.CreatedAt, deadline)

	status, err := env.sla.Status(env.ctx, ticket, env.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.SLAStatusBreached, status)

	eval, err := env.tickets.SLAStatus(env.ctx, employee, ticket.ID)
	require.NoError(t, err)
	assert.False(t, eval.Configured)
	assert.Equal(t, domain.SLAStatusBreached, eval.Status)
}

func TestSLAServiceUsesConfiguredBudget(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("admin", domain.UserRoleAdmin, nil)
	employee := env.user("emp", domain.UserRoleEmployee, nil)

	_, err := env.sla.UpsertConfig(env.ctx, admin, domain.SLAConfig{
		Priority:            domain.TicketPriorityCritical,
		ResponseTimeHours:   1,
		ResolutionTimeHours: 4,
	})
	require.NoError(t, err)

	ticket := env.openTicket(employee, "db down", domain.TicketPriorityCritical)
	env.clock.Advance(3 * time.Hour)
	eval, err := env.sla.Evaluate(env.ctx, ticket)
	require.NoError(t, err)
	assert.True(t, eval.Configured)
	assert.Equal(t, ticket.CreatedAt.Add(4*time.Hour), eval.Deadline)
	assert.Equal(t, domain.SLAStatusPending, eval.Status)
}

func TestSLAServiceUpsertRules(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("admin", domain.UserRoleAdmin, nil)
	staff := env.user("staff", domain.UserRoleITStaff, nil)

	_, err := env.sla.UpsertConfig(env.ctx, staff, domain.SLAConfig{Priority: domain.TicketPriorityLow})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.sla.UpsertConfig(env.ctx, admin, domain.SLAConfig{Priority: "URGENT"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.sla.UpsertConfig(env.ctx, admin, domain.SLAConfig{Priority: domain.TicketPriorityLow, ResolutionTimeHours: -1})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSLAServiceSeedKeepsExistingRows(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("admin", domain.UserRoleAdmin, nil)
	_, err := env.sla.UpsertConfig(env.ctx, admin, domain.SLAConfig{Priority: domain.TicketPriorityHigh, ResolutionTimeHours: 2})
	require.NoError(t, err)

	added, err := env.sla.Seed(env.ctx, []domain.SLAConfig{
		{Priority: domain.TicketPriorityHigh, ResolutionTimeHours: 8},
		{Priority: domain.TicketPriorityLow, ResolutionTimeHours: 72},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	configs, err := env.sla.ListConfigs(env.ctx)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	for _, cfg := range configs {
		if cfg.Priority == domain.TicketPriorityHigh {
			assert.Equal(t, 2, cfg.ResolutionTimeHours)
		}
	}

	added, err = env.sla.Seed(env.ctx, []domain.SLAConfig{{Priority: domain.TicketPriorityLow, ResolutionTimeHours: 1}})
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestIsCoarseBreach(t *testing.T) {
	now := baseTime
	mk := func(priority domain.TicketPriority, status domain.TicketStatus, age time.Duration) domain.Ticket {
		return domain.Ticket{Priority: priority, Status: status, CreatedAt: now.Add(-age)}
	}
	tickets := []domain.Ticket{
		mk(domain.TicketPriorityCritical, domain.TicketStatusOpen, 5*time.Hour),
		mk(domain.TicketPriorityCritical, domain.TicketStatusOpen, 3*time.Hour),
		mk(domain.TicketPriorityHigh, domain.TicketStatusInProgress, 9*time.Hour),
		mk(domain.TicketPriorityHigh, domain.TicketStatusResolved, 9*time.Hour),
		mk(domain.TicketPriorityLow, domain.TicketStatusOpen, 100*time.Hour),
	}
	assert.Equal(t, 2, CountCoarseBreaches(tickets, now))
}
