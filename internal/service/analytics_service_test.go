package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/domain"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

func TestBuildTrend(t *testing.T) {
	now := time.Date(2024, 3, 11, 15, 30, 0, 0, time.UTC)
	day := func(offset int) time.Time {
		return now.AddDate(0, 0, -offset)
	}
	tickets := []domain.Ticket{
		{Status: domain.TicketStatusOpen, CreatedAt: day(0), UpdatedAt: day(0)},
		{Status: domain.TicketStatusOpen, CreatedAt: day(0), UpdatedAt: day(0)},
		{Status: domain.TicketStatusInProgress, CreatedAt: day(3), UpdatedAt: day(3)},
		{Status: domain.TicketStatusOpen, CreatedAt: day(8), UpdatedAt: day(8)},
		{Status: domain.TicketStatusResolved, CreatedAt: day(9), UpdatedAt: day(2)},
		// Closed tickets no longer count as resolved.
		{Status: domain.TicketStatusClosed, CreatedAt: day(9), UpdatedAt: day(1)},
	}

	trend := BuildTrend(tickets, now)
	assert.Equal(t, []int{0, 0, 0, 1, 0, 0, 2}, trend.Created)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 0, 0}, trend.Resolved)
	require.Len(t, trend.Labels, TrendDays)
	assert.Equal(t, now.AddDate(0, 0, -6).Format(trendLabelLayout), trend.Labels[0])
	assert.Equal(t, now.Format(trendLabelLayout), trend.Labels[6])
}

func TestAggregateTickets(t *testing.T) {
	now := baseTime
	tickets := []domain.Ticket{
		{Status: domain.TicketStatusOpen, Category: "Network Issue", Priority: domain.TicketPriorityHigh, UpdatedAt: now},
		{Status: domain.TicketStatusInProgress, Category: "Network Issue", Priority: domain.TicketPriorityLow, UpdatedAt: now},
		{Status: domain.TicketStatusResolved, Category: "", Priority: domain.TicketPriorityLow, UpdatedAt: now},
		{Status: domain.TicketStatusResolved, Category: "Email Issue", Priority: domain.TicketPriorityLow, UpdatedAt: now.AddDate(0, 0, -1)},
		{Status: domain.TicketStatusWithdrawn, Category: "Email Issue", Priority: domain.TicketPriorityMedium, UpdatedAt: now},
	}

	agg := AggregateTickets(tickets, now)
	assert.Equal(t, StatusCounts{Total: 5, Open: 1, InProgress: 1, Resolved: 2, Withdrawn: 1}, agg.Counts)
	assert.Equal(t, 1, agg.ResolvedToday)
	assert.Equal(t, 2, agg.Categories["Network Issue"])
	assert.Equal(t, 1, agg.Categories[UncategorizedLabel])
	assert.Equal(t, 3, agg.Priorities["LOW"])
}

func TestDashboardStatsScopes(t *testing.T) {
	env := newTestEnv(t)
	analytics := NewAnalyticsService(AnalyticsDependencies{Store: env.store, Clock: env.clock.Now})
	creator := env.user("emp", domain.UserRoleEmployee, nil)
	other := env.user("other", domain.UserRoleEmployee, nil)
	staff := env.user("staff", domain.UserRoleITStaff, nil)
	admin := env.user("admin", domain.UserRoleAdmin, nil)

	env.openTicket(creator, "one", domain.TicketPriorityCritical)
	env.resolvedTicket(creator, staff, "two")
	env.openTicket(other, "three", domain.TicketPriorityLow)

	own, err := analytics.DashboardStats(env.ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, 2, own.Counts.Total)
	assert.Equal(t, 1, own.ResolvedToday)
	assert.Nil(t, own.TotalUsers)
	assert.Equal(t, 2, own.Trend.Created[TrendDays-1])
	assert.Equal(t, 1, own.Trend.Resolved[TrendDays-1])

	all, err := analytics.DashboardStats(env.ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Counts.Total)
	require.NotNil(t, all.TotalUsers)
	assert.Equal(t, 4, *all.TotalUsers)

	env.clock.Advance(5 * time.Hour)
	it, err := analytics.ITDashboard(env.ctx, staff)
	require.NoError(t, err)
	assert.Equal(t, 2, it.Active)
	assert.Equal(t, 1, it.SLABreaches)

	_, err = analytics.ITDashboard(env.ctx, creator)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
