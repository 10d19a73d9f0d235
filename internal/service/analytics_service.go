package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/repository"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// TrendDays is the length of the daily trend series.
const TrendDays = 7

// UncategorizedLabel buckets tickets without a category.
const UncategorizedLabel = "Uncategorized"

const trendLabelLayout = "2006-01-02"

// StatusCounts holds ticket counts per status.
type StatusCounts struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
	Withdrawn  int `json:"withdrawn"`
}

// Trend is a daily series of created and resolved counts, oldest day first and today last.
type Trend struct {
	Labels   []string `json:"labels"`
	Created  []int    `json:"created"`
	Resolved []int    `json:"resolved"`
}

// Aggregate summarizes a set of tickets at one instant.
type Aggregate struct {
	Counts        StatusCounts   `json:"counts"`
	ResolvedToday int            `json:"resolved_today"`
	Categories    map[string]int `json:"categories"`
	Priorities    map[string]int `json:"priorities"`
}

// DashboardStats is the general dashboard. TotalUsers is reported to admins only.
type DashboardStats struct {
	Aggregate
	Trend      Trend `json:"trend"`
	TotalUsers *int  `json:"total_users,omitempty"`
}

// ITDashboardStats is the workload view of IT staff.
type ITDashboardStats struct {
	Active        int   `json:"active"`
	InProgress    int   `json:"in_progress"`
	ResolvedToday int   `json:"resolved_today"`
	SLABreaches   int   `json:"sla_breaches"`
	Trend         Trend `json:"trend"`
}

// AggregateTickets counts tickets by status, category and priority. Resolved tickets whose
// updated_at falls on now's UTC date count as resolved today.
func AggregateTickets(tickets []domain.Ticket, now time.Time) Aggregate {
	today := utcDay(now)
	agg := Aggregate{
		Categories: map[string]int{},
		Priorities: map[string]int{},
	}
	for i := range tickets {
		t := &tickets[i]
		agg.Counts.Total++
		switch t.Status {
		case domain.TicketStatusOpen:
			agg.Counts.Open++
		case domain.TicketStatusInProgress:
			agg.Counts.InProgress++
		case domain.TicketStatusResolved:
			agg.Counts.Resolved++
			if utcDay(t.UpdatedAt).Equal(today) {
				agg.ResolvedToday++
			}
		case domain.TicketStatusClosed:
			agg.Counts.Closed++
		case domain.TicketStatusWithdrawn:
			agg.Counts.Withdrawn++
		}
		category := strings.TrimSpace(t.Category)
		if category == "" {
			category = UncategorizedLabel
		}
		agg.Categories[category]++
		agg.Priorities[string(t.Priority)]++
	}
	return agg
}

// BuildTrend buckets tickets by UTC day over the TrendDays days ending today. A ticket counts as
// created on the day of its created_at, and as resolved on the day of its updated_at when its
// current status is Resolved.
func BuildTrend(tickets []domain.Ticket, now time.Time) Trend {
	today := utcDay(now)
	trend := Trend{
		Labels:   make([]string, TrendDays),
		Created:  make([]int, TrendDays),
		Resolved: make([]int, TrendDays),
	}
	for i := 0; i < TrendDays; i++ {
		trend.Labels[i] = today.AddDate(0, 0, i-(TrendDays-1)).Format(trendLabelLayout)
	}
	for i := range tickets {
		t := &tickets[i]
		if offset := daysBetween(t.CreatedAt, today); offset >= 0 && offset < TrendDays {
			trend.Created[TrendDays-1-offset]++
		}
		if t.Status != domain.TicketStatusResolved {
			continue
		}
		if offset := daysBetween(t.UpdatedAt, today); offset >= 0 && offset < TrendDays {
			trend.Resolved[TrendDays-1-offset]++
		}
	}
	return trend
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns how many UTC calendar days t lies before today.
func daysBetween(t, today time.Time) int {
	return int(today.Sub(utcDay(t)).Hours() / 24)
}

// AnalyticsService produces dashboard aggregates over the tickets an actor may see.
type AnalyticsService struct {
	store  repository.Store
	logger *zap.Logger
	now    Clock
}

// AnalyticsDependencies bundles collaborators for the analytics service.
type AnalyticsDependencies struct {
	Store  repository.Store
	Logger *zap.Logger
	Clock  Clock
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(deps AnalyticsDependencies) *AnalyticsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &AnalyticsService{store: deps.Store, logger: logger, now: now}
}

// DashboardStats aggregates the tickets visible to actor.
func (s *AnalyticsService) DashboardStats(ctx context.Context, actor *domain.User) (*DashboardStats, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	scope := ticketScope(actor)
	tickets, err := s.store.Repositories().Tickets.List(ctx, scope)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	trend, err := s.trend(ctx, scope, now)
	if err != nil {
		return nil, err
	}
	stats := &DashboardStats{Aggregate: AggregateTickets(tickets, now), Trend: trend}
	if actor.Role == domain.UserRoleAdmin {
		total, err := s.store.Repositories().Users.Count(ctx)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		stats.TotalUsers = &total
	}
	return stats, nil
}

// ITDashboard reports the workload of the actor's team and own assignments, or of every ticket
// when the actor has no team.
func (s *AnalyticsService) ITDashboard(ctx context.Context, actor *domain.User) (*ITDashboardStats, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("the IT dashboard is for IT staff")
	}
	var scope repository.TicketFilter
	if actor.TeamID != nil {
		team := *actor.TeamID
		id := actor.ID
		scope = repository.TicketFilter{TeamID: &team, AssignedToID: &id, TeamOrAssignee: true}
	}

	now := s.now().UTC()
	tickets, err := s.store.Repositories().Tickets.List(ctx, scope)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	trend, err := s.trend(ctx, scope, now)
	if err != nil {
		return nil, err
	}
	agg := AggregateTickets(tickets, now)
	return &ITDashboardStats{
		Active:        agg.Counts.Open + agg.Counts.InProgress,
		InProgress:    agg.Counts.InProgress,
		ResolvedToday: agg.ResolvedToday,
		SLABreaches:   CountCoarseBreaches(tickets, now),
		Trend:         trend,
	}, nil
}

// trend scans only tickets created or updated within the window.
func (s *AnalyticsService) trend(ctx context.Context, scope repository.TicketFilter, now time.Time) (Trend, error) {
	since := now.Add(-TrendDays * 24 * time.Hour)
	scope.ActiveSince = &since
	tickets, err := s.store.Repositories().Tickets.List(ctx, scope)
	if err != nil {
		return Trend{}, apperrors.NewInternalError(err)
	}
	return BuildTrend(tickets, now), nil
}
