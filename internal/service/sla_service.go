package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/repository"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// Fixed dashboard thresholds, independent of the configurable SLA table.
const (
	coarseCriticalBreachAge = 4 * time.Hour
	coarseHighBreachAge     = 8 * time.Hour
)

// SLAEvaluation is the SLA verdict for one ticket at one instant.
type SLAEvaluation struct {
	TicketID   string           `json:"ticket_id"`
	Priority   string           `json:"priority"`
	Deadline   time.Time        `json:"deadline"`
	Status     domain.SLAStatus `json:"status"`
	Configured bool             `json:"configured"`
}

// Deadline returns created_at plus the resolution budget, or created_at when cfg is nil.
func Deadline(ticket *domain.Ticket, cfg *domain.SLAConfig) time.Time {
	if cfg == nil {
		return ticket.CreatedAt
	}
	return ticket.CreatedAt.Add(cfg.ResolutionBudget())
}

// EvaluateSLA reports Achieved for resolved or closed tickets, otherwise Breached once now is
// past the deadline and Pending before it.
func EvaluateSLA(ticket *domain.Ticket, cfg *domain.SLAConfig, now time.Time) domain.SLAStatus {
	if ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
		return domain.SLAStatusAchieved
	}
	if now.After(Deadline(ticket, cfg)) {
		return domain.SLAStatusBreached
	}
	return domain.SLAStatusPending
}

// IsCoarseBreach reports whether an open or in-progress ticket is Critical and older than four
// hours, or High and older than eight.
func IsCoarseBreach(ticket *domain.Ticket, now time.Time) bool {
	if ticket.Status != domain.TicketStatusOpen && ticket.Status != domain.TicketStatusInProgress {
		return false
	}
	age := now.Sub(ticket.CreatedAt)
	switch ticket.Priority {
	case domain.TicketPriorityCritical:
		return age > coarseCriticalBreachAge
	case domain.TicketPriorityHigh:
		return age > coarseHighBreachAge
	}
	return false
}

// CountCoarseBreaches counts tickets matched by IsCoarseBreach.
func CountCoarseBreaches(tickets []domain.Ticket, now time.Time) int {
	count := 0
	for i := range tickets {
		if IsCoarseBreach(&tickets[i], now) {
			count++
		}
	}
	return count
}

// SLAService evaluates deadlines against the stored SLA table and manages it.
type SLAService struct {
	store  repository.Store
	logger *zap.Logger
	now    Clock
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	Store  repository.Store
	Logger *zap.Logger
	Clock  Clock
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &SLAService{store: deps.Store, logger: logger, now: now}
}

func (s *SLAService) configFor(ctx context.Context, priority domain.TicketPriority) (*domain.SLAConfig, error) {
	cfg, err := s.store.Repositories().SLAConfigs.GetByPriority(ctx, priority)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.NewInternalError(err)
	}
	return cfg, nil
}

// configMap loads every SLA row keyed by priority, for batch evaluation.
func (s *SLAService) configMap(ctx context.Context) (map[domain.TicketPriority]*domain.SLAConfig, error) {
	rows, err := s.store.Repositories().SLAConfigs.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	out := make(map[domain.TicketPriority]*domain.SLAConfig, len(rows))
	for i := range rows {
		out[rows[i].Priority] = &rows[i]
	}
	return out, nil
}

// Deadline returns the resolution deadline of ticket.
func (s *SLAService) Deadline(ctx context.Context, ticket *domain.Ticket) (time.Time, error) {
	cfg, err := s.configFor(ctx, ticket.Priority)
	if err != nil {
		return time.Time{}, err
	}
	return Deadline(ticket, cfg), nil
}

// Status evaluates ticket at now.
func (s *SLAService) Status(ctx context.Context, ticket *domain.Ticket, now time.Time) (domain.SLAStatus, error) {
	cfg, err := s.configFor(ctx, ticket.Priority)
	if err != nil {
		return "", err
	}
	return EvaluateSLA(ticket, cfg, now), nil
}

// Evaluate returns the full verdict for ticket at the service clock.
func (s *SLAService) Evaluate(ctx context.Context, ticket *domain.Ticket) (SLAEvaluation, error) {
	cfg, err := s.configFor(ctx, ticket.Priority)
	if err != nil {
		return SLAEvaluation{}, err
	}
	return SLAEvaluation{
		TicketID:   ticket.ID,
		Priority:   string(ticket.Priority),
		Deadline:   Deadline(ticket, cfg),
		Status:     EvaluateSLA(ticket, cfg, s.now().UTC()),
		Configured: cfg != nil,
	}, nil
}

// ListConfigs returns the SLA table.
func (s *SLAService) ListConfigs(ctx context.Context) ([]domain.SLAConfig, error) {
	rows, err := s.store.Repositories().SLAConfigs.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return rows, nil
}

// UpsertConfig replaces the budgets of one priority. Admin only.
func (s *SLAService) UpsertConfig(ctx context.Context, actor *domain.User, cfg domain.SLAConfig) (*domain.SLAConfig, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != domain.UserRoleAdmin {
		return nil, apperrors.NewForbidden("only admins can change SLA budgets")
	}
	if !cfg.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": cfg.Priority})
	}
	if cfg.ResponseTimeHours < 0 || cfg.ResolutionTimeHours < 0 {
		return nil, apperrors.NewValidationError("budgets must not be negative", nil)
	}
	now := s.now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	if err := s.store.Repositories().SLAConfigs.Upsert(ctx, &cfg); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("sla config updated",
		zap.String("priority", string(cfg.Priority)),
		zap.Int("resolution_time_hours", cfg.ResolutionTimeHours),
		zap.String("user_id", actor.ID))
	return &cfg, nil
}

// Seed inserts the given rows for priorities that have no row yet and returns how many were added.
func (s *SLAService) Seed(ctx context.Context, rows []domain.SLAConfig) (int, error) {
	added := 0
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		now := s.now().UTC()
		for _, row := range rows {
			if _, err := repos.SLAConfigs.GetByPriority(ctx, row.Priority); err == nil {
				continue
			} else if !repository.IsNotFound(err) {
				return err
			}
			row.CreatedAt = now
			row.UpdatedAt = now
			if err := repos.SLAConfigs.Upsert(ctx, &row); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	return added, nil
}
