package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tickettally/ticket-engine/internal/config"
	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/events"
	"github.com/tickettally/ticket-engine/internal/observability"
	"github.com/tickettally/ticket-engine/internal/repository"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// AssignmentService handles claiming tickets and the scheduled closing of resolved ones.
type AssignmentService struct {
	lifecycle
	workloadCap int
}

// AssignmentDependencies bundles collaborators for the assignment service.
type AssignmentDependencies struct {
	Store       repository.Store
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Clock       Clock
	WorkloadCap int
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	workloadCap := deps.WorkloadCap
	if workloadCap <= 0 {
		workloadCap = config.DefaultWorkloadCap
	}
	return &AssignmentService{
		lifecycle:   newLifecycle(deps.Store, deps.Dispatcher, deps.Logger, deps.Metrics, deps.Clock),
		workloadCap: workloadCap,
	}
}

// WorkloadCap returns the maximum number of in-progress tickets one assignee may hold.
func (s *AssignmentService) WorkloadCap() int {
	return s.workloadCap
}

// ClaimTicket assigns an open, unassigned ticket to actor and moves it to in progress.
// The ticket row and the actor's workload are locked for the duration of the check-and-set,
// so of two concurrent claims on one ticket exactly one succeeds.
func (s *AssignmentService) ClaimTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("only IT staff can claim tickets")
	}

	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return storeError(err, "ticket", ticketID)
		}
		if ticket.Status == domain.TicketStatusWithdrawn {
			return apperrors.NewInvalidState("cannot claim a withdrawn ticket", map[string]any{"ticket_id": ticketID})
		}
		if ticket.Status != domain.TicketStatusOpen || ticket.AssignedToID != nil {
			return apperrors.NewConflict("ticket has already been claimed", map[string]any{
				"ticket_id": ticketID,
				"status":    ticket.Status,
			})
		}
		if err := checkWorkload(ctx, repos, actor.ID, s.workloadCap); err != nil {
			return err
		}
		if err := checkTransition(ticket.Status, domain.TicketStatusInProgress, triggerClaim); err != nil {
			return err
		}
		ticket.AssignedToID = actorID(actor)
		_, err = transition(ctx, repos, ticket, domain.TicketStatusInProgress, actorID(actor), s.stamp(ticket))
		return err
	})
	if err != nil {
		err = storeError(err, "ticket", ticketID)
		s.metrics.RecordClaim(claimOutcome(err))
		s.logger.Debug("claim rejected",
			zap.String("ticket_id", ticketID),
			zap.String("user_id", actor.ID),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordClaim("claimed")
	s.metrics.RecordTransition(string(domain.TicketStatusOpen), string(domain.TicketStatusInProgress))
	s.logger.Info("ticket claimed", zap.String("ticket_id", ticket.ID), zap.String("user_id", actor.ID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.UserActor(actor),
		Payload: events.TicketStatusChangedPayload{
			Ticket:    *ticket,
			OldStatus: domain.TicketStatusOpen,
			NewStatus: domain.TicketStatusInProgress,
		},
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClaimed,
		TicketID: ticket.ID,
		Actor:    events.UserActor(actor),
		Payload:  events.TicketClaimedPayload{Ticket: *ticket, AssigneeID: actor.ID},
	})
	return ticket, nil
}

func claimOutcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, apperrors.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// AutoCloseResolved closes resolved tickets last updated more than olderThan ago and returns how
// many it closed. Each ticket closes in its own transaction after being re-read under lock, so
// overlapping runs never close a ticket twice.
func (s *AssignmentService) AutoCloseResolved(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan < 0 {
		return 0, apperrors.NewValidationError("cutoff age must not be negative", nil)
	}
	cutoff := s.now().UTC().Add(-olderThan)
	candidates, err := s.store.Repositories().Tickets.List(ctx, repository.TicketFilter{
		Statuses:      []domain.TicketStatus{domain.TicketStatusResolved},
		UpdatedBefore: &cutoff,
	})
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}

	closed := 0
	var errs []error
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ticket, ok, err := s.closeIfStale(ctx, candidate.ID, cutoff)
		if err != nil {
			s.logger.Error("auto-close failed", zap.String("ticket_id", candidate.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		closed++
		s.metrics.RecordTransition(string(domain.TicketStatusResolved), string(domain.TicketStatusClosed))
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    events.SystemActor,
			Payload: events.TicketStatusChangedPayload{
				Ticket:    *ticket,
				OldStatus: domain.TicketStatusResolved,
				NewStatus: domain.TicketStatusClosed,
			},
		})
	}
	s.metrics.RecordAutoClosed(closed)
	if closed > 0 {
		s.logger.Info("auto-closed resolved tickets", zap.Int("count", closed), zap.Duration("older_than", olderThan))
	}
	return closed, errors.Join(errs...)
}

func (s *AssignmentService) closeIfStale(ctx context.Context, ticketID string, cutoff time.Time) (*domain.Ticket, bool, error) {
	var (
		ticket *domain.Ticket
		closed bool
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil
			}
			return err
		}
		if ticket.Status != domain.TicketStatusResolved || !ticket.UpdatedAt.Before(cutoff) {
			return nil
		}
		if err := checkTransition(ticket.Status, domain.TicketStatusClosed, triggerAutoClose); err != nil {
			return err
		}
		if _, err := transition(ctx, repos, ticket, domain.TicketStatusClosed, nil, s.stamp(ticket)); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return ticket, closed, nil
}
