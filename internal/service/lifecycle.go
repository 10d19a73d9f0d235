package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/events"
	"github.com/tickettally/ticket-engine/internal/observability"
	"github.com/tickettally/ticket-engine/internal/repository"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// Clock returns the current instant.
type Clock func() time.Time

type transitionTrigger string

const (
	triggerClaim     transitionTrigger = "claim"
	triggerWithdraw  transitionTrigger = "withdraw"
	triggerUpdate    transitionTrigger = "update"
	triggerAutoClose transitionTrigger = "auto_close"
)

// checkTransition validates moving a ticket from one status to another through trigger.
func checkTransition(from, to domain.TicketStatus, trigger transitionTrigger) error {
	details := map[string]any{"from": from, "to": to}
	if !to.Valid() {
		return apperrors.NewValidationError("unknown ticket status", details)
	}
	if from.Terminal() {
		return apperrors.NewInvalidState(fmt.Sprintf("ticket is %s and can no longer change status", from), details)
	}
	if from == to {
		return apperrors.NewInvalidState(fmt.Sprintf("ticket is already %s", to), details)
	}
	switch trigger {
	case triggerClaim:
		if from != domain.TicketStatusOpen || to != domain.TicketStatusInProgress {
			return apperrors.NewInvalidState("only open tickets can be claimed", details)
		}
	case triggerWithdraw:
		if from != domain.TicketStatusOpen || to != domain.TicketStatusWithdrawn {
			return apperrors.NewInvalidState("only open tickets can be withdrawn", details)
		}
	case triggerAutoClose:
		if from != domain.TicketStatusResolved || to != domain.TicketStatusClosed {
			return apperrors.NewInvalidState("only resolved tickets can be auto-closed", details)
		}
	case triggerUpdate:
		if to == domain.TicketStatusWithdrawn {
			return apperrors.NewInvalidState("tickets are withdrawn by their creator only", details)
		}
	}
	return nil
}

// transition moves ticket to status to and appends the matching history entry. It must run
// inside Store.WithinTx so the ticket row and the history row commit together.
func transition(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, to domain.TicketStatus, actorID *string, at time.Time) (*domain.StatusHistoryEntry, error) {
	from := ticket.Status
	ticket.Status = to
	ticket.UpdatedAt = at
	if !to.AllowsAssignee() {
		ticket.AssignedToID = nil
	}
	if err := repos.Tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	entry := &domain.StatusHistoryEntry{
		ID:          uuid.NewString(),
		TicketID:    ticket.ID,
		OldStatus:   &from,
		NewStatus:   to,
		ChangedByID: copyID(actorID),
		ChangedAt:   at,
	}
	if err := repos.History.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// checkWorkload locks assigneeID's workload for the rest of the transaction and rejects the
// assignment when the assignee already holds limit tickets in progress.
func checkWorkload(ctx context.Context, repos repository.Repositories, assigneeID string, limit int) error {
	if err := repos.Tickets.LockAssignee(ctx, assigneeID); err != nil {
		return err
	}
	active, err := repos.Tickets.CountByAssigneeAndStatus(ctx, assigneeID, domain.TicketStatusInProgress)
	if err != nil {
		return err
	}
	if active >= limit {
		return apperrors.NewCapacityExceeded(
			"assignee has reached the maximum number of tickets in progress",
			map[string]any{"assignee_id": assigneeID, "in_progress": active, "limit": limit})
	}
	return nil
}

// lifecycle holds what every ticket-mutating service shares.
type lifecycle struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        Clock
}

func newLifecycle(store repository.Store, dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, now Clock) lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return lifecycle{store: store, dispatcher: dispatcher, logger: logger, metrics: metrics, now: now}
}

// stamp returns the instant of a mutation of ticket. It never precedes the ticket's last update,
// which keeps updated_at and the history order monotonic.
func (l *lifecycle) stamp(ticket *domain.Ticket) time.Time {
	now := l.now().UTC()
	if ticket != nil && now.Before(ticket.UpdatedAt) {
		return ticket.UpdatedAt
	}
	return now
}

func (l *lifecycle) publishEvent(ctx context.Context, event events.Event) {
	if l.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	if err := l.dispatcher.Publish(ctx, event); err != nil {
		l.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// storeError converts repository failures into the error taxonomy, passing domain errors through.
func storeError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if repository.IsNotFound(err) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	return apperrors.NewInternalError(err)
}

func requireActor(actor *domain.User) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}

// ticketScope narrows ticket scans to what actor may see: employees their own tickets,
// IT staff with a team that team's tickets plus their own assignments, everyone else all tickets.
func ticketScope(actor *domain.User) repository.TicketFilter {
	var filter repository.TicketFilter
	switch actor.Role {
	case domain.UserRoleEmployee:
		id := actor.ID
		filter.CreatedByID = &id
	case domain.UserRoleITStaff:
		if actor.TeamID != nil {
			team := *actor.TeamID
			id := actor.ID
			filter.TeamID = &team
			filter.AssignedToID = &id
			filter.TeamOrAssignee = true
		}
	}
	return filter
}

func canView(actor *domain.User, ticket *domain.Ticket) bool {
	if ticket.CreatedByID == actor.ID {
		return true
	}
	return ticketScope(actor).Matches(ticket)
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	out := *id
	return &out
}

func actorID(actor *domain.User) *string {
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}
