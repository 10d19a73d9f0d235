package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tickettally/ticket-engine/internal/config"
	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/events"
	"github.com/tickettally/ticket-engine/internal/export"
	"github.com/tickettally/ticket-engine/internal/observability"
	"github.com/tickettally/ticket-engine/internal/repository"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// WithdrawalNote is the system comment recorded when a creator withdraws a ticket.
const WithdrawalNote = "Ticket withdrawn by user."

// fallbackTeam receives tickets whose category has no dedicated team.
const fallbackTeam = "IT Support"

var categoryTeams = map[string]string{
	"Software Issue": "Software Team",
	"Hardware Issue": "Hardware Team",
	"Network Issue":  "Network Team",
	"Email Issue":    "IT Support",
}

// TeamForCategory returns the name of the team a category routes to.
func TeamForCategory(category string) string {
	if team, ok := categoryTeams[strings.TrimSpace(category)]; ok {
		return team
	}
	return fallbackTeam
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	lifecycle
	sla         *SLAService
	workloadCap int
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Clock      Clock
	SLA        *SLAService
	// WorkloadCap bounds the in-progress tickets an assignee may receive through an update.
	WorkloadCap int
}

// CreateTicketInput describes a ticket submission.
type CreateTicketInput struct {
	Title       string
	Description string
	Category    string
	Priority    domain.TicketPriority
	// TeamID overrides category routing when set.
	TeamID *string
}

// TicketListFilter narrows a ticket listing inside the actor's visibility scope.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Category   *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketPatch is a partial ticket update. Nil fields are left unchanged.
type TicketPatch struct {
	Status       *domain.TicketStatus
	Priority     *domain.TicketPriority
	Category     *string
	AssignedToID *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	sla := deps.SLA
	if sla == nil {
		sla = NewSLAService(SLADependencies{Store: deps.Store, Logger: deps.Logger, Clock: deps.Clock})
	}
	workloadCap := deps.WorkloadCap
	if workloadCap <= 0 {
		workloadCap = config.DefaultWorkloadCap
	}
	return &TicketService{
		lifecycle:   newLifecycle(deps.Store, deps.Dispatcher, deps.Logger, deps.Metrics, deps.Clock),
		sla:         sla,
		workloadCap: workloadCap,
	}
}

// CreateTicket opens a ticket for actor and records its creation history entry.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input CreateTicketInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = domain.DefaultCategory
	}

	teamID, err := s.routeTeam(ctx, category, input.TeamID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Category:    category,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		CreatedByID: actor.ID,
		TeamID:      teamID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return repos.History.Append(ctx, &domain.StatusHistoryEntry{
			ID:          uuid.NewString(),
			TicketID:    ticket.ID,
			NewStatus:   domain.TicketStatusOpen,
			ChangedByID: actorID(actor),
			ChangedAt:   now,
		})
	})
	if err != nil {
		return nil, storeError(err, "ticket", ticket.ID)
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("user_id", actor.ID),
		zap.String("priority", string(ticket.Priority)))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.UserActor(actor),
		Payload:  events.TicketCreatedPayload{Ticket: *ticket},
	})
	return ticket, nil
}

func (s *TicketService) routeTeam(ctx context.Context, category string, explicit *string) (*string, error) {
	teams := s.store.Repositories().Teams
	if explicit != nil {
		team, err := teams.GetByID(ctx, *explicit)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperrors.NewValidationError("team does not exist", map[string]any{"team_id": *explicit})
			}
			return nil, apperrors.NewInternalError(err)
		}
		return &team.ID, nil
	}
	team, err := teams.GetByName(ctx, TeamForCategory(category))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.NewInternalError(err)
	}
	return &team.ID, nil
}

// GetTicket returns a ticket visible to actor.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.store.Repositories().Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	if !canView(actor, ticket) {
		return nil, apperrors.NewForbidden("you do not have access to this ticket")
	}
	return ticket, nil
}

// ListTickets returns the tickets actor may see, newest first.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	repoFilter := ticketScope(actor)
	applyListFilter(&repoFilter, filter)
	tickets, err := s.store.Repositories().Tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// ListAssigned returns the tickets currently assigned to a staff actor.
func (s *TicketService) ListAssigned(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("only IT staff have assigned tickets")
	}
	id := actor.ID
	repoFilter := repository.TicketFilter{AssignedToID: &id}
	applyListFilter(&repoFilter, filter)
	tickets, err := s.store.Repositories().Tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// ListTeam returns the tickets routed to the staff actor's team.
func (s *TicketService) ListTeam(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("only IT staff have team tickets")
	}
	if actor.TeamID == nil {
		return nil, apperrors.NewValidationError("you are not assigned to a team", nil)
	}
	team := *actor.TeamID
	repoFilter := repository.TicketFilter{TeamID: &team}
	applyListFilter(&repoFilter, filter)
	tickets, err := s.store.Repositories().Tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

func applyListFilter(dst *repository.TicketFilter, filter TicketListFilter) {
	dst.Statuses = filter.Statuses
	dst.Priorities = filter.Priorities
	dst.Category = filter.Category
	dst.SearchTerm = filter.SearchTerm
	dst.Limit = filter.Limit
	dst.Offset = filter.Offset
}

// UpdateTicket applies patch. Status and assignee edits are reserved for staff; employees may
// change priority and category of their own tickets. A history entry is appended only when the
// status changes.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, patch TicketPatch) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if (patch.Status != nil || patch.AssignedToID != nil) && !actor.IsStaff() {
		return nil, apperrors.NewForbidden("only IT staff can change status or assignee")
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *patch.Priority})
	}

	var (
		ticket    *domain.Ticket
		oldStatus domain.TicketStatus
		entry     *domain.StatusHistoryEntry
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return storeError(err, "ticket", ticketID)
		}
		if !canView(actor, ticket) || (!actor.IsStaff() && ticket.CreatedByID != actor.ID) {
			return apperrors.NewForbidden("you cannot edit this ticket")
		}
		oldStatus = ticket.Status

		changed := false
		if patch.Priority != nil && *patch.Priority != ticket.Priority {
			ticket.Priority = *patch.Priority
			changed = true
		}
		if patch.Category != nil {
			category := strings.TrimSpace(*patch.Category)
			if category == "" {
				category = domain.DefaultCategory
			}
			if category != ticket.Category {
				ticket.Category = category
				changed = true
			}
		}

		target := ticket.Status
		statusChanged := patch.Status != nil && *patch.Status != ticket.Status
		if statusChanged {
			if err := checkTransition(ticket.Status, *patch.Status, triggerUpdate); err != nil {
				return err
			}
			target = *patch.Status
		}

		assigneeChanged := false
		if patch.AssignedToID != nil && !ticket.IsAssignedTo(*patch.AssignedToID) {
			if !target.AllowsAssignee() {
				return apperrors.NewInvalidState("a ticket can be assigned only once work has started",
					map[string]any{"status": target})
			}
			assignee, err := repos.Users.GetByID(ctx, *patch.AssignedToID)
			if err != nil {
				return storeError(err, "user", *patch.AssignedToID)
			}
			if !assignee.IsActive || !assignee.IsStaff() {
				return apperrors.NewValidationError("assignee must be active IT staff",
					map[string]any{"user_id": assignee.ID})
			}
			ticket.AssignedToID = copyID(&assignee.ID)
			changed = true
			assigneeChanged = true
		}

		startsWork := target == domain.TicketStatusInProgress && (assigneeChanged || oldStatus != target)
		if startsWork && ticket.AssignedToID != nil {
			if err := checkWorkload(ctx, repos, *ticket.AssignedToID, s.workloadCap); err != nil {
				return err
			}
		}

		if !changed && !statusChanged {
			return nil
		}
		at := s.stamp(ticket)
		if statusChanged {
			entry, err = transition(ctx, repos, ticket, target, actorID(actor), at)
			return err
		}
		ticket.UpdatedAt = at
		return repos.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}

	if entry != nil {
		s.metrics.RecordTransition(string(oldStatus), string(ticket.Status))
		s.logger.Info("ticket status changed",
			zap.String("ticket_id", ticket.ID),
			zap.String("from", string(oldStatus)),
			zap.String("to", string(ticket.Status)),
			zap.String("user_id", actor.ID))
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    events.UserActor(actor),
			Payload: events.TicketStatusChangedPayload{
				Ticket:    *ticket,
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	return ticket, nil
}

// WithdrawTicket lets the creator retract an open ticket. A system comment records the withdrawal.
func (s *TicketService) WithdrawTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return storeError(err, "ticket", ticketID)
		}
		if ticket.CreatedByID != actor.ID {
			return apperrors.NewForbidden("only the creator can withdraw a ticket")
		}
		if err := checkTransition(ticket.Status, domain.TicketStatusWithdrawn, triggerWithdraw); err != nil {
			return err
		}
		at := s.stamp(ticket)
		if _, err := transition(ctx, repos, ticket, domain.TicketStatusWithdrawn, actorID(actor), at); err != nil {
			return err
		}
		return repos.Comments.Create(ctx, &domain.Comment{
			ID:        uuid.NewString(),
			TicketID:  ticket.ID,
			AuthorID:  actor.ID,
			Text:      WithdrawalNote,
			IsSystem:  true,
			CreatedAt: at,
		})
	})
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	s.metrics.RecordTransition(string(domain.TicketStatusOpen), string(domain.TicketStatusWithdrawn))
	s.logger.Info("ticket withdrawn", zap.String("ticket_id", ticket.ID), zap.String("user_id", actor.ID))
	return ticket, nil
}

// AddComment posts a comment, optionally replying to parentID on the same ticket.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, text string, parentID *string) (*domain.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment text is required", nil)
	}

	var (
		ticket  *domain.Ticket
		comment *domain.Comment
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return storeError(err, "ticket", ticketID)
		}
		if !canView(actor, ticket) {
			return apperrors.NewForbidden("you do not have access to this ticket")
		}
		if parentID != nil {
			parent, err := repos.Comments.GetByID(ctx, *parentID)
			if err != nil {
				if repository.IsNotFound(err) {
					return apperrors.NewValidationError("parent comment does not exist",
						map[string]any{"parent_id": *parentID})
				}
				return err
			}
			if parent.TicketID != ticket.ID {
				return apperrors.NewValidationError("parent comment belongs to another ticket",
					map[string]any{"parent_id": *parentID})
			}
		}
		at := s.stamp(ticket)
		comment = &domain.Comment{
			ID:        uuid.NewString(),
			TicketID:  ticket.ID,
			AuthorID:  actor.ID,
			Text:      text,
			ParentID:  copyID(parentID),
			CreatedAt: at,
		}
		if err := repos.Comments.Create(ctx, comment); err != nil {
			return err
		}
		ticket.UpdatedAt = at
		return repos.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    events.UserActor(actor),
		Payload:  events.CommentAddedPayload{Ticket: *ticket, Comment: *comment},
	})
	return comment, nil
}

// ListComments returns a ticket's comments in posting order.
func (s *TicketService) ListComments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Comment, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	comments, err := s.store.Repositories().Comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return comments, nil
}

// ListHistory returns a ticket's status history oldest first.
func (s *TicketService) ListHistory(ctx context.Context, actor *domain.User, ticketID string) ([]domain.StatusHistoryEntry, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	history, err := s.store.Repositories().History.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return history, nil
}

// FindDuplicate returns the actor's first unresolved ticket whose title contains title, or nil.
func (s *TicketService) FindDuplicate(ctx context.Context, actor *domain.User, title string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	id := actor.ID
	tickets, err := s.store.Repositories().Tickets.List(ctx, repository.TicketFilter{
		CreatedByID: &id,
		Statuses: []domain.TicketStatus{
			domain.TicketStatusOpen,
			domain.TicketStatusInProgress,
			domain.TicketStatusWithdrawn,
		},
		TitleContains: &title,
		Limit:         1,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if len(tickets) == 0 {
		return nil, nil
	}
	return &tickets[0], nil
}

// SLAStatus evaluates a visible ticket against its SLA at the service clock.
func (s *TicketService) SLAStatus(ctx context.Context, actor *domain.User, ticketID string) (SLAEvaluation, error) {
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return SLAEvaluation{}, err
	}
	return s.sla.Evaluate(ctx, ticket)
}

// TicketSummary builds the document rendered into a ticket's PDF summary.
func (s *TicketService) TicketSummary(ctx context.Context, actor *domain.User, ticketID string) (export.TicketDocument, error) {
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return export.TicketDocument{}, err
	}
	return buildTicketDocument(ctx, s.store.Repositories(), s.sla, ticket, s.now().UTC())
}

// ExportRows returns the rows of an export of the tickets actor may see.
func (s *TicketService) ExportRows(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]export.TicketRow, error) {
	tickets, err := s.ListTickets(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	configs, err := s.sla.configMap(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	names := newNameResolver(s.store.Repositories())
	rows := make([]export.TicketRow, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		rows = append(rows, export.TicketRow{
			Ticket:       *t,
			CreatorName:  names.user(ctx, &t.CreatedByID),
			AssigneeName: names.user(ctx, t.AssignedToID),
			TeamName:     names.team(ctx, t.TeamID),
			SLAStatus:    EvaluateSLA(t, configs[t.Priority], now),
		})
	}
	return rows, nil
}
