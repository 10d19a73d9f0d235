package service

import (
	"context"
	"time"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/export"
	"github.com/tickettally/ticket-engine/internal/repository"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// nameResolver caches display names while building a batch of documents.
// Lookup failures resolve to an empty name.
type nameResolver struct {
	repos repository.Repositories
	users map[string]string
	teams map[string]string
}

func newNameResolver(repos repository.Repositories) *nameResolver {
	return &nameResolver{repos: repos, users: map[string]string{}, teams: map[string]string{}}
}

func (r *nameResolver) user(ctx context.Context, id *string) string {
	if id == nil {
		return ""
	}
	if name, ok := r.users[*id]; ok {
		return name
	}
	name := ""
	if u, err := r.repos.Users.GetByID(ctx, *id); err == nil {
		name = u.FullName
	}
	r.users[*id] = name
	return name
}

func (r *nameResolver) team(ctx context.Context, id *string) string {
	if id == nil {
		return ""
	}
	if name, ok := r.teams[*id]; ok {
		return name
	}
	name := ""
	if t, err := r.repos.Teams.GetByID(ctx, *id); err == nil {
		name = t.Name
	}
	r.teams[*id] = name
	return name
}

func buildTicketDocument(ctx context.Context, repos repository.Repositories, sla *SLAService, ticket *domain.Ticket, now time.Time) (export.TicketDocument, error) {
	history, err := repos.History.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return export.TicketDocument{}, apperrors.NewInternalError(err)
	}
	cfg, err := sla.configFor(ctx, ticket.Priority)
	if err != nil {
		return export.TicketDocument{}, err
	}
	names := newNameResolver(repos)
	return export.TicketDocument{
		Ticket:       *ticket,
		CreatorName:  names.user(ctx, &ticket.CreatedByID),
		AssigneeName: names.user(ctx, ticket.AssignedToID),
		TeamName:     names.team(ctx, ticket.TeamID),
		History:      history,
		SLAStatus:    EvaluateSLA(ticket, cfg, now),
		SLADeadline:  Deadline(ticket, cfg),
		GeneratedAt:  now,
	}, nil
}
