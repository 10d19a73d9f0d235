package service

import (
	"context"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/export"
	"github.com/tickettally/ticket-engine/internal/repository"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// personalScope selects the tickets that belong in an account's own data export: employees get
// the tickets they opened, IT staff their team's tickets or, without a team, their assignments.
// Admins own no tickets through their role, so ok is false for them.
func personalScope(actor *domain.User) (filter repository.TicketFilter, ok bool) {
	id := actor.ID
	switch actor.Role {
	case domain.UserRoleEmployee:
		filter.CreatedByID = &id
	case domain.UserRoleITStaff:
		if actor.TeamID != nil {
			team := *actor.TeamID
			filter.TeamID = &team
		} else {
			filter.AssignedToID = &id
		}
	default:
		return filter, false
	}
	return filter, true
}

// PersonalData collects the actor's profile, role-scoped tickets and authored comments.
func (s *TicketService) PersonalData(ctx context.Context, actor *domain.User) (export.PersonalData, error) {
	if err := requireActor(actor); err != nil {
		return export.PersonalData{}, err
	}
	repos := s.store.Repositories()
	user, err := repos.Users.GetByID(ctx, actor.ID)
	if err != nil {
		return export.PersonalData{}, storeError(err, "user", actor.ID)
	}

	var tickets []domain.Ticket
	if filter, ok := personalScope(user); ok {
		if tickets, err = repos.Tickets.List(ctx, filter); err != nil {
			return export.PersonalData{}, apperrors.NewInternalError(err)
		}
	}
	comments, err := repos.Comments.ListByAuthor(ctx, user.ID)
	if err != nil {
		return export.PersonalData{}, apperrors.NewInternalError(err)
	}

	return export.PersonalData{
		User:       *user,
		TeamName:   newNameResolver(repos).team(ctx, user.TeamID),
		Tickets:    tickets,
		Comments:   comments,
		ExportedAt: s.now().UTC(),
	}, nil
}

// PersonalDataRenderer renders an account's data report.
type PersonalDataRenderer interface {
	RenderPersonalData(data export.PersonalData) ([]byte, error)
}
