package memory

import (
	"context"
	"sort"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/repository"
)

type ticketRepository struct {
	do access
}

func (r *ticketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.do(func(st *state) error {
		if _, exists := st.tickets[ticket.ID]; exists {
			return ErrDuplicate
		}
		st.tickets[ticket.ID] = cloneTicket(*ticket)
		return nil
	})
}

func (r *ticketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.do(func(st *state) error {
		current, ok := st.tickets[ticket.ID]
		if !ok {
			return repository.ErrNotFound
		}
		next := cloneTicket(*ticket)
		next.CreatedByID = current.CreatedByID
		next.CreatedAt = current.CreatedAt
		st.tickets[ticket.ID] = next
		return nil
	})
}

func (r *ticketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.do(func(st *state) error {
		t, ok := st.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		copied := cloneTicket(t)
		out = &copied
		return nil
	})
	return out, err
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepository) LockAssignee(context.Context, string) error {
	return nil
}

func (r *ticketRepository) CountByAssigneeAndStatus(_ context.Context, assigneeID string, status domain.TicketStatus) (int, error) {
	count := 0
	err := r.do(func(st *state) error {
		for _, t := range st.tickets {
			if t.Status == status && t.IsAssignedTo(assigneeID) {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *ticketRepository) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	err := r.do(func(st *state) error {
		for _, t := range st.tickets {
			t := t
			if filter.Matches(&t) {
				result = append(result, cloneTicket(t))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}
