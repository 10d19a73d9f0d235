// Package memory provides an in-process repository.Store. A transaction works on a private copy
// of the data under the store lock and replaces the live copy only on commit, so concurrent units
// of work are serialized and a failed one leaves nothing behind.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/repository"
)

// ErrDuplicate is returned when a create would violate a uniqueness rule.
var ErrDuplicate = errors.New("memory: duplicate key")

type state struct {
	tickets       map[string]domain.Ticket
	history       []domain.StatusHistoryEntry
	comments      []domain.Comment
	notifications []domain.Notification
	slaConfigs    map[domain.TicketPriority]domain.SLAConfig
	users         map[string]domain.User
	teams         map[string]domain.Team
	resets        map[string]domain.PasswordResetToken
	projects      map[string]domain.Project
	messages      []domain.ContactMessage
}

func newState() *state {
	return &state{
		tickets:    map[string]domain.Ticket{},
		slaConfigs: map[domain.TicketPriority]domain.SLAConfig{},
		users:      map[string]domain.User{},
		teams:      map[string]domain.Team{},
		resets:     map[string]domain.PasswordResetToken{},
		projects:   map[string]domain.Project{},
	}
}

func (s *state) clone() *state {
	out := &state{
		tickets:       make(map[string]domain.Ticket, len(s.tickets)),
		history:       append([]domain.StatusHistoryEntry(nil), s.history...),
		comments:      append([]domain.Comment(nil), s.comments...),
		notifications: append([]domain.Notification(nil), s.notifications...),
		slaConfigs:    make(map[domain.TicketPriority]domain.SLAConfig, len(s.slaConfigs)),
		users:         make(map[string]domain.User, len(s.users)),
		teams:         make(map[string]domain.Team, len(s.teams)),
		resets:        make(map[string]domain.PasswordResetToken, len(s.resets)),
		projects:      make(map[string]domain.Project, len(s.projects)),
		messages:      append([]domain.ContactMessage(nil), s.messages...),
	}
	for k, v := range s.tickets {
		out.tickets[k] = v
	}
	for k, v := range s.slaConfigs {
		out.slaConfigs[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.teams {
		out.teams[k] = v
	}
	for k, v := range s.resets {
		out.resets[k] = v
	}
	for k, v := range s.projects {
		out.projects[k] = v
	}
	return out
}

// access runs fn against the state a repository is bound to.
type access func(fn func(st *state) error) error

// Store is an in-memory repository.Store.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Repositories returns repositories that lock the store per call.
func (s *Store) Repositories() repository.Repositories {
	return bind(func(fn func(st *state) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.st)
	})
}

// WithinTx runs fn on a private copy of the data and publishes it only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(bind(func(inner func(st *state) error) error { return inner(work) })); err != nil {
		return err
	}
	s.st = work
	return nil
}

func bind(do access) repository.Repositories {
	return repository.Repositories{
		Tickets:        &ticketRepository{do: do},
		History:        &historyRepository{do: do},
		Comments:       &commentRepository{do: do},
		Notifications:  &notificationRepository{do: do},
		SLAConfigs:     &slaConfigRepository{do: do},
		Users:          &userRepository{do: do},
		Teams:          &teamRepository{do: do},
		PasswordResets: &passwordResetRepository{do: do},
		Projects:       &projectRepository{do: do},
		Messages:       &contactMessageRepository{do: do},
	}
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.AssignedToID = cloneString(t.AssignedToID)
	t.TeamID = cloneString(t.TeamID)
	return t
}

func cloneUser(u domain.User) domain.User {
	u.TeamID = cloneString(u.TeamID)
	u.Preferences = maps.Clone(u.Preferences)
	return u
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneProject(p domain.Project) domain.Project {
	p.StartDate = cloneTime(p.StartDate)
	p.Deadline = cloneTime(p.Deadline)
	p.MemberIDs = slices.Clone(p.MemberIDs)
	return p
}

var _ repository.Store = (*Store)(nil)
