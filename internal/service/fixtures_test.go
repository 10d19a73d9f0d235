package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/events"
	"github.com/tickettally/ticket-engine/internal/repository"
	"github.com/tickettally/ticket-engine/internal/repository/memory"
)

var baseTime = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(at time.Time) *testClock {
	return &testClock{now: at}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	t           *testing.T
	ctx         context.Context
	store       *memory.Store
	clock       *testClock
	dispatcher  events.Dispatcher
	sla         *SLAService
	tickets     *TicketService
	assignments *AssignmentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	clock := newTestClock(baseTime)
	dispatcher := events.NewInMemoryDispatcher()
	sla := NewSLAService(SLADependencies{Store: store, Clock: clock.Now})
	return &testEnv{
		t:          t,
		ctx:        context.Background(),
		store:      store,
		clock:      clock,
		dispatcher: dispatcher,
		sla:        sla,
		tickets: NewTicketService(TicketDependencies{
			Store:      store,
			Dispatcher: dispatcher,
			Clock:      clock.Now,
			SLA:        sla,
		}),
		assignments: NewAssignmentService(AssignmentDependencies{
			Store:      store,
			Dispatcher: dispatcher,
			Clock:      clock.Now,
		}),
	}
}

func (e *testEnv) repos() repository.Repositories {
	return e.store.Repositories()
}

func (e *testEnv) user(name string, role domain.UserRole, teamID *string) *domain.User {
	e.t.Helper()
	u := &domain.User{
		ID:        uuid.NewString(),
		FullName:  name,
		Email:     name + "@example.com",
		Role:      role,
		TeamID:    teamID,
		IsActive:  true,
		CreatedAt: e.clock.Now(),
		UpdatedAt: e.clock.Now(),
	}
	require.NoError(e.t, e.repos().Users.Create(e.ctx, u))
	return u
}

func (e *testEnv) team(name string) *domain.Team {
	e.t.Helper()
	team := &domain.Team{ID: uuid.NewString(), Name: name, CreatedAt: e.clock.Now()}
	require.NoError(e.t, e.repos().Teams.Create(e.ctx, team))
	return team
}

func (e *testEnv) openTicket(creator *domain.User, title string, priority domain.TicketPriority) *domain.Ticket {
	e.t.Helper()
	ticket, err := e.tickets.CreateTicket(e.ctx, creator, CreateTicketInput{Title: title, Priority: priority})
	require.NoError(e.t, err)
	return ticket
}

// resolvedTicket creates a ticket, has staff claim it and marks it resolved.
func (e *testEnv) resolvedTicket(creator, staff *domain.User, title string) *domain.Ticket {
	e.t.Helper()
	ticket := e.openTicket(creator, title, domain.TicketPriorityMedium)
	_, err := e.assignments.ClaimTicket(e.ctx, staff, ticket.ID)
	require.NoError(e.t, err)
	resolved := domain.TicketStatusResolved
	ticket, err = e.tickets.UpdateTicket(e.ctx, staff, ticket.ID, TicketPatch{Status: &resolved})
	require.NoError(e.t, err)
	return ticket
}

func statusPtr(s domain.TicketStatus) *domain.TicketStatus {
	return &s
}
