package events

import (
	"time"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketClaimed          EventType = "ticket_claimed"
	EventCommentAdded           EventType = "comment_added"
	EventPasswordResetRequested EventType = "password_reset_requested"
)

// Actor identifies who caused an event. A nil UserID marks the scheduler.
type Actor struct {
	UserID *string         `json:"user_id,omitempty"`
	Role   domain.UserRole `json:"role,omitempty"`
}

// SystemActor is the actor of scheduled transitions.
var SystemActor = Actor{}

// UserActor builds an Actor from an authenticated user.
func UserActor(user *domain.User) Actor {
	if user == nil {
		return SystemActor
	}
	id := user.ID
	return Actor{UserID: &id, Role: user.Role}
}

// IsSystem reports whether the event was raised by a scheduled job.
func (a Actor) IsSystem() bool {
	return a.UserID == nil
}

// Event represents a domain event emitted by services after their transaction commits.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload carries the committed ticket.
type TicketCreatedPayload struct {
	Ticket domain.Ticket `json:"ticket"`
}

// TicketStatusChangedPayload carries the ticket after the transition.
type TicketStatusChangedPayload struct {
	Ticket    domain.Ticket       `json:"ticket"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketClaimedPayload carries the claimed ticket and its new assignee.
type TicketClaimedPayload struct {
	Ticket     domain.Ticket `json:"ticket"`
	AssigneeID string        `json:"assignee_id"`
}

// CommentAddedPayload carries the comment and the ticket it belongs to.
type CommentAddedPayload struct {
	Ticket  domain.Ticket  `json:"ticket"`
	Comment domain.Comment `json:"comment"`
}

// PasswordResetRequestedPayload carries what the owner needs to complete a reset.
type PasswordResetRequestedPayload struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
