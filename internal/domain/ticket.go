package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusWithdrawn  TicketStatus = "WITHDRAWN"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusWithdrawn,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status transition is permitted.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusWithdrawn
}

// AllowsAssignee reports whether a ticket in this status may carry an assignee.
func (s TicketStatus) AllowsAssignee() bool {
	return s == TicketStatusInProgress || s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// TicketPriorities lists every priority from lowest to highest.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// DefaultCategory is used when a ticket is submitted without a category.
const DefaultCategory = "General"

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	Title        string
	Description  string
	Category     string
	Status       TicketStatus
	Priority     TicketPriority
	CreatedByID  string
	AssignedToID *string
	TeamID       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAssignedTo reports whether userID currently holds the ticket.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

// InTeam reports whether the ticket is routed to teamID.
func (t *Ticket) InTeam(teamID string) bool {
	return t.TeamID != nil && *t.TeamID == teamID
}
