package dto

import (
	"time"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description" validate:"max=10000"`
	Category    string                `json:"category" validate:"max=100"`
	Priority    domain.TicketPriority `json:"priority" validate:"omitempty,ticket_priority"`
	TeamID      *string               `json:"team_id" validate:"omitempty,uuid"`
}

// UpdateTicketRequest is a partial update; omitted fields are unchanged.
type UpdateTicketRequest struct {
	Status       *domain.TicketStatus   `json:"status" validate:"omitempty,ticket_status"`
	Priority     *domain.TicketPriority `json:"priority" validate:"omitempty,ticket_priority"`
	Category     *string                `json:"category" validate:"omitempty,max=100"`
	AssignedToID *string                `json:"assigned_to_id" validate:"omitempty,uuid"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Text     string  `json:"text" validate:"required,max=5000"`
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
}

// UpsertSLARequest payload.
type UpsertSLARequest struct {
	ResponseTimeHours   int `json:"response_time_hours" validate:"gte=0"`
	ResolutionTimeHours int `json:"resolution_time_hours" validate:"gte=0"`
}

// TicketResponse is the public view of a ticket.
type TicketResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Category     string                `json:"category"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatedByID  string                `json:"created_by_id"`
	AssignedToID *string               `json:"assigned_to_id"`
	TeamID       *string               `json:"team_id"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// CommentResponse represents one comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	ParentID  *string   `json:"parent_id"`
	IsSystem  bool      `json:"is_system"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse represents one status history entry.
type HistoryResponse struct {
	ID          string               `json:"id"`
	OldStatus   *domain.TicketStatus `json:"old_status"`
	NewStatus   domain.TicketStatus  `json:"new_status"`
	ChangedByID *string              `json:"changed_by_id"`
	ChangedAt   time.Time            `json:"changed_at"`
}

// SLAConfigResponse represents one SLA row.
type SLAConfigResponse struct {
	Priority            domain.TicketPriority `json:"priority"`
	ResponseTimeHours   int                   `json:"response_time_hours"`
	ResolutionTimeHours int                   `json:"resolution_time_hours"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// NotificationResponse represents one inbox item.
type NotificationResponse struct {
	ID        string                      `json:"id"`
	Title     string                      `json:"title"`
	Message   string                      `json:"message"`
	Category  domain.NotificationCategory `json:"type"`
	IsRead    bool                        `json:"is_read"`
	CreatedAt time.Time                   `json:"created_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Category:     t.Category,
		Status:       t.Status,
		Priority:     t.Priority,
		CreatedByID:  t.CreatedByID,
		AssignedToID: t.AssignedToID,
		TeamID:       t.TeamID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		TicketID:  c.TicketID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		ParentID:  c.ParentID,
		IsSystem:  c.IsSystem,
		CreatedAt: c.CreatedAt,
	}
}

// NewHistoryResponses maps history entries.
func NewHistoryResponses(entries []domain.StatusHistoryEntry) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryResponse{
			ID:          e.ID,
			OldStatus:   e.OldStatus,
			NewStatus:   e.NewStatus,
			ChangedByID: e.ChangedByID,
			ChangedAt:   e.ChangedAt,
		})
	}
	return out
}

// NewSLAConfigResponse maps an SLA row.
func NewSLAConfigResponse(c *domain.SLAConfig) SLAConfigResponse {
	return SLAConfigResponse{
		Priority:            c.Priority,
		ResponseTimeHours:   c.ResponseTimeHours,
		ResolutionTimeHours: c.ResolutionTimeHours,
		UpdatedAt:           c.UpdatedAt,
	}
}

// NewNotificationResponses maps inbox items.
func NewNotificationResponses(items []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Category:  n.Category,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
