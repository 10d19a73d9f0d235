package dto

import (
	"time"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// CreateProjectRequest payload. Dates use the YYYY-MM-DD layout; members are user ids, emails or
// full names.
type CreateProjectRequest struct {
	Name        string                `json:"name" validate:"required,max=100"`
	Description string                `json:"description" validate:"max=5000"`
	Status      domain.ProjectStatus  `json:"status" validate:"omitempty,project_status"`
	Priority    domain.TicketPriority `json:"priority" validate:"omitempty,ticket_priority"`
	StartDate   string                `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Deadline    string                `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
	Progress    int                   `json:"progress" validate:"gte=0,lte=100"`
	Members     []string              `json:"members" validate:"omitempty,dive,required,max=200"`
}

// UpdateProjectRequest is a partial update; omitted fields are unchanged and a present members
// list replaces the current one.
type UpdateProjectRequest struct {
	Name           *string                `json:"name" validate:"omitempty,max=100"`
	Description    *string                `json:"description" validate:"omitempty,max=5000"`
	Status         *domain.ProjectStatus  `json:"status" validate:"omitempty,project_status"`
	Priority       *domain.TicketPriority `json:"priority" validate:"omitempty,ticket_priority"`
	StartDate      *string                `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	ClearStartDate bool                   `json:"clear_start_date"`
	Deadline       *string                `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
	ClearDeadline  bool                   `json:"clear_deadline"`
	Progress       *int                   `json:"progress" validate:"omitempty,gte=0,lte=100"`
	Members        []string               `json:"members" validate:"omitempty,dive,required,max=200"`
}

// ProjectResponse is the public view of a project.
type ProjectResponse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Status      domain.ProjectStatus  `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	StartDate   *string               `json:"start_date"`
	Deadline    *string               `json:"deadline"`
	Progress    int                   `json:"progress"`
	CreatedByID string                `json:"created_by_id"`
	MemberIDs   []string              `json:"member_ids"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewProjectResponse maps a project.
func NewProjectResponse(p *domain.Project) ProjectResponse {
	members := p.MemberIDs
	if members == nil {
		members = []string{}
	}
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		Priority:    p.Priority,
		StartDate:   formatDate(p.StartDate),
		Deadline:    formatDate(p.Deadline),
		Progress:    p.Progress,
		CreatedByID: p.CreatedByID,
		MemberIDs:   members,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// NewProjectResponses maps a project list.
func NewProjectResponses(projects []domain.Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, NewProjectResponse(&projects[i]))
	}
	return out
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
