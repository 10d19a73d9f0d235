package dto

import (
	"time"

	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/export"
)

// UpdateProfileRequest is a self-service account edit. Preferences are merged into the stored set.
type UpdateProfileRequest struct {
	FullName    *string        `json:"full_name" validate:"omitempty,max=120"`
	Department  *string        `json:"department" validate:"omitempty,max=120"`
	Preferences map[string]any `json:"preferences"`
}

// ContactRequest is a public contact form submission.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// ContactMessageResponse is the admin view of a contact submission.
type ContactMessageResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewContactMessageResponses maps contact submissions.
func NewContactMessageResponses(messages []domain.ContactMessage) []ContactMessageResponse {
	out := make([]ContactMessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, ContactMessageResponse{
			ID:        m.ID,
			Name:      m.Name,
			Email:     m.Email,
			Subject:   m.Subject,
			Message:   m.Body,
			IsRead:    m.IsRead,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

// PersonalDataResponse is the JSON form of an account's data export.
type PersonalDataResponse struct {
	User       UserResponse      `json:"user"`
	Team       string            `json:"team"`
	Tickets    []TicketResponse  `json:"tickets"`
	Comments   []CommentResponse `json:"comments"`
	ExportedAt time.Time         `json:"exported_at"`
}

// NewPersonalDataResponse maps an export.
func NewPersonalDataResponse(data export.PersonalData) PersonalDataResponse {
	comments := make([]CommentResponse, 0, len(data.Comments))
	for i := range data.Comments {
		comments = append(comments, NewCommentResponse(&data.Comments[i]))
	}
	return PersonalDataResponse{
		User:       NewUserResponse(&data.User),
		Team:       data.TeamName,
		Tickets:    NewTicketResponses(data.Tickets),
		Comments:   comments,
		ExportedAt: data.ExportedAt,
	}
}
