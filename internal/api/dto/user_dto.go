package dto

import (
	"time"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordResetRequest payload for initiating reset.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest payload for confirming reset.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// CreateUserRequest payload for admin-created accounts.
type CreateUserRequest struct {
	FullName string          `json:"full_name" validate:"required,max=120"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8,max=72"`
	Role     domain.UserRole `json:"role" validate:"required,user_role"`
	TeamID   *string         `json:"team_id" validate:"omitempty,uuid"`
}

// UpdateUserRequest payload for admin account edits.
type UpdateUserRequest struct {
	FullName  *string          `json:"full_name" validate:"omitempty,max=120"`
	Role      *domain.UserRole `json:"role" validate:"omitempty,user_role"`
	TeamID    *string          `json:"team_id" validate:"omitempty,uuid"`
	ClearTeam bool             `json:"clear_team"`
	IsActive  *bool            `json:"is_active"`
}

// CreateTeamRequest payload.
type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          string          `json:"id"`
	FullName    string          `json:"full_name"`
	Email       string          `json:"email"`
	Role        domain.UserRole `json:"role"`
	TeamID      *string         `json:"team_id"`
	Department  string          `json:"department"`
	Preferences map[string]any  `json:"preferences"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TeamResponse is the public view of a team.
type TeamResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewUserResponse maps a user.
func NewUserResponse(u *domain.User) UserResponse {
	prefs := u.Preferences
	if prefs == nil {
		prefs = map[string]any{}
	}
	return UserResponse{
		ID:          u.ID,
		FullName:    u.FullName,
		Email:       u.Email,
		Role:        u.Role,
		TeamID:      u.TeamID,
		Department:  u.Department,
		Preferences: prefs,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}

// NewTeamResponse maps a team.
func NewTeamResponse(t *domain.Team) TeamResponse {
	return TeamResponse{ID: t.ID, Name: t.Name, Description: t.Description, CreatedAt: t.CreatedAt}
}
