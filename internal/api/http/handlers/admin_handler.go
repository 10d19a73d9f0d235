package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tickettally/ticket-engine/internal/api/dto"
	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/service"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// AdminHandler exposes SLA, team and account administration.
type AdminHandler struct {
	sla            *service.SLAService
	staff          *service.StaffService
	assignments    *service.AssignmentService
	validate       *validator.Validate
	autoCloseAfter time.Duration
}

// NewAdminHandler constructs handler. autoCloseAfter is the default age for manual auto-close runs.
func NewAdminHandler(sla *service.SLAService, staff *service.StaffService, assignments *service.AssignmentService, validate *validator.Validate, autoCloseAfter time.Duration) *AdminHandler {
	return &AdminHandler{sla: sla, staff: staff, assignments: assignments, validate: validate, autoCloseAfter: autoCloseAfter}
}

// ListSLA GET /admin/sla.
func (h *AdminHandler) ListSLA(c *fiber.Ctx) error {
	configs, err := h.sla.ListConfigs(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SLAConfigResponse, 0, len(configs))
	for i := range configs {
		items = append(items, dto.NewSLAConfigResponse(&configs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpsertSLA PUT /admin/sla/:priority.
func (h *AdminHandler) UpsertSLA(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpsertSLARequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}
	cfg, err := h.sla.UpsertConfig(c.UserContext(), user, domain.SLAConfig{
		Priority:            domain.TicketPriority(strings.ToUpper(c.Params("priority"))),
		ResponseTimeHours:   req.ResponseTimeHours,
		ResolutionTimeHours: req.ResolutionTimeHours,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAConfigResponse(cfg)})
}

// CreateTeam POST /admin/teams.
func (h *AdminHandler) CreateTeam(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTeamRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}
	team, err := h.staff.CreateTeam(c.UserContext(), user, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTeamResponse(team)})
}

// ListTeams GET /teams.
func (h *AdminHandler) ListTeams(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	teams, err := h.staff.ListTeams(c.UserContext(), user)
	if err != nil {
		return err
	}
	items := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, dto.NewTeamResponse(&teams[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateUser POST /admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}
	created, err := h.staff.CreateUser(c.UserContext(), user, service.CreateUserInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		TeamID:   req.TeamID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(created)})
}

// ListUsers GET /admin/users?role=&team_id=&active=.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	filters := service.UserListFilters{}
	if raw := c.Query("role"); raw != "" {
		role := domain.UserRole(strings.ToUpper(raw))
		if !role.Valid() {
			return apperrors.NewValidationError("unknown role", map[string]any{"role": raw})
		}
		filters.Role = &role
	}
	if teamID := c.Query("team_id"); teamID != "" {
		filters.TeamID = &teamID
	}
	filters.ActiveOnly, _ = strconv.ParseBool(c.Query("active"))

	users, err := h.staff.ListUsers(c.UserContext(), user, filters)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateUser PATCH /admin/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}
	updated, err := h.staff.UpdateUser(c.UserContext(), user, c.Params("id"), service.UserPatch{
		FullName:  req.FullName,
		Role:      req.Role,
		TeamID:    req.TeamID,
		ClearTeam: req.ClearTeam,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(updated)})
}

// RunAutoClose POST /admin/auto-close?older_than_hours=.
func (h *AdminHandler) RunAutoClose(c *fiber.Ctx) error {
	olderThan := h.autoCloseAfter
	if raw := c.Query("older_than_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewValidationError("older_than_hours must be an integer", nil)
		}
		olderThan = time.Duration(hours) * time.Hour
	}
	closed, err := h.assignments.AutoCloseResolved(c.UserContext(), olderThan)
	if err != nil && closed == 0 {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"closed": closed}})
}
