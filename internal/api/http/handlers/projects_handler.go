package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tickettally/ticket-engine/internal/api/dto"
	"github.com/tickettally/ticket-engine/internal/service"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// ProjectsHandler exposes project reads to every user and writes to admins.
type ProjectsHandler struct {
	projects *service.ProjectService
	validate *validator.Validate
}

// NewProjectsHandler constructs handler.
func NewProjectsHandler(projects *service.ProjectService, validate *validator.Validate) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, validate: validate}
}

// List GET /projects.
func (h *ProjectsHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projects, err := h.projects.ListProjects(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProjectResponses(projects)})
}

// Get GET /projects/:id.
func (h *ProjectsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	project, err := h.projects.GetProject(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// Create POST /projects.
func (h *ProjectsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateProjectRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}
	startDate, err := parseProjectDate("start_date", optional(req.StartDate))
	if err != nil {
		return err
	}
	deadline, err := parseProjectDate("deadline", optional(req.Deadline))
	if err != nil {
		return err
	}
	project, err := h.projects.CreateProject(c.UserContext(), user, service.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		StartDate:   startDate,
		Deadline:    deadline,
		Progress:    req.Progress,
		Members:     req.Members,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// Update PATCH /projects/:id.
func (h *ProjectsHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProjectRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}
	startDate, err := parseProjectDate("start_date", req.StartDate)
	if err != nil {
		return err
	}
	deadline, err := parseProjectDate("deadline", req.Deadline)
	if err != nil {
		return err
	}
	project, err := h.projects.UpdateProject(c.UserContext(), user, c.Params("id"), service.ProjectPatch{
		Name:           req.Name,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		StartDate:      startDate,
		ClearStartDate: req.ClearStartDate,
		Deadline:       deadline,
		ClearDeadline:  req.ClearDeadline,
		Progress:       req.Progress,
		Members:        req.Members,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// Delete DELETE /projects/:id.
func (h *ProjectsHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.projects.DeleteProject(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseProjectDate(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := time.Parse(service.ProjectDateLayout, *raw)
	if err != nil {
		return nil, apperrors.NewValidationError("request validation failed", map[string]any{field: "datetime=" + service.ProjectDateLayout})
	}
	return &t, nil
}
