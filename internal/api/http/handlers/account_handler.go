package handlers

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tickettally/ticket-engine/internal/api/dto"
	"github.com/tickettally/ticket-engine/internal/export"
	"github.com/tickettally/ticket-engine/internal/service"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

const csvContentType = "text/csv; charset=utf-8"

// AccountHandler serves the signed-in user's profile edits and data export.
type AccountHandler struct {
	auth     *service.AuthService
	tickets  *service.TicketService
	renderer service.PersonalDataRenderer
	validate *validator.Validate
}

// NewAccountHandler constructs handler.
func NewAccountHandler(authService *service.AuthService, tickets *service.TicketService, renderer service.PersonalDataRenderer, validate *validator.Validate) *AccountHandler {
	return &AccountHandler{auth: authService, tickets: tickets, renderer: renderer, validate: validate}
}

// UpdateProfile PATCH /auth/me.
func (h *AccountHandler) UpdateProfile(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}
	updated, err := h.auth.UpdateProfile(c.UserContext(), user, service.ProfilePatch{
		FullName:    req.FullName,
		Department:  req.Department,
		Preferences: req.Preferences,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(updated)})
}

// ExportData GET /auth/me/export?format=json|csv|pdf.
func (h *AccountHandler) ExportData(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	format := strings.ToLower(strings.TrimSpace(c.Query("format", "json")))
	switch format {
	case "json", "csv", "pdf":
	default:
		return apperrors.NewValidationError("unsupported export format", map[string]any{"format": format})
	}

	data, err := h.tickets.PersonalData(c.UserContext(), user)
	if err != nil {
		return err
	}

	switch format {
	case "csv":
		content, err := export.PersonalDataCSV(data)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		c.Set(fiber.HeaderContentType, csvContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, export.PersonalDataCSVFilename(user.ID)))
		return c.Send(content)
	case "pdf":
		content, err := h.renderer.RenderPersonalData(data)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, export.PersonalDataPDFFilename(user.ID)))
		return c.Send(content)
	default:
		return c.JSON(fiber.Map{"data": dto.NewPersonalDataResponse(data)})
	}
}
