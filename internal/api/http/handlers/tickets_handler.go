package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tickettally/ticket-engine/internal/api/dto"
	"github.com/tickettally/ticket-engine/internal/export"
	"github.com/tickettally/ticket-engine/internal/service"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TicketsHandler manages ticket endpoints shared by every role.
type TicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
	renderer    service.SummaryRenderer
	validate    *validator.Validate
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, assignments *service.AssignmentService, renderer service.SummaryRenderer, validate *validator.Validate) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, assignments: assignments, renderer: renderer, validate: validate}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), user, service.CreateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		TeamID:      req.TeamID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListTickets(c.UserContext(), user, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateTicket(c.UserContext(), user, c.Params("id"), service.TicketPatch{
		Status:       req.Status,
		Priority:     req.Priority,
		Category:     req.Category,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ClaimTicket POST /tickets/:id/claim.
func (h *TicketsHandler) ClaimTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.assignments.ClaimTicket(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// WithdrawTicket POST /tickets/:id/withdraw.
func (h *TicketsHandler) WithdrawTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.WithdrawTicket(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}
	comment, err := h.tickets.AddComment(c.UserContext(), user, c.Params("id"), req.Text, req.ParentID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	comments, err := h.tickets.ListComments(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, dto.NewCommentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistory(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(history)})
}

// SLAStatus GET /tickets/:id/sla.
func (h *TicketsHandler) SLAStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	evaluation, err := h.tickets.SLAStatus(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": evaluation})
}

// SummaryPDF GET /tickets/:id/summary.pdf.
func (h *TicketsHandler) SummaryPDF(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	doc, err := h.tickets.TicketSummary(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	content, err := h.renderer.RenderTicketSummary(doc)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, export.SummaryFilename(doc.Ticket.ID)))
	return c.Send(content)
}

// ExportXLSX GET /tickets/export.xlsx.
func (h *TicketsHandler) ExportXLSX(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	// Exports are not paginated unless the caller asks for a page.
	if c.Query("page") == "" && c.Query("page_size") == "" {
		filter.Limit, filter.Offset = 0, 0
	}
	rows, err := h.tickets.ExportRows(c.UserContext(), user, filter)
	if err != nil {
		return err
	}
	content, err := export.TicketsWorkbook(rows)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="tickets.xlsx"`)
	return c.Send(content)
}

// FindDuplicate GET /tickets/duplicate?title=...
func (h *TicketsHandler) FindDuplicate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(c.Query("title"))
	if title == "" {
		return apperrors.NewValidationError("title query parameter is required", nil)
	}
	ticket, err := h.tickets.FindDuplicate(c.UserContext(), user, title)
	if err != nil {
		return err
	}
	if ticket == nil {
		return c.JSON(fiber.Map{"data": fiber.Map{"duplicate": false}})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"duplicate": true, "ticket": dto.NewTicketResponse(ticket)}})
}
