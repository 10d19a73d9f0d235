package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tickettally/ticket-engine/internal/api/dto"
	"github.com/tickettally/ticket-engine/internal/service"
)

// ContactHandler accepts the public contact form and serves the admin inbox.
type ContactHandler struct {
	contact  *service.ContactService
	validate *validator.Validate
}

// NewContactHandler constructs handler.
func NewContactHandler(contact *service.ContactService, validate *validator.Validate) *ContactHandler {
	return &ContactHandler{contact: contact, validate: validate}
}

// Submit POST /contact. No authentication.
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var req dto.ContactRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}
	msg, err := h.contact.Submit(c.UserContext(), service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"id": msg.ID}})
}

// ListMessages GET /admin/messages.
func (h *ContactHandler) ListMessages(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	messages, err := h.contact.ListMessages(c.UserContext(), user, c.QueryBool("unread", false))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewContactMessageResponses(messages)})
}

// MarkRead POST /admin/messages/:id/read.
func (h *ContactHandler) MarkRead(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.contact.MarkRead(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
