package handlers

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tickettally/ticket-engine/internal/api/dto"
	"github.com/tickettally/ticket-engine/internal/auth"
	"github.com/tickettally/ticket-engine/internal/domain"
	"github.com/tickettally/ticket-engine/internal/service"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

const defaultPageSize = 20

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return user, nil
}

// bindBody parses the JSON body into req and validates it.
func bindBody(c *fiber.Ctx, v *validator.Validate, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := v.Struct(req); err != nil {
		return dto.ValidationError(err)
	}
	return nil
}

// parseTicketQuery reads status, priority, category, q, page and page_size query parameters.
func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	for _, part := range splitQuery(c.Query("status")) {
		status := domain.TicketStatus(strings.ToUpper(part))
		if !status.Valid() {
			return filter, apperrors.NewValidationError("unknown status", map[string]any{"status": part})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, part := range splitQuery(c.Query("priority")) {
		priority := domain.TicketPriority(strings.ToUpper(part))
		if !priority.Valid() {
			return filter, apperrors.NewValidationError("unknown priority", map[string]any{"priority": part})
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		filter.Category = &category
	}
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		filter.SearchTerm = &term
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
