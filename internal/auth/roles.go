package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tickettally/ticket-engine/internal/domain"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

// RequireRole ensures the authenticated user holds one of the allowed roles.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[user.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff allows IT staff and admins.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.UserRoleITStaff, domain.UserRoleAdmin)
}

// RequireAdmin allows admins only.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.UserRoleAdmin)
}
