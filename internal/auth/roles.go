package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/panchayat-portal/internal/domain"
	apperrors "github.com/spec-kit/panchayat-portal/pkg/util/errorutil"
)

// RequireRole ensures the principal has one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.Role()]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff admits staff and admin accounts.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.RoleStaff, domain.RoleAdmin)
}

// RequireAdmin admits admin accounts only.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}
