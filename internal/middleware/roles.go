package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/user"
)

// RequireRole gates a route on a minimum role. Privileges widen with rank, so
// a super admin passes every check an admin does.
func RequireRole(minimum user.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(user.Role)
		if !ok || !role.AtLeast(minimum) {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireSuperAdmin gates a route on the dedicated super-admin flag rather
// than role rank alone.
func RequireSuperAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if flag, ok := c.Locals("super_admin").(bool); !ok || !flag {
			return fiber.NewError(http.StatusForbidden, "super admin only")
		}
		return c.Next()
	}
}
