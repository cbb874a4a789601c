package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/auth"
	"github.com/harborbank/harbor-core/internal/config"
	"github.com/harborbank/harbor-core/internal/user"
)

// Auth validates the bearer token and resolves the caller. The role always
// comes from the user record, never from the token, so a role change takes
// effect on the next request. Soft-deleted users fail the lookup and are
// locked out until restored.
func Auth(cfg config.Config, users user.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		sub, _ := claims["sub"].(string)

		u, err := users.FindByID(c.UserContext(), sub)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals("user_id", u.ID)
		c.Locals("role", u.Role)
		c.Locals("super_admin", u.SuperAdmin)
		return c.Next()
	}
}
