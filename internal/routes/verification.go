package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/verification"
)

// RegisterVerificationRoutes wires the user-facing code verification
// endpoints.
func RegisterVerificationRoutes(r fiber.Router, h *verification.Handler) {
	r.Post("/codes/twofa-reset/verify", h.VerifyTwoFAReset)
	r.Post("/codes/unlock/verify", h.VerifyUnlock)
}
