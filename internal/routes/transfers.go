package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/transfer"
)

// RegisterTransferRoutes wires the two-phase transfer endpoints.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler, pinLimiter fiber.Handler) {
	r.Post("/transfers", pinLimiter, h.Initiate)
	r.Post("/transfers/:id/verify-aml", h.VerifyAML)
}
