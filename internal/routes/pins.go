package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/pinvault"
)

// RegisterPinRoutes wires transaction PIN endpoints.
func RegisterPinRoutes(r fiber.Router, h *pinvault.Handler) {
	r.Post("/pins", h.Set)
	r.Put("/pins", h.Change)
}
