package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/cards"
)

// RegisterCardRoutes wires debit card endpoints.
func RegisterCardRoutes(r fiber.Router, h *cards.Handler, pinLimiter fiber.Handler) {
	r.Post("/cards", h.Issue)
	r.Get("/cards", h.List)
	r.Post("/cards/:id/pin", h.SetPin)
	r.Put("/cards/:id/pin", pinLimiter, h.ChangePin)
}
