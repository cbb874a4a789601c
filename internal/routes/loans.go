package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/loan"
)

// RegisterLoanRoutes wires borrower-facing loan endpoints.
func RegisterLoanRoutes(r fiber.Router, h *loan.Handler, pinLimiter fiber.Handler) {
	r.Post("/loans", pinLimiter, h.Apply)
	r.Post("/loans/:id/repayments", h.SubmitRepayment)
}
