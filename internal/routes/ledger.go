package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/ledger"
)

// RegisterLedgerRoutes wires account and history endpoints.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	r.Get("/account", h.Account)
	r.Get("/transactions", h.History)
}
