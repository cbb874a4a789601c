package ledger

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes read-only account and transaction endpoints.
type Handler struct {
	store Store
}

// NewHandler constructs a ledger handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Account returns the caller's account summary.
func (h *Handler) Account(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	account, err := h.store.AccountByUser(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id":     account.ID,
		"account_number": account.AccountNumber,
		"balance":        account.Balance,
		"activated":      account.Activated,
	})
}

// History returns the caller's ledger rows, newest first. Soft-deleted rows
// never appear.
func (h *Handler) History(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	account, err := h.store.AccountByUser(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	list, err := h.store.ListByAccount(c.UserContext(), account.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(list))
	for _, tx := range list {
		entry := fiber.Map{
			"transaction_id": tx.ID,
			"type":           tx.Type,
			"amount":         tx.Amount,
			"status":         tx.Status,
			"created_at":     tx.CreatedAt,
		}
		if tx.RecipientAccountNumber != "" {
			entry["recipient_account_number"] = tx.RecipientAccountNumber
		}
		if tx.Description != "" {
			entry["description"] = tx.Description
		}
		out = append(out, entry)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": out})
}
