package deposit

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
)

// Handler exposes deposit intent endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a deposit handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type submitRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes"`
}

// Submit records a deposit claim for admin review.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	d, err := h.service.Submit(c.UserContext(), SubmitInput{
		UserID: uid,
		Amount: req.Amount,
		Notes:  req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"deposit_id": d.ID,
		"status":     d.Status,
	})
}

// Approve credits the claimed amount to the user's account.
func (h *Handler) Approve(c *fiber.Ctx) error {
	if err := h.service.Approve(c.UserContext(), c.Params("id")); err != nil {
		return reviewError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject declines the claim with an optional reason.
func (h *Handler) Reject(c *fiber.Ctx) error {
	var req rejectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if err := h.service.Reject(c.UserContext(), c.Params("id"), req.Reason); err != nil {
		return reviewError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

func reviewError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		return fiber.NewError(http.StatusConflict, "already processed")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
