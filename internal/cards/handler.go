package cards

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/pinvault"
)

// Handler exposes debit card endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a card handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Issue creates a new card for the authenticated user.
func (h *Handler) Issue(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	card, err := h.service.Issue(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"card_id":     card.ID,
		"card_number": card.CardNumber,
		"expiry":      card.Expiry,
	})
}

// List returns the authenticated user's cards.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	list, err := h.service.List(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(list))
	for _, card := range list {
		out = append(out, fiber.Map{
			"card_id":     card.ID,
			"card_number": card.CardNumber,
			"expiry":      card.Expiry,
			"created_at":  card.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"cards": out})
}

type setPinRequest struct {
	Pin string `json:"pin"`
}

// SetPin sets the initial PIN on one of the user's cards.
func (h *Handler) SetPin(c *fiber.Ctx) error {
	var req setPinRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	if err := h.service.SetPin(c.UserContext(), uid, c.Params("id"), req.Pin); err != nil {
		return pinError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

type changePinRequest struct {
	CurrentPin string `json:"current_pin"`
	NewPin     string `json:"new_pin"`
}

// ChangePin rotates the PIN on one of the user's cards.
func (h *Handler) ChangePin(c *fiber.Ctx) error {
	var req changePinRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	if err := h.service.ChangePin(c.UserContext(), uid, c.Params("id"), req.CurrentPin, req.NewPin); err != nil {
		return pinError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

func pinError(err error) error {
	switch {
	case errors.Is(err, ErrCardNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, pinvault.ErrPinMismatch):
		return fiber.NewError(http.StatusUnauthorized, "invalid pin")
	case errors.Is(err, pinvault.ErrInvalidFormat),
		errors.Is(err, pinvault.ErrPinAlreadySet),
		errors.Is(err, pinvault.ErrPinNotSet),
		errors.Is(err, pinvault.ErrSamePin):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
