package pinvault

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes transaction PIN endpoints. Card PIN endpoints live with the
// cards handler, which resolves ownership first.
type Handler struct {
	service *Service
}

// NewHandler constructs a PIN handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type setRequest struct {
	Pin string `json:"pin"`
}

// Set creates the caller's transaction PIN. Fails if one already exists.
func (h *Handler) Set(c *fiber.Ctx) error {
	var req setRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	if err := h.service.Set(c.UserContext(), ForUser(uid), req.Pin); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"success": true})
}

type changeRequest struct {
	CurrentPin string `json:"current_pin"`
	NewPin     string `json:"new_pin"`
}

// Change rotates the caller's transaction PIN.
func (h *Handler) Change(c *fiber.Ctx) error {
	var req changeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	if err := h.service.Change(c.UserContext(), ForUser(uid), req.CurrentPin, req.NewPin); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrPinMismatch):
		return fiber.NewError(http.StatusUnauthorized, "invalid pin")
	case errors.Is(err, ErrInvalidFormat),
		errors.Is(err, ErrPinAlreadySet),
		errors.Is(err, ErrPinNotSet),
		errors.Is(err, ErrSamePin):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
