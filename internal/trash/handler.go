package trash

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/harborbank/harbor-core/internal/user"
)

// Handler exposes the trash endpoints. Delete and restore are super-admin
// only; the listing is available to admins.
type Handler struct {
	coordinator *Coordinator
}

// NewHandler constructs a trash handler.
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// Delete soft-deletes a user and cascades over their records.
func (h *Handler) Delete(c *fiber.Ctx) error {
	actor, _ := c.Locals("user_id").(string)

	err := h.coordinator.Delete(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrCannotDeleteSuperAdmin):
			return fiber.NewError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrAlreadyDeleted):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

// Restore brings a soft-deleted user and their records back.
func (h *Handler) Restore(c *fiber.Ctx) error {
	actor, _ := c.Locals("user_id").(string)

	err := h.coordinator.Restore(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotDeleted):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

// List shows users currently in the trash.
func (h *Handler) List(c *fiber.Ctx) error {
	users, err := h.coordinator.ListDeleted(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		entry := fiber.Map{
			"user_id":   u.ID,
			"full_name": u.FullName,
			"email":     u.Email,
		}
		if u.DeletedAt != nil {
			entry["deleted_at"] = u.DeletedAt
		}
		if u.DeletedBy != nil {
			entry["deleted_by"] = *u.DeletedBy
		}
		out = append(out, entry)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"deleted_users": out})
}
