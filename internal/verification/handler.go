package verification

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/harborbank/harbor-core/internal/audit"
	"github.com/harborbank/harbor-core/internal/user"
)

// Handler exposes the admin code-issuing endpoint and the user-facing
// verification endpoints for 2FA reset and unlock codes.
type Handler struct {
	service *Service
	trail   audit.Repository
	logger  *slog.Logger
}

// NewHandler constructs a verification handler.
func NewHandler(service *Service, trail audit.Repository, logger *slog.Logger) *Handler {
	return &Handler{service: service, trail: trail, logger: logger}
}

// IssueAll generates fresh AML, 2FA-reset and unlock codes for a user,
// invalidating whatever codes were outstanding. The admin relays them out of
// band; they are returned in the response for that purpose.
func (h *Handler) IssueAll(c *fiber.Ctx) error {
	targetID := c.Params("id")
	bundle, err := h.service.IssueAll(c.UserContext(), targetID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	actor, _ := c.Locals("user_id").(string)
	h.record(c.UserContext(), audit.Entry{
		ID:         uuid.NewString(),
		ActorID:    actor,
		Action:     audit.ActionIssueCodes,
		EntityType: "user",
		EntityID:   targetID,
		CreatedAt:  time.Now().UTC(),
	})

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"aml_code":         bundle.AML.Code,
		"twofa_reset_code": bundle.TwoFAReset.Code,
		"unlock_code":      bundle.Unlock.Code,
		"expires_at":       bundle.AML.ExpiresAt,
	})
}

type verifyRequest struct {
	Code string `json:"code"`
}

// VerifyTwoFAReset checks the caller's 2FA-reset code, clearing the second
// factor on success.
func (h *Handler) VerifyTwoFAReset(c *fiber.Ctx) error {
	return h.verify(c, PurposeTwoFAReset)
}

// VerifyUnlock checks the caller's unlock code.
func (h *Handler) VerifyUnlock(c *fiber.Ctx) error {
	return h.verify(c, PurposeUnlock)
}

func (h *Handler) verify(c *fiber.Ctx, purpose Purpose) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	if err := h.service.Verify(c.UserContext(), uid, purpose, req.Code); err != nil {
		switch {
		case errors.Is(err, ErrCodeMismatch), errors.Is(err, ErrCodeExpired), errors.Is(err, ErrCodeNotIssued):
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, user.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	// Verification is the terminal action for these codes, so spend the code
	// here. A failed consume only risks an extra use; don't fail the request.
	if err := h.service.Consume(c.UserContext(), uid, purpose); err != nil && h.logger != nil {
		h.logger.Warn("code consume failed", "purpose", string(purpose), "error", err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *Handler) record(ctx context.Context, entry audit.Entry) {
	if h.trail == nil {
		return
	}
	if err := h.trail.Append(ctx, entry); err != nil && h.logger != nil {
		h.logger.Warn("audit append failed", "action", entry.Action, "error", err)
	}
}
