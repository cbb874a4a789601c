package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/audit"
	"github.com/harborbank/harbor-core/internal/ledger"
)

// Handler exposes admin user provisioning. Authentication itself is handled
// upstream; this service only stores the records the engine operates on.
type Handler struct {
	repo   Repository
	store  ledger.Store
	trail  audit.Repository
	logger *slog.Logger
}

// NewHandler constructs a user handler.
func NewHandler(repo Repository, store ledger.Store, trail audit.Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, store: store, trail: trail, logger: logger}
}

type onboardRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Onboard creates a user together with their account. The account starts with
// a zero balance, activated.
func (h *Handler) Onboard(c *fiber.Ctx) error {
	var req onboardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.FullName == "" || req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "full_name and email are required")
	}
	role := Role(req.Role)
	if req.Role == "" {
		role = RoleUser
	}
	if _, ok := roleRank[role]; !ok {
		return fiber.NewError(http.StatusBadRequest, "unknown role")
	}

	now := time.Now().UTC()
	u := User{
		ID:        uuid.NewString(),
		FullName:  req.FullName,
		Email:     req.Email,
		Role:      role,
		CreatedAt: now,
	}
	if err := h.repo.Create(c.UserContext(), u); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	number, err := ledger.GenerateAccountNumber()
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	account := ledger.Account{
		ID:            uuid.NewString(),
		UserID:        u.ID,
		AccountNumber: number,
		Balance:       decimal.Zero,
		Activated:     true,
		CreatedAt:     now,
	}
	if err := h.store.CreateAccount(c.UserContext(), account); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user_id":        u.ID,
		"account_id":     account.ID,
		"account_number": account.AccountNumber,
		"role":           u.Role,
	})
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRole updates a user's role. Takes effect on the target's next request
// since roles are resolved from the record, not the token.
func (h *Handler) ChangeRole(c *fiber.Ctx) error {
	var req changeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	role := Role(req.Role)
	if _, ok := roleRank[role]; !ok {
		return fiber.NewError(http.StatusBadRequest, "unknown role")
	}

	targetID := c.Params("id")
	if err := h.repo.UpdateRole(c.UserContext(), targetID, role); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	actor, _ := c.Locals("user_id").(string)
	h.record(c.UserContext(), audit.Entry{
		ID:         uuid.NewString(),
		ActorID:    actor,
		Action:     audit.ActionChangeRole,
		EntityType: "user",
		EntityID:   targetID,
		Details:    string(role),
		CreatedAt:  time.Now().UTC(),
	})

	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

type setActivationRequest struct {
	Activated *bool `json:"activated"`
}

// SetActivation toggles the target user's account between active and frozen.
func (h *Handler) SetActivation(c *fiber.Ctx) error {
	var req setActivationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Activated == nil {
		return fiber.NewError(http.StatusBadRequest, "activated is required")
	}

	targetID := c.Params("id")
	account, err := h.store.AccountByUser(c.UserContext(), targetID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if err := h.store.SetActivation(c.UserContext(), account.ID, *req.Activated); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	actor, _ := c.Locals("user_id").(string)
	h.record(c.UserContext(), audit.Entry{
		ID:         uuid.NewString(),
		ActorID:    actor,
		Action:     audit.ActionSetActivation,
		EntityType: "account",
		EntityID:   account.ID,
		Details:    fmt.Sprintf("activated=%t", *req.Activated),
		CreatedAt:  time.Now().UTC(),
	})

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id": account.ID,
		"activated":  *req.Activated,
	})
}

func (h *Handler) record(ctx context.Context, entry audit.Entry) {
	if h.trail == nil {
		return
	}
	if err := h.trail.Append(ctx, entry); err != nil && h.logger != nil {
		h.logger.Warn("audit append failed", "action", entry.Action, "error", err)
	}
}
