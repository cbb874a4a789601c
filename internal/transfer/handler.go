package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/pinvault"
	"github.com/harborbank/harbor-core/internal/verification"
)

// Handler exposes transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type initiateRequest struct {
	RecipientAccountNumber string          `json:"recipient_account_number"`
	Amount                 decimal.Decimal `json:"amount"`
	Pin                    string          `json:"pin"`
}

// Initiate starts the two-phase transfer flow.
func (h *Handler) Initiate(c *fiber.Ctx) error {
	var req initiateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	res, err := h.service.Initiate(c.UserContext(), InitiateInput{
		UserID:                 uid,
		RecipientAccountNumber: req.RecipientAccountNumber,
		Amount:                 req.Amount,
		Pin:                    req.Pin,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ErrSameAccount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "insufficient funds")
		case errors.Is(err, ErrInvalidPin):
			return fiber.NewError(http.StatusUnauthorized, "invalid pin")
		case errors.Is(err, pinvault.ErrPinNotSet):
			return fiber.NewError(http.StatusBadRequest, "transaction pin not set")
		case errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"status":         res.Status,
	})
}

type verifyAMLRequest struct {
	AMLCode string `json:"aml_code"`
}

// VerifyAML settles a pending transfer after checking the AML code.
func (h *Handler) VerifyAML(c *fiber.Ctx) error {
	var req verifyAMLRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	res, err := h.service.VerifyAML(c.UserContext(), uid, c.Params("id"), req.AMLCode)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrCodeMismatch),
			errors.Is(err, verification.ErrCodeExpired),
			errors.Is(err, verification.ErrCodeNotIssued):
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "insufficient funds")
		case errors.Is(err, ledger.ErrAlreadyProcessed):
			return fiber.NewError(http.StatusConflict, "transfer already processed")
		case errors.Is(err, ledger.ErrTransactionNotFound), errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":        true,
		"transaction_id": res.TransactionID,
		"status":         res.Status,
	})
}
