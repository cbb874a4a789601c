package loan

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/pinvault"
)

// Handler exposes the loan lifecycle endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a loan handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type applyRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Purpose    string          `json:"purpose"`
	TermMonths int             `json:"term_months"`
	Pin        string          `json:"pin"`
}

// Apply submits a loan application.
func (h *Handler) Apply(c *fiber.Ctx) error {
	var req applyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	l, err := h.service.Apply(c.UserContext(), ApplyInput{
		UserID:     uid,
		Amount:     req.Amount,
		Purpose:    req.Purpose,
		TermMonths: req.TermMonths,
		Pin:        req.Pin,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields), errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInvalidPin):
			return fiber.NewError(http.StatusUnauthorized, "invalid pin")
		case errors.Is(err, pinvault.ErrPinNotSet):
			return fiber.NewError(http.StatusBadRequest, "transaction pin not set")
		case errors.Is(err, ErrOpenLoanExists):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"loan_id": l.ID,
		"status":  l.Status,
	})
}

type approveRequest struct {
	InterestRate decimal.Decimal `json:"interest_rate"`
}

// Approve approves a pending loan and disburses the principal.
func (h *Handler) Approve(c *fiber.Ctx) error {
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	l, err := h.service.Approve(c.UserContext(), c.Params("id"), req.InterestRate)
	if err != nil {
		return decisionError(err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"loan_id":         l.ID,
		"status":          l.Status,
		"interest_rate":   l.InterestRate,
		"total_repayment": l.TotalRepayment,
	})
}

// Reject rejects a pending loan.
func (h *Handler) Reject(c *fiber.Ctx) error {
	if err := h.service.Reject(c.UserContext(), c.Params("id")); err != nil {
		return decisionError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

type repayRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

// SubmitRepayment records a repayment claim against the caller's loan.
func (h *Handler) SubmitRepayment(c *fiber.Ctx) error {
	var req repayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	rep, err := h.service.SubmitRepayment(c.UserContext(), RepayInput{
		UserID:        uid,
		LoanID:        c.Params("id"),
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ErrMissingFields):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotApproved):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrLoanNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"repayment_id": rep.ID,
		"status":       rep.Status,
	})
}

// ApproveRepayment accepts a pending repayment and advances the loan.
func (h *Handler) ApproveRepayment(c *fiber.Ctx) error {
	if err := h.service.ApproveRepayment(c.UserContext(), c.Params("id")); err != nil {
		return decisionError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

// RejectRepayment declines a pending repayment.
func (h *Handler) RejectRepayment(c *fiber.Ctx) error {
	if err := h.service.RejectRepayment(c.UserContext(), c.Params("id")); err != nil {
		return decisionError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

func decisionError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRate):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrLoanNotFound), errors.Is(err, ErrRepaymentNotFound),
		errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		return fiber.NewError(http.StatusConflict, "already processed")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
