package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/notification"
	"github.com/harborbank/harbor-core/internal/pinvault"
	"github.com/harborbank/harbor-core/internal/verification"
)

var (
	// ErrInvalidPin indicates the presented transaction PIN did not verify.
	ErrInvalidPin = errors.New("invalid pin")

	// ErrSameAccount indicates sender and recipient resolve to one account.
	ErrSameAccount = errors.New("cannot transfer to own account")
)

// StatusPendingAML is the caller-visible state of an initiated transfer
// awaiting its out-of-band AML code.
const StatusPendingAML = "PENDING_AML"

// Service orchestrates the two-phase transfer flow: Initiate verifies the
// PIN and records a durable PENDING intent; VerifyAML checks the admin
// issued code and performs the settlement. Funds are not reserved between
// the phases, so settlement re-validates the balance atomically.
type Service struct {
	store    ledger.Store
	pins     *pinvault.Service
	codes    *verification.Service
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a transfer orchestrator.
func NewService(store ledger.Store, pins *pinvault.Service, codes *verification.Service, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, pins: pins, codes: codes, notifier: notifier, logger: logger}
}

// InitiateInput captures the first-phase request.
type InitiateInput struct {
	UserID                 string
	RecipientAccountNumber string
	Amount                 decimal.Decimal
	Pin                    string
}

// PendingTransfer describes an initiated transfer awaiting AML verification.
type PendingTransfer struct {
	TransactionID string
	Status        string
}

// Initiate validates the request, verifies the PIN and persists a PENDING
// ledger row. No balance moves until AML verification succeeds.
func (s *Service) Initiate(ctx context.Context, input InitiateInput) (PendingTransfer, error) {
	if input.Amount.Sign() <= 0 {
		return PendingTransfer{}, ledger.ErrInvalidAmount
	}

	ok, err := s.pins.Verify(ctx, pinvault.ForUser(input.UserID), input.Pin)
	if err != nil {
		return PendingTransfer{}, err
	}
	if !ok {
		return PendingTransfer{}, ErrInvalidPin
	}

	sender, err := s.store.AccountByUser(ctx, input.UserID)
	if err != nil {
		return PendingTransfer{}, err
	}
	if sender.Balance.Cmp(input.Amount) < 0 {
		return PendingTransfer{}, ledger.ErrInsufficientFunds
	}

	// An unknown account number is an external-bank transfer and may still
	// proceed to the AML stage; settlement only credits local recipients.
	recipient, err := s.store.AccountByNumber(ctx, input.RecipientAccountNumber)
	if err != nil && !errors.Is(err, ledger.ErrAccountNotFound) {
		return PendingTransfer{}, err
	}
	if err == nil && recipient.ID == sender.ID {
		return PendingTransfer{}, ErrSameAccount
	}

	entry := ledger.Transaction{
		ID:                     uuid.NewString(),
		AccountID:              sender.ID,
		Type:                   ledger.TypeTransfer,
		Amount:                 input.Amount,
		Status:                 ledger.StatusPending,
		RecipientAccountNumber: input.RecipientAccountNumber,
		Description:            fmt.Sprintf("Transfer to %s", input.RecipientAccountNumber),
		CreatedAt:              time.Now().UTC(),
	}
	if err := s.store.RecordPending(ctx, entry); err != nil {
		return PendingTransfer{}, err
	}

	return PendingTransfer{TransactionID: entry.ID, Status: StatusPendingAML}, nil
}

// SettlementResult describes a completed transfer.
type SettlementResult struct {
	TransactionID string
	Status        string
}

// VerifyAML checks the caller's AML code for the pending transfer and, on
// success, settles it: sender debited with a mandatory balance re-check,
// local recipient credited, ledger row transitioned to SUCCESS. A failed
// code leaves the row PENDING so the caller may retry. The code is spent by
// a successful settlement and cannot authorize another transfer.
func (s *Service) VerifyAML(ctx context.Context, userID, transactionID, code string) (SettlementResult, error) {
	if err := s.codes.Verify(ctx, userID, verification.PurposeAML, code); err != nil {
		return SettlementResult{}, err
	}

	tx, err := s.store.TransactionByID(ctx, transactionID)
	if err != nil {
		return SettlementResult{}, err
	}

	sender, err := s.store.AccountByUser(ctx, userID)
	if err != nil {
		return SettlementResult{}, err
	}
	if tx.AccountID != sender.ID {
		return SettlementResult{}, ledger.ErrTransactionNotFound
	}
	if tx.Status != ledger.StatusPending {
		return SettlementResult{}, ledger.ErrAlreadyProcessed
	}

	var recipient ledger.Account
	recipientID := ""
	if tx.RecipientAccountNumber != "" {
		recipient, err = s.store.AccountByNumber(ctx, tx.RecipientAccountNumber)
		if err == nil {
			recipientID = recipient.ID
		} else if !errors.Is(err, ledger.ErrAccountNotFound) {
			return SettlementResult{}, err
		}
	}

	if err := s.store.SettleTransfer(ctx, tx.ID, sender.ID, recipientID, tx.Amount); err != nil {
		return SettlementResult{}, err
	}

	// Settlement failures above leave the code valid for a retry; a committed
	// settlement spends it. The settlement must not fail if the consume does.
	if err := s.codes.Consume(ctx, userID, verification.PurposeAML); err != nil && s.logger != nil {
		s.logger.Warn("aml code consume failed", "user_id", userID, "error", err)
	}

	s.notify(ctx, notification.Message{
		Kind:   notification.KindDebitAlert,
		UserID: userID,
		Title:  "Transfer sent",
		Body:   fmt.Sprintf("Your transfer of %s to %s settled.", tx.Amount.StringFixed(2), tx.RecipientAccountNumber),
		Data:   map[string]string{"transaction_id": tx.ID},
	})
	if recipientID != "" {
		s.notify(ctx, notification.Message{
			Kind:   notification.KindCreditAlert,
			UserID: recipient.UserID,
			Title:  "Funds received",
			Body:   fmt.Sprintf("You received %s.", tx.Amount.StringFixed(2)),
			Data:   map[string]string{"transaction_id": tx.ID},
		})
	}

	return SettlementResult{TransactionID: tx.ID, Status: ledger.StatusSuccess}, nil
}

// notify dispatches best effort: a failed notification must never turn a
// committed settlement into a reported failure.
func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil && s.logger != nil {
		s.logger.Warn("notification dispatch failed", "kind", msg.Kind, "error", err)
	}
}
