package deposit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/notification"
)

// Service owns user-submitted deposit intents and their admin review.
type Service struct {
	repo     Repository
	store    ledger.Store
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a deposit service.
func NewService(repo Repository, store ledger.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, store: store, notifier: notifier, logger: logger}
}

// SubmitInput captures a deposit claim.
type SubmitInput struct {
	UserID string
	Amount decimal.Decimal
	Notes  string
}

// Submit records a PENDING deposit intent. The account is not credited until
// an administrator approves the claim.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (Deposit, error) {
	if input.Amount.Sign() <= 0 {
		return Deposit{}, ledger.ErrInvalidAmount
	}
	account, err := s.store.AccountByUser(ctx, input.UserID)
	if err != nil {
		return Deposit{}, err
	}

	now := time.Now().UTC()
	d := Deposit{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		AccountID: account.ID,
		Amount:    input.Amount,
		Status:    StatusPending,
		Notes:     input.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return Deposit{}, err
	}
	return d, nil
}

// Approve credits the account by the claimed amount, writes the ledger row
// and marks the deposit APPROVED. A deposit that already left PENDING yields
// ErrAlreadyProcessed and no balance effect.
func (s *Service) Approve(ctx context.Context, depositID string) error {
	d, err := s.repo.ByID(ctx, depositID)
	if err != nil {
		return err
	}
	if err := s.repo.SetStatus(ctx, depositID, StatusApproved, ""); err != nil {
		return err
	}

	entry := ledger.Transaction{
		ID:          uuid.NewString(),
		AccountID:   d.AccountID,
		Type:        ledger.TypeDeposit,
		Amount:      d.Amount,
		Status:      ledger.StatusSuccess,
		Description: "Deposit approved",
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Credit(ctx, d.AccountID, d.Amount, &entry); err != nil {
		// The claim already flipped the deposit to APPROVED, so a failed
		// credit strands it without funds movement. Surface that loudly for
		// manual reconciliation.
		if s.logger != nil {
			s.logger.Error("approved deposit not credited",
				"deposit_id", depositID, "account_id", d.AccountID, "error", err)
		}
		return fmt.Errorf("deposit %s approved but not credited: %w", depositID, err)
	}

	s.notify(ctx, notification.Message{
		Kind:   notification.KindDepositDecision,
		UserID: d.UserID,
		Title:  "Deposit approved",
		Body:   fmt.Sprintf("Your deposit of %s was approved and credited.", d.Amount.StringFixed(2)),
		Data:   map[string]string{"deposit_id": d.ID},
	})
	return nil
}

// Reject marks the deposit REJECTED with an optional reason and no balance
// effect.
func (s *Service) Reject(ctx context.Context, depositID, reason string) error {
	d, err := s.repo.ByID(ctx, depositID)
	if err != nil {
		return err
	}
	if err := s.repo.SetStatus(ctx, depositID, StatusRejected, reason); err != nil {
		return err
	}

	body := "Your deposit was rejected."
	if reason != "" {
		body = fmt.Sprintf("Your deposit was rejected: %s", reason)
	}
	s.notify(ctx, notification.Message{
		Kind:   notification.KindDepositDecision,
		UserID: d.UserID,
		Title:  "Deposit rejected",
		Body:   body,
		Data:   map[string]string{"deposit_id": d.ID},
	})
	return nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil && s.logger != nil {
		s.logger.Warn("notification dispatch failed", "kind", msg.Kind, "error", err)
	}
}
