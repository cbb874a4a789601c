package trash

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harborbank/harbor-core/internal/audit"
	"github.com/harborbank/harbor-core/internal/cards"
	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/loan"
	"github.com/harborbank/harbor-core/internal/notification"
	"github.com/harborbank/harbor-core/internal/pinvault"
	"github.com/harborbank/harbor-core/internal/user"
)

var (
	// ErrCannotDeleteSuperAdmin protects the root operator account.
	ErrCannotDeleteSuperAdmin = errors.New("cannot delete super admin")

	// ErrAlreadyDeleted indicates the user is already in the trash.
	ErrAlreadyDeleted = errors.New("user already deleted")

	// ErrNotDeleted indicates a restore was requested for a live user.
	ErrNotDeleted = errors.New("user is not deleted")
)

// Coordinator runs the soft-delete cascade across every store that holds
// user-owned records, and the mirror restore. Every step is idempotent, so a
// cascade interrupted halfway can be re-run safely.
type Coordinator struct {
	users  user.Repository
	store  ledger.Store
	loans  loan.Repository
	cards  cards.Repository
	pins   pinvault.Repository
	trail  audit.Repository
	notify notification.Notifier
	logger *slog.Logger
}

// NewCoordinator wires the cascade over the given stores.
func NewCoordinator(users user.Repository, store ledger.Store, loans loan.Repository,
	cardRepo cards.Repository, pins pinvault.Repository, trail audit.Repository,
	notify notification.Notifier, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		users:  users,
		store:  store,
		loans:  loans,
		cards:  cardRepo,
		pins:   pins,
		trail:  trail,
		notify: notify,
		logger: logger,
	}
}

// Delete soft-deletes the user and everything they own: account, ledger rows,
// loans, repayments, cards, card PINs and the transaction PIN. Nothing is
// physically removed.
func (c *Coordinator) Delete(ctx context.Context, actorID, userID string) error {
	target, err := c.users.FindByIDAny(ctx, userID)
	if err != nil {
		return err
	}
	if target.SuperAdmin {
		return ErrCannotDeleteSuperAdmin
	}
	if target.Deleted() {
		return ErrAlreadyDeleted
	}

	now := time.Now().UTC()

	// Resolve through the any-state lookup: a cascade that stopped after
	// stamping the account must still stamp the ledger rows on re-run.
	account, err := c.store.AccountByUserAny(ctx, userID)
	switch {
	case err == nil:
		if account.DeletedAt == nil {
			if err := c.store.SoftDeleteAccount(ctx, account.ID, now, actorID); err != nil {
				return fmt.Errorf("delete account: %w", err)
			}
		}
		if err := c.store.SoftDeleteTransactions(ctx, account.ID, now, actorID); err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}
	case errors.Is(err, ledger.ErrAccountNotFound):
		// User never opened an account; nothing to stamp.
	default:
		return err
	}

	loanIDs, err := c.loans.LoanIDsByUserAny(ctx, userID)
	if err != nil {
		return err
	}
	if err := c.loans.SoftDeleteLoans(ctx, userID, now, actorID); err != nil {
		return fmt.Errorf("delete loans: %w", err)
	}
	for _, loanID := range loanIDs {
		if err := c.loans.SoftDeleteRepayments(ctx, loanID, now, actorID); err != nil {
			return fmt.Errorf("delete repayments: %w", err)
		}
	}

	cardIDs, err := c.cards.CardIDsByUserAny(ctx, userID)
	if err != nil {
		return err
	}
	if err := c.cards.SoftDeleteByUser(ctx, userID, now, actorID); err != nil {
		return fmt.Errorf("delete cards: %w", err)
	}
	for _, cardID := range cardIDs {
		if err := c.pins.SoftDelete(ctx, pinvault.ForCard(cardID), now, actorID); err != nil {
			return fmt.Errorf("delete card pin: %w", err)
		}
	}
	if err := c.pins.SoftDelete(ctx, pinvault.ForUser(userID), now, actorID); err != nil {
		return fmt.Errorf("delete transaction pin: %w", err)
	}

	if err := c.users.SoftDelete(ctx, userID, now, actorID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	c.record(ctx, audit.Entry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     audit.ActionDeleteUser,
		EntityType: "user",
		EntityID:   userID,
		Details:    fmt.Sprintf("cascade over %d loans, %d cards", len(loanIDs), len(cardIDs)),
		CreatedAt:  now,
	})
	return nil
}

// Restore reverses the cascade in the same account-first order as Delete,
// bringing the user and all their records back exactly as they were stamped.
func (c *Coordinator) Restore(ctx context.Context, actorID, userID string) error {
	target, err := c.users.FindByIDAny(ctx, userID)
	if err != nil {
		return err
	}
	if !target.Deleted() {
		return ErrNotDeleted
	}

	account, err := c.store.AccountByUserAny(ctx, userID)
	switch {
	case err == nil:
		if err := c.store.RestoreAccount(ctx, account.ID); err != nil {
			return fmt.Errorf("restore account: %w", err)
		}
		if err := c.store.RestoreTransactions(ctx, account.ID); err != nil {
			return fmt.Errorf("restore transactions: %w", err)
		}
	case errors.Is(err, ledger.ErrAccountNotFound):
	default:
		return err
	}

	loanIDs, err := c.loans.LoanIDsByUserAny(ctx, userID)
	if err != nil {
		return err
	}
	if err := c.loans.RestoreLoans(ctx, userID); err != nil {
		return fmt.Errorf("restore loans: %w", err)
	}
	for _, loanID := range loanIDs {
		if err := c.loans.RestoreRepayments(ctx, loanID); err != nil {
			return fmt.Errorf("restore repayments: %w", err)
		}
	}

	cardIDs, err := c.cards.CardIDsByUserAny(ctx, userID)
	if err != nil {
		return err
	}
	if err := c.cards.RestoreByUser(ctx, userID); err != nil {
		return fmt.Errorf("restore cards: %w", err)
	}
	for _, cardID := range cardIDs {
		if err := c.pins.Restore(ctx, pinvault.ForCard(cardID)); err != nil {
			return fmt.Errorf("restore card pin: %w", err)
		}
	}
	if err := c.pins.Restore(ctx, pinvault.ForUser(userID)); err != nil {
		return fmt.Errorf("restore transaction pin: %w", err)
	}

	if err := c.users.Restore(ctx, userID); err != nil {
		return fmt.Errorf("restore user: %w", err)
	}

	now := time.Now().UTC()
	c.record(ctx, audit.Entry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     audit.ActionRestoreUser,
		EntityType: "user",
		EntityID:   userID,
		CreatedAt:  now,
	})

	if c.notify != nil {
		msg := notification.Message{
			Kind:   notification.KindAccountRestored,
			UserID: userID,
			Title:  "Account restored",
			Body:   "Your account and records have been restored.",
		}
		if err := c.notify.Send(ctx, msg); err != nil && c.logger != nil {
			c.logger.Warn("notification dispatch failed", "kind", msg.Kind, "error", err)
		}
	}
	return nil
}

// ListDeleted returns users currently in the trash.
func (c *Coordinator) ListDeleted(ctx context.Context) ([]user.User, error) {
	return c.users.ListDeleted(ctx)
}

func (c *Coordinator) record(ctx context.Context, entry audit.Entry) {
	if c.trail == nil {
		return
	}
	if err := c.trail.Append(ctx, entry); err != nil && c.logger != nil {
		c.logger.Warn("audit append failed", "action", entry.Action, "error", err)
	}
}
