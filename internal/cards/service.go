package cards

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/pinvault"
)

// Service issues debit cards against a user's account and manages their PINs
// through the vault.
type Service struct {
	repo  Repository
	store ledger.Store
	pins  *pinvault.Service
}

// NewService constructs a card service.
func NewService(repo Repository, store ledger.Store, pins *pinvault.Service) *Service {
	return &Service{repo: repo, store: store, pins: pins}
}

// Issue creates a new debit card bound to the user's account. The card starts
// without a PIN.
func (s *Service) Issue(ctx context.Context, userID string) (DebitCard, error) {
	account, err := s.store.AccountByUser(ctx, userID)
	if err != nil {
		return DebitCard{}, err
	}

	number, err := GenerateCardNumber()
	if err != nil {
		return DebitCard{}, err
	}
	card := DebitCard{
		ID:         uuid.NewString(),
		UserID:     userID,
		AccountID:  account.ID,
		CardNumber: number,
		Expiry:     GenerateExpiry(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, card); err != nil {
		return DebitCard{}, err
	}
	return card, nil
}

// List returns the user's live cards.
func (s *Service) List(ctx context.Context, userID string) ([]DebitCard, error) {
	return s.repo.ListByUser(ctx, userID)
}

// SetPin sets the initial PIN for one of the user's cards.
func (s *Service) SetPin(ctx context.Context, userID, cardID, pin string) error {
	if err := s.ownedCard(ctx, userID, cardID); err != nil {
		return err
	}
	return s.pins.Set(ctx, pinvault.ForCard(cardID), pin)
}

// ChangePin rotates the PIN for one of the user's cards.
func (s *Service) ChangePin(ctx context.Context, userID, cardID, currentPin, newPin string) error {
	if err := s.ownedCard(ctx, userID, cardID); err != nil {
		return err
	}
	return s.pins.Change(ctx, pinvault.ForCard(cardID), currentPin, newPin)
}

func (s *Service) ownedCard(ctx context.Context, userID, cardID string) error {
	card, err := s.repo.ByID(ctx, cardID)
	if err != nil {
		return err
	}
	if card.UserID != userID {
		return ErrCardNotFound
	}
	return nil
}
