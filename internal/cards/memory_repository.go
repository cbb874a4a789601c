package cards

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryRepository struct {
	mu    sync.RWMutex
	cards map[string]DebitCard
}

// NewMemoryRepository builds an in-memory card store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{cards: make(map[string]DebitCard)}
}

func (r *memoryRepository) Create(_ context.Context, card DebitCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cards[card.ID]; exists {
		return errors.New("card exists")
	}
	r.cards[card.ID] = card
	return nil
}

func (r *memoryRepository) ByID(_ context.Context, id string) (DebitCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	card, ok := r.cards[id]
	if !ok || card.DeletedAt != nil {
		return DebitCard{}, ErrCardNotFound
	}
	return card, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]DebitCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []DebitCard
	for _, card := range r.cards {
		if card.UserID == userID && card.DeletedAt == nil {
			out = append(out, card)
		}
	}
	return out, nil
}

func (r *memoryRepository) CardIDsByUserAny(_ context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, card := range r.cards {
		if card.UserID == userID {
			ids = append(ids, card.ID)
		}
	}
	return ids, nil
}

func (r *memoryRepository) SoftDeleteByUser(_ context.Context, userID string, at time.Time, by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, card := range r.cards {
		if card.UserID == userID && card.DeletedAt == nil {
			stamp := at
			card.DeletedAt = &stamp
			card.DeletedBy = &by
			r.cards[id] = card
		}
	}
	return nil
}

func (r *memoryRepository) RestoreByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, card := range r.cards {
		if card.UserID == userID && card.DeletedAt != nil {
			card.DeletedAt = nil
			card.DeletedBy = nil
			r.cards[id] = card
		}
	}
	return nil
}
