package deposit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/harborbank/harbor-core/internal/ledger"
)

type memoryRepository struct {
	mu       sync.RWMutex
	deposits map[string]Deposit
}

// NewMemoryRepository builds an in-memory deposit store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{deposits: make(map[string]Deposit)}
}

func (r *memoryRepository) Create(_ context.Context, d Deposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.deposits[d.ID]; exists {
		return errors.New("deposit exists")
	}
	r.deposits[d.ID] = d
	return nil
}

func (r *memoryRepository) ByID(_ context.Context, id string) (Deposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deposits[id]
	if !ok {
		return Deposit{}, ErrNotFound
	}
	return d, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Deposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Deposit
	for _, d := range r.deposits {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memoryRepository) SetStatus(_ context.Context, id, status, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deposits[id]
	if !ok {
		return ErrNotFound
	}
	if d.Status != StatusPending {
		return ledger.ErrAlreadyProcessed
	}
	d.Status = status
	if notes != "" {
		d.Notes = notes
	}
	d.UpdatedAt = time.Now().UTC()
	r.deposits[id] = d
	return nil
}
