package pinvault

import (
	"context"
	"sync"
	"time"
)

type storedRecord struct {
	Record
	deletedAt *time.Time
	deletedBy *string
}

type memoryRepository struct {
	mu      sync.RWMutex
	records map[Subject]storedRecord
}

// NewMemoryRepository builds an in-memory PIN store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[Subject]storedRecord)}
}

func (r *memoryRepository) Get(_ context.Context, sub Subject) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[sub]
	if !ok || rec.deletedAt != nil {
		return Record{}, ErrPinNotSet
	}
	return rec.Record, nil
}

func (r *memoryRepository) Save(_ context.Context, sub Subject, hash []byte, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[sub] = storedRecord{Record: Record{Hash: hash, UpdatedAt: at}}
	return nil
}

func (r *memoryRepository) SoftDelete(_ context.Context, sub Subject, at time.Time, by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[sub]
	if !ok || rec.deletedAt != nil {
		return nil
	}
	stamp := at
	rec.deletedAt = &stamp
	rec.deletedBy = &by
	r.records[sub] = rec
	return nil
}

func (r *memoryRepository) Restore(_ context.Context, sub Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[sub]
	if !ok {
		return nil
	}
	rec.deletedAt = nil
	rec.deletedBy = nil
	r.records[sub] = rec
	return nil
}
