package user

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.ID]; exists {
		return errors.New("user exists")
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok || u.Deleted() {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryRepository) FindByIDAny(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryRepository) UpdateRole(_ context.Context, id string, role Role) error {
	return r.mutate(id, func(u *User) error {
		u.Role = role
		return nil
	})
}

func (r *memoryRepository) SetCode(_ context.Context, id, purpose string, grant CodeGrant) error {
	return r.mutate(id, func(u *User) error {
		switch purpose {
		case PurposeAML:
			u.AMLCode = grant
		case PurposeTwoFAReset:
			u.TwoFAResetCode = grant
		case PurposeUnlock:
			u.UnlockCode = grant
		default:
			return fmt.Errorf("unknown code purpose %q", purpose)
		}
		return nil
	})
}

func (r *memoryRepository) ClearTwoFAToken(_ context.Context, id string) error {
	return r.mutate(id, func(u *User) error {
		u.TwoFAToken = ""
		return nil
	})
}

func (r *memoryRepository) SoftDelete(_ context.Context, id string, at time.Time, by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.Deleted() {
		return ErrNotFound
	}
	stamp := at
	u.DeletedAt = &stamp
	u.DeletedBy = &by
	r.users[id] = u
	return nil
}

func (r *memoryRepository) Restore(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.Deleted() {
		return ErrNotFound
	}
	u.DeletedAt = nil
	u.DeletedBy = nil
	r.users[id] = u
	return nil
}

func (r *memoryRepository) ListDeleted(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var deleted []User
	for _, u := range r.users {
		if u.Deleted() {
			deleted = append(deleted, u)
		}
	}
	return deleted, nil
}

func (r *memoryRepository) mutate(id string, fn func(*User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.Deleted() {
		return ErrNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	r.users[id] = u
	return nil
}
