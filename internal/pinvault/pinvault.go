package pinvault

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPinAlreadySet indicates Set was called for a subject that already
	// has a PIN; Change is required instead.
	ErrPinAlreadySet = errors.New("pin already set")

	// ErrPinNotSet indicates no PIN exists for the subject.
	ErrPinNotSet = errors.New("pin not set")

	// ErrPinMismatch indicates the presented current PIN did not verify.
	ErrPinMismatch = errors.New("pin mismatch")

	// ErrSamePin indicates the new PIN equals the current one.
	ErrSamePin = errors.New("new pin must differ from current pin")

	// ErrInvalidFormat indicates the PIN is not exactly four ASCII digits.
	ErrInvalidFormat = errors.New("pin must be exactly 4 digits")
)

// Subject identifies the owner of a PIN: either a user's transaction PIN or
// a debit card's PIN.
type Subject struct {
	kind string
	id   string
}

const (
	kindUser = "user"
	kindCard = "card"
)

// ForUser addresses a user's transaction PIN.
func ForUser(userID string) Subject {
	return Subject{kind: kindUser, id: userID}
}

// ForCard addresses a debit card's PIN.
func ForCard(cardID string) Subject {
	return Subject{kind: kindCard, id: cardID}
}

// Record is a stored PIN hash. The raw PIN is never persisted.
type Record struct {
	Hash      []byte
	UpdatedAt time.Time
}

// Repository persists PIN hashes keyed by subject.
type Repository interface {
	Get(ctx context.Context, sub Subject) (Record, error)
	Save(ctx context.Context, sub Subject, hash []byte, at time.Time) error
	// SoftDelete and Restore are no-ops when no record exists, keeping the
	// soft-delete cascade steps idempotent.
	SoftDelete(ctx context.Context, sub Subject, at time.Time, by string) error
	Restore(ctx context.Context, sub Subject) error
}
