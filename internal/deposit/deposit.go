package deposit

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Deposit statuses. APPROVED and REJECTED are terminal.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// ErrNotFound indicates the deposit does not exist.
var ErrNotFound = errors.New("deposit not found")

// Deposit is a user-submitted external-payment claim awaiting admin review.
// It has no balance effect until approved.
type Deposit struct {
	ID        string
	UserID    string
	AccountID string
	Amount    decimal.Decimal
	Status    string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists deposit intents.
type Repository interface {
	Create(ctx context.Context, d Deposit) error
	ByID(ctx context.Context, id string) (Deposit, error)
	ListByUser(ctx context.Context, userID string) ([]Deposit, error)
	// SetStatus transitions PENDING -> status, optionally replacing the
	// notes. Non-PENDING deposits yield ErrAlreadyProcessed.
	SetStatus(ctx context.Context, id, status, notes string) error
}
