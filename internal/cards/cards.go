package cards

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCardNotFound indicates the card does not exist or is soft-deleted.
var ErrCardNotFound = errors.New("card not found")

const (
	cardNumberLength = 16
	cardPrefix       = "400000"
	cardValidYears   = 3
)

// DebitCard belongs to one user and account. Its PIN, when set, lives in the
// PIN vault.
type DebitCard struct {
	ID         string
	UserID     string
	AccountID  string
	CardNumber string
	Expiry     string
	CreatedAt  time.Time
	DeletedAt  *time.Time
	DeletedBy  *string
}

// Repository persists debit cards.
type Repository interface {
	Create(ctx context.Context, card DebitCard) error
	ByID(ctx context.Context, id string) (DebitCard, error)
	ListByUser(ctx context.Context, userID string) ([]DebitCard, error)

	// Cascade support for the soft-delete coordinator.
	CardIDsByUserAny(ctx context.Context, userID string) ([]string, error)
	SoftDeleteByUser(ctx context.Context, userID string, at time.Time, by string) error
	RestoreByUser(ctx context.Context, userID string) error
}

// GenerateCardNumber produces a card number with the issuer prefix, random
// middle digits and a Luhn check digit.
func GenerateCardNumber() (string, error) {
	randomDigits := cardNumberLength - len(cardPrefix) - 1
	buf := make([]byte, randomDigits)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate card digits: %w", err)
	}

	var b strings.Builder
	b.WriteString(cardPrefix)
	for _, c := range buf {
		b.WriteByte(c%10 + '0')
	}
	partial := b.String()
	return partial + string(luhnCheckDigit(partial)+'0'), nil
}

// GenerateExpiry returns the card expiry in MM/YY form.
func GenerateExpiry() string {
	now := time.Now()
	return fmt.Sprintf("%02d/%02d", now.Month(), (now.Year()+cardValidYears)%100)
}

// luhnCheckDigit computes the digit that makes the full number pass the Luhn
// checksum.
func luhnCheckDigit(partial string) byte {
	sum := 0
	double := true
	for i := len(partial) - 1; i >= 0; i-- {
		d := int(partial[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return byte((10 - sum%10) % 10)
}
