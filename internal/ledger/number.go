package ledger

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const accountNumberLength = 10

// GenerateAccountNumber produces a random numeric account number. Uniqueness
// is enforced by the store's unique constraint, not here.
func GenerateAccountNumber() (string, error) {
	buf := make([]byte, accountNumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate account number: %w", err)
	}
	var b strings.Builder
	for i, c := range buf {
		d := c % 10
		if i == 0 && d == 0 {
			d = 1
		}
		b.WriteByte(d + '0')
	}
	return b.String(), nil
}
