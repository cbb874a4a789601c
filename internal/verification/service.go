package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/harborbank/harbor-core/internal/user"
)

var (
	// ErrCodeNotIssued indicates no code was ever issued for the purpose.
	ErrCodeNotIssued = errors.New("code not issued")

	// ErrCodeExpired indicates the stored code is past its expiry.
	ErrCodeExpired = errors.New("code expired")

	// ErrCodeMismatch indicates the presented code differs from the stored one.
	ErrCodeMismatch = errors.New("code mismatch")
)

// Purpose distinguishes the three independent code slots on a user.
type Purpose string

const (
	// PurposeAML gates transfer settlement.
	PurposeAML Purpose = user.PurposeAML
	// PurposeTwoFAReset authorizes clearing the user's second factor.
	PurposeTwoFAReset Purpose = user.PurposeTwoFAReset
	// PurposeUnlock authorizes unlocking a locked account.
	PurposeUnlock Purpose = user.PurposeUnlock
)

const codeDigits = 6

// Service issues and verifies one-time codes. Codes are 6 ASCII digits and
// issuing a new code for a purpose permanently invalidates the previous one,
// even if it has not expired.
type Service struct {
	users user.Repository
	ttl   time.Duration
}

// NewService builds a verification service. ttl is the validity window of a
// freshly issued code.
func NewService(users user.Repository, ttl time.Duration) *Service {
	return &Service{users: users, ttl: ttl}
}

// Issue generates a fresh code for the purpose, overwriting any prior one.
func (s *Service) Issue(ctx context.Context, userID string, purpose Purpose) (user.CodeGrant, error) {
	code, err := randomCode()
	if err != nil {
		return user.CodeGrant{}, err
	}
	grant := user.CodeGrant{Code: code, ExpiresAt: time.Now().UTC().Add(s.ttl)}
	if err := s.users.SetCode(ctx, userID, string(purpose), grant); err != nil {
		return user.CodeGrant{}, err
	}
	return grant, nil
}

// IssueBundle holds one fresh code per purpose, as returned by the admin
// issue endpoint. Issuing a bundle unconditionally invalidates all three
// outstanding codes for the user.
type IssueBundle struct {
	AML        user.CodeGrant
	TwoFAReset user.CodeGrant
	Unlock     user.CodeGrant
}

// IssueAll issues new codes for every purpose at once.
func (s *Service) IssueAll(ctx context.Context, userID string) (IssueBundle, error) {
	var bundle IssueBundle
	var err error
	if bundle.AML, err = s.Issue(ctx, userID, PurposeAML); err != nil {
		return IssueBundle{}, err
	}
	if bundle.TwoFAReset, err = s.Issue(ctx, userID, PurposeTwoFAReset); err != nil {
		return IssueBundle{}, err
	}
	if bundle.Unlock, err = s.Issue(ctx, userID, PurposeUnlock); err != nil {
		return IssueBundle{}, err
	}
	return bundle, nil
}

// Verify checks the presented code against the stored grant. Successful
// verification of a 2FA-reset code also clears the user's second-factor
// token.
func (s *Service) Verify(ctx context.Context, userID string, purpose Purpose, code string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	var grant user.CodeGrant
	switch purpose {
	case PurposeAML:
		grant = u.AMLCode
	case PurposeTwoFAReset:
		grant = u.TwoFAResetCode
	case PurposeUnlock:
		grant = u.UnlockCode
	default:
		return fmt.Errorf("unknown code purpose %q", purpose)
	}

	if !grant.Issued() {
		return ErrCodeNotIssued
	}
	if time.Now().UTC().After(grant.ExpiresAt) {
		return ErrCodeExpired
	}
	if strings.TrimSpace(code) != grant.Code {
		return ErrCodeMismatch
	}

	if purpose == PurposeTwoFAReset {
		if err := s.users.ClearTwoFAToken(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// Consume discards the stored grant so the code cannot verify again. Callers
// invoke it once the guarded operation has actually completed; Verify itself
// stays a pure check so a failed operation can be retried with the same code.
func (s *Service) Consume(ctx context.Context, userID string, purpose Purpose) error {
	return s.users.SetCode(ctx, userID, string(purpose), user.CodeGrant{})
}

func randomCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
