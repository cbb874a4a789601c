package pinvault

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const pinLength = 4

// Service manages PIN lifecycle for users and debit cards.
type Service struct {
	repo Repository
}

// NewService creates a PIN vault service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Set stores the first PIN for a subject. A subject with an existing PIN
// must use Change.
func (s *Service) Set(ctx context.Context, sub Subject, rawPin string) error {
	if !validPin(rawPin) {
		return ErrInvalidFormat
	}
	if _, err := s.repo.Get(ctx, sub); err == nil {
		return ErrPinAlreadySet
	} else if !errors.Is(err, ErrPinNotSet) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rawPin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, sub, hash, time.Now().UTC())
}

// Change rotates the PIN after verifying the current one.
func (s *Service) Change(ctx context.Context, sub Subject, currentRaw, newRaw string) error {
	if !validPin(newRaw) {
		return ErrInvalidFormat
	}
	rec, err := s.repo.Get(ctx, sub)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(rec.Hash, []byte(currentRaw)) != nil {
		return ErrPinMismatch
	}
	if newRaw == currentRaw {
		return ErrSamePin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newRaw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, sub, hash, time.Now().UTC())
}

// Verify reports whether the presented PIN matches the stored hash. A wrong
// PIN yields (false, nil); only a missing PIN or storage failure is an error.
func (s *Service) Verify(ctx context.Context, sub Subject, rawPin string) (bool, error) {
	rec, err := s.repo.Get(ctx, sub)
	if err != nil {
		return false, err
	}
	return bcrypt.CompareHashAndPassword(rec.Hash, []byte(rawPin)) == nil, nil
}

func validPin(raw string) bool {
	if len(raw) != pinLength {
		return false
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
