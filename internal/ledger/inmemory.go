package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type inMemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]Account
	byUser       map[string]string
	byNumber     map[string]string
	transactions map[string]Transaction
	txOrder      []string
}

// NewInMemory creates a concurrency-safe in-memory ledger store useful for
// unit tests. All balance mutations happen under a single lock, which gives
// the same atomicity guarantees as the Postgres conditional updates.
func NewInMemory() Store {
	return &inMemoryStore{
		accounts:     make(map[string]Account),
		byUser:       make(map[string]string),
		byNumber:     make(map[string]string),
		transactions: make(map[string]Transaction),
	}
}

func (s *inMemoryStore) CreateAccount(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; exists {
		return errors.New("account exists")
	}
	s.accounts[account.ID] = account
	s.byUser[account.UserID] = account.ID
	s.byNumber[account.AccountNumber] = account.ID
	return nil
}

func (s *inMemoryStore) AccountByID(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveAccount(id)
}

func (s *inMemoryStore) AccountByUser(_ context.Context, userID string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveAccount(s.byUser[userID])
}

func (s *inMemoryStore) AccountByUserAny(_ context.Context, userID string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[s.byUser[userID]]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (s *inMemoryStore) AccountByNumber(_ context.Context, number string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveAccount(s.byNumber[number])
}

func (s *inMemoryStore) liveAccount(id string) (Account, error) {
	acc, ok := s.accounts[id]
	if !ok || acc.DeletedAt != nil {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (s *inMemoryStore) SetActivation(_ context.Context, accountID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.liveAccount(accountID)
	if err != nil {
		return err
	}
	acc.Activated = active
	s.accounts[accountID] = acc
	return nil
}

func (s *inMemoryStore) Credit(_ context.Context, accountID string, amount decimal.Decimal, entry *Transaction) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.liveAccount(accountID)
	if err != nil {
		return err
	}
	acc.Balance = acc.Balance.Add(amount)
	s.accounts[accountID] = acc
	if entry != nil {
		s.appendLocked(*entry)
	}
	return nil
}

func (s *inMemoryStore) Debit(_ context.Context, accountID string, amount decimal.Decimal, entry *Transaction) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.liveAccount(accountID)
	if err != nil {
		return err
	}
	if acc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	acc.Balance = acc.Balance.Sub(amount)
	s.accounts[accountID] = acc
	if entry != nil {
		s.appendLocked(*entry)
	}
	return nil
}

func (s *inMemoryStore) RecordPending(_ context.Context, entry Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Status = StatusPending
	s.appendLocked(entry)
	return nil
}

func (s *inMemoryStore) SettleTransfer(_ context.Context, txID, senderAccountID, recipientAccountID string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[txID]
	if !ok {
		return ErrTransactionNotFound
	}
	if tx.Status != StatusPending {
		return ErrAlreadyProcessed
	}

	sender, err := s.liveAccount(senderAccountID)
	if err != nil {
		return err
	}
	if sender.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}

	var recipient Account
	if recipientAccountID != "" {
		recipient, err = s.liveAccount(recipientAccountID)
		if err != nil {
			return err
		}
	}

	sender.Balance = sender.Balance.Sub(amount)
	s.accounts[senderAccountID] = sender
	if recipientAccountID != "" {
		recipient.Balance = recipient.Balance.Add(amount)
		s.accounts[recipientAccountID] = recipient
	}

	tx.Status = StatusSuccess
	s.transactions[txID] = tx
	return nil
}

func (s *inMemoryStore) RejectTransaction(_ context.Context, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[txID]
	if !ok {
		return ErrTransactionNotFound
	}
	if tx.Status != StatusPending {
		return ErrAlreadyProcessed
	}
	tx.Status = StatusRejected
	s.transactions[txID] = tx
	return nil
}

func (s *inMemoryStore) TransactionByID(_ context.Context, id string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok || tx.DeletedAt != nil {
		return Transaction{}, ErrTransactionNotFound
	}
	return tx, nil
}

// ListByAccount returns the account's live rows, newest first.
func (s *inMemoryStore) ListByAccount(_ context.Context, accountID string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Transaction
	for i := len(s.txOrder) - 1; i >= 0; i-- {
		tx := s.transactions[s.txOrder[i]]
		if tx.AccountID == accountID && tx.DeletedAt == nil {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *inMemoryStore) SoftDeleteAccount(_ context.Context, accountID string, at time.Time, by string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok || acc.DeletedAt != nil {
		return ErrAccountNotFound
	}
	stamp := at
	acc.DeletedAt = &stamp
	acc.DeletedBy = &by
	s.accounts[accountID] = acc
	return nil
}

func (s *inMemoryStore) RestoreAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	acc.DeletedAt = nil
	acc.DeletedBy = nil
	s.accounts[accountID] = acc
	return nil
}

func (s *inMemoryStore) SoftDeleteTransactions(_ context.Context, accountID string, at time.Time, by string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, tx := range s.transactions {
		if tx.AccountID == accountID && tx.DeletedAt == nil {
			stamp := at
			tx.DeletedAt = &stamp
			tx.DeletedBy = &by
			s.transactions[id] = tx
		}
	}
	return nil
}

func (s *inMemoryStore) RestoreTransactions(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, tx := range s.transactions {
		if tx.AccountID == accountID && tx.DeletedAt != nil {
			tx.DeletedAt = nil
			tx.DeletedBy = nil
			s.transactions[id] = tx
		}
	}
	return nil
}

func (s *inMemoryStore) appendLocked(entry Transaction) {
	s.transactions[entry.ID] = entry
	s.txOrder = append(s.txOrder, entry.ID)
}
