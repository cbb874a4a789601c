package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s := NewInMemory()
	ctx := context.Background()
	accounts := []Account{
		{ID: "acc-a", UserID: "user-a", AccountNumber: "1000000001", Activated: true, CreatedAt: time.Now().UTC()},
		{ID: "acc-b", UserID: "user-b", AccountNumber: "1000000002", Activated: true, CreatedAt: time.Now().UTC()},
	}
	for _, acc := range accounts {
		if err := s.CreateAccount(ctx, acc); err != nil {
			t.Fatalf("create account %s: %v", acc.ID, err)
		}
	}
	return s
}

func TestSettleTransferMaintainsTotal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	SeedBalance(s, "acc-a", decimal.NewFromInt(500))

	entry := Transaction{
		ID:                     "tx-1",
		AccountID:              "acc-a",
		Type:                   TypeTransfer,
		Amount:                 decimal.NewFromInt(200),
		RecipientAccountNumber: "1000000002",
		CreatedAt:              time.Now().UTC(),
	}
	if err := s.RecordPending(ctx, entry); err != nil {
		t.Fatalf("record pending: %v", err)
	}

	if err := s.SettleTransfer(ctx, "tx-1", "acc-a", "acc-b", decimal.NewFromInt(200)); err != nil {
		t.Fatalf("settle: %v", err)
	}

	sender, _ := s.AccountByID(ctx, "acc-a")
	recipient, _ := s.AccountByID(ctx, "acc-b")
	if !sender.Balance.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("sender balance = %s, want 300", sender.Balance)
	}
	if !recipient.Balance.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("recipient balance = %s, want 200", recipient.Balance)
	}
	total := sender.Balance.Add(recipient.Balance)
	if !total.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("ledger not balanced, total=%s", total)
	}

	tx, err := s.TransactionByID(ctx, "tx-1")
	if err != nil {
		t.Fatalf("transaction by id: %v", err)
	}
	if tx.Status != StatusSuccess {
		t.Fatalf("status = %s, want %s", tx.Status, StatusSuccess)
	}
}

func TestSettleTransferIsSingleShot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	SeedBalance(s, "acc-a", decimal.NewFromInt(500))

	if err := s.RecordPending(ctx, Transaction{ID: "tx-1", AccountID: "acc-a", Type: TypeTransfer, Amount: decimal.NewFromInt(100)}); err != nil {
		t.Fatalf("record pending: %v", err)
	}
	if err := s.SettleTransfer(ctx, "tx-1", "acc-a", "acc-b", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	if err := s.SettleTransfer(ctx, "tx-1", "acc-a", "acc-b", decimal.NewFromInt(100)); err != ErrAlreadyProcessed {
		t.Fatalf("second settle err = %v, want ErrAlreadyProcessed", err)
	}

	sender, _ := s.AccountByID(ctx, "acc-a")
	if !sender.Balance.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("balance moved twice: %s", sender.Balance)
	}
}

func TestDebitNeverOverdraws(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	SeedBalance(s, "acc-a", decimal.NewFromInt(100))

	if err := s.Debit(ctx, "acc-a", decimal.NewFromInt(150), nil); err != ErrInsufficientFunds {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	acc, _ := s.AccountByID(ctx, "acc-a")
	if !acc.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("failed debit changed balance: %s", acc.Balance)
	}

	if err := s.Debit(ctx, "acc-a", decimal.NewFromInt(100), nil); err != nil {
		t.Fatalf("exact debit: %v", err)
	}
	acc, _ = s.AccountByID(ctx, "acc-a")
	if !acc.Balance.IsZero() {
		t.Fatalf("balance = %s, want 0", acc.Balance)
	}
}

func TestConcurrentDebitsRespectBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	SeedBalance(s, "acc-a", decimal.NewFromInt(500))

	const workers = 10
	amount := decimal.NewFromInt(100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Debit(ctx, "acc-a", amount, nil); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("succeeded = %d, want 5", succeeded)
	}
	acc, _ := s.AccountByID(ctx, "acc-a")
	if !acc.Balance.IsZero() {
		t.Fatalf("balance = %s, want 0", acc.Balance)
	}
}

func TestRejectTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RecordPending(ctx, Transaction{ID: "tx-1", AccountID: "acc-a", Type: TypeTransfer, Amount: decimal.NewFromInt(50)}); err != nil {
		t.Fatalf("record pending: %v", err)
	}
	if err := s.RejectTransaction(ctx, "tx-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := s.RejectTransaction(ctx, "tx-1"); err != ErrAlreadyProcessed {
		t.Fatalf("second reject err = %v, want ErrAlreadyProcessed", err)
	}
	if err := s.RejectTransaction(ctx, "missing"); err != ErrTransactionNotFound {
		t.Fatalf("missing reject err = %v, want ErrTransactionNotFound", err)
	}
}

func TestSoftDeleteHidesAndRestoreRevives(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	SeedBalance(s, "acc-a", decimal.NewFromInt(250))

	for i := 0; i < 3; i++ {
		err := s.Credit(ctx, "acc-a", decimal.NewFromInt(10), &Transaction{
			ID:        fmt.Sprintf("tx-%d", i),
			AccountID: "acc-a",
			Type:      TypeDeposit,
			Amount:    decimal.NewFromInt(10),
			Status:    StatusSuccess,
		})
		if err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}

	now := time.Now().UTC()
	if err := s.SoftDeleteAccount(ctx, "acc-a", now, "admin-1"); err != nil {
		t.Fatalf("soft delete account: %v", err)
	}
	if err := s.SoftDeleteTransactions(ctx, "acc-a", now, "admin-1"); err != nil {
		t.Fatalf("soft delete transactions: %v", err)
	}

	if _, err := s.AccountByID(ctx, "acc-a"); err != ErrAccountNotFound {
		t.Fatalf("deleted account visible: %v", err)
	}
	if _, err := s.AccountByUser(ctx, "user-a"); err != ErrAccountNotFound {
		t.Fatalf("deleted account visible by user: %v", err)
	}
	list, _ := s.ListByAccount(ctx, "acc-a")
	if len(list) != 0 {
		t.Fatalf("deleted rows visible: %d", len(list))
	}

	if err := s.RestoreTransactions(ctx, "acc-a"); err != nil {
		t.Fatalf("restore transactions: %v", err)
	}
	if err := s.RestoreAccount(ctx, "acc-a"); err != nil {
		t.Fatalf("restore account: %v", err)
	}

	acc, err := s.AccountByID(ctx, "acc-a")
	if err != nil {
		t.Fatalf("restored account: %v", err)
	}
	if !acc.Balance.Equal(decimal.NewFromInt(280)) {
		t.Fatalf("restored balance = %s, want 280", acc.Balance)
	}
	list, _ = s.ListByAccount(ctx, "acc-a")
	if len(list) != 3 {
		t.Fatalf("restored rows = %d, want 3", len(list))
	}
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Credit(ctx, "acc-a", decimal.Zero, nil); err != ErrInvalidAmount {
		t.Fatalf("zero credit err = %v, want ErrInvalidAmount", err)
	}
	if err := s.Debit(ctx, "acc-a", decimal.NewFromInt(-5), nil); err != ErrInvalidAmount {
		t.Fatalf("negative debit err = %v, want ErrInvalidAmount", err)
	}
}
