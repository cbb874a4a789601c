package trash

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/audit"
	"github.com/harborbank/harbor-core/internal/cards"
	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/loan"
	"github.com/harborbank/harbor-core/internal/logging"
	"github.com/harborbank/harbor-core/internal/pinvault"
	"github.com/harborbank/harbor-core/internal/user"
)

type fixture struct {
	coordinator *Coordinator
	users       user.Repository
	store       ledger.Store
	loans       loan.Repository
	cards       cards.Repository
	pins        *pinvault.Service
	trail       audit.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	users := user.NewMemoryRepository()
	store := ledger.NewInMemory()
	loans := loan.NewMemoryRepository()
	cardRepo := cards.NewMemoryRepository()
	pinRepo := pinvault.NewMemoryRepository()
	trail := audit.NewMemoryRepository()

	seed := []user.User{
		{ID: "user-1", FullName: "Esi Owusu", Email: "esi@example.com", Role: user.RoleUser},
		{ID: "admin-1", FullName: "Root Operator", Email: "root@example.com", Role: user.RoleSuperAdmin, SuperAdmin: true},
	}
	for _, u := range seed {
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("create user %s: %v", u.ID, err)
		}
	}

	if err := store.CreateAccount(ctx, ledger.Account{
		ID: "acc-1", UserID: "user-1", AccountNumber: "5000000001", Activated: true,
	}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	ledger.SeedBalance(store, "acc-1", decimal.NewFromInt(750))
	if err := store.Credit(ctx, "acc-1", decimal.NewFromInt(50), &ledger.Transaction{
		ID: "tx-1", AccountID: "acc-1", Type: ledger.TypeDeposit,
		Amount: decimal.NewFromInt(50), Status: ledger.StatusSuccess,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	if err := loans.CreateLoan(ctx, loan.Loan{
		ID: "loan-1", UserID: "user-1", Amount: decimal.NewFromInt(100),
		Purpose: "stock", TermMonths: 6, Status: loan.StatusPending,
		AmountPaid: decimal.Zero, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create loan: %v", err)
	}
	if err := loans.CreateRepayment(ctx, loan.Repayment{
		ID: "rep-1", LoanID: "loan-1", Amount: decimal.NewFromInt(20),
		PaymentMethod: "bank", Status: loan.StatusPending,
	}); err != nil {
		t.Fatalf("create repayment: %v", err)
	}

	if err := cardRepo.Create(ctx, cards.DebitCard{
		ID: "card-1", UserID: "user-1", AccountID: "acc-1",
		CardNumber: "4000001234567891", Expiry: "09/29", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create card: %v", err)
	}

	pins := pinvault.NewService(pinRepo)
	if err := pins.Set(ctx, pinvault.ForUser("user-1"), "1234"); err != nil {
		t.Fatalf("set user pin: %v", err)
	}
	if err := pins.Set(ctx, pinvault.ForCard("card-1"), "5678"); err != nil {
		t.Fatalf("set card pin: %v", err)
	}

	coordinator := NewCoordinator(users, store, loans, cardRepo, pinRepo, trail, nil, logging.Discard())
	return fixture{
		coordinator: coordinator,
		users:       users,
		store:       store,
		loans:       loans,
		cards:       cardRepo,
		pins:        pins,
		trail:       trail,
	}
}

func TestDeleteCascadesAndRestoreRevives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.coordinator.Delete(ctx, "admin-1", "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.users.FindByID(ctx, "user-1"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("deleted user visible: %v", err)
	}
	if _, err := f.store.AccountByUser(ctx, "user-1"); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("deleted account visible: %v", err)
	}
	if rows, _ := f.store.ListByAccount(ctx, "acc-1"); len(rows) != 0 {
		t.Fatalf("deleted transactions visible: %d", len(rows))
	}
	if _, err := f.loans.LoanByID(ctx, "loan-1"); !errors.Is(err, loan.ErrLoanNotFound) {
		t.Fatalf("deleted loan visible: %v", err)
	}
	if _, err := f.loans.RepaymentByID(ctx, "rep-1"); !errors.Is(err, loan.ErrRepaymentNotFound) {
		t.Fatalf("deleted repayment visible: %v", err)
	}
	if _, err := f.cards.ByID(ctx, "card-1"); !errors.Is(err, cards.ErrCardNotFound) {
		t.Fatalf("deleted card visible: %v", err)
	}
	if _, err := f.pins.Verify(ctx, pinvault.ForUser("user-1"), "1234"); !errors.Is(err, pinvault.ErrPinNotSet) {
		t.Fatalf("deleted pin usable: %v", err)
	}
	if _, err := f.pins.Verify(ctx, pinvault.ForCard("card-1"), "5678"); !errors.Is(err, pinvault.ErrPinNotSet) {
		t.Fatalf("deleted card pin usable: %v", err)
	}

	deleted, err := f.coordinator.ListDeleted(ctx)
	if err != nil {
		t.Fatalf("list deleted: %v", err)
	}
	if len(deleted) != 1 || deleted[0].ID != "user-1" {
		t.Fatalf("trash listing = %+v", deleted)
	}
	if deleted[0].DeletedBy == nil || *deleted[0].DeletedBy != "admin-1" {
		t.Fatalf("deleted_by not stamped: %+v", deleted[0])
	}

	if err := f.coordinator.Restore(ctx, "admin-1", "user-1"); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if _, err := f.users.FindByID(ctx, "user-1"); err != nil {
		t.Fatalf("restored user missing: %v", err)
	}
	acc, err := f.store.AccountByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("restored account missing: %v", err)
	}
	if !acc.Balance.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("restored balance = %s, want 800", acc.Balance)
	}
	if rows, _ := f.store.ListByAccount(ctx, "acc-1"); len(rows) != 1 {
		t.Fatalf("restored transactions = %d, want 1", len(rows))
	}
	if _, err := f.loans.LoanByID(ctx, "loan-1"); err != nil {
		t.Fatalf("restored loan missing: %v", err)
	}
	if ok, err := f.pins.Verify(ctx, pinvault.ForUser("user-1"), "1234"); err != nil || !ok {
		t.Fatalf("restored pin unusable: ok=%v err=%v", ok, err)
	}
	if ok, err := f.pins.Verify(ctx, pinvault.ForCard("card-1"), "5678"); err != nil || !ok {
		t.Fatalf("restored card pin unusable: ok=%v err=%v", ok, err)
	}

	trail, err := f.trail.ListByEntity(ctx, "user", "user-1")
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(trail))
	}
	if trail[0].Action != audit.ActionDeleteUser || trail[1].Action != audit.ActionRestoreUser {
		t.Fatalf("audit actions = %s, %s", trail[0].Action, trail[1].Action)
	}
}

func TestDeleteResumesAfterPartialCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Stamp the account up front, as if a previous cascade died right after
	// this step. The re-run must still stamp the ledger rows and finish.
	if err := f.store.SoftDeleteAccount(ctx, "acc-1", time.Now().UTC(), "admin-1"); err != nil {
		t.Fatalf("pre-stamp account: %v", err)
	}

	if err := f.coordinator.Delete(ctx, "admin-1", "user-1"); err != nil {
		t.Fatalf("resumed delete: %v", err)
	}

	if _, err := f.store.TransactionByID(ctx, "tx-1"); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Fatalf("transaction left live after resumed cascade: %v", err)
	}
	if _, err := f.users.FindByID(ctx, "user-1"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("user left live after resumed cascade: %v", err)
	}

	if err := f.coordinator.Restore(ctx, "admin-1", "user-1"); err != nil {
		t.Fatalf("restore after resumed delete: %v", err)
	}
	if _, err := f.store.TransactionByID(ctx, "tx-1"); err != nil {
		t.Fatalf("transaction not revived: %v", err)
	}
}

func TestSuperAdminCannotBeDeleted(t *testing.T) {
	f := newFixture(t)

	if err := f.coordinator.Delete(context.Background(), "admin-1", "admin-1"); !errors.Is(err, ErrCannotDeleteSuperAdmin) {
		t.Fatalf("err = %v, want ErrCannotDeleteSuperAdmin", err)
	}
}

func TestDeleteGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.coordinator.Delete(ctx, "admin-1", "missing"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("missing user err = %v", err)
	}

	if err := f.coordinator.Delete(ctx, "admin-1", "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.coordinator.Delete(ctx, "admin-1", "user-1"); !errors.Is(err, ErrAlreadyDeleted) {
		t.Fatalf("double delete err = %v, want ErrAlreadyDeleted", err)
	}
}

func TestRestoreRequiresDeletedUser(t *testing.T) {
	f := newFixture(t)

	if err := f.coordinator.Restore(context.Background(), "admin-1", "user-1"); !errors.Is(err, ErrNotDeleted) {
		t.Fatalf("err = %v, want ErrNotDeleted", err)
	}
}
