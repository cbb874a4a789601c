package loan

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/logging"
	"github.com/harborbank/harbor-core/internal/pinvault"
)

func newTestService(t *testing.T) (*Service, ledger.Store) {
	t.Helper()
	ctx := context.Background()

	store := ledger.NewInMemory()
	if err := store.CreateAccount(ctx, ledger.Account{
		ID: "acc-1", UserID: "user-1", AccountNumber: "3000000001", Activated: true,
	}); err != nil {
		t.Fatalf("create account: %v", err)
	}

	pins := pinvault.NewService(pinvault.NewMemoryRepository())
	if err := pins.Set(ctx, pinvault.ForUser("user-1"), "1234"); err != nil {
		t.Fatalf("set pin: %v", err)
	}

	svc := NewService(NewMemoryRepository(), store, pins, nil, logging.Discard())
	return svc, store
}

func apply(t *testing.T, svc *Service, amount int64) Loan {
	t.Helper()
	l, err := svc.Apply(context.Background(), ApplyInput{
		UserID:     "user-1",
		Amount:     decimal.NewFromInt(amount),
		Purpose:    "equipment",
		TermMonths: 12,
		Pin:        "1234",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return l
}

func TestTotalRepayment(t *testing.T) {
	cases := []struct {
		principal int64
		rate      string
		term      int
		want      string
	}{
		{1000, "10", 12, "1100.00"},
		{1000, "10", 6, "1050.00"},
		{500, "0", 12, "500.00"},
		{333, "7.5", 9, "351.73"},
	}
	for _, tc := range cases {
		rate, _ := decimal.NewFromString(tc.rate)
		got := TotalRepayment(decimal.NewFromInt(tc.principal), rate, tc.term)
		if got.StringFixed(2) != tc.want {
			t.Errorf("TotalRepayment(%d, %s, %d) = %s, want %s", tc.principal, tc.rate, tc.term, got.StringFixed(2), tc.want)
		}
	}
}

func TestApproveSurfacesStrandedDisbursement(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	l := apply(t, svc, 1000)

	// The borrower's account vanishes before review; the approval claims the
	// loan but the disbursement cannot land.
	if err := store.SoftDeleteAccount(ctx, "acc-1", time.Now().UTC(), "admin-1"); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	_, err := svc.Approve(ctx, l.ID, decimal.NewFromInt(10))
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("err = %v, want wrapped ErrAccountNotFound", err)
	}
	if !strings.Contains(err.Error(), "approved but not disbursed") {
		t.Fatalf("stranded state not surfaced: %v", err)
	}
}

func TestApproveDisbursesPrincipalOnly(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	l := apply(t, svc, 1000)

	approved, err := svc.Approve(ctx, l.ID, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.TotalRepayment == nil || approved.TotalRepayment.StringFixed(2) != "1100.00" {
		t.Fatalf("total repayment = %v, want 1100.00", approved.TotalRepayment)
	}

	acc, _ := store.AccountByID(ctx, "acc-1")
	if !acc.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("disbursed %s, want exactly the principal 1000", acc.Balance)
	}

	rows, _ := store.ListByAccount(ctx, "acc-1")
	if len(rows) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(rows))
	}
	if rows[0].Type != ledger.TypeDeposit || rows[0].Status != ledger.StatusSuccess {
		t.Fatalf("disbursement row = %s/%s", rows[0].Type, rows[0].Status)
	}
}

func TestReapproveFails(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	l := apply(t, svc, 1000)

	if _, err := svc.Approve(ctx, l.ID, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.Approve(ctx, l.ID, decimal.NewFromInt(10)); !errors.Is(err, ledger.ErrAlreadyProcessed) {
		t.Fatalf("second approve err = %v, want ErrAlreadyProcessed", err)
	}

	// No double disbursement.
	acc, _ := store.AccountByID(ctx, "acc-1")
	if !acc.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("balance = %s, want 1000", acc.Balance)
	}
}

func TestApproveValidatesRate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l := apply(t, svc, 1000)

	if _, err := svc.Approve(ctx, l.ID, decimal.NewFromInt(-1)); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("negative rate err = %v", err)
	}
	if _, err := svc.Approve(ctx, l.ID, decimal.NewFromInt(101)); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("excessive rate err = %v", err)
	}
}

func TestApplyGuards(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	base := ApplyInput{
		UserID:     "user-1",
		Amount:     decimal.NewFromInt(1000),
		Purpose:    "equipment",
		TermMonths: 12,
		Pin:        "1234",
	}

	in := base
	in.Purpose = ""
	if _, err := svc.Apply(ctx, in); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("missing purpose err = %v", err)
	}

	in = base
	in.Pin = "0000"
	if _, err := svc.Apply(ctx, in); !errors.Is(err, ErrInvalidPin) {
		t.Fatalf("wrong pin err = %v", err)
	}

	apply(t, svc, 1000)
	if _, err := svc.Apply(ctx, base); !errors.Is(err, ErrOpenLoanExists) {
		t.Fatalf("second open loan err = %v", err)
	}
}

func TestRejectIsTerminal(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	l := apply(t, svc, 1000)

	if err := svc.Reject(ctx, l.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.Approve(ctx, l.ID, decimal.NewFromInt(10)); !errors.Is(err, ledger.ErrAlreadyProcessed) {
		t.Fatalf("approve after reject err = %v", err)
	}

	acc, _ := store.AccountByID(ctx, "acc-1")
	if !acc.Balance.IsZero() {
		t.Fatalf("rejected loan moved funds: %s", acc.Balance)
	}
}

func TestRepaymentLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l := apply(t, svc, 1000)

	// Repayment against a PENDING loan is refused.
	if _, err := svc.SubmitRepayment(ctx, RepayInput{UserID: "user-1", LoanID: l.ID, Amount: decimal.NewFromInt(100), PaymentMethod: "bank"}); !errors.Is(err, ErrNotApproved) {
		t.Fatalf("pending loan repayment err = %v", err)
	}

	if _, err := svc.Approve(ctx, l.ID, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	rep, err := svc.SubmitRepayment(ctx, RepayInput{UserID: "user-1", LoanID: l.ID, Amount: decimal.NewFromInt(600), PaymentMethod: "bank"})
	if err != nil {
		t.Fatalf("submit repayment: %v", err)
	}
	if err := svc.ApproveRepayment(ctx, rep.ID); err != nil {
		t.Fatalf("approve repayment: %v", err)
	}
	if err := svc.ApproveRepayment(ctx, rep.ID); !errors.Is(err, ledger.ErrAlreadyProcessed) {
		t.Fatalf("double approve err = %v", err)
	}

	got, err := svc.repo.LoanByID(ctx, l.ID)
	if err != nil {
		t.Fatalf("loan by id: %v", err)
	}
	if got.AmountPaid.StringFixed(2) != "600.00" {
		t.Fatalf("amount paid = %s, want 600.00", got.AmountPaid.StringFixed(2))
	}
}

func TestAmountPaidClampsAtTotal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l := apply(t, svc, 1000)
	if _, err := svc.Approve(ctx, l.ID, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	rep, err := svc.SubmitRepayment(ctx, RepayInput{UserID: "user-1", LoanID: l.ID, Amount: decimal.NewFromInt(2000), PaymentMethod: "bank"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.ApproveRepayment(ctx, rep.ID); err != nil {
		t.Fatalf("approve repayment: %v", err)
	}

	got, _ := svc.repo.LoanByID(ctx, l.ID)
	if got.AmountPaid.StringFixed(2) != "1100.00" {
		t.Fatalf("amount paid = %s, want clamped 1100.00", got.AmountPaid.StringFixed(2))
	}
	if !got.PaidOff() {
		t.Fatal("loan should be paid off")
	}
}

func TestRepaymentOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l := apply(t, svc, 1000)
	if _, err := svc.Approve(ctx, l.ID, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if _, err := svc.SubmitRepayment(ctx, RepayInput{UserID: "user-2", LoanID: l.ID, Amount: decimal.NewFromInt(100), PaymentMethod: "bank"}); !errors.Is(err, ErrLoanNotFound) {
		t.Fatalf("foreign repayment err = %v", err)
	}
}
