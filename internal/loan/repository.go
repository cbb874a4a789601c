package loan

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrLoanNotFound indicates the loan does not exist or is soft-deleted.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrRepaymentNotFound indicates the repayment does not exist.
	ErrRepaymentNotFound = errors.New("repayment not found")
)

// Repository persists loans and repayments. Status transitions carry their
// PENDING guard inside the update itself, so two concurrent approvals cannot
// both succeed.
type Repository interface {
	CreateLoan(ctx context.Context, l Loan) error
	LoanByID(ctx context.Context, id string) (Loan, error)
	LoansByUser(ctx context.Context, userID string) ([]Loan, error)
	// HasOpenLoan reports whether the user has a loan in PENDING or APPROVED
	// state that is not yet paid off.
	HasOpenLoan(ctx context.Context, userID string) (bool, error)
	// ApproveLoan transitions PENDING -> APPROVED, storing the rate and the
	// computed total repayment. Non-PENDING loans yield ErrAlreadyProcessed.
	ApproveLoan(ctx context.Context, id string, rate, totalRepayment decimal.Decimal, approvedAt time.Time) error
	// RejectLoan transitions PENDING -> REJECTED.
	RejectLoan(ctx context.Context, id string) error
	// AddPaid increments the loan's amountPaid, clamped to totalRepayment.
	AddPaid(ctx context.Context, id string, amount decimal.Decimal) error

	CreateRepayment(ctx context.Context, r Repayment) error
	RepaymentByID(ctx context.Context, id string) (Repayment, error)
	// SetRepaymentStatus transitions PENDING -> status, failing with
	// ErrAlreadyProcessed when the repayment already left PENDING.
	SetRepaymentStatus(ctx context.Context, id, status string) error

	// Cascade support for the soft-delete coordinator.
	LoanIDsByUserAny(ctx context.Context, userID string) ([]string, error)
	SoftDeleteLoans(ctx context.Context, userID string, at time.Time, by string) error
	RestoreLoans(ctx context.Context, userID string) error
	SoftDeleteRepayments(ctx context.Context, loanID string, at time.Time, by string) error
	RestoreRepayments(ctx context.Context, loanID string) error
}
