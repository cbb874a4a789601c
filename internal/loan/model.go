package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan and repayment statuses. APPROVED and REJECTED are terminal.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Loan represents a loan application and, once approved, its repayment
// progress. InterestRate and TotalRepayment stay nil until approval.
type Loan struct {
	ID             string
	UserID         string
	Amount         decimal.Decimal
	Purpose        string
	TermMonths     int
	Status         string
	InterestRate   *decimal.Decimal
	TotalRepayment *decimal.Decimal
	AmountPaid     decimal.Decimal
	ApprovedAt     *time.Time
	CreatedAt      time.Time
	DeletedAt      *time.Time
	DeletedBy      *string
}

// PaidOff reports whether the approved loan is fully repaid. It is a derived
// condition, not a stored status.
func (l Loan) PaidOff() bool {
	return l.TotalRepayment != nil && l.AmountPaid.Cmp(*l.TotalRepayment) >= 0
}

// Repayment is a user-submitted repayment awaiting admin review.
type Repayment struct {
	ID            string
	LoanID        string
	Amount        decimal.Decimal
	PaymentMethod string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
	DeletedBy     *string
}
