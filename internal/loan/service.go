package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/notification"
	"github.com/harborbank/harbor-core/internal/pinvault"
)

var (
	// ErrInvalidPin indicates the presented transaction PIN did not verify.
	ErrInvalidPin = errors.New("invalid pin")

	// ErrMissingFields indicates a required application field was absent.
	ErrMissingFields = errors.New("purpose and term are required")

	// ErrInvalidRate indicates the interest rate is outside [0, 100].
	ErrInvalidRate = errors.New("interest rate must be between 0 and 100")

	// ErrOpenLoanExists enforces the one-open-loan-per-user business rule.
	ErrOpenLoanExists = errors.New("user already has an open loan")

	// ErrNotApproved indicates a repayment was submitted against a loan that
	// is not in APPROVED state.
	ErrNotApproved = errors.New("loan is not approved")
)

var (
	hundred       = decimal.NewFromInt(100)
	monthsPerYear = decimal.NewFromInt(12)
	maxRate       = decimal.NewFromInt(100)
)

// Service owns the loan lifecycle: application, admin approval with interest
// calculation, principal disbursement and repayment posting.
type Service struct {
	repo     Repository
	store    ledger.Store
	pins     *pinvault.Service
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a loan service.
func NewService(repo Repository, store ledger.Store, pins *pinvault.Service, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, store: store, pins: pins, notifier: notifier, logger: logger}
}

// ApplyInput captures a loan application.
type ApplyInput struct {
	UserID     string
	Amount     decimal.Decimal
	Purpose    string
	TermMonths int
	Pin        string
}

// Apply creates a PENDING loan after verifying the transaction PIN. No
// balance moves until approval.
func (s *Service) Apply(ctx context.Context, input ApplyInput) (Loan, error) {
	if input.Purpose == "" || input.TermMonths <= 0 {
		return Loan{}, ErrMissingFields
	}
	if input.Amount.Sign() <= 0 {
		return Loan{}, ledger.ErrInvalidAmount
	}

	ok, err := s.pins.Verify(ctx, pinvault.ForUser(input.UserID), input.Pin)
	if err != nil {
		return Loan{}, err
	}
	if !ok {
		return Loan{}, ErrInvalidPin
	}

	open, err := s.repo.HasOpenLoan(ctx, input.UserID)
	if err != nil {
		return Loan{}, err
	}
	if open {
		return Loan{}, ErrOpenLoanExists
	}

	l := Loan{
		ID:         uuid.NewString(),
		UserID:     input.UserID,
		Amount:     input.Amount,
		Purpose:    input.Purpose,
		TermMonths: input.TermMonths,
		Status:     StatusPending,
		AmountPaid: decimal.Zero,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateLoan(ctx, l); err != nil {
		return Loan{}, err
	}
	return l, nil
}

// TotalRepayment computes principal + simple interest for the term, rounded
// to two decimals: principal x (rate/100) x (termMonths/12).
func TotalRepayment(principal, rate decimal.Decimal, termMonths int) decimal.Decimal {
	interest := principal.
		Mul(rate).
		Mul(decimal.NewFromInt(int64(termMonths))).
		Div(hundred).
		Div(monthsPerYear)
	return principal.Add(interest).Round(2)
}

// Approve transitions a PENDING loan to APPROVED, disburses the principal to
// the borrower's account and writes the disbursement ledger row. Only the
// principal is credited; interest is owed, not disbursed.
func (s *Service) Approve(ctx context.Context, loanID string, rate decimal.Decimal) (Loan, error) {
	if rate.Sign() < 0 || rate.Cmp(maxRate) > 0 {
		return Loan{}, ErrInvalidRate
	}

	l, err := s.repo.LoanByID(ctx, loanID)
	if err != nil {
		return Loan{}, err
	}

	total := TotalRepayment(l.Amount, rate, l.TermMonths)
	approvedAt := time.Now().UTC()

	// The guarded transition claims the loan; a concurrent approve or a
	// re-approval observes ErrAlreadyProcessed and performs no disbursement.
	if err := s.repo.ApproveLoan(ctx, loanID, rate, total, approvedAt); err != nil {
		return Loan{}, err
	}

	account, err := s.store.AccountByUser(ctx, l.UserID)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("approved loan not disbursed", "loan_id", loanID, "error", err)
		}
		return Loan{}, fmt.Errorf("loan %s approved but not disbursed: %w", loanID, err)
	}
	entry := ledger.Transaction{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Type:        ledger.TypeDeposit,
		Amount:      l.Amount,
		Status:      ledger.StatusSuccess,
		Description: fmt.Sprintf("Loan disbursement (%s)", l.Purpose),
		CreatedAt:   approvedAt,
	}
	if err := s.store.Credit(ctx, account.ID, l.Amount, &entry); err != nil {
		// The loan is already claimed APPROVED; a failed credit leaves it
		// stranded without a disbursement. Surface it for reconciliation.
		if s.logger != nil {
			s.logger.Error("approved loan not disbursed",
				"loan_id", loanID, "account_id", account.ID, "error", err)
		}
		return Loan{}, fmt.Errorf("loan %s approved but not disbursed: %w", loanID, err)
	}

	l.Status = StatusApproved
	l.InterestRate = &rate
	l.TotalRepayment = &total
	l.ApprovedAt = &approvedAt

	s.notify(ctx, notification.Message{
		Kind:   notification.KindLoanDecision,
		UserID: l.UserID,
		Title:  "Loan approved",
		Body:   fmt.Sprintf("Your loan of %s was approved. Total repayment: %s.", l.Amount.StringFixed(2), total.StringFixed(2)),
		Data:   map[string]string{"loan_id": l.ID},
	})
	return l, nil
}

// Reject transitions a PENDING loan to REJECTED with no balance effect.
func (s *Service) Reject(ctx context.Context, loanID string) error {
	if err := s.repo.RejectLoan(ctx, loanID); err != nil {
		return err
	}
	if l, err := s.repo.LoanByID(ctx, loanID); err == nil {
		s.notify(ctx, notification.Message{
			Kind:   notification.KindLoanDecision,
			UserID: l.UserID,
			Title:  "Loan rejected",
			Body:   "Your loan application was rejected.",
			Data:   map[string]string{"loan_id": l.ID},
		})
	}
	return nil
}

// RepayInput captures a user-submitted repayment.
type RepayInput struct {
	UserID        string
	LoanID        string
	Amount        decimal.Decimal
	PaymentMethod string
}

// SubmitRepayment records a PENDING repayment awaiting admin review.
func (s *Service) SubmitRepayment(ctx context.Context, input RepayInput) (Repayment, error) {
	if input.Amount.Sign() <= 0 {
		return Repayment{}, ledger.ErrInvalidAmount
	}
	if input.PaymentMethod == "" {
		return Repayment{}, ErrMissingFields
	}

	l, err := s.repo.LoanByID(ctx, input.LoanID)
	if err != nil {
		return Repayment{}, err
	}
	if l.UserID != input.UserID {
		return Repayment{}, ErrLoanNotFound
	}
	if l.Status != StatusApproved {
		return Repayment{}, ErrNotApproved
	}

	now := time.Now().UTC()
	rep := Repayment{
		ID:            uuid.NewString(),
		LoanID:        input.LoanID,
		Amount:        input.Amount,
		PaymentMethod: input.PaymentMethod,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateRepayment(ctx, rep); err != nil {
		return Repayment{}, err
	}
	return rep, nil
}

// ApproveRepayment marks the repayment APPROVED and advances the loan's
// amountPaid, clamped to the total repayment.
func (s *Service) ApproveRepayment(ctx context.Context, repaymentID string) error {
	rep, err := s.repo.RepaymentByID(ctx, repaymentID)
	if err != nil {
		return err
	}
	if err := s.repo.SetRepaymentStatus(ctx, repaymentID, StatusApproved); err != nil {
		return err
	}
	if err := s.repo.AddPaid(ctx, rep.LoanID, rep.Amount); err != nil {
		if s.logger != nil {
			s.logger.Error("approved repayment not applied to loan",
				"repayment_id", repaymentID, "loan_id", rep.LoanID, "error", err)
		}
		return fmt.Errorf("repayment %s approved but not applied: %w", repaymentID, err)
	}
	if l, err := s.repo.LoanByID(ctx, rep.LoanID); err == nil {
		s.notify(ctx, notification.Message{
			Kind:   notification.KindRepaymentDecision,
			UserID: l.UserID,
			Title:  "Repayment approved",
			Body:   fmt.Sprintf("Your repayment of %s was approved.", rep.Amount.StringFixed(2)),
			Data:   map[string]string{"loan_id": l.ID, "repayment_id": rep.ID},
		})
	}
	return nil
}

// RejectRepayment marks the repayment REJECTED with no effect on the loan.
func (s *Service) RejectRepayment(ctx context.Context, repaymentID string) error {
	return s.repo.SetRepaymentStatus(ctx, repaymentID, StatusRejected)
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil && s.logger != nil {
		s.logger.Warn("notification dispatch failed", "kind", msg.Kind, "error", err)
	}
}
