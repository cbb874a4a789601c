package loan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
)

type memoryRepository struct {
	mu         sync.RWMutex
	loans      map[string]Loan
	repayments map[string]Repayment
}

// NewMemoryRepository builds an in-memory loan store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		loans:      make(map[string]Loan),
		repayments: make(map[string]Repayment),
	}
}

func (r *memoryRepository) CreateLoan(_ context.Context, l Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.loans[l.ID]; exists {
		return errors.New("loan exists")
	}
	r.loans[l.ID] = l
	return nil
}

func (r *memoryRepository) LoanByID(_ context.Context, id string) (Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loans[id]
	if !ok || l.DeletedAt != nil {
		return Loan{}, ErrLoanNotFound
	}
	return l, nil
}

func (r *memoryRepository) LoansByUser(_ context.Context, userID string) ([]Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Loan
	for _, l := range r.loans {
		if l.UserID == userID && l.DeletedAt == nil {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memoryRepository) HasOpenLoan(_ context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.loans {
		if l.UserID != userID || l.DeletedAt != nil {
			continue
		}
		if l.Status == StatusPending || (l.Status == StatusApproved && !l.PaidOff()) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepository) ApproveLoan(_ context.Context, id string, rate, totalRepayment decimal.Decimal, approvedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	if !ok || l.DeletedAt != nil {
		return ErrLoanNotFound
	}
	if l.Status != StatusPending {
		return ledger.ErrAlreadyProcessed
	}
	l.Status = StatusApproved
	l.InterestRate = &rate
	l.TotalRepayment = &totalRepayment
	at := approvedAt
	l.ApprovedAt = &at
	r.loans[id] = l
	return nil
}

func (r *memoryRepository) RejectLoan(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	if !ok || l.DeletedAt != nil {
		return ErrLoanNotFound
	}
	if l.Status != StatusPending {
		return ledger.ErrAlreadyProcessed
	}
	l.Status = StatusRejected
	r.loans[id] = l
	return nil
}

func (r *memoryRepository) AddPaid(_ context.Context, id string, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	if !ok || l.DeletedAt != nil {
		return ErrLoanNotFound
	}
	paid := l.AmountPaid.Add(amount)
	if l.TotalRepayment != nil && paid.Cmp(*l.TotalRepayment) > 0 {
		paid = *l.TotalRepayment
	}
	l.AmountPaid = paid
	r.loans[id] = l
	return nil
}

func (r *memoryRepository) CreateRepayment(_ context.Context, rep Repayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.repayments[rep.ID]; exists {
		return errors.New("repayment exists")
	}
	r.repayments[rep.ID] = rep
	return nil
}

func (r *memoryRepository) RepaymentByID(_ context.Context, id string) (Repayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.repayments[id]
	if !ok || rep.DeletedAt != nil {
		return Repayment{}, ErrRepaymentNotFound
	}
	return rep, nil
}

func (r *memoryRepository) SetRepaymentStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.repayments[id]
	if !ok || rep.DeletedAt != nil {
		return ErrRepaymentNotFound
	}
	if rep.Status != StatusPending {
		return ledger.ErrAlreadyProcessed
	}
	rep.Status = status
	rep.UpdatedAt = time.Now().UTC()
	r.repayments[id] = rep
	return nil
}

func (r *memoryRepository) LoanIDsByUserAny(_ context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, l := range r.loans {
		if l.UserID == userID {
			ids = append(ids, l.ID)
		}
	}
	return ids, nil
}

func (r *memoryRepository) SoftDeleteLoans(_ context.Context, userID string, at time.Time, by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.loans {
		if l.UserID == userID && l.DeletedAt == nil {
			stamp := at
			l.DeletedAt = &stamp
			l.DeletedBy = &by
			r.loans[id] = l
		}
	}
	return nil
}

func (r *memoryRepository) RestoreLoans(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.loans {
		if l.UserID == userID && l.DeletedAt != nil {
			l.DeletedAt = nil
			l.DeletedBy = nil
			r.loans[id] = l
		}
	}
	return nil
}

func (r *memoryRepository) SoftDeleteRepayments(_ context.Context, loanID string, at time.Time, by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rep := range r.repayments {
		if rep.LoanID == loanID && rep.DeletedAt == nil {
			stamp := at
			rep.DeletedAt = &stamp
			rep.DeletedBy = &by
			r.repayments[id] = rep
		}
	}
	return nil
}

func (r *memoryRepository) RestoreRepayments(_ context.Context, loanID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rep := range r.repayments {
		if rep.LoanID == loanID && rep.DeletedAt != nil {
			rep.DeletedAt = nil
			rep.DeletedBy = nil
			r.repayments[id] = rep
		}
	}
	return nil
}
