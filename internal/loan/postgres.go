package loan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/harborbank/harbor-core/internal/ledger"
)

// PostgresRepository stores loans and repayments in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed loan repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const loanColumns = `id, user_id, amount::text, purpose, term_months, status,
        interest_rate::text, total_repayment::text, amount_paid::text,
        approved_at, created_at, deleted_at, deleted_by`

const repaymentColumns = `id, loan_id, amount::text, payment_method, status,
        created_at, updated_at, deleted_at, deleted_by`

// CreateLoan inserts a new PENDING loan row.
func (r *PostgresRepository) CreateLoan(ctx context.Context, l Loan) error {
	loanID, err := uuid.Parse(l.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(l.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO loans
        (id, user_id, amount, purpose, term_months, status, amount_paid, created_at)
        VALUES ($1, $2, $3::numeric, $4, $5, $6, $7::numeric, $8)`,
		loanID, userID, l.Amount.String(), l.Purpose, l.TermMonths, l.Status,
		l.AmountPaid.String(), l.CreatedAt.UTC())
	return err
}

// LoanByID fetches a live loan.
func (r *PostgresRepository) LoanByID(ctx context.Context, id string) (Loan, error) {
	loanID, err := uuid.Parse(id)
	if err != nil {
		return Loan{}, ErrLoanNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans
        WHERE id = $1 AND deleted_at IS NULL`, loanID)
	l, err := scanLoan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Loan{}, ErrLoanNotFound
	}
	return l, err
}

// LoansByUser returns the user's live loans, newest first.
func (r *PostgresRepository) LoansByUser(ctx context.Context, userID string) ([]Loan, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+loanColumns+` FROM loans
        WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// HasOpenLoan reports whether the user has a PENDING loan or an APPROVED one
// that is not yet paid off.
func (r *PostgresRepository) HasOpenLoan(ctx context.Context, userID string) (bool, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}
	var open bool
	err = r.db.QueryRow(ctx, `SELECT EXISTS (
        SELECT 1 FROM loans WHERE user_id = $1 AND deleted_at IS NULL
          AND (status = $2 OR (status = $3 AND amount_paid < total_repayment)))`,
		uid, StatusPending, StatusApproved).Scan(&open)
	return open, err
}

// ApproveLoan performs the PENDING -> APPROVED transition with the guard
// inside the update statement.
func (r *PostgresRepository) ApproveLoan(ctx context.Context, id string, rate, totalRepayment decimal.Decimal, approvedAt time.Time) error {
	loanID, err := uuid.Parse(id)
	if err != nil {
		return ErrLoanNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE loans
        SET status = $1, interest_rate = $2::numeric, total_repayment = $3::numeric, approved_at = $4
        WHERE id = $5 AND status = $6 AND deleted_at IS NULL`,
		StatusApproved, rate.String(), totalRepayment.String(), approvedAt.UTC(), loanID, StatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.pendingGuardError(ctx, loanID)
	}
	return nil
}

// RejectLoan performs the PENDING -> REJECTED transition.
func (r *PostgresRepository) RejectLoan(ctx context.Context, id string) error {
	loanID, err := uuid.Parse(id)
	if err != nil {
		return ErrLoanNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE loans SET status = $1
        WHERE id = $2 AND status = $3 AND deleted_at IS NULL`,
		StatusRejected, loanID, StatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.pendingGuardError(ctx, loanID)
	}
	return nil
}

func (r *PostgresRepository) pendingGuardError(ctx context.Context, loanID uuid.UUID) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM loans
        WHERE id = $1 AND deleted_at IS NULL)`, loanID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrLoanNotFound
	}
	return ledger.ErrAlreadyProcessed
}

// AddPaid increments amountPaid, clamped to totalRepayment.
func (r *PostgresRepository) AddPaid(ctx context.Context, id string, amount decimal.Decimal) error {
	loanID, err := uuid.Parse(id)
	if err != nil {
		return ErrLoanNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE loans
        SET amount_paid = LEAST(amount_paid + $1::numeric, total_repayment)
        WHERE id = $2 AND deleted_at IS NULL`, amount.String(), loanID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLoanNotFound
	}
	return nil
}

// CreateRepayment inserts a new PENDING repayment.
func (r *PostgresRepository) CreateRepayment(ctx context.Context, rep Repayment) error {
	repID, err := uuid.Parse(rep.ID)
	if err != nil {
		return err
	}
	loanID, err := uuid.Parse(rep.LoanID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO loan_repayments
        (id, loan_id, amount, payment_method, status, created_at, updated_at)
        VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)`,
		repID, loanID, rep.Amount.String(), rep.PaymentMethod, rep.Status,
		rep.CreatedAt.UTC(), rep.UpdatedAt.UTC())
	return err
}

// RepaymentByID fetches a live repayment.
func (r *PostgresRepository) RepaymentByID(ctx context.Context, id string) (Repayment, error) {
	repID, err := uuid.Parse(id)
	if err != nil {
		return Repayment{}, ErrRepaymentNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+repaymentColumns+` FROM loan_repayments
        WHERE id = $1 AND deleted_at IS NULL`, repID)
	rep, err := scanRepayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Repayment{}, ErrRepaymentNotFound
	}
	return rep, err
}

// SetRepaymentStatus performs a guarded PENDING -> status transition.
func (r *PostgresRepository) SetRepaymentStatus(ctx context.Context, id, status string) error {
	repID, err := uuid.Parse(id)
	if err != nil {
		return ErrRepaymentNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE loan_repayments SET status = $1, updated_at = $2
        WHERE id = $3 AND status = $4 AND deleted_at IS NULL`,
		status, time.Now().UTC(), repID, StatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM loan_repayments
            WHERE id = $1 AND deleted_at IS NULL)`, repID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrRepaymentNotFound
		}
		return ledger.ErrAlreadyProcessed
	}
	return nil
}

// LoanIDsByUserAny returns all loan ids for a user, including soft-deleted
// ones, for the cascade coordinator.
func (r *PostgresRepository) LoanIDsByUserAny(ctx context.Context, userID string) ([]string, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id FROM loans WHERE user_id = $1`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id.String())
	}
	return ids, rows.Err()
}

// SoftDeleteLoans stamps all live loans of the user.
func (r *PostgresRepository) SoftDeleteLoans(ctx context.Context, userID string, at time.Time, by string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	_, err = r.db.Exec(ctx, `UPDATE loans SET deleted_at = $1, deleted_by = $2
        WHERE user_id = $3 AND deleted_at IS NULL`, at.UTC(), by, uid)
	return err
}

// RestoreLoans clears soft-delete stamps on the user's loans.
func (r *PostgresRepository) RestoreLoans(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	_, err = r.db.Exec(ctx, `UPDATE loans SET deleted_at = NULL, deleted_by = NULL
        WHERE user_id = $1 AND deleted_at IS NOT NULL`, uid)
	return err
}

// SoftDeleteRepayments stamps all live repayments of a loan.
func (r *PostgresRepository) SoftDeleteRepayments(ctx context.Context, loanID string, at time.Time, by string) error {
	lid, err := uuid.Parse(loanID)
	if err != nil {
		return nil
	}
	_, err = r.db.Exec(ctx, `UPDATE loan_repayments SET deleted_at = $1, deleted_by = $2
        WHERE loan_id = $3 AND deleted_at IS NULL`, at.UTC(), by, lid)
	return err
}

// RestoreRepayments clears soft-delete stamps on a loan's repayments.
func (r *PostgresRepository) RestoreRepayments(ctx context.Context, loanID string) error {
	lid, err := uuid.Parse(loanID)
	if err != nil {
		return nil
	}
	_, err = r.db.Exec(ctx, `UPDATE loan_repayments SET deleted_at = NULL, deleted_by = NULL
        WHERE loan_id = $1 AND deleted_at IS NOT NULL`, lid)
	return err
}

func scanLoan(row pgx.Row) (Loan, error) {
	var (
		l          Loan
		id, userID uuid.UUID
		amount     string
		amountPaid string
		rate       *string
		total      *string
		approvedAt *time.Time
		createdAt  time.Time
	)
	if err := row.Scan(&id, &userID, &amount, &l.Purpose, &l.TermMonths, &l.Status,
		&rate, &total, &amountPaid, &approvedAt, &createdAt, &l.DeletedAt, &l.DeletedBy); err != nil {
		return Loan{}, err
	}
	l.ID = id.String()
	l.UserID = userID.String()
	var err error
	if l.Amount, err = decimal.NewFromString(amount); err != nil {
		return Loan{}, fmt.Errorf("parse amount: %w", err)
	}
	if l.AmountPaid, err = decimal.NewFromString(amountPaid); err != nil {
		return Loan{}, fmt.Errorf("parse amount_paid: %w", err)
	}
	if rate != nil {
		d, err := decimal.NewFromString(*rate)
		if err != nil {
			return Loan{}, fmt.Errorf("parse interest_rate: %w", err)
		}
		l.InterestRate = &d
	}
	if total != nil {
		d, err := decimal.NewFromString(*total)
		if err != nil {
			return Loan{}, fmt.Errorf("parse total_repayment: %w", err)
		}
		l.TotalRepayment = &d
	}
	l.ApprovedAt = approvedAt
	l.CreatedAt = createdAt.UTC()
	return l, nil
}

func scanRepayment(row pgx.Row) (Repayment, error) {
	var (
		rep        Repayment
		id, loanID uuid.UUID
		amount     string
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&id, &loanID, &amount, &rep.PaymentMethod, &rep.Status,
		&createdAt, &updatedAt, &rep.DeletedAt, &rep.DeletedBy); err != nil {
		return Repayment{}, err
	}
	rep.ID = id.String()
	rep.LoanID = loanID.String()
	var err error
	if rep.Amount, err = decimal.NewFromString(amount); err != nil {
		return Repayment{}, fmt.Errorf("parse amount: %w", err)
	}
	rep.CreatedAt = createdAt.UTC()
	rep.UpdatedAt = updatedAt.UTC()
	return rep, nil
}
