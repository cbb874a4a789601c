package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists accounts and ledger rows in PostgreSQL. Balance
// mutations use conditional updates so the balance check and the write are a
// single atomic statement.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const accountColumns = `id, user_id, account_number, balance::text, activated, created_at, deleted_at, deleted_by`

const transactionColumns = `id, account_id, type, amount::text, status,
        COALESCE(recipient_account_number, ''), COALESCE(description, ''),
        created_at, deleted_at, deleted_by`

// CreateAccount inserts a new account row.
func (s *PostgresStore) CreateAccount(ctx context.Context, account Account) error {
	accountID, err := uuid.Parse(account.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(account.UserID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO accounts (id, user_id, account_number, balance, activated, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
		accountID, userID, account.AccountNumber, account.Balance.String(), account.Activated, account.CreatedAt.UTC())
	return err
}

// AccountByID fetches a live account by identifier.
func (s *PostgresStore) AccountByID(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrAccountNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
        WHERE id = $1 AND deleted_at IS NULL`, accountID)
	return scanAccount(row)
}

// AccountByUser fetches the account owned by the given user.
func (s *PostgresStore) AccountByUser(ctx context.Context, userID string) (Account, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Account{}, ErrAccountNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
        WHERE user_id = $1 AND deleted_at IS NULL`, uid)
	return scanAccount(row)
}

// AccountByUserAny fetches the user's account regardless of soft-delete state.
func (s *PostgresStore) AccountByUserAny(ctx context.Context, userID string) (Account, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Account{}, ErrAccountNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
        WHERE user_id = $1`, uid)
	return scanAccount(row)
}

// AccountByNumber resolves an account by its unique account number.
func (s *PostgresStore) AccountByNumber(ctx context.Context, number string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
        WHERE account_number = $1 AND deleted_at IS NULL`, number)
	return scanAccount(row)
}

// SetActivation toggles the account activation flag.
func (s *PostgresStore) SetActivation(ctx context.Context, accountID string, active bool) error {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return ErrAccountNotFound
	}
	cmd, err := s.db.Exec(ctx, `UPDATE accounts SET activated = $1
        WHERE id = $2 AND deleted_at IS NULL`, active, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Credit adds funds and, when entry is provided, writes the ledger row in the
// same database transaction.
func (s *PostgresStore) Credit(ctx context.Context, accountID string, amount decimal.Decimal, entry *Transaction) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	id, err := uuid.Parse(accountID)
	if err != nil {
		return ErrAccountNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cmd, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1::numeric
        WHERE id = $2 AND deleted_at IS NULL`, amount.String(), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	if entry != nil {
		if err := insertTransaction(ctx, tx, *entry); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Debit removes funds. The balance predicate is part of the update statement,
// so concurrent debits cannot jointly overdraw the account.
func (s *PostgresStore) Debit(ctx context.Context, accountID string, amount decimal.Decimal, entry *Transaction) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	id, err := uuid.Parse(accountID)
	if err != nil {
		return ErrAccountNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := debitInTx(ctx, tx, id, amount); err != nil {
		return err
	}

	if entry != nil {
		if err := insertTransaction(ctx, tx, *entry); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// RecordPending appends a PENDING ledger row without touching balances.
func (s *PostgresStore) RecordPending(ctx context.Context, entry Transaction) error {
	entry.Status = StatusPending
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SettleTransfer claims the PENDING row, debits the sender and credits a
// local recipient in one database transaction. The claim doubles as the
// idempotency guard: only one settlement can win the PENDING -> SUCCESS
// transition.
func (s *PostgresStore) SettleTransfer(ctx context.Context, txID, senderAccountID, recipientAccountID string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	transactionID, err := uuid.Parse(txID)
	if err != nil {
		return ErrTransactionNotFound
	}
	senderID, err := uuid.Parse(senderAccountID)
	if err != nil {
		return ErrAccountNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cmd, err := tx.Exec(ctx, `UPDATE transactions SET status = $1
        WHERE id = $2 AND status = $3 AND deleted_at IS NULL`,
		StatusSuccess, transactionID, StatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, transactionID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrTransactionNotFound
		}
		return ErrAlreadyProcessed
	}

	if err := debitInTx(ctx, tx, senderID, amount); err != nil {
		return err
	}

	if recipientAccountID != "" {
		recipientID, err := uuid.Parse(recipientAccountID)
		if err != nil {
			return ErrAccountNotFound
		}
		cmd, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1::numeric
            WHERE id = $2 AND deleted_at IS NULL`, amount.String(), recipientID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrAccountNotFound
		}
	}

	return tx.Commit(ctx)
}

// RejectTransaction transitions a PENDING row to REJECTED.
func (s *PostgresStore) RejectTransaction(ctx context.Context, txID string) error {
	transactionID, err := uuid.Parse(txID)
	if err != nil {
		return ErrTransactionNotFound
	}
	cmd, err := s.db.Exec(ctx, `UPDATE transactions SET status = $1
        WHERE id = $2 AND status = $3 AND deleted_at IS NULL`,
		StatusRejected, transactionID, StatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, transactionID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrTransactionNotFound
		}
		return ErrAlreadyProcessed
	}
	return nil
}

// TransactionByID fetches a live ledger row.
func (s *PostgresStore) TransactionByID(ctx context.Context, id string) (Transaction, error) {
	transactionID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrTransactionNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE id = $1 AND deleted_at IS NULL`, transactionID)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	return tx, err
}

// ListByAccount returns the account's live ledger rows, newest first.
func (s *PostgresStore) ListByAccount(ctx context.Context, accountID string) ([]Transaction, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE account_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// SoftDeleteAccount stamps the account as deleted.
func (s *PostgresStore) SoftDeleteAccount(ctx context.Context, accountID string, at time.Time, by string) error {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return ErrAccountNotFound
	}
	cmd, err := s.db.Exec(ctx, `UPDATE accounts SET deleted_at = $1, deleted_by = $2
        WHERE id = $3 AND deleted_at IS NULL`, at.UTC(), by, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// RestoreAccount clears the soft-delete stamp.
func (s *PostgresStore) RestoreAccount(ctx context.Context, accountID string) error {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return ErrAccountNotFound
	}
	_, err = s.db.Exec(ctx, `UPDATE accounts SET deleted_at = NULL, deleted_by = NULL WHERE id = $1`, id)
	return err
}

// SoftDeleteTransactions stamps all live rows of the account.
func (s *PostgresStore) SoftDeleteTransactions(ctx context.Context, accountID string, at time.Time, by string) error {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return ErrAccountNotFound
	}
	_, err = s.db.Exec(ctx, `UPDATE transactions SET deleted_at = $1, deleted_by = $2
        WHERE account_id = $3 AND deleted_at IS NULL`, at.UTC(), by, id)
	return err
}

// RestoreTransactions clears soft-delete stamps for the account's rows.
func (s *PostgresStore) RestoreTransactions(ctx context.Context, accountID string) error {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return ErrAccountNotFound
	}
	_, err = s.db.Exec(ctx, `UPDATE transactions SET deleted_at = NULL, deleted_by = NULL
        WHERE account_id = $1 AND deleted_at IS NOT NULL`, id)
	return err
}

func debitInTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) error {
	cmd, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance - $1::numeric
        WHERE id = $2 AND deleted_at IS NULL AND balance >= $1::numeric`, amount.String(), accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts
            WHERE id = $1 AND deleted_at IS NULL)`, accountID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrAccountNotFound
		}
		return ErrInsufficientFunds
	}
	return nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, entry Transaction) error {
	transactionID, err := uuid.Parse(entry.ID)
	if err != nil {
		return err
	}
	accountID, err := uuid.Parse(entry.AccountID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO transactions
        (id, account_id, type, amount, status, recipient_account_number, description, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)`,
		transactionID, accountID, entry.Type, entry.Amount.String(), entry.Status,
		entry.RecipientAccountNumber, entry.Description, entry.CreatedAt.UTC())
	return err
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acc       Account
		id        uuid.UUID
		userID    uuid.UUID
		balance   string
		createdAt time.Time
	)
	if err := row.Scan(&id, &userID, &acc.AccountNumber, &balance, &acc.Activated,
		&createdAt, &acc.DeletedAt, &acc.DeletedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return Account{}, fmt.Errorf("parse balance: %w", err)
	}
	acc.ID = id.String()
	acc.UserID = userID.String()
	acc.Balance = parsed
	acc.CreatedAt = createdAt.UTC()
	return acc, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		tx        Transaction
		id        uuid.UUID
		accountID uuid.UUID
		amount    string
		createdAt time.Time
	)
	if err := row.Scan(&id, &accountID, &tx.Type, &amount, &tx.Status,
		&tx.RecipientAccountNumber, &tx.Description, &createdAt, &tx.DeletedAt, &tx.DeletedBy); err != nil {
		return Transaction{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	tx.ID = id.String()
	tx.AccountID = accountID.String()
	tx.Amount = parsed
	tx.CreatedAt = createdAt.UTC()
	return tx, nil
}
