package deposit

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

// PostgresRepository stores deposit intents in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed deposit repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const depositColumns = `id, user_id, account_id, amount::text, status, COALESCE(notes, ''), created_at, updated_at`

// Create inserts a new PENDING deposit intent.
func (r *PostgresRepository) Create(ctx context.Context, d Deposit) error {
	depositID, err := uuid.Parse(d.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return err
	}
	accountID, err := uuid.Parse(d.AccountID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO deposits
        (id, user_id, account_id, amount, status, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)`,
		depositID, userID, accountID, d.Amount.String(), d.Status, d.Notes,
		d.CreatedAt.UTC(), d.UpdatedAt.UTC())
	return err
}

// ByID fetches a deposit intent.
func (r *PostgresRepository) ByID(ctx context.Context, id string) (Deposit, error) {
	depositID, err := uuid.Parse(id)
	if err != nil {
		return Deposit{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposits WHERE id = $1`, depositID)
	d, err := scanDeposit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Deposit{}, ErrNotFound
	}
	return d, err
}

// ListByUser returns the user's deposit intents, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Deposit, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+depositColumns+` FROM deposits
        WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetStatus performs a guarded PENDING -> status transition.
func (r *PostgresRepository) SetStatus(ctx context.Context, id, status, notes string) error {
	depositID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE deposits
        SET status = $1, notes = CASE WHEN $2 = '' THEN notes ELSE $2 END, updated_at = $3
        WHERE id = $4 AND status = $5`,
		status, notes, time.Now().UTC(), depositID, StatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM deposits WHERE id = $1)`, depositID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ledger.ErrAlreadyProcessed
	}
	return nil
}

func scanDeposit(row pgx.Row) (Deposit, error) {
	var (
		d         Deposit
		id        uuid.UUID
		userID    uuid.UUID
		accountID uuid.UUID
		amount    string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &userID, &accountID, &amount, &d.Status, &d.Notes, &createdAt, &updatedAt); err != nil {
		return Deposit{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Deposit{}, fmt.Errorf("parse amount: %w", err)
	}
	d.ID = id.String()
	d.UserID = userID.String()
	d.AccountID = accountID.String()
	d.Amount = parsed
	d.CreatedAt = createdAt.UTC()
	d.UpdatedAt = updatedAt.UTC()
	return d, nil
}
