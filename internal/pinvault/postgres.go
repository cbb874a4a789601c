package pinvault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores PIN hashes in PostgreSQL. User transaction PINs
// and debit card PINs live in separate tables with identical shape.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed PIN repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func tableFor(sub Subject) (table, keyColumn string, err error) {
	switch sub.kind {
	case kindUser:
		return "transaction_pins", "user_id", nil
	case kindCard:
		return "debit_card_pins", "card_id", nil
	default:
		return "", "", fmt.Errorf("unknown pin subject kind %q", sub.kind)
	}
}

// Get fetches the live PIN record for the subject.
func (r *PostgresRepository) Get(ctx context.Context, sub Subject) (Record, error) {
	table, key, err := tableFor(sub)
	if err != nil {
		return Record{}, err
	}
	subjectID, err := uuid.Parse(sub.id)
	if err != nil {
		return Record{}, ErrPinNotSet
	}
	var rec Record
	var updatedAt time.Time
	query := fmt.Sprintf(`SELECT pin_hash, updated_at FROM %s
        WHERE %s = $1 AND deleted_at IS NULL`, table, key)
	if err := r.db.QueryRow(ctx, query, subjectID).Scan(&rec.Hash, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrPinNotSet
		}
		return Record{}, err
	}
	rec.UpdatedAt = updatedAt.UTC()
	return rec, nil
}

// Save upserts the PIN hash for the subject.
func (r *PostgresRepository) Save(ctx context.Context, sub Subject, hash []byte, at time.Time) error {
	table, key, err := tableFor(sub)
	if err != nil {
		return err
	}
	subjectID, err := uuid.Parse(sub.id)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s, pin_hash, updated_at) VALUES ($1, $2, $3)
        ON CONFLICT (%s) DO UPDATE SET pin_hash = $2, updated_at = $3`, table, key, key)
	_, err = r.db.Exec(ctx, query, subjectID, hash, at.UTC())
	return err
}

// SoftDelete stamps the record; missing records are ignored so cascade steps
// stay idempotent.
func (r *PostgresRepository) SoftDelete(ctx context.Context, sub Subject, at time.Time, by string) error {
	table, key, err := tableFor(sub)
	if err != nil {
		return err
	}
	subjectID, err := uuid.Parse(sub.id)
	if err != nil {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET deleted_at = $1, deleted_by = $2
        WHERE %s = $3 AND deleted_at IS NULL`, table, key)
	_, err = r.db.Exec(ctx, query, at.UTC(), by, subjectID)
	return err
}

// Restore clears the soft-delete stamp.
func (r *PostgresRepository) Restore(ctx context.Context, sub Subject) error {
	table, key, err := tableFor(sub)
	if err != nil {
		return err
	}
	subjectID, err := uuid.Parse(sub.id)
	if err != nil {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET deleted_at = NULL, deleted_by = NULL WHERE %s = $1`, table, key)
	_, err = r.db.Exec(ctx, query, subjectID)
	return err
}
