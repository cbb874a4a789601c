package cards

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores debit cards in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed card repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const cardColumns = `id, user_id, account_id, card_number, expiry, created_at, deleted_at, deleted_by`

// Create inserts a card record.
func (r *PostgresRepository) Create(ctx context.Context, card DebitCard) error {
	cardID, err := uuid.Parse(card.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(card.UserID)
	if err != nil {
		return err
	}
	accountID, err := uuid.Parse(card.AccountID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO debit_cards
        (id, user_id, account_id, card_number, expiry, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		cardID, userID, accountID, card.CardNumber, card.Expiry, card.CreatedAt.UTC())
	return err
}

// ByID fetches a live card.
func (r *PostgresRepository) ByID(ctx context.Context, id string) (DebitCard, error) {
	cardID, err := uuid.Parse(id)
	if err != nil {
		return DebitCard{}, ErrCardNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+cardColumns+` FROM debit_cards
        WHERE id = $1 AND deleted_at IS NULL`, cardID)
	card, err := scanCard(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return DebitCard{}, ErrCardNotFound
	}
	return card, err
}

// ListByUser returns the user's live cards.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]DebitCard, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+cardColumns+` FROM debit_cards
        WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DebitCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

// CardIDsByUserAny returns all card ids for the user, including soft-deleted.
func (r *PostgresRepository) CardIDsByUserAny(ctx context.Context, userID string) ([]string, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id FROM debit_cards WHERE user_id = $1`, uid)
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

// SoftDeleteByUser stamps the user's live cards.
func (r *PostgresRepository) SoftDeleteByUser(ctx context.Context, userID string, at time.Time, by string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	_, err = r.db.Exec(ctx, `UPDATE debit_cards SET deleted_at = $1, deleted_by = $2
        WHERE user_id = $3 AND deleted_at IS NULL`, at.UTC(), by, uid)
	return err
}

// RestoreByUser clears soft-delete stamps on the user's cards.
func (r *PostgresRepository) RestoreByUser(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	_, err = r.db.Exec(ctx, `UPDATE debit_cards SET deleted_at = NULL, deleted_by = NULL
        WHERE user_id = $1 AND deleted_at IS NOT NULL`, uid)
	return err
}

func scanCard(row pgx.Row) (DebitCard, error) {
	var (
		card      DebitCard
		id        uuid.UUID
		userID    uuid.UUID
		accountID uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &userID, &accountID, &card.CardNumber, &card.Expiry,
		&createdAt, &card.DeletedAt, &card.DeletedBy); err != nil {
		return DebitCard{}, err
	}
	card.ID = id.String()
	card.UserID = userID.String()
	card.AccountID = accountID.String()
	card.CreatedAt = createdAt.UTC()
	return card, nil
}
