package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores audit entries in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed audit log.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts one audit entry.
func (r *PostgresRepository) Append(ctx context.Context, entry Entry) error {
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		id = uuid.New()
	}
	_, err = r.db.Exec(ctx, `INSERT INTO audit_log
        (id, actor_id, action, entity_type, entity_id, details, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
		entry.Details, entry.CreatedAt.UTC())
	return err
}

// ListByEntity returns the audit trail for one entity, oldest first.
func (r *PostgresRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, actor_id, action, entity_type, entity_id, details, created_at
        FROM audit_log WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at`,
		entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			id        uuid.UUID
			createdAt time.Time
		)
		if err := rows.Scan(&id, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &e.Details, &createdAt); err != nil {
			return nil, err
		}
		e.ID = id.String()
		e.CreatedAt = createdAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
