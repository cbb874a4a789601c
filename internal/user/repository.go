package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested user does not exist or is soft-deleted.
var ErrNotFound = errors.New("user not found")

// Code purposes recognised by SetCode. The verification service wraps these
// in a typed Purpose.
const (
	PurposeAML        = "aml"
	PurposeTwoFAReset = "twofa_reset"
	PurposeUnlock     = "unlock"
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	// FindByIDAny returns the user even when soft-deleted. Used by the
	// restore path and the admin trash view.
	FindByIDAny(ctx context.Context, id string) (User, error)
	UpdateRole(ctx context.Context, id string, role Role) error
	SetCode(ctx context.Context, id, purpose string, grant CodeGrant) error
	ClearTwoFAToken(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string, at time.Time, by string) error
	Restore(ctx context.Context, id string) error
	ListDeleted(ctx context.Context) ([]User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, full_name, email, role, super_admin, verified, twofa_token,
        aml_code, aml_expires_at, twofa_reset_code, twofa_reset_expires_at,
        unlock_code, unlock_expires_at, created_at, deleted_at, deleted_by`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, full_name, email, role, super_admin, verified, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, user.FullName, user.Email, string(user.Role), user.SuperAdmin, user.Verified, user.CreatedAt.UTC())
	return err
}

// FindByID fetches a live user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	return r.find(ctx, id, false)
}

// FindByIDAny fetches a user regardless of soft-delete state.
func (r *PostgresRepository) FindByIDAny(ctx context.Context, id string) (User, error) {
	return r.find(ctx, id, true)
}

func (r *PostgresRepository) find(ctx context.Context, id string, includeDeleted bool) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	row := r.db.QueryRow(ctx, query, userID)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// UpdateRole changes a user's role.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role Role) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET role = $1 WHERE id = $2 AND deleted_at IS NULL`, string(role), userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCode overwrites the stored code and expiry for the given purpose.
func (r *PostgresRepository) SetCode(ctx context.Context, id, purpose string, grant CodeGrant) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	var query string
	switch purpose {
	case PurposeAML:
		query = `UPDATE users SET aml_code = $1, aml_expires_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	case PurposeTwoFAReset:
		query = `UPDATE users SET twofa_reset_code = $1, twofa_reset_expires_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	case PurposeUnlock:
		query = `UPDATE users SET unlock_code = $1, unlock_expires_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	default:
		return fmt.Errorf("unknown code purpose %q", purpose)
	}
	cmd, err := r.db.Exec(ctx, query, grant.Code, grant.ExpiresAt.UTC(), userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearTwoFAToken removes the stored second-factor token.
func (r *PostgresRepository) ClearTwoFAToken(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET twofa_token = '' WHERE id = $1 AND deleted_at IS NULL`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete stamps the user as deleted. It only touches live rows.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id string, at time.Time, by string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET deleted_at = $1, deleted_by = $2
        WHERE id = $3 AND deleted_at IS NULL`, at.UTC(), by, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Restore clears the soft-delete stamp.
func (r *PostgresRepository) Restore(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET deleted_at = NULL, deleted_by = NULL
        WHERE id = $1 AND deleted_at IS NOT NULL`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDeleted returns soft-deleted users for the admin trash view.
func (r *PostgresRepository) ListDeleted(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users
        WHERE deleted_at IS NOT NULL ORDER BY deleted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		id        uuid.UUID
		role      string
		createdAt time.Time
		deletedAt *time.Time
		deletedBy *string
	)
	var amlCode, twofaCode, unlockCode *string
	var amlExp, twofaExp, unlockExp *time.Time
	if err := row.Scan(&id, &u.FullName, &u.Email, &role, &u.SuperAdmin, &u.Verified, &u.TwoFAToken,
		&amlCode, &amlExp, &twofaCode, &twofaExp, &unlockCode, &unlockExp,
		&createdAt, &deletedAt, &deletedBy); err != nil {
		return User{}, err
	}
	u.ID = id.String()
	u.Role = Role(role)
	u.CreatedAt = createdAt.UTC()
	u.AMLCode = grantFrom(amlCode, amlExp)
	u.TwoFAResetCode = grantFrom(twofaCode, twofaExp)
	u.UnlockCode = grantFrom(unlockCode, unlockExp)
	u.DeletedAt = deletedAt
	u.DeletedBy = deletedBy
	return u, nil
}

func grantFrom(code *string, exp *time.Time) CodeGrant {
	var g CodeGrant
	if code != nil {
		g.Code = *code
	}
	if exp != nil {
		g.ExpiresAt = exp.UTC()
	}
	return g
}
