package audit

import (
	"context"
	"time"
)

// Actions recorded against administrative operations.
const (
	ActionDeleteUser    = "DELETE_USER"
	ActionRestoreUser   = "RESTORE_USER"
	ActionIssueCodes    = "ISSUE_CODES"
	ActionChangeRole    = "CHANGE_ROLE"
	ActionSetActivation = "SET_ACTIVATION"
)

// Entry is an append-only record of who did what to which entity.
type Entry struct {
	ID         string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Details    string
	CreatedAt  time.Time
}

// Repository appends and reads audit entries. Entries are never updated or
// deleted.
type Repository interface {
	Append(ctx context.Context, entry Entry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Entry, error)
}
