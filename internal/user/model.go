package user

import "time"

// Role identifies the privilege level of a caller. Privileges widen strictly:
// superadmin can do everything an admin can, admin everything a user can.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

var roleRank = map[Role]int{
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// AtLeast reports whether the role grants the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// CodeGrant is a one-time verification code paired with its expiry.
// Issuing a new grant for the same purpose overwrites the previous one.
type CodeGrant struct {
	Code      string
	ExpiresAt time.Time
}

// Issued reports whether a code has ever been granted.
func (g CodeGrant) Issued() bool {
	return g.Code != ""
}

// User represents a registered customer or administrator.
type User struct {
	ID         string
	FullName   string
	Email      string
	Role       Role
	SuperAdmin bool
	Verified   bool
	TwoFAToken string

	AMLCode        CodeGrant
	TwoFAResetCode CodeGrant
	UnlockCode     CodeGrant

	CreatedAt time.Time
	DeletedAt *time.Time
	DeletedBy *string
}

// Deleted reports whether the user is soft-deleted.
func (u User) Deleted() bool {
	return u.DeletedAt != nil
}
