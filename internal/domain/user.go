package domain

import "time"

type UserRole string

const (
	UserRoleClient UserRole = "KLIJENT"
	UserRoleClerk  UserRole = "SLUZBENIK"
	UserRoleAdmin  UserRole = "ADMINISTRATOR"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleClient, UserRoleClerk, UserRoleAdmin:
		return true
	}
	return false
}

// IsStaff is true for clerks and administrators.
func (r UserRole) IsStaff() bool {
	return r == UserRoleClerk || r == UserRoleAdmin
}

type User struct {
	ID           int64      `json:"id"`
	BranchID     *int64     `json:"branch_id,omitempty"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Phone        string     `json:"phone"`
	Role         UserRole   `json:"role"`
	RegisteredAt time.Time  `json:"registered_at"`
	DeletedAt    *time.Time `json:"-"`
}

type UserFilter struct {
	Search string
	Role   UserRole
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int64
	Role   UserRole
}

// SystemActor is used by maintenance jobs; it has no user row.
var SystemActor = Actor{UserID: 0, Role: UserRoleAdmin}

func (a Actor) IsSystem() bool {
	return a.UserID == 0
}

// ActivityUserID is the user reference written to the activity log.
func (a Actor) ActivityUserID() *int64 {
	if a.IsSystem() {
		return nil
	}
	id := a.UserID
	return &id
}
