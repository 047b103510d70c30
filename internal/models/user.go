package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleCitizen    UserRole = "citizen"
	RoleMemberHead UserRole = "member_head"
	RoleFieldStaff UserRole = "field_staff"
	RoleAdmin      UserRole = "admin"
)

// SystemActorID attributes automated actions such as SLA auto-closure.
const SystemActorID = "system"

// User represents an application user stored in the users table. Accounts are
// managed by the identity service; this service only reads them.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Role         UserRole  `db:"role" json:"role"`
	DepartmentID *string   `db:"department_id" json:"department_id,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
