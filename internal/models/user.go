package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin              UserRole = "Admin"
	RoleTeacher            UserRole = "Teacher"
	RoleProgramCoordinator UserRole = "Program Co-ordinator"
	RoleDepartment         UserRole = "Department"
	RoleUniversity         UserRole = "University"
)

// UserStatus mirrors student status semantics for portal accounts.
type UserStatus string

const (
	UserStatusActive   UserStatus = "Active"
	UserStatusInactive UserStatus = "Inactive"
)

// User represents a portal account stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	EmployeeID   string     `db:"employee_id" json:"employee_id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Name         string     `db:"name" json:"name"`
	Status       UserStatus `db:"status" json:"status"`
	ProgramID    *string    `db:"program_id" json:"program_id,omitempty"`
	CollegeID    *string    `db:"college_id" json:"college_id,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
}
