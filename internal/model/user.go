package model

import "time"

// Roles a user can hold.
const (
	RoleStudent = "student"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Registration states. Only students move through them; staff accounts
// are created approved.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// User is stored under its lower-cased email address.
//
// Fields:
//  ID           – email address, the natural key.
//  PasswordHash – bcrypt hash; never leaves the server.
//  Role         – student, manager or admin.
//  Status       – pending, approved or rejected.
//  Verified     – set once the email verification link was followed.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"passwordHash"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsActiveStudent reports whether the user is a student allowed past login.
func (u *User) IsActiveStudent() bool {
	return u.Role == RoleStudent && u.Status == StatusApproved
}
