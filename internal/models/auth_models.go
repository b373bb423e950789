package models

import "time"

// Staff roles used for dashboard authorization.
const (
	RoleAdmin = "admin"
	RoleOwner = "owner"
	RoleStaff = "staff"
)

// User is a staff member with dashboard access.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
