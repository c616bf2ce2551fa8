package models

import "time"

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole maps a raw string to a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Status is the account state. Allowed transitions: ACTIVE → LOCKED (by the
// lockout policy or an admin), LOCKED → ACTIVE (by an admin only).
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusLocked Status = "LOCKED"
)

// ParseStatus maps a raw string to a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusActive:
		return StatusActive, true
	case StatusLocked:
		return StatusLocked, true
	}
	return "", false
}

// User is an account row. PasswordHash never leaves the server; AvatarRef is
// an opaque reference the core does not interpret. Username is immutable
// after creation.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	FullName     string
	Email        string
	AvatarRef    string
	Role         Role
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}
