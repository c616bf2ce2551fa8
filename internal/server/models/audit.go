package models

import "time"

// AuditAction tags a security-relevant event in the audit trail.
type AuditAction string

const (
	AuditLoginSuccess          AuditAction = "LOGIN_SUCCESS"
	AuditLoginFailed           AuditAction = "LOGIN_FAILED"
	AuditLoginBlocked          AuditAction = "LOGIN_BLOCKED"
	AuditLocked                AuditAction = "LOCKED"
	AuditAdminCreateUser       AuditAction = "ADMIN_CREATE_USER"
	AuditAdminSetStatus        AuditAction = "ADMIN_SET_STATUS"
	AuditAdminEditUser         AuditAction = "ADMIN_EDIT_USER"
	AuditChangePasswordSuccess AuditAction = "CHANGE_PASSWORD_SUCCESS"
	AuditChangePasswordFailed  AuditAction = "CHANGE_PASSWORD_FAILED"
	AuditUpdateProfile         AuditAction = "UPDATE_PROFILE"
)

// AuditLog is a write-once audit row. Username is populated only on reads
// (joined from users, "SYSTEM" when UserID is nil); it is not a column.
type AuditLog struct {
	ID        int64
	UserID    *int64
	Username  string
	Action    AuditAction
	Details   string
	CreatedAt time.Time
}
