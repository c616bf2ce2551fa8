package models

import "time"

// LoginAttempt is an append-only record of one authentication attempt.
// UserID is nil when the username did not resolve to an account; such rows
// are never counted toward any lockout. Failed rows for a username are
// deleted en masse when that username next authenticates successfully.
type LoginAttempt struct {
	ID            int64
	UserID        *int64
	Username      string
	AttemptTime   time.Time
	Success       bool
	SourceAddress string
}
