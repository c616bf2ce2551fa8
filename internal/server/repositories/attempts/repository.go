package attempts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// Repository is the persistence gateway for login attempt rows.
type Repository interface {
	Insert(ctx context.Context, attempt *models.LoginAttempt) error

	// CountRecentFailed counts failed attempts for username within the
	// trailing window. The query keys on the recorded username, so rows
	// written for usernames that never resolved to an account count only
	// toward that (nonexistent) name.
	CountRecentFailed(ctx context.Context, username string, window time.Duration) (int, error)

	// DeleteFailed removes every failed attempt row for username. Called on
	// successful authentication to reset the lockout counter.
	DeleteFailed(ctx context.Context, username string) error

	ListByUsername(ctx context.Context, username string, limit int) ([]*models.LoginAttempt, error)
}
