package audits

import (
	"context"

	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// Repository is the persistence gateway for the append-only audit trail.
// Rows are never mutated or deleted.
type Repository interface {
	Insert(ctx context.Context, entry *models.AuditLog) error

	// List returns the newest entries first, with Username resolved
	// ("SYSTEM" for rows not bound to a user).
	List(ctx context.Context, limit int) ([]*models.AuditLog, error)

	ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.AuditLog, error)
}
