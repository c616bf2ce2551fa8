package audits

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/users"
)

// MemoryRepository is a slice-backed Repository used by tests and by setups
// that run without a database. Username resolution goes through the provided
// users repository (may be nil, in which case everything reads as SYSTEM).
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.AuditLog
	users  users.Repository
}

func NewMemoryRepository(users users.Repository) *MemoryRepository {
	return &MemoryRepository{nextID: 1, users: users}
}

func (r *MemoryRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *entry
	c.ID = r.nextID
	r.nextID++
	entry.ID = c.ID
	r.rows = append(r.rows, &c)
	return nil
}

func (r *MemoryRepository) resolve(ctx context.Context, e *models.AuditLog) *models.AuditLog {
	c := *e
	c.Username = "SYSTEM"
	if c.UserID != nil && r.users != nil {
		if u, err := r.users.GetByID(ctx, *c.UserID); err == nil {
			c.Username = u.Username
		}
	}
	return &c
}

func (r *MemoryRepository) List(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.AuditLog
	for i := len(r.rows) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, r.resolve(ctx, r.rows[i]))
	}
	return result, nil
}

func (r *MemoryRepository) ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.AuditLog
	for i := len(r.rows) - 1; i >= 0 && len(result) < limit; i-- {
		if r.rows[i].UserID != nil && *r.rows[i].UserID == userID {
			result = append(result, r.resolve(ctx, r.rows[i]))
		}
	}
	return result, nil
}
