package attempts

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// MemoryRepository is a slice-backed Repository used by tests and by setups
// that run without a database.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.LoginAttempt
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (r *MemoryRepository) Insert(ctx context.Context, attempt *models.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *attempt
	c.ID = r.nextID
	r.nextID++
	attempt.ID = c.ID
	r.rows = append(r.rows, &c)
	return nil
}

func (r *MemoryRepository) CountRecentFailed(ctx context.Context, username string, window time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-window)
	n := 0
	for _, a := range r.rows {
		if a.Username == username && !a.Success && a.AttemptTime.After(cutoff) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeleteFailed(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.rows[:0]
	for _, a := range r.rows {
		if a.Username == username && !a.Success {
			continue
		}
		kept = append(kept, a)
	}
	r.rows = kept
	return nil
}

func (r *MemoryRepository) ListByUsername(ctx context.Context, username string, limit int) ([]*models.LoginAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.LoginAttempt
	for i := len(r.rows) - 1; i >= 0 && len(result) < limit; i-- {
		if r.rows[i].Username == username {
			c := *r.rows[i]
			result = append(result, &c)
		}
	}
	return result, nil
}
