// Package sessions tracks which users are currently connected. The registry
// is the only state shared across connection handlers; entries live in memory
// only and die with the process.
package sessions

import (
	"sync"
	"time"
)

// Entry records one online user. ConnID is the handle of the owning
// connection handler. At most one entry exists per user id; a second login
// for the same user replaces the first entry.
type Entry struct {
	UserID       int64
	Username     string
	ConnID       string
	LastActivity time.Time
}

// Registry is a concurrent user-id → session map. All operations are safe
// under concurrent access from arbitrary connection goroutines plus the
// background sweep; updates are atomic per key.
type Registry struct {
	mu      sync.RWMutex
	entries map[int64]Entry

	// now is a test seam for the clock.
	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[int64]Entry),
		now:     time.Now,
	}
}

// Add inserts or overwrites the entry for userID and marks it active now.
func (r *Registry) Add(userID int64, username, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[userID] = Entry{
		UserID:       userID,
		Username:     username,
		ConnID:       connID,
		LastActivity: r.now(),
	}
}

// Remove deletes the entry for userID. Calling it for an absent id, or
// twice for the same id, is a no-op.
func (r *Registry) Remove(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, userID)
}

// Touch refreshes the activity timestamp for userID; no-op when absent.
func (r *Registry) Touch(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		return
	}
	e.LastActivity = r.now()
	r.entries[userID] = e
}

// IsOnline reports whether userID currently has a session.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[userID]
	return ok
}

// OnlineIDs returns a snapshot of currently tracked user ids.
func (r *Registry) OnlineIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// SweepExpired removes every entry idle for longer than idleTimeout and
// returns how many were evicted.
func (r *Registry) SweepExpired(idleTimeout time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idleTimeout)
	removed := 0
	for id, e := range r.entries {
		if e.LastActivity.Before(cutoff) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
