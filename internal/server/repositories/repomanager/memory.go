package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/authcore/internal/server/repositories/attempts"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/audits"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/users"
)

// MemoryRepositoryManager vends the in-memory repositories. Used by tests.
type MemoryRepositoryManager struct {
	users    users.Repository
	attempts attempts.Repository
	audits   audits.Repository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	u := users.NewMemoryRepository()
	return &MemoryRepositoryManager{
		users:    u,
		attempts: attempts.NewMemoryRepository(),
		audits:   audits.NewMemoryRepository(u),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }
func (m *MemoryRepositoryManager) Conn() *sql.DB                           { return nil }
func (m *MemoryRepositoryManager) Users() users.Repository                 { return m.users }
func (m *MemoryRepositoryManager) Attempts() attempts.Repository           { return m.attempts }
func (m *MemoryRepositoryManager) Audits() audits.Repository               { return m.audits }
func (m *MemoryRepositoryManager) Close() error                            { return nil }
