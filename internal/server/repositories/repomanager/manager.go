// Package repomanager wires together the repository implementations behind a
// single construction point, so the rest of the server does not care whether
// it runs against PostgreSQL or in memory.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/authcore/internal/server/repositories/attempts"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/audits"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Conn() *sql.DB
	Users() users.Repository
	Attempts() attempts.Repository
	Audits() audits.Repository
	Close() error
}
