// Package repomanager wires repository constructors to a shared database
// connection and owns schema migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/equipsense/equipsense/internal/dbx"
	"github.com/equipsense/equipsense/internal/server/repositories/datasets"
	"github.com/equipsense/equipsense/internal/server/repositories/loginattempts"
	"github.com/equipsense/equipsense/internal/server/repositories/otps"
	"github.com/equipsense/equipsense/internal/server/repositories/refreshtokens"
	"github.com/equipsense/equipsense/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, so a
// service can run several repositories inside one transaction by passing
// the same *sql.Tx to each getter. Conn exposes the underlying pool for
// non-transactional work and dbx.WithTx.
type RepositoryManager interface {
	Conn() *sql.DB
	Close() error
	RunMigrations(ctx context.Context) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	OTPs(db dbx.DBTX) otps.Repository
	LoginAttempts(db dbx.DBTX) loginattempts.Repository
	Datasets(db dbx.DBTX) datasets.Repository
}
