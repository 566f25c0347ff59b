package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
)

// RepositoryManager vends repositories bound to a DB handle and owns the
// schema lifecycle of its backend.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
}
