package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
)

// InMemoryRepositoryManager serves a single process-local account store and
// ignores the DB handle it is given.
type InMemoryRepositoryManager struct {
	accounts *accounts.MemoryRepository
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Accounts(dbx.DBTX) accounts.Repository {
	return m.accounts
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{accounts: accounts.NewMemoryRepository()}
}
