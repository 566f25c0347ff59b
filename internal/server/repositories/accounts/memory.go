package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in a map keyed by email. It is used for
// local runs without a database and in tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[string]models.Account),
		now:      time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CreatedAt = r.now()
	account.AuthToken = nil
	account.TokenCreatedAt = nil

	r.accounts[account.Email] = *account
	return account, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) SetToken(ctx context.Context, email, token string, createdAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[email]
	if !ok {
		return common.ErrorNotFound
	}

	a.AuthToken = &token
	a.TokenCreatedAt = &createdAt
	r.accounts[email] = a
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, email string, upd models.AccountUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[email]
	if !ok {
		return common.ErrorNotFound
	}

	if upd.PasswordHash != nil {
		a.PasswordHash = *upd.PasswordHash
	}
	if upd.FirstName != nil {
		a.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		a.LastName = *upd.LastName
	}
	r.accounts[email] = a
	return nil
}
