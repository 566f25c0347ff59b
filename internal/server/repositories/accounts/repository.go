// Package accounts holds the account record store used by the session and
// account services. Records are keyed by email.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// Repository is the persistence collaborator of the account service.
//
// Implementations return common.ErrorNotFound when no account matches the
// email and common.ErrorAlreadyExists when Create hits the unique email.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	// SetToken writes the token and its creation time in a single statement.
	SetToken(ctx context.Context, email, token string, createdAt time.Time) error
	Update(ctx context.Context, email string, upd models.AccountUpdate) error
}
