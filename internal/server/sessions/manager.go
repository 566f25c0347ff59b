package sessions

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
)

const (
	// TokenLength is the number of characters in an issued token.
	TokenLength = 32

	// DefaultTTL is how long a token stays live after issuance.
	DefaultTTL = 30 * time.Minute
)

// Generator produces random token strings of a given length.
type Generator interface {
	Generate(n int) (string, error)
}

// Manager issues tokens and evaluates their freshness. Token state lives in
// the account repository; the manager itself holds no mutable state.
type Manager struct {
	repo      accounts.Repository
	generator Generator
	ttl       time.Duration
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithTTL sets the token lifetime. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func NewManager(repo accounts.Repository, generator Generator, opts ...Option) *Manager {
	m := &Manager{
		repo:      repo,
		generator: generator,
		ttl:       DefaultTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue generates a new token for the account and stores it together with
// its creation time, replacing any previous token. Concurrent issues for the
// same account are not serialized: the last write wins.
func (m *Manager) Issue(ctx context.Context, email string) (string, error) {
	token, err := m.generator.Generate(TokenLength)
	if err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}

	if err := m.repo.SetToken(ctx, email, token, m.now()); err != nil {
		return "", fmt.Errorf("error storing token: %w", err)
	}

	return token, nil
}

// Authenticate classifies token for the account identified by email.
// Only repository failures are returned as errors.
func (m *Manager) Authenticate(ctx context.Context, token, email string) (AuthState, error) {
	account, err := m.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return UserNotFound, nil
		}
		return 0, fmt.Errorf("error loading account: %w", err)
	}

	if token == "" || account.AuthToken == nil || account.TokenCreatedAt == nil {
		return Invalid, nil
	}
	if subtle.ConstantTimeCompare([]byte(*account.AuthToken), []byte(token)) != 1 {
		return Invalid, nil
	}
	if m.now().Sub(*account.TokenCreatedAt) >= m.ttl {
		return Timeout, nil
	}

	return Valid, nil
}
