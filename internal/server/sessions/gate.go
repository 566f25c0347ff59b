package sessions

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

// Authenticator is the part of Manager the gate depends on.
type Authenticator interface {
	Authenticate(ctx context.Context, token, email string) (AuthState, error)
}

// Gate is the single authorization checkpoint in front of protected account
// operations.
type Gate struct {
	auth    Authenticator
	observe func(AuthState)
}

// NewGate builds a gate. observe, when non-nil, is called with every
// computed state.
func NewGate(auth Authenticator, observe func(AuthState)) *Gate {
	return &Gate{auth: auth, observe: observe}
}

// Guard returns nil when token authenticates email. Stale and mismatched
// tokens yield common.ErrorSessionExpired; an unknown email yields
// common.ErrorNotFound.
func (g *Gate) Guard(ctx context.Context, token, email string) error {
	state, err := g.auth.Authenticate(ctx, token, email)
	if err != nil {
		return err
	}

	if g.observe != nil {
		g.observe(state)
	}

	switch state {
	case Valid:
		return nil
	case Timeout, Invalid:
		return common.ErrorSessionExpired
	case UserNotFound:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected auth state %d: %w", state, common.ErrorInternal)
	}
}
