// Package sessions issues session tokens and decides whether a presented
// token still authenticates its account.
package sessions

// AuthState is the outcome of checking a token against an account.
type AuthState int

const (
	Valid AuthState = iota + 1
	Timeout
	Invalid
	UserNotFound
)

func (s AuthState) String() string {
	switch s {
	case Valid:
		return "valid"
	case Timeout:
		return "timeout"
	case Invalid:
		return "invalid"
	case UserNotFound:
		return "user_not_found"
	default:
		return "unknown"
	}
}
