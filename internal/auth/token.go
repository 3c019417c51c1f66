package auth

import (
	"fmt"
	"time"
)

// Token is an immutable access token with an absolute expiry. Refresh
// produces a new Token; an existing value is never mutated.
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewToken constructs a token. The expiry must be strictly in the future.
func NewToken(value string, expiresAt time.Time) (Token, error) {
	if value == "" {
		return Token{}, fmt.Errorf("%w: empty token value", ErrInvalidState)
	}
	if !expiresAt.After(time.Now()) {
		return Token{}, fmt.Errorf("%w: token expiry must be in the future", ErrInvalidState)
	}
	return Token{Value: value, ExpiresAt: expiresAt}, nil
}

// IsExpired reports whether the token has elapsed its validity window.
func (t Token) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// TimeUntilExpiration returns the remaining validity, zero when expired.
func (t Token) TimeUntilExpiration(at time.Time) time.Duration {
	if t.IsExpired(at) {
		return 0
	}
	return t.ExpiresAt.Sub(at)
}

// ShouldRefresh reports whether the token is within threshold of expiry.
func (t Token) ShouldRefresh(at time.Time, threshold time.Duration) bool {
	return t.TimeUntilExpiration(at) <= threshold
}
