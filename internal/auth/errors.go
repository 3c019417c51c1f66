package auth

import "errors"

// Domain error taxonomy. Invariant violations on the aggregate are returned
// to the caller wrapped around one of these sentinels, never swallowed.
var (
	// ErrNotAuthenticated is returned when an operation requires a live
	// authentication record that does not exist.
	ErrNotAuthenticated = errors.New("identity is not authenticated")

	// ErrBlacklisted is returned when an operation is attempted on a
	// blacklisted identity.
	ErrBlacklisted = errors.New("identity is blacklisted")

	// ErrInvalidState is returned for transitions the state machine does not
	// permit (double blacklist, unblacklisting a clean identity, etc.).
	ErrInvalidState = errors.New("invalid auth state transition")
)
