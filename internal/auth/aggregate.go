// Package auth owns per-identity authentication and authorization state.
//
// Each identity's state is an event-sourced aggregate: every mutating
// operation appends exactly one domain event and folds it into the live
// state, so replaying the ordered log from empty reproduces the aggregate.
// Absence of a record means "not authenticated"; there is no implicit
// default-authenticated state.
package auth

import (
	"fmt"
	"time"
)

// Aggregate is the authoritative auth state for one identity.
type Aggregate struct {
	Identity        string
	Token           *Token
	Nsfw            NsfwStatus
	IsBlacklisted   bool
	BlacklistReason string

	version int
	pending []Event
}

// NewAggregate creates an aggregate via an explicit authenticate operation.
// Record-existence checks belong to the repository; callers must verify the
// identity has no record before creating one.
func NewAggregate(identity string, token Token) (*Aggregate, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: empty identity", ErrInvalidState)
	}
	a := &Aggregate{Identity: identity}
	a.record(Authenticated{ID: newEventID(), Identity: identity, Token: token, At: time.Now().UTC()})
	return a, nil
}

// Replay folds an ordered event log into a fresh aggregate. Folding is
// deterministic: the same log always yields the same state.
func Replay(identity string, events []Event) *Aggregate {
	a := &Aggregate{Identity: identity}
	for _, e := range events {
		a.apply(e)
	}
	return a
}

// Version returns the number of events folded into this aggregate,
// including pending ones.
func (a *Aggregate) Version() int { return a.version }

// PendingEvents returns events recorded since the last save.
func (a *Aggregate) PendingEvents() []Event { return a.pending }

// ClearPending marks all pending events as committed.
func (a *Aggregate) ClearPending() { a.pending = nil }

// IsAuthenticated reports whether the identity holds a token.
func (a *Aggregate) IsAuthenticated() bool { return a.Token != nil }

// RefreshToken replaces the current token. Token validity is delegated to
// the downstream identity provider, so no local expiry check is performed.
func (a *Aggregate) RefreshToken(token Token) error {
	if a.IsBlacklisted {
		return fmt.Errorf("refresh token for %s: %w", a.Identity, ErrBlacklisted)
	}
	a.record(TokenRefreshed{ID: newEventID(), Token: token, At: time.Now().UTC()})
	return nil
}

// ExpireToken explicitly transitions the token to expired. No-op when the
// identity is already tokenless.
func (a *Aggregate) ExpireToken() error {
	if a.Token == nil {
		return nil
	}
	a.record(TokenExpired{ID: newEventID(), At: time.Now().UTC()})
	return nil
}

// VerifyNsfw marks the identity NSFW-verified. No-op when already verified.
func (a *Aggregate) VerifyNsfw() error {
	if a.IsBlacklisted {
		return fmt.Errorf("verify nsfw for %s: %w", a.Identity, ErrBlacklisted)
	}
	if a.Token == nil {
		return fmt.Errorf("verify nsfw for %s: %w", a.Identity, ErrNotAuthenticated)
	}
	if a.Nsfw.Verified {
		return nil
	}
	a.record(NsfwVerified{ID: newEventID(), At: time.Now().UTC()})
	return nil
}

// ClearNsfwVerification removes NSFW verification. No-op when not verified.
func (a *Aggregate) ClearNsfwVerification(reason string) error {
	if !a.Nsfw.Verified {
		return nil
	}
	a.record(NsfwCleared{ID: newEventID(), Reason: reason, At: time.Now().UTC()})
	return nil
}

// Blacklist bans the identity. The same transition revokes the token and
// clears NSFW verification so no residual privilege survives the ban.
func (a *Aggregate) Blacklist(reason string) error {
	if reason == "" {
		return fmt.Errorf("blacklist %s: %w: empty reason", a.Identity, ErrInvalidState)
	}
	if a.IsBlacklisted {
		return fmt.Errorf("blacklist %s: %w: already blacklisted", a.Identity, ErrInvalidState)
	}
	a.record(Blacklisted{ID: newEventID(), Reason: reason, At: time.Now().UTC()})
	return nil
}

// Unblacklist lifts the ban. Token and NSFW verification are not restored;
// they must be re-established explicitly.
func (a *Aggregate) Unblacklist() error {
	if !a.IsBlacklisted {
		return fmt.Errorf("unblacklist %s: %w: not blacklisted", a.Identity, ErrInvalidState)
	}
	a.record(Unblacklisted{ID: newEventID(), At: time.Now().UTC()})
	return nil
}

// CanAccessNsfw is the pure NSFW access decision. All personalities are
// uniformly NSFW-capable, so the requested personality does not alter the
// outcome: DMs require verification, NSFW-flagged channels are open, and
// everything else is denied.
func (a *Aggregate) CanAccessNsfw(personalityID string, actx Context) bool {
	_ = personalityID
	if actx.ChannelKind == ChannelDM {
		return a.Nsfw.Verified
	}
	return actx.NsfwChannel
}

// record appends a new event and folds it into state.
func (a *Aggregate) record(e Event) {
	a.apply(e)
	a.pending = append(a.pending, e)
}

// apply folds one event into state. The switch is exhaustive over the
// closed event set.
func (a *Aggregate) apply(e Event) {
	switch ev := e.(type) {
	case Authenticated:
		a.Identity = ev.Identity
		tok := ev.Token
		a.Token = &tok
	case TokenRefreshed:
		tok := ev.Token
		a.Token = &tok
	case TokenExpired:
		a.Token = nil
	case NsfwVerified:
		a.Nsfw = VerifiedNsfw(ev.At)
	case NsfwCleared:
		a.Nsfw = UnverifiedNsfw()
	case Blacklisted:
		a.IsBlacklisted = true
		a.BlacklistReason = ev.Reason
		a.Token = nil
		a.Nsfw = UnverifiedNsfw()
	case Unblacklisted:
		a.IsBlacklisted = false
		a.BlacklistReason = ""
	}
	a.version++
}
