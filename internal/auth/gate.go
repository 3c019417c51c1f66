package auth

import "github.com/halcyonlabs/personagate/internal/personality"

// DenyReason explains a rejected authorization.
type DenyReason string

const (
	DenyNotAuthenticated DenyReason = "not_authenticated"
	DenyBlacklisted      DenyReason = "blacklisted"
	DenyNsfwNotPermitted DenyReason = "nsfw_not_permitted"
)

// Decision is the outcome of one authorization check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Allow is the positive decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny is a negative decision with its reason.
func Deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// Authorize combines one aggregate snapshot with the request context and the
// requested personality. Blacklist short-circuits everything, then
// authentication presence, then the NSFW gate for NSFW-eligible
// personalities. Performs no I/O.
func Authorize(agg *Aggregate, p *personality.Personality, actx Context) Decision {
	if agg != nil && agg.IsBlacklisted {
		return Deny(DenyBlacklisted)
	}
	if agg == nil || !agg.IsAuthenticated() {
		return Deny(DenyNotAuthenticated)
	}
	if p != nil && p.Nsfw && !agg.CanAccessNsfw(p.ID, actx) {
		return Deny(DenyNsfwNotPermitted)
	}
	return Allow()
}
