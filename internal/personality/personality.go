// Package personality models the named AI responders PersonaGate routes to.
package personality

import "context"

// Personality is a named AI responder with its own alias set and NSFW
// eligibility.
type Personality struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Nsfw    bool     `json:"nsfw,omitempty"`
}

// Directory resolves personality references. GetByAlias consults
// per-identity aliases before shared ones, so two identities may map the
// same alias to different personalities.
type Directory interface {
	GetByName(ctx context.Context, name string) (*Personality, error)
	GetByAlias(ctx context.Context, identity, alias string) (*Personality, error)
}
