// Package store defines the persistence interfaces consumed by the
// pipeline and the auth command API. Postgres backs managed deployments,
// SQLite standalone ones; the in-memory store serves tests.
package store

import (
	"context"

	"github.com/halcyonlabs/personagate/internal/auth"
)

// AuthStore persists auth aggregates as ordered event logs.
type AuthStore interface {
	// Save appends the aggregate's pending events and clears them.
	Save(ctx context.Context, agg *auth.Aggregate) error
	// FindByIdentity replays the identity's event log. Returns (nil, nil)
	// when no record exists; absence means "not authenticated".
	FindByIdentity(ctx context.Context, identity string) (*auth.Aggregate, error)
	// Delete removes the identity's whole event log.
	Delete(ctx context.Context, identity string) error
}

// AliasStore persists per-identity personality aliases.
type AliasStore interface {
	// ListAll returns identity → alias → personality id for seeding the
	// registry at startup.
	ListAll(ctx context.Context) (map[string]map[string]string, error)
	SetAlias(ctx context.Context, identity, alias, personalityID string) error
	RemoveAlias(ctx context.Context, identity, alias string) error
}

// Stores bundles every store implementation for one backend.
type Stores struct {
	Auth    AuthStore
	Aliases AliasStore

	closer func() error
}

// NewStores bundles stores with an optional close hook.
func NewStores(authStore AuthStore, aliasStore AliasStore, closer func() error) *Stores {
	return &Stores{Auth: authStore, Aliases: aliasStore, closer: closer}
}

// Close releases the underlying backend.
func (s *Stores) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// Config selects and configures a backend.
type Config struct {
	// Mode is "standalone" (SQLite, default) or "managed" (Postgres).
	Mode string
	// PostgresDSN comes from the environment only, never from config files.
	PostgresDSN string
	// SQLitePath is the standalone database file.
	SQLitePath string
}
