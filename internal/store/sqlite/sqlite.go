// Package sqlite implements the store interfaces on a local SQLite file for
// standalone deployments. The schema is bootstrapped inline on open; only
// managed Postgres goes through the migrate command.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/halcyonlabs/personagate/internal/auth"
	"github.com/halcyonlabs/personagate/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS auth_events (
	id         TEXT PRIMARY KEY,
	identity   TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE (identity, seq)
);
CREATE INDEX IF NOT EXISTS idx_auth_events_identity ON auth_events (identity, seq);

CREATE TABLE IF NOT EXISTS user_aliases (
	identity       TEXT NOT NULL,
	alias          TEXT NOT NULL,
	personality_id TEXT NOT NULL,
	PRIMARY KEY (identity, alias)
);
`

// Open creates SQLite-backed stores, bootstrapping the schema.
func Open(path string) (*store.Stores, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY under concurrent access.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap sqlite schema: %w", err)
	}
	return store.NewStores(&AuthStore{db: db}, &AliasStore{db: db}, db.Close), nil
}

// AuthStore persists auth event logs in SQLite.
type AuthStore struct {
	db *sql.DB
}

var _ store.AuthStore = (*AuthStore)(nil)

func (s *AuthStore) Save(ctx context.Context, agg *auth.Aggregate) error {
	pending := agg.PendingEvents()
	if len(pending) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin auth save: %w", err)
	}
	defer tx.Rollback()

	baseSeq := agg.Version() - len(pending)
	for i, e := range pending {
		kind, payload, err := auth.EncodeEvent(e)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO auth_events (id, identity, seq, kind, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.EventID().String(), agg.Identity, baseSeq+i, kind, string(payload), e.OccurredAt(),
		); err != nil {
			return fmt.Errorf("insert auth event %s: %w", kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit auth save: %w", err)
	}
	agg.ClearPending()
	return nil
}

func (s *AuthStore) FindByIdentity(ctx context.Context, identity string) (*auth.Aggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, payload FROM auth_events WHERE identity = ? ORDER BY seq`, identity)
	if err != nil {
		return nil, fmt.Errorf("query auth events: %w", err)
	}
	defer rows.Close()

	var events []auth.Event
	for rows.Next() {
		var kind, payload string
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, fmt.Errorf("scan auth event: %w", err)
		}
		e, err := auth.DecodeEvent(kind, []byte(payload))
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auth events: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	return auth.Replay(identity, events), nil
}

func (s *AuthStore) Delete(ctx context.Context, identity string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM auth_events WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("delete auth events: %w", err)
	}
	return nil
}

// AliasStore persists per-identity personality aliases in SQLite.
type AliasStore struct {
	db *sql.DB
}

var _ store.AliasStore = (*AliasStore)(nil)

func (s *AliasStore) ListAll(ctx context.Context) (map[string]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identity, alias, personality_id FROM user_aliases`)
	if err != nil {
		return nil, fmt.Errorf("query user aliases: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]string)
	for rows.Next() {
		var identity, alias, personalityID string
		if err := rows.Scan(&identity, &alias, &personalityID); err != nil {
			return nil, fmt.Errorf("scan user alias: %w", err)
		}
		m, ok := out[identity]
		if !ok {
			m = make(map[string]string)
			out[identity] = m
		}
		m[alias] = personalityID
	}
	return out, rows.Err()
}

func (s *AliasStore) SetAlias(ctx context.Context, identity, alias, personalityID string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO user_aliases (identity, alias, personality_id) VALUES (?, ?, ?)
		 ON CONFLICT (identity, alias) DO UPDATE SET personality_id = excluded.personality_id`,
		identity, alias, personalityID); err != nil {
		return fmt.Errorf("upsert user alias: %w", err)
	}
	return nil
}

func (s *AliasStore) RemoveAlias(ctx context.Context, identity, alias string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM user_aliases WHERE identity = ? AND alias = ?`,
		identity, alias); err != nil {
		return fmt.Errorf("delete user alias: %w", err)
	}
	return nil
}
