package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/halcyonlabs/personagate/internal/store"
)

// AliasStore persists per-identity personality aliases.
type AliasStore struct {
	db *sql.DB
}

var _ store.AliasStore = (*AliasStore)(nil)

func NewAliasStore(db *sql.DB) *AliasStore {
	return &AliasStore{db: db}
}

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
		`INSERT INTO user_aliases (identity, alias, personality_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (identity, alias) DO UPDATE SET personality_id = EXCLUDED.personality_id`,
		identity, alias, personalityID); err != nil {
		return fmt.Errorf("upsert user alias: %w", err)
	}
	return nil
}

func (s *AliasStore) RemoveAlias(ctx context.Context, identity, alias string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM user_aliases WHERE identity = $1 AND alias = $2`,
		identity, alias); err != nil {
		return fmt.Errorf("delete user alias: %w", err)
	}
	return nil
}
