package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/halcyonlabs/personagate/internal/auth"
	"github.com/halcyonlabs/personagate/internal/store"
)

// AuthStore persists auth event logs in the auth_events table.
type AuthStore struct {
	db *sql.DB
}

var _ store.AuthStore = (*AuthStore)(nil)

func NewAuthStore(db *sql.DB) *AuthStore {
	return &AuthStore{db: db}
}

// Save appends the aggregate's pending events in one transaction. The
// (identity, seq) unique constraint rejects concurrent writers racing on
// the same aggregate.
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
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.EventID(), agg.Identity, baseSeq+i, kind, payload, e.OccurredAt(),
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

// FindByIdentity replays the identity's ordered event log.
func (s *AuthStore) FindByIdentity(ctx context.Context, identity string) (*auth.Aggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, payload FROM auth_events WHERE identity = $1 ORDER BY seq`, identity)
	if err != nil {
		return nil, fmt.Errorf("query auth events: %w", err)
	}
	defer rows.Close()

	var events []auth.Event
	for rows.Next() {
		var (
			kind    string
			payload []byte
		)
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, fmt.Errorf("scan auth event: %w", err)
		}
		e, err := auth.DecodeEvent(kind, payload)
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

// Delete removes the identity's whole event log.
func (s *AuthStore) Delete(ctx context.Context, identity string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM auth_events WHERE identity = $1`, identity); err != nil {
		return fmt.Errorf("delete auth events: %w", err)
	}
	return nil
}
