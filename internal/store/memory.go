package store

import (
	"context"
	"sync"

	"github.com/halcyonlabs/personagate/internal/auth"
)

// MemoryStores returns a fully in-memory Stores bundle.
func MemoryStores() *Stores {
	return NewStores(NewMemoryAuthStore(), NewMemoryAliasStore(), nil)
}

// MemoryAuthStore keeps event logs in a map. Used by tests and the doctor
// command.
type MemoryAuthStore struct {
	mu   sync.Mutex
	logs map[string][]auth.Event
}

func NewMemoryAuthStore() *MemoryAuthStore {
	return &MemoryAuthStore{logs: make(map[string][]auth.Event)}
}

func (s *MemoryAuthStore) Save(_ context.Context, agg *auth.Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[agg.Identity] = append(s.logs[agg.Identity], agg.PendingEvents()...)
	agg.ClearPending()
	return nil
}

func (s *MemoryAuthStore) FindByIdentity(_ context.Context, identity string) (*auth.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[identity]
	if !ok {
		return nil, nil
	}
	return auth.Replay(identity, log), nil
}

func (s *MemoryAuthStore) Delete(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, identity)
	return nil
}

// MemoryAliasStore keeps per-identity aliases in a map.
type MemoryAliasStore struct {
	mu      sync.Mutex
	aliases map[string]map[string]string
}

func NewMemoryAliasStore() *MemoryAliasStore {
	return &MemoryAliasStore{aliases: make(map[string]map[string]string)}
}

func (s *MemoryAliasStore) ListAll(_ context.Context) (map[string]map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[string]string, len(s.aliases))
	for identity, m := range s.aliases {
		cp := make(map[string]string, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out[identity] = cp
	}
	return out, nil
}

func (s *MemoryAliasStore) SetAlias(_ context.Context, identity, alias, personalityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.aliases[identity]
	if !ok {
		m = make(map[string]string)
		s.aliases[identity] = m
	}
	m[alias] = personalityID
	return nil
}

func (s *MemoryAliasStore) RemoveAlias(_ context.Context, identity, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.aliases[identity]; ok {
		delete(m, alias)
	}
	return nil
}
