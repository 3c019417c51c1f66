package personality

import (
	"context"
	"strings"
	"sync"
)

// Registry is an in-memory Directory fed from config, with optional
// per-identity alias overrides layered on top. Safe for concurrent use;
// Reload swaps the whole shared table so config watchers can refresh it live.
type Registry struct {
	mu          sync.RWMutex
	byName      map[string]*Personality // canonical name, lowercased
	byAlias     map[string]*Personality // shared aliases, lowercased
	userAliases map[string]map[string]*Personality // identity → alias → personality
}

// NewRegistry builds a registry from the configured personalities.
func NewRegistry(personalities []Personality) *Registry {
	r := &Registry{userAliases: make(map[string]map[string]*Personality)}
	r.Reload(personalities)
	return r
}

// Reload replaces the shared name and alias tables. Per-identity aliases
// survive a reload.
func (r *Registry) Reload(personalities []Personality) {
	byName := make(map[string]*Personality, len(personalities))
	byAlias := make(map[string]*Personality)
	for i := range personalities {
		p := personalities[i]
		byName[strings.ToLower(p.Name)] = &p
		for _, alias := range p.Aliases {
			byAlias[strings.ToLower(alias)] = &p
		}
	}

	r.mu.Lock()
	r.byName = byName
	r.byAlias = byAlias
	r.mu.Unlock()
}

// SetUserAlias registers an identity-scoped alias. Used to seed the registry
// from the alias store and to apply live alias commands.
func (r *Registry) SetUserAlias(identity, alias string, p *Personality) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.userAliases[identity]
	if !ok {
		m = make(map[string]*Personality)
		r.userAliases[identity] = m
	}
	m[strings.ToLower(alias)] = p
}

// RemoveUserAlias drops an identity-scoped alias. No-op when absent.
func (r *Registry) RemoveUserAlias(identity, alias string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.userAliases[identity]; ok {
		delete(m, strings.ToLower(alias))
	}
}

// GetByID looks up a personality by its stable id.
func (r *Registry) GetByID(_ context.Context, id string) (*Personality, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byName {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

// GetByName looks up a personality by canonical name.
func (r *Registry) GetByName(_ context.Context, name string) (*Personality, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[strings.ToLower(name)], nil
}

// GetByAlias looks up a personality by alias, preferring the identity's own
// aliases over shared ones.
func (r *Registry) GetByAlias(_ context.Context, identity, alias string) (*Personality, error) {
	key := strings.ToLower(alias)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.userAliases[identity]; ok {
		if p, ok := m[key]; ok {
			return p, nil
		}
	}
	return r.byAlias[key], nil
}
