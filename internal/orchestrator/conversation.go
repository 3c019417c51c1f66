package orchestrator

import (
	"sync"
	"time"
)

// DefaultConversationTTL is how long a channel stays "active" for a
// personality after its last dispatched interaction.
const DefaultConversationTTL = 10 * time.Minute

type convEntry struct {
	personalityID string
	expiresAt     time.Time
}

// ActiveConversations tracks which personality, if any, currently owns a
// channel's conversation. A message with no explicit mention continues the
// active conversation instead of being dropped.
type ActiveConversations struct {
	mu      sync.Mutex
	entries map[string]convEntry
	ttl     time.Duration
	clock   func() time.Time
}

// NewActiveConversations creates the registry. Zero ttl picks the default;
// clock is injectable for tests.
func NewActiveConversations(ttl time.Duration, clock func() time.Time) *ActiveConversations {
	if ttl <= 0 {
		ttl = DefaultConversationTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &ActiveConversations{
		entries: make(map[string]convEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Activate marks the personality as owning the channel's conversation,
// refreshing the TTL.
func (a *ActiveConversations) Activate(channelID, personalityID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[channelID] = convEntry{
		personalityID: personalityID,
		expiresAt:     a.clock().Add(a.ttl),
	}
}

// Lookup returns the active personality id for the channel, or "".
func (a *ActiveConversations) Lookup(channelID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[channelID]
	if !ok {
		return ""
	}
	if a.clock().After(e.expiresAt) {
		delete(a.entries, channelID)
		return ""
	}
	return e.personalityID
}

// Deactivate clears the channel's active conversation.
func (a *ActiveConversations) Deactivate(channelID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entries, channelID)
}
