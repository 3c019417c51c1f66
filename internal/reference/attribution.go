package reference

import "sync"

// attributionCap bounds the cache; oldest entries are evicted map-order
// when the cap is hit.
const attributionCap = 4096

// AttributionCache remembers which personality produced a given outbound
// message id, so replies to those messages can be attributed exactly
// instead of by display-name parsing. Safe for concurrent use.
type AttributionCache struct {
	mu      sync.Mutex
	entries map[string]string // messageID -> personalityID
}

// NewAttributionCache creates an empty cache.
func NewAttributionCache() *AttributionCache {
	return &AttributionCache{entries: make(map[string]string)}
}

// Record associates a sent message with the personality that produced it.
func (c *AttributionCache) Record(messageID, personalityID string) {
	if messageID == "" || personalityID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.entries) >= attributionCap {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[messageID] = personalityID
}

// Lookup returns the personality id for a message, or "". Satisfies
// AttributionFunc.
func (c *AttributionCache) Lookup(messageID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[messageID]
}
