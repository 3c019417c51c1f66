// Package dedupe suppresses duplicate processing when an identity-proxy
// system deletes a user's message and re-posts the same content through a
// webhook shortly afterwards.
package dedupe

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultWindowTTL is how long a tracked message stays comparable.
	DefaultWindowTTL = 5 * time.Minute

	// DefaultProxyDelay is the maximum age at which an earlier message can
	// still suppress a near-duplicate re-post.
	DefaultProxyDelay = 10 * time.Second

	// DefaultMaxPerChannel caps each channel's window length.
	DefaultMaxPerChannel = 50
)

// trackedMessage is one ephemeral window entry, owned exclusively by the
// tracker.
type trackedMessage struct {
	id         string
	normalized string
	seenAt     time.Time
	handled    bool
}

// Options configures a Tracker. The zero value picks the defaults; Clock is
// injectable for tests.
type Options struct {
	WindowTTL     time.Duration
	ProxyDelay    time.Duration
	MaxPerChannel int
	Clock         func() time.Time
}

// Tracker keeps a short-lived per-channel window of recently seen message
// bodies and answers near-duplicate queries against it.
type Tracker struct {
	mu      sync.Mutex
	windows map[string][]*trackedMessage
	opts    Options
}

// New creates a tracker, filling unset options with defaults.
func New(opts Options) *Tracker {
	if opts.WindowTTL <= 0 {
		opts.WindowTTL = DefaultWindowTTL
	}
	if opts.ProxyDelay <= 0 {
		opts.ProxyDelay = DefaultProxyDelay
	}
	if opts.MaxPerChannel <= 0 {
		opts.MaxPerChannel = DefaultMaxPerChannel
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Tracker{windows: make(map[string][]*trackedMessage), opts: opts}
}

// Track appends a message to the channel's window, evicting expired entries
// and trimming to the configured cap.
func (t *Tracker) Track(channelID, messageID, content string) {
	now := t.opts.Clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	window := t.evictLocked(channelID, now)
	window = append(window, &trackedMessage{
		id:         messageID,
		normalized: Normalize(content),
		seenAt:     now,
	})
	if len(window) > t.opts.MaxPerChannel {
		window = window[len(window)-t.opts.MaxPerChannel:]
	}
	t.windows[channelID] = window
}

// IsNearDuplicate reports whether the candidate matches an earlier, already
// handled message with a different id inside the proxy-delay window.
//
// The handled gate matters: two genuinely distinct human messages sent close
// together with similar wording must not suppress each other before either
// has been processed.
func (t *Tracker) IsNearDuplicate(channelID, candidateID, candidateContent string) bool {
	now := t.opts.Clock()
	normalized := Normalize(candidateContent)
	if normalized == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range t.evictLocked(channelID, now) {
		if entry.id == candidateID || !entry.handled {
			continue
		}
		if now.Sub(entry.seenAt) > t.opts.ProxyDelay {
			continue
		}
		if similar(entry.normalized, normalized) {
			return true
		}
	}
	return false
}

// MarkHandled flags a tracked message as processed. Idempotent; no-op when
// the entry was already evicted.
func (t *Tracker) MarkHandled(channelID, messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range t.windows[channelID] {
		if entry.id == messageID {
			entry.handled = true
			return
		}
	}
}

// Sweep evicts expired entries across all channels and returns the number
// removed. Called periodically by Run.
func (t *Tracker) Sweep() int {
	now := t.opts.Clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for channelID, window := range t.windows {
		before := len(window)
		kept := t.evictLocked(channelID, now)
		evicted += before - len(kept)
		if len(kept) == 0 {
			delete(t.windows, channelID)
		} else {
			t.windows[channelID] = kept
		}
	}
	return evicted
}

// Run sweeps on a fixed interval until the context is cancelled.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				slog.Debug("dedupe sweep evicted entries", "count", n)
			}
		}
	}
}

// evictLocked drops entries older than the window TTL. Caller holds the lock.
func (t *Tracker) evictLocked(channelID string, now time.Time) []*trackedMessage {
	window := t.windows[channelID]
	cutoff := now.Add(-t.opts.WindowTTL)
	start := 0
	for start < len(window) && window[start].seenAt.Before(cutoff) {
		start++
	}
	if start > 0 {
		window = window[start:]
		t.windows[channelID] = window
	}
	return window
}
