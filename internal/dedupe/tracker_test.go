package dedupe

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for deterministic window tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker(clock *fakeClock) *Tracker {
	return New(Options{
		WindowTTL:     time.Minute,
		ProxyDelay:    10 * time.Second,
		MaxPerChannel: 5,
		Clock:         clock.Now,
	})
}

func TestIsNearDuplicate_RequiresHandled(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	tr := newTestTracker(clock)

	tr.Track("chan", "msg-a", "hello there, friend!")

	// Neither message handled yet: two near-simultaneous human messages with
	// similar wording must both pass.
	if tr.IsNearDuplicate("chan", "msg-b", "hello there friend") {
		t.Error("unhandled entry must not suppress a near-duplicate")
	}

	tr.MarkHandled("chan", "msg-a")
	if !tr.IsNearDuplicate("chan", "msg-b", "hello there friend") {
		t.Error("handled entry within proxy delay must suppress a near-duplicate")
	}
}

func TestIsNearDuplicate_SameIDNeverMatches(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	tr := newTestTracker(clock)

	tr.Track("chan", "msg-a", "identical content here")
	tr.MarkHandled("chan", "msg-a")

	if tr.IsNearDuplicate("chan", "msg-a", "identical content here") {
		t.Error("a message must not be a duplicate of itself")
	}
}

func TestIsNearDuplicate_ProxyDelayAges(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	tr := newTestTracker(clock)

	tr.Track("chan", "msg-a", "some content worth repeating")
	tr.MarkHandled("chan", "msg-a")

	clock.Advance(11 * time.Second)
	if tr.IsNearDuplicate("chan", "msg-b", "some content worth repeating") {
		t.Error("entries older than the proxy delay must not suppress")
	}
}

func TestIsNearDuplicate_NormalizedComparison(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	tr := newTestTracker(clock)

	tr.Track("chan", "msg-a", "Hey!!  What's   UP?")
	tr.MarkHandled("chan", "msg-a")

	if !tr.IsNearDuplicate("chan", "msg-b", "hey what s up") {
		t.Error("punctuation and case differences must not defeat the match")
	}
	if tr.IsNearDuplicate("chan", "msg-c", "completely different words") {
		t.Error("different content must not match")
	}
}

func TestIsNearDuplicate_EmptyContent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	tr := newTestTracker(clock)

	tr.Track("chan", "msg-a", "!!!")
	tr.MarkHandled("chan", "msg-a")

	if tr.IsNearDuplicate("chan", "msg-b", "???") {
		t.Error("punctuation-only content must never suppress")
	}
}

func TestTrack_WindowCapAndTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	tr := newTestTracker(clock)

	for i := 0; i < 10; i++ {
		tr.Track("chan", string(rune('a'+i)), "message content")
	}
	if got := len(tr.windows["chan"]); got != 5 {
		t.Errorf("window length = %d, want cap 5", got)
	}

	clock.Advance(2 * time.Minute)
	if got := tr.Sweep(); got != 5 {
		t.Errorf("Sweep() = %d, want 5", got)
	}
	if _, ok := tr.windows["chan"]; ok {
		t.Error("empty channel window must be dropped by sweep")
	}
}

func TestMarkHandled_IdempotentAndMissing(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	tr := newTestTracker(clock)

	// Absent entry: no-op, no panic.
	tr.MarkHandled("chan", "ghost")

	tr.Track("chan", "msg-a", "content")
	tr.MarkHandled("chan", "msg-a")
	tr.MarkHandled("chan", "msg-a")

	if !tr.windows["chan"][0].handled {
		t.Error("entry should be handled")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "hello world"},
		{"  spaced   out  ", "spaced out"},
		{"emoji 🎉 party", "emoji party"},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
