package auth

import (
	"errors"
	"testing"
	"time"
)

func testToken(t *testing.T, value string) Token {
	t.Helper()
	tok, err := NewToken(value, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("NewToken(%q): %v", value, err)
	}
	return tok
}

func TestNewAggregate_Authenticates(t *testing.T) {
	agg, err := NewAggregate("user-1", testToken(t, "tok-1"))
	if err != nil {
		t.Fatal(err)
	}
	if !agg.IsAuthenticated() {
		t.Error("expected aggregate to be authenticated after creation")
	}
	if agg.Token == nil || agg.Token.Value != "tok-1" {
		t.Errorf("Token = %+v, want tok-1", agg.Token)
	}
	if got := len(agg.PendingEvents()); got != 1 {
		t.Errorf("pending events = %d, want 1", got)
	}
}

func TestNewAggregate_EmptyIdentity(t *testing.T) {
	if _, err := NewAggregate("", testToken(t, "tok")); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestReplay_Deterministic(t *testing.T) {
	agg, err := NewAggregate("user-1", testToken(t, "tok-1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := agg.VerifyNsfw(); err != nil {
		t.Fatal(err)
	}
	if err := agg.RefreshToken(testToken(t, "tok-2")); err != nil {
		t.Fatal(err)
	}
	if err := agg.Blacklist("spam"); err != nil {
		t.Fatal(err)
	}
	if err := agg.Unblacklist(); err != nil {
		t.Fatal(err)
	}

	log := agg.PendingEvents()

	// Replaying the full history any number of times yields identical state.
	for i := 0; i < 3; i++ {
		replayed := Replay("user-1", log)
		if replayed.IsBlacklisted != agg.IsBlacklisted {
			t.Errorf("replay %d: IsBlacklisted = %v, want %v", i, replayed.IsBlacklisted, agg.IsBlacklisted)
		}
		if (replayed.Token == nil) != (agg.Token == nil) {
			t.Fatalf("replay %d: token presence mismatch", i)
		}
		if replayed.Token != nil && replayed.Token.Value != agg.Token.Value {
			t.Errorf("replay %d: token = %q, want %q", i, replayed.Token.Value, agg.Token.Value)
		}
		if replayed.Nsfw.Verified != agg.Nsfw.Verified {
			t.Errorf("replay %d: nsfw = %v, want %v", i, replayed.Nsfw.Verified, agg.Nsfw.Verified)
		}
		if replayed.Version() != agg.Version() {
			t.Errorf("replay %d: version = %d, want %d", i, replayed.Version(), agg.Version())
		}
	}
}

func TestBlacklist_RevokesEverything(t *testing.T) {
	agg, err := NewAggregate("user-1", testToken(t, "tok-1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := agg.VerifyNsfw(); err != nil {
		t.Fatal(err)
	}

	if err := agg.Blacklist("ban evasion"); err != nil {
		t.Fatal(err)
	}

	if agg.Token != nil {
		t.Error("token must be revoked by blacklist")
	}
	if agg.Nsfw.Verified {
		t.Error("nsfw verification must be cleared by blacklist")
	}
	if !agg.IsBlacklisted || agg.BlacklistReason != "ban evasion" {
		t.Errorf("blacklist state = %v/%q", agg.IsBlacklisted, agg.BlacklistReason)
	}
}

func TestBlacklist_InvalidTransitions(t *testing.T) {
	agg, err := NewAggregate("user-1", testToken(t, "tok-1"))
	if err != nil {
		t.Fatal(err)
	}

	if err := agg.Blacklist(""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("empty reason: err = %v, want ErrInvalidState", err)
	}
	if err := agg.Unblacklist(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("unblacklist clean identity: err = %v, want ErrInvalidState", err)
	}

	if err := agg.Blacklist("abuse"); err != nil {
		t.Fatal(err)
	}
	if err := agg.Blacklist("again"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double blacklist: err = %v, want ErrInvalidState", err)
	}
}

func TestBlacklistedOperations_Fail(t *testing.T) {
	agg, err := NewAggregate("user-1", testToken(t, "tok-1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := agg.Blacklist("abuse"); err != nil {
		t.Fatal(err)
	}

	if err := agg.RefreshToken(testToken(t, "tok-2")); !errors.Is(err, ErrBlacklisted) {
		t.Errorf("refresh: err = %v, want ErrBlacklisted", err)
	}
	if err := agg.VerifyNsfw(); !errors.Is(err, ErrBlacklisted) {
		t.Errorf("verify nsfw: err = %v, want ErrBlacklisted", err)
	}
}

func TestVerifyNsfw_RequiresToken(t *testing.T) {
	agg, err := NewAggregate("user-1", testToken(t, "tok-1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := agg.ExpireToken(); err != nil {
		t.Fatal(err)
	}

	if err := agg.VerifyNsfw(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestNoOpTransitions_EmitNoEvents(t *testing.T) {
	agg, err := NewAggregate("user-1", testToken(t, "tok-1"))
	if err != nil {
		t.Fatal(err)
	}
	agg.ClearPending()

	// Already tokenless after expire: second expire is a no-op.
	if err := agg.ExpireToken(); err != nil {
		t.Fatal(err)
	}
	if err := agg.ExpireToken(); err != nil {
		t.Fatal(err)
	}
	if got := len(agg.PendingEvents()); got != 1 {
		t.Errorf("pending after double expire = %d, want 1", got)
	}

	// Clearing an unverified status is a no-op.
	if err := agg.ClearNsfwVerification("policy"); err != nil {
		t.Fatal(err)
	}
	if got := len(agg.PendingEvents()); got != 1 {
		t.Errorf("pending after no-op clear = %d, want 1", got)
	}
}

// Scenario: authenticate → blacklist → refresh fails → unblacklist →
// refresh succeeds and the identity is authenticated again.
func TestBlacklistLifecycleScenario(t *testing.T) {
	agg, err := NewAggregate("user-u", testToken(t, "tok-1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := agg.Blacklist("tos violation"); err != nil {
		t.Fatal(err)
	}

	if err := agg.RefreshToken(testToken(t, "tok-2")); !errors.Is(err, ErrBlacklisted) {
		t.Fatalf("refresh while blacklisted: err = %v, want ErrBlacklisted", err)
	}

	if err := agg.Unblacklist(); err != nil {
		t.Fatal(err)
	}
	if agg.IsAuthenticated() {
		t.Fatal("unblacklist must not restore the token")
	}

	if err := agg.RefreshToken(testToken(t, "tok-3")); err != nil {
		t.Fatal(err)
	}
	if !agg.IsAuthenticated() {
		t.Error("expected authenticated after refresh")
	}
}

func TestEventCodec_RoundTrip(t *testing.T) {
	agg, err := NewAggregate("user-1", testToken(t, "tok-1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := agg.VerifyNsfw(); err != nil {
		t.Fatal(err)
	}
	if err := agg.Blacklist("spam"); err != nil {
		t.Fatal(err)
	}

	var decoded []Event
	for _, e := range agg.PendingEvents() {
		kind, payload, err := EncodeEvent(e)
		if err != nil {
			t.Fatal(err)
		}
		d, err := DecodeEvent(kind, payload)
		if err != nil {
			t.Fatal(err)
		}
		decoded = append(decoded, d)
	}

	replayed := Replay("user-1", decoded)
	if !replayed.IsBlacklisted || replayed.Token != nil || replayed.Nsfw.Verified {
		t.Errorf("replayed state = %+v, want blacklisted tokenless unverified", replayed)
	}
}

func TestDecodeEvent_UnknownKind(t *testing.T) {
	if _, err := DecodeEvent("bogus", []byte(`{}`)); err == nil {
		t.Error("expected error for unknown event kind")
	}
}
