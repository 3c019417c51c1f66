package auth

import (
	"errors"
	"testing"
	"time"
)

func TestNewToken_RejectsPastExpiry(t *testing.T) {
	if _, err := NewToken("tok", time.Now().Add(-time.Minute)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
	if _, err := NewToken("", time.Now().Add(time.Minute)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("empty value: err = %v, want ErrInvalidState", err)
	}
}

func TestToken_ExpiryQueries(t *testing.T) {
	now := time.Now()
	tok := Token{Value: "tok", ExpiresAt: now.Add(10 * time.Minute)}

	if tok.IsExpired(now) {
		t.Error("token should not be expired")
	}
	if !tok.IsExpired(now.Add(11 * time.Minute)) {
		t.Error("token should be expired past its expiry")
	}
	if got := tok.TimeUntilExpiration(now); got != 10*time.Minute {
		t.Errorf("TimeUntilExpiration = %v, want 10m", got)
	}
	if got := tok.TimeUntilExpiration(now.Add(time.Hour)); got != 0 {
		t.Errorf("TimeUntilExpiration past expiry = %v, want 0", got)
	}
	if tok.ShouldRefresh(now, 5*time.Minute) {
		t.Error("should not need refresh with 10m left and 5m threshold")
	}
	if !tok.ShouldRefresh(now.Add(6*time.Minute), 5*time.Minute) {
		t.Error("should need refresh with 4m left and 5m threshold")
	}
}

func TestNsfwStatus_Invariant(t *testing.T) {
	s := UnverifiedNsfw()
	if s.Verified || s.VerifiedAt != nil {
		t.Errorf("unverified status = %+v", s)
	}
	v := VerifiedNsfw(time.Now())
	if !v.Verified || v.VerifiedAt == nil {
		t.Errorf("verified status = %+v", v)
	}
}
