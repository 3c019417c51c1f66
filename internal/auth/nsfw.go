package auth

import "time"

// NsfwStatus records whether an identity has completed NSFW verification.
// Verified is true iff VerifiedAt is non-nil; transitions produce new values.
type NsfwStatus struct {
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// VerifiedNsfw returns a status verified at the given time.
func VerifiedNsfw(at time.Time) NsfwStatus {
	return NsfwStatus{Verified: true, VerifiedAt: &at}
}

// UnverifiedNsfw returns the zero, unverified status.
func UnverifiedNsfw() NsfwStatus {
	return NsfwStatus{}
}
