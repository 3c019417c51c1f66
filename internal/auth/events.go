package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is one recorded transition of an identity's auth state. The set of
// event types is closed: the aggregate folds events with an exhaustive type
// switch, so replaying an ordered log always reproduces the same state.
type Event interface {
	// Kind returns the stable wire name of the event type.
	Kind() string
	// EventID returns the event's time-ordered unique id.
	EventID() uuid.UUID
	// OccurredAt returns the event timestamp.
	OccurredAt() time.Time

	isAuthEvent()
}

// Event kind constants, used as the discriminator in the persisted log.
const (
	KindAuthenticated  = "authenticated"
	KindTokenRefreshed = "token_refreshed"
	KindTokenExpired   = "token_expired"
	KindNsfwVerified   = "nsfw_verified"
	KindNsfwCleared    = "nsfw_cleared"
	KindBlacklisted    = "blacklisted"
	KindUnblacklisted  = "unblacklisted"
)

// Authenticated creates the aggregate with its first token.
type Authenticated struct {
	ID       uuid.UUID `json:"id"`
	Identity string    `json:"identity"`
	Token    Token     `json:"token"`
	At       time.Time `json:"at"`
}

// TokenRefreshed replaces the current token with a new one.
type TokenRefreshed struct {
	ID    uuid.UUID `json:"id"`
	Token Token     `json:"token"`
	At    time.Time `json:"at"`
}

// TokenExpired nulls the current token. The token value is retained in the
// log for history; only the live state loses it.
type TokenExpired struct {
	ID uuid.UUID `json:"id"`
	At time.Time `json:"at"`
}

// NsfwVerified marks the identity as NSFW-verified.
type NsfwVerified struct {
	ID uuid.UUID `json:"id"`
	At time.Time `json:"at"`
}

// NsfwCleared removes NSFW verification.
type NsfwCleared struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Blacklisted bans the identity. Folding it also revokes the token and
// clears NSFW verification in the same transition.
type Blacklisted struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Unblacklisted lifts the ban. Token and NSFW verification stay revoked.
type Unblacklisted struct {
	ID uuid.UUID `json:"id"`
	At time.Time `json:"at"`
}

func (e Authenticated) Kind() string { return KindAuthenticated }
func (e TokenRefreshed) Kind() string { return KindTokenRefreshed }
func (e TokenExpired) Kind() string { return KindTokenExpired }
func (e NsfwVerified) Kind() string { return KindNsfwVerified }
func (e NsfwCleared) Kind() string { return KindNsfwCleared }
func (e Blacklisted) Kind() string { return KindBlacklisted }
func (e Unblacklisted) Kind() string { return KindUnblacklisted }

func (e Authenticated) EventID() uuid.UUID { return e.ID }
func (e TokenRefreshed) EventID() uuid.UUID { return e.ID }
func (e TokenExpired) EventID() uuid.UUID { return e.ID }
func (e NsfwVerified) EventID() uuid.UUID { return e.ID }
func (e NsfwCleared) EventID() uuid.UUID { return e.ID }
func (e Blacklisted) EventID() uuid.UUID { return e.ID }
func (e Unblacklisted) EventID() uuid.UUID { return e.ID }

func (e Authenticated) OccurredAt() time.Time  { return e.At }
func (e TokenRefreshed) OccurredAt() time.Time { return e.At }
func (e TokenExpired) OccurredAt() time.Time   { return e.At }
func (e NsfwVerified) OccurredAt() time.Time   { return e.At }
func (e NsfwCleared) OccurredAt() time.Time    { return e.At }
func (e Blacklisted) OccurredAt() time.Time    { return e.At }
func (e Unblacklisted) OccurredAt() time.Time  { return e.At }

func (Authenticated) isAuthEvent()  {}
func (TokenRefreshed) isAuthEvent() {}
func (TokenExpired) isAuthEvent()   {}
func (NsfwVerified) isAuthEvent()   {}
func (NsfwCleared) isAuthEvent()    {}
func (Blacklisted) isAuthEvent()    {}
func (Unblacklisted) isAuthEvent()  {}

// newEventID returns a time-ordered UUID for a freshly recorded event.
func newEventID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// EncodeEvent serializes an event payload for the persisted log.
func EncodeEvent(e Event) (kind string, payload []byte, err error) {
	payload, err = json.Marshal(e)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s event: %w", e.Kind(), err)
	}
	return e.Kind(), payload, nil
}

// DecodeEvent deserializes one persisted event by its kind discriminator.
func DecodeEvent(kind string, payload []byte) (Event, error) {
	var (
		e   Event
		err error
	)
	switch kind {
	case KindAuthenticated:
		var ev Authenticated
		err = json.Unmarshal(payload, &ev)
		e = ev
	case KindTokenRefreshed:
		var ev TokenRefreshed
		err = json.Unmarshal(payload, &ev)
		e = ev
	case KindTokenExpired:
		var ev TokenExpired
		err = json.Unmarshal(payload, &ev)
		e = ev
	case KindNsfwVerified:
		var ev NsfwVerified
		err = json.Unmarshal(payload, &ev)
		e = ev
	case KindNsfwCleared:
		var ev NsfwCleared
		err = json.Unmarshal(payload, &ev)
		e = ev
	case KindBlacklisted:
		var ev Blacklisted
		err = json.Unmarshal(payload, &ev)
		e = ev
	case KindUnblacklisted:
		var ev Unblacklisted
		err = json.Unmarshal(payload, &ev)
		e = ev
	default:
		return nil, fmt.Errorf("unknown auth event kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", kind, err)
	}
	return e, nil
}
