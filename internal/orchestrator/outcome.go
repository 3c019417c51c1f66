package orchestrator

import (
	"github.com/halcyonlabs/personagate/internal/auth"
	"github.com/halcyonlabs/personagate/internal/personality"
)

// Kind classifies the result of handling one inbound event.
type Kind string

const (
	// KindIgnored: the event addressed no personality, or came from a
	// webhook that is not an identity proxy.
	KindIgnored Kind = "ignored"
	// KindSuppressed: duplicate re-delivery, or the message vanished
	// during the proxy delay.
	KindSuppressed Kind = "suppressed"
	// KindUnauthorized: the authorization gate denied the interaction.
	KindUnauthorized Kind = "unauthorized"
	// KindDispatched: the interaction was handed to the response pipeline.
	KindDispatched Kind = "dispatched"
	// KindFailed: an infrastructure error prevented a decision.
	KindFailed Kind = "failed"
)

// Outcome is the decision for one inbound event.
type Outcome struct {
	Kind        Kind
	Reason      auth.DenyReason // set for KindUnauthorized
	Personality *personality.Personality
	Content     string // resolved content, set for KindDispatched
	Err         error  // set for KindFailed
}

func ignored() Outcome { return Outcome{Kind: KindIgnored} }
func suppressed() Outcome { return Outcome{Kind: KindSuppressed} }
func unauthorized(r auth.DenyReason) Outcome { return Outcome{Kind: KindUnauthorized, Reason: r} }
func failed(err error) Outcome { return Outcome{Kind: KindFailed, Err: err} }

func dispatched(p *personality.Personality, content string) Outcome {
	return Outcome{Kind: KindDispatched, Personality: p, Content: content}
}
