// Package channels defines the contract between PersonaGate and a chat
// transport. The transport owns the gateway connection and message
// primitives; the pipeline only consumes these interfaces.
package channels

import (
	"context"
	"errors"

	"github.com/halcyonlabs/personagate/internal/bus"
)

// ErrNotFound is returned by Transport fetches when the target message or
// guild does not exist or is inaccessible. The pipeline treats it as "the
// proxy system deleted it" or "no reference context", never as a crash.
var ErrNotFound = errors.New("not found")

// Transport fetches arbitrary messages and guilds by id, possibly across
// guilds. Every fetch inherits the transport's own timeout.
type Transport interface {
	FetchMessage(ctx context.Context, channelID, messageID string) (*bus.Message, error)
	FetchGuild(ctx context.Context, guildID string) (*bus.Guild, error)
}

// Channel is a running connection to one chat platform.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
}

// Truncate shortens a string to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
