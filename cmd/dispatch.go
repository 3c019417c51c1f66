package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/halcyonlabs/personagate/internal/bus"
	"github.com/halcyonlabs/personagate/internal/orchestrator"
)

// outboundDispatcher is the built-in response path. Response generation
// lives outside PersonaGate; this dispatcher publishes the approved,
// fully-resolved interaction on the outbound queue. In echo mode the
// resolved content is mirrored back as the personality, which makes the
// whole routing pipeline observable end to end without a responder.
type outboundDispatcher struct {
	bus  *bus.MessageBus
	echo bool
}

func newDispatcher(b *bus.MessageBus, echo bool) orchestrator.Dispatcher {
	return &outboundDispatcher{bus: b, echo: echo}
}

func (d *outboundDispatcher) Dispatch(_ context.Context, req orchestrator.DispatchRequest) error {
	if !d.echo {
		slog.Info("interaction approved, awaiting responder",
			"personality", req.Personality.ID,
			"channel_id", req.Message.ChannelID,
			"user_id", req.Message.AuthorID)
		return nil
	}

	d.bus.PublishOutbound(bus.OutboundMessage{
		ChannelID:     req.Message.ChannelID,
		PersonalityID: req.Personality.ID,
		Content:       fmt.Sprintf("%s | %s", req.Personality.Name, req.Content),
		Metadata: map[string]string{
			"reply_to": req.Message.ID,
			"user_id":  req.Message.AuthorID,
		},
	})
	return nil
}
