package bus

import (
	"context"
	"log/slog"
)

const defaultBuffer = 256

// MessageBus decouples the chat adapter from the interaction pipeline with
// buffered channels. Publishing never blocks the gateway event handlers; a
// full buffer drops the message and logs instead of stalling the transport.
type MessageBus struct {
	inbound  chan Message
	outbound chan OutboundMessage
}

// New creates a message bus with the default buffer size.
func New() *MessageBus {
	return &MessageBus{
		inbound:  make(chan Message, defaultBuffer),
		outbound: make(chan OutboundMessage, defaultBuffer),
	}
}

// PublishInbound queues one inbound event for the pipeline.
func (b *MessageBus) PublishInbound(msg Message) {
	select {
	case b.inbound <- msg:
	default:
		slog.Warn("inbound bus full, dropping message",
			"channel_id", msg.ChannelID, "message_id", msg.ID)
	}
}

// ConsumeInbound blocks for the next inbound event. The second return is
// false when the context is cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (Message, bool) {
	select {
	case <-ctx.Done():
		return Message{}, false
	case msg := <-b.inbound:
		return msg, true
	}
}

// PublishOutbound queues one response for the transport.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	select {
	case b.outbound <- msg:
	default:
		slog.Warn("outbound bus full, dropping message", "channel_id", msg.ChannelID)
	}
}

// ConsumeOutbound blocks for the next outbound response. The second return
// is false when the context is cancelled.
func (b *MessageBus) ConsumeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case <-ctx.Done():
		return OutboundMessage{}, false
	case msg := <-b.outbound:
		return msg, true
	}
}
