package bus

import (
	"context"
	"testing"
	"time"
)

func TestMessageBus_RoundTrip(t *testing.T) {
	b := New()
	ctx := context.Background()

	b.PublishInbound(Message{ID: "m1", ChannelID: "c1", Content: "hi"})
	got, ok := b.ConsumeInbound(ctx)
	if !ok || got.ID != "m1" {
		t.Fatalf("ConsumeInbound = %+v, %v", got, ok)
	}

	b.PublishOutbound(OutboundMessage{ChannelID: "c1", Content: "hello"})
	out, ok := b.ConsumeOutbound(ctx)
	if !ok || out.Content != "hello" {
		t.Fatalf("ConsumeOutbound = %+v, %v", out, ok)
	}
}

func TestMessageBus_ConsumeCancelled(t *testing.T) {
	b := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, ok := b.ConsumeInbound(ctx); ok {
		t.Error("expected ok=false on cancelled consume")
	}
}
