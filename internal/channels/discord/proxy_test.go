package discord

import (
	"testing"

	"github.com/halcyonlabs/personagate/internal/bus"
)

func TestProxyWebhookPredicate(t *testing.T) {
	pred := ProxyWebhookPredicate([]string{"app-proxy"})

	tests := []struct {
		name string
		msg  bus.Message
		want bool
	}{
		{"plain user message", bus.Message{AuthorID: "u1"}, false},
		{"bare webhook", bus.Message{WebhookID: "wh1"}, true},
		{"application webhook", bus.Message{WebhookID: "wh1", ApplicationID: "app-other"}, false},
		{"allowlisted application webhook", bus.Message{WebhookID: "wh1", ApplicationID: "app-proxy"}, true},
		{"application id without webhook", bus.Message{ApplicationID: "app-proxy"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pred(&tt.msg); got != tt.want {
				t.Fatalf("pred = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLastIndexByte(t *testing.T) {
	if got := lastIndexByte("a\nb\nc", '\n'); got != 3 {
		t.Fatalf("lastIndexByte = %d, want 3", got)
	}
	if got := lastIndexByte("abc", '\n'); got != -1 {
		t.Fatalf("lastIndexByte = %d, want -1", got)
	}
}
