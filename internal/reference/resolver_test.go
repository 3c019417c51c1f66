package reference

import (
	"context"
	"strings"
	"testing"

	"github.com/halcyonlabs/personagate/internal/bus"
	"github.com/halcyonlabs/personagate/internal/channels"
	"github.com/halcyonlabs/personagate/internal/personality"
)

// fakeTransport serves canned messages keyed by "channel/message".
type fakeTransport struct {
	messages map[string]*bus.Message
	guilds   map[string]*bus.Guild
	fetches  int
}

func (f *fakeTransport) FetchMessage(_ context.Context, channelID, messageID string) (*bus.Message, error) {
	f.fetches++
	if m, ok := f.messages[channelID+"/"+messageID]; ok {
		return m, nil
	}
	return nil, channels.ErrNotFound
}

func (f *fakeTransport) FetchGuild(_ context.Context, guildID string) (*bus.Guild, error) {
	if g, ok := f.guilds[guildID]; ok {
		return g, nil
	}
	return nil, channels.ErrNotFound
}

func testDirectory() personality.Directory {
	return personality.NewRegistry([]personality.Personality{
		{ID: "p-bambi", Name: "bambi"},
	})
}

func TestResolve_DirectReply(t *testing.T) {
	tr := &fakeTransport{messages: map[string]*bus.Message{
		"chan/ref-1": {
			ID: "ref-1", ChannelID: "chan",
			AuthorID: "u2", AuthorName: "alice",
			Content: "original thought",
		},
	}}
	r := New(tr, testDirectory(), nil)

	msg := &bus.Message{
		ID: "m1", ChannelID: "chan", Content: "replying",
		Reference: &bus.MessageRef{ChannelID: "chan", MessageID: "ref-1"},
	}
	res := r.Resolve(context.Background(), msg, false)

	if res.Reply == nil {
		t.Fatal("expected reply context")
	}
	if res.Reply.AuthorName != "alice" || res.Reply.Content != "original thought" {
		t.Errorf("reply = %+v", res.Reply)
	}
	if res.Reply.FromBot {
		t.Error("human author must not be flagged as bot")
	}
}

func TestResolve_NestingCapsAtOneLevel(t *testing.T) {
	tr := &fakeTransport{messages: map[string]*bus.Message{
		"chan/ref-1": {
			ID: "ref-1", ChannelID: "chan", AuthorName: "alice", Content: "level one",
			Reference: &bus.MessageRef{ChannelID: "chan", MessageID: "ref-2"},
		},
		"chan/ref-2": {
			ID: "ref-2", ChannelID: "chan", AuthorName: "bob", Content: "level two",
			// This third-order reference must not be followed.
			Reference: &bus.MessageRef{ChannelID: "chan", MessageID: "ref-3"},
		},
		"chan/ref-3": {
			ID: "ref-3", ChannelID: "chan", AuthorName: "carol", Content: "level three",
		},
	}}
	r := New(tr, testDirectory(), nil)

	msg := &bus.Message{
		ID: "m1", ChannelID: "chan", Content: "reply",
		Reference: &bus.MessageRef{ChannelID: "chan", MessageID: "ref-1"},
	}
	res := r.Resolve(context.Background(), msg, false)

	if res.Reply == nil || res.Reply.Nested == nil {
		t.Fatal("expected one level of nesting")
	}
	if res.Reply.Nested.Nested != nil {
		t.Error("second-order reference must not be followed")
	}
	if !strings.Contains(res.Reply.Content, "[earlier message from bob: level two]") {
		t.Errorf("reply content = %q, want nested annotation", res.Reply.Content)
	}
	if strings.Contains(res.Reply.Content, "level three") {
		t.Error("third-order content must not appear")
	}
	if tr.fetches != 2 {
		t.Errorf("fetches = %d, want 2", tr.fetches)
	}
}

func TestResolve_FetchFailureDegrades(t *testing.T) {
	tr := &fakeTransport{messages: map[string]*bus.Message{}}
	r := New(tr, testDirectory(), nil)

	msg := &bus.Message{
		ID: "m1", ChannelID: "chan", Content: "reply to deleted",
		Reference: &bus.MessageRef{ChannelID: "chan", MessageID: "gone"},
	}
	res := r.Resolve(context.Background(), msg, true)

	if res.Reply != nil || res.Linked != nil {
		t.Errorf("result = %+v, want empty context", res)
	}
	if res.Content != "reply to deleted" {
		t.Errorf("content = %q, must be unchanged", res.Content)
	}
}

func TestResolve_InlineLink(t *testing.T) {
	link := "https://discord.com/channels/9/77/555"
	tr := &fakeTransport{
		messages: map[string]*bus.Message{
			"77/555": {ID: "555", ChannelID: "77", AuthorName: "dave", Content: "linked content"},
		},
		guilds: map[string]*bus.Guild{"9": {ID: "9"}},
	}
	r := New(tr, testDirectory(), nil)

	msg := &bus.Message{ID: "m1", GuildID: "1", ChannelID: "chan", Content: "look at " + link}

	// Unaddressed: link is left untouched.
	res := r.Resolve(context.Background(), msg, false)
	if res.Linked != nil || res.Content != msg.Content {
		t.Errorf("unaddressed resolve = %+v, want untouched", res)
	}

	// Addressed: link followed and replaced with the placeholder.
	res = r.Resolve(context.Background(), msg, true)
	if res.Linked == nil || res.Linked.Content != "linked content" {
		t.Fatalf("linked = %+v", res.Linked)
	}
	if res.Content != "look at "+LinkPlaceholder {
		t.Errorf("content = %q, want placeholder splice", res.Content)
	}
}

func TestResolve_CrossGuildLinkNeedsReachableGuild(t *testing.T) {
	link := "https://discord.com/channels/9/77/555"
	tr := &fakeTransport{
		messages: map[string]*bus.Message{
			"77/555": {ID: "555", ChannelID: "77", Content: "secret"},
		},
	}
	r := New(tr, testDirectory(), nil)

	msg := &bus.Message{ID: "m1", GuildID: "1", ChannelID: "chan", Content: link}
	res := r.Resolve(context.Background(), msg, true)
	if res.Linked != nil {
		t.Error("unreachable guild must degrade to no link context")
	}
}

func TestBuildChain_MediaAnnotations(t *testing.T) {
	tr := &fakeTransport{messages: map[string]*bus.Message{
		"chan/ref-1": {
			ID: "ref-1", ChannelID: "chan", AuthorName: "alice", Content: "see these",
			Attachments: []bus.Attachment{
				{URL: "https://cdn.example/a.png", ContentType: "image/png"},
				{URL: "https://cdn.example/b.ogg", ContentType: "audio/ogg"},
				{URL: "https://cdn.example/c.bin"},
			},
			Embeds: []bus.Embed{{
				Title:       "Weather",
				Description: "Sunny",
				Fields:      []bus.EmbedField{{Name: "High", Value: "25C"}},
			}},
		},
	}}
	r := New(tr, testDirectory(), nil)

	msg := &bus.Message{
		ID: "m1", ChannelID: "chan",
		Reference: &bus.MessageRef{ChannelID: "chan", MessageID: "ref-1"},
	}
	res := r.Resolve(context.Background(), msg, false)
	if res.Reply == nil {
		t.Fatal("expected reply")
	}

	for _, want := range []string{
		"[Image: https://cdn.example/a.png]",
		"[Audio: https://cdn.example/b.ogg]",
		"[File: https://cdn.example/c.bin]",
		"[Embed: Weather]",
		"Sunny",
		"High: 25C",
	} {
		if !strings.Contains(res.Reply.Content, want) {
			t.Errorf("content missing %q:\n%s", want, res.Reply.Content)
		}
	}
	if len(res.Reply.MediaURLs) != 3 {
		t.Errorf("media urls = %v", res.Reply.MediaURLs)
	}
}

func TestBuildChain_PersonalityMediaSkipped(t *testing.T) {
	tr := &fakeTransport{messages: map[string]*bus.Message{
		"chan/ref-1": {
			ID: "ref-1", ChannelID: "chan",
			AuthorName: "bambi | transcripts", WebhookID: "wh-1",
			Content:     "personality reply",
			Attachments: []bus.Attachment{{URL: "https://cdn.example/x.png", ContentType: "image/png"}},
		},
	}}
	r := New(tr, testDirectory(), nil)

	msg := &bus.Message{
		ID: "m1", ChannelID: "chan",
		Reference: &bus.MessageRef{ChannelID: "chan", MessageID: "ref-1"},
	}
	res := r.Resolve(context.Background(), msg, false)
	if res.Reply == nil {
		t.Fatal("expected reply")
	}
	if res.Reply.PersonalityID != "p-bambi" {
		t.Errorf("personality = %q, want p-bambi via display-name prefix", res.Reply.PersonalityID)
	}
	if strings.Contains(res.Reply.Content, "[Image:") {
		t.Error("personality media must be skipped")
	}
	if !res.Reply.FromBot {
		t.Error("webhook author must be flagged as bot")
	}
}

func TestAttribution_MessageIDLookupWins(t *testing.T) {
	tr := &fakeTransport{messages: map[string]*bus.Message{
		"chan/ref-1": {
			ID: "ref-1", ChannelID: "chan",
			AuthorName: "someone else", WebhookID: "wh-1", Content: "reply",
		},
	}}
	r := New(tr, testDirectory(), func(messageID string) string {
		if messageID == "ref-1" {
			return "p-known"
		}
		return ""
	})

	msg := &bus.Message{
		ID: "m1", ChannelID: "chan",
		Reference: &bus.MessageRef{ChannelID: "chan", MessageID: "ref-1"},
	}
	res := r.Resolve(context.Background(), msg, false)
	if res.Reply == nil || res.Reply.PersonalityID != "p-known" {
		t.Errorf("reply = %+v, want attribution p-known", res.Reply)
	}
}

func TestFindMessageLink(t *testing.T) {
	tests := []struct {
		in   string
		want *MessageLink
	}{
		{"https://discord.com/channels/1/2/3", &MessageLink{GuildID: "1", ChannelID: "2", MessageID: "3"}},
		{"see https://canary.discord.com/channels/10/20/30 there", &MessageLink{GuildID: "10", ChannelID: "20", MessageID: "30"}},
		{"https://discordapp.com/channels/4/5/6", &MessageLink{GuildID: "4", ChannelID: "5", MessageID: "6"}},
		{"no link here", nil},
		{"https://example.com/channels/1/2/3", nil},
	}
	for _, tt := range tests {
		got := FindMessageLink(tt.in)
		if (got == nil) != (tt.want == nil) {
			t.Errorf("FindMessageLink(%q) = %+v, want %+v", tt.in, got, tt.want)
			continue
		}
		if got != nil && (got.GuildID != tt.want.GuildID || got.ChannelID != tt.want.ChannelID || got.MessageID != tt.want.MessageID) {
			t.Errorf("FindMessageLink(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
