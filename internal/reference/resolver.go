// Package reference reconstructs the conversational content a message is
// replying to or linking to: reply chains one level deep, inline
// cross-channel message links, and media annotations.
package reference

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/halcyonlabs/personagate/internal/bus"
	"github.com/halcyonlabs/personagate/internal/channels"
	"github.com/halcyonlabs/personagate/internal/personality"
)

// nestedPreviewLen bounds the second-order annotation so a deep quote chain
// cannot balloon the reconstructed context.
const nestedPreviewLen = 200

// dmTranscriptSeparator is the display-name convention used by webhook
// transcripts of personality DMs: "{personality name} | {user}".
const dmTranscriptSeparator = " | "

// Chain is reconstructed reference context. At most one level of nesting is
// resolved eagerly; deeper chains are not traversed.
type Chain struct {
	Content    string
	AuthorID   string
	AuthorName string
	FromBot    bool

	// PersonalityID is set when the referenced message is attributed to a
	// personality (webhook authorship).
	PersonalityID string

	MediaURLs []string
	Nested    *Chain
}

// Result is the outcome of resolving one message's references.
type Result struct {
	// Reply is the direct reply context, nil when absent or unfetchable.
	Reply *Chain
	// Linked is the inline message-link context, nil when absent, not
	// followed, or unfetchable.
	Linked *Chain
	// Content is the message text with a followed link replaced by
	// LinkPlaceholder. Unchanged when no link was followed.
	Content string
}

// AttributionFunc maps a message id to the personality that produced it,
// returning "" for unknown messages.
type AttributionFunc func(messageID string) string

// Resolver reconstructs reference context through a message transport.
// Fetch failures always degrade to "no reference context", since
// conversational continuity is best-effort.
type Resolver struct {
	transport channels.Transport
	dir       personality.Directory
	attribute AttributionFunc
}

// New creates a resolver. attribute may be nil when no message-id
// attribution source exists.
func New(transport channels.Transport, dir personality.Directory, attribute AttributionFunc) *Resolver {
	return &Resolver{transport: transport, dir: dir, attribute: attribute}
}

// Resolve reconstructs reply and link context for msg. Link-following is
// only attempted when the message is addressed to a personality (mention or
// active conversation, passed as addressed) or turns out to reply to one:
// an unaddressed plain message containing a link is left untouched.
func (r *Resolver) Resolve(ctx context.Context, msg *bus.Message, addressed bool) Result {
	res := Result{Content: msg.Content}

	if ref := msg.Reference; ref != nil {
		chain, err := r.fetchChain(ctx, ref.ChannelID, ref.MessageID)
		if err != nil {
			slog.Debug("reply reference unavailable",
				"channel_id", ref.ChannelID, "message_id", ref.MessageID, "error", err)
		} else {
			res.Reply = chain
		}
	}

	if res.Reply != nil && res.Reply.PersonalityID != "" {
		addressed = true
	}
	if !addressed {
		return res
	}

	link := FindMessageLink(msg.Content)
	if link == nil {
		return res
	}
	if link.GuildID != msg.GuildID {
		// Cross-guild link: confirm the guild is reachable before fetching.
		if _, err := r.transport.FetchGuild(ctx, link.GuildID); err != nil {
			slog.Debug("linked guild unavailable", "guild_id", link.GuildID, "error", err)
			return res
		}
	}

	chain, err := r.fetchChain(ctx, link.ChannelID, link.MessageID)
	if err != nil {
		slog.Debug("linked message unavailable",
			"channel_id", link.ChannelID, "message_id", link.MessageID, "error", err)
		return res
	}
	res.Linked = chain
	res.Content = strings.Replace(msg.Content, link.Raw, LinkPlaceholder, 1)
	return res
}

// fetchChain fetches one message and builds its chain, following the
// referenced message's own reply exactly one level. The second-order
// message's reference is deliberately not followed.
func (r *Resolver) fetchChain(ctx context.Context, channelID, messageID string) (*Chain, error) {
	m, err := r.transport.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		return nil, err
	}
	chain := r.buildChain(ctx, m)

	if ref := m.Reference; ref != nil {
		nested, err := r.transport.FetchMessage(ctx, ref.ChannelID, ref.MessageID)
		if err != nil {
			slog.Debug("nested reference unavailable",
				"channel_id", ref.ChannelID, "message_id", ref.MessageID, "error", err)
			return chain, nil
		}
		nc := r.buildChain(ctx, nested)
		chain.Nested = nc
		chain.Content = fmt.Sprintf("[earlier message from %s: %s]\n%s",
			nc.AuthorName, channels.Truncate(nc.Content, nestedPreviewLen), chain.Content)
	}
	return chain, nil
}

// buildChain converts a fetched message into reference context: personality
// attribution for webhook authors, then media and embed annotations for
// everything not attributed to a personality (a personality's media is
// assumed already described by its text).
func (r *Resolver) buildChain(ctx context.Context, m *bus.Message) *Chain {
	chain := &Chain{
		Content:    m.Content,
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		FromBot:    m.AuthorBot || m.IsWebhook(),
	}

	if m.IsWebhook() {
		chain.PersonalityID = r.attributePersonality(ctx, m)
	}
	if chain.PersonalityID != "" {
		return chain
	}

	var parts []string
	if chain.Content != "" {
		parts = append(parts, chain.Content)
	}
	for _, att := range m.Attachments {
		parts = append(parts, mediaAnnotation(att))
		chain.MediaURLs = append(chain.MediaURLs, att.URL)
	}
	for _, embed := range m.Embeds {
		if line := embedAnnotation(embed); line != "" {
			parts = append(parts, line)
		}
	}
	chain.Content = strings.Join(parts, "\n")
	return chain
}

// attributePersonality identifies which personality a webhook message
// belongs to: message-id lookup first, then the DM transcript display-name
// prefix convention.
func (r *Resolver) attributePersonality(ctx context.Context, m *bus.Message) string {
	if r.attribute != nil {
		if id := r.attribute(m.ID); id != "" {
			return id
		}
	}
	name, _, found := strings.Cut(m.AuthorName, dmTranscriptSeparator)
	if !found {
		return ""
	}
	p, err := r.dir.GetByName(ctx, strings.TrimSpace(name))
	if err != nil || p == nil {
		return ""
	}
	return p.ID
}

func mediaAnnotation(att bus.Attachment) string {
	switch {
	case strings.HasPrefix(att.ContentType, "image/"):
		return fmt.Sprintf("[Image: %s]", att.URL)
	case strings.HasPrefix(att.ContentType, "audio/"):
		return fmt.Sprintf("[Audio: %s]", att.URL)
	case strings.HasPrefix(att.ContentType, "video/"):
		return fmt.Sprintf("[Video: %s]", att.URL)
	default:
		return fmt.Sprintf("[File: %s]", att.URL)
	}
}

func embedAnnotation(embed bus.Embed) string {
	var lines []string
	if embed.Title != "" {
		lines = append(lines, "[Embed: "+embed.Title+"]")
	}
	if embed.Description != "" {
		lines = append(lines, embed.Description)
	}
	for _, f := range embed.Fields {
		lines = append(lines, f.Name+": "+f.Value)
	}
	return strings.Join(lines, "\n")
}
