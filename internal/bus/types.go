// Package bus carries transport-neutral message types between the chat
// adapter and the interaction pipeline.
package bus

import "time"

// ChannelKind values mirror the transport's channel classification.
const (
	KindDM     = "dm"
	KindGuild  = "guild"
	KindThread = "thread"
)

// MessageRef points at another message (a reply target).
type MessageRef struct {
	GuildID   string `json:"guild_id,omitempty"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// Attachment is one media item on a message.
type Attachment struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// EmbedField is one field of a structured embed.
type EmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Embed is a structured content block attached to a message.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// Message is one chat message in transport-neutral form. The same shape is
// used for inbound gateway events and for messages fetched by id.
type Message struct {
	ID            string            `json:"id"`
	GuildID       string            `json:"guild_id,omitempty"`
	ChannelID     string            `json:"channel_id"`
	ChannelKind   string            `json:"channel_kind"` // KindDM, KindGuild, KindThread
	NsfwChannel   bool              `json:"nsfw_channel,omitempty"`
	AuthorID      string            `json:"author_id"`
	AuthorName    string            `json:"author_name,omitempty"`
	AuthorBot     bool              `json:"author_bot,omitempty"`
	WebhookID     string            `json:"webhook_id,omitempty"`
	ApplicationID string            `json:"application_id,omitempty"`
	Content       string            `json:"content"`
	Timestamp     time.Time         `json:"timestamp"`
	Attachments   []Attachment      `json:"attachments,omitempty"`
	Embeds        []Embed           `json:"embeds,omitempty"`
	Reference     *MessageRef       `json:"reference,omitempty"`
	Mentions      []string          `json:"mentions,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// IsDM reports whether the message arrived over a direct-message channel.
func (m *Message) IsDM() bool { return m.ChannelKind == KindDM }

// IsWebhook reports whether the message was posted by a webhook.
func (m *Message) IsWebhook() bool { return m.WebhookID != "" }

// Guild is the minimal guild shape the pipeline needs for cross-guild link
// checks.
type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// OutboundMessage is a response handed to the dispatch side of the
// transport.
type OutboundMessage struct {
	ChannelID     string            `json:"channel_id"`
	PersonalityID string            `json:"personality_id,omitempty"`
	Content       string            `json:"content"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}
