package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/halcyonlabs/personagate/internal/bus"
)

// toBusMessage converts a Discord message into the transport-neutral shape
// the pipeline consumes. Channel kind and age restriction come from gateway
// state, falling back to a REST lookup for channels the state cache missed.
func (c *Channel) toBusMessage(m *discordgo.Message) *bus.Message {
	msg := &bus.Message{
		ID:            m.ID,
		GuildID:       m.GuildID,
		ChannelID:     m.ChannelID,
		Content:       m.Content,
		WebhookID:     m.WebhookID,
		ApplicationID: m.ApplicationID,
		Timestamp:     m.Timestamp,
	}

	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = displayName(m)
		msg.AuthorBot = m.Author.Bot
	}

	msg.ChannelKind, msg.NsfwChannel = c.channelTraits(m)

	if ref := m.MessageReference; ref != nil && ref.MessageID != "" {
		msg.Reference = &bus.MessageRef{
			GuildID:   ref.GuildID,
			ChannelID: ref.ChannelID,
			MessageID: ref.MessageID,
		}
	}

	for _, att := range m.Attachments {
		msg.Attachments = append(msg.Attachments, bus.Attachment{
			URL:         att.URL,
			ContentType: att.ContentType,
		})
	}

	for _, e := range m.Embeds {
		embed := bus.Embed{Title: e.Title, Description: e.Description}
		for _, f := range e.Fields {
			if f == nil {
				continue
			}
			embed.Fields = append(embed.Fields, bus.EmbedField{Name: f.Name, Value: f.Value})
		}
		msg.Embeds = append(msg.Embeds, embed)
	}

	for _, u := range m.Mentions {
		if u != nil {
			msg.Mentions = append(msg.Mentions, u.ID)
		}
	}

	return msg
}

// channelTraits resolves the channel kind and NSFW flag.
func (c *Channel) channelTraits(m *discordgo.Message) (string, bool) {
	if m.GuildID == "" {
		return bus.KindDM, false
	}

	ch, err := c.session.State.Channel(m.ChannelID)
	if err != nil {
		ch, err = c.session.Channel(m.ChannelID)
	}
	if err != nil || ch == nil {
		slog.Debug("discord channel lookup failed", "channel_id", m.ChannelID, "error", err)
		return bus.KindGuild, false
	}

	switch ch.Type {
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return bus.KindDM, false
	case discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		// Threads inherit age restriction from their parent channel.
		nsfw := ch.NSFW
		if parent, perr := c.session.State.Channel(ch.ParentID); perr == nil {
			nsfw = parent.NSFW
		}
		return bus.KindThread, nsfw
	default:
		return bus.KindGuild, ch.NSFW
	}
}

// displayName returns the best available name for a message author.
// Priority: server nickname, then global display name, then username.
func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
