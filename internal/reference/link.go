package reference

import "regexp"

// LinkPlaceholder replaces an inline message link once its content has been
// spliced into the outgoing text.
const LinkPlaceholder = "[linked message]"

// linkPattern matches the transport's canonical message-link format,
// including the ptb/canary frontends and the legacy discordapp domain.
var linkPattern = regexp.MustCompile(`https://(?:(?:ptb|canary)\.)?discord(?:app)?\.com/channels/(\d+)/(\d+)/(\d+)`)

// MessageLink is one parsed inline cross-channel message link.
type MessageLink struct {
	Raw       string
	GuildID   string
	ChannelID string
	MessageID string
}

// FindMessageLink returns the first message link in text, or nil.
func FindMessageLink(text string) *MessageLink {
	m := linkPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return &MessageLink{Raw: m[0], GuildID: m[1], ChannelID: m[2], MessageID: m[3]}
}
