package auth

// ChannelKind classifies where an inbound event originated.
type ChannelKind string

const (
	ChannelDM     ChannelKind = "dm"
	ChannelGuild  ChannelKind = "guild"
	ChannelThread ChannelKind = "thread"
)

// Context is the immutable snapshot of channel, proxy and NSFW facts for one
// inbound event. Constructed once per event, read-only afterwards.
type Context struct {
	ChannelKind   ChannelKind
	ChannelID     string
	NsfwChannel   bool
	ProxyMessage  bool
	PersonalityID string
}
