// Package discord connects PersonaGate to the Discord gateway and exposes
// the transport the interaction pipeline fetches messages through.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/halcyonlabs/personagate/internal/bus"
	"github.com/halcyonlabs/personagate/internal/channels"
	"github.com/halcyonlabs/personagate/internal/config"
)

// maxMessageLen is Discord's hard limit per message.
const maxMessageLen = 2000

// Channel connects to Discord via the Bot API using gateway events.
type Channel struct {
	session   *discordgo.Session
	msgBus    *bus.MessageBus
	config    config.DiscordConfig
	isProxy   func(*bus.Message) bool
	botUserID string // populated on start
	running   atomic.Bool
	limiters  sync.Map // channelID string -> *rate.Limiter
	onSent    func(messageID, personalityID string)
}

// SetSentObserver registers a callback invoked with the id of every message
// sent on behalf of a personality. Used to feed reply attribution.
func (c *Channel) SetSentObserver(fn func(messageID, personalityID string)) {
	c.onSent = fn
}

// New creates a new Discord channel from config.
func New(cfg config.DiscordConfig, msgBus *bus.MessageBus) (*Channel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	// MessageContent is privileged but required: routing reads message text.
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Channel{
		session: session,
		msgBus:  msgBus,
		config:  cfg,
		isProxy: ProxyWebhookPredicate(cfg.ProxyApplicationIDs),
	}, nil
}

// Name identifies the transport.
func (c *Channel) Name() string { return "discord" }

// IsRunning reports whether the gateway connection is open.
func (c *Channel) IsRunning() bool { return c.running.Load() }

// Start opens the Discord gateway connection and begins receiving events.
func (c *Channel) Start(_ context.Context) error {
	slog.Info("starting discord gateway")

	c.session.AddHandler(c.handleMessageCreate)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	user, err := c.session.User("@me")
	if err != nil {
		c.session.Close()
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}
	c.botUserID = user.ID

	c.running.Store(true)
	slog.Info("discord gateway connected", "username", user.Username, "id", user.ID)
	return nil
}

// Stop closes the Discord gateway connection.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping discord gateway")
	c.running.Store(false)
	return c.session.Close()
}

// limiter returns the per-channel send limiter. Discord allows roughly five
// messages per five seconds per channel.
func (c *Channel) limiter(channelID string) *rate.Limiter {
	if l, ok := c.limiters.Load(channelID); ok {
		return l.(*rate.Limiter)
	}
	l, _ := c.limiters.LoadOrStore(channelID, rate.NewLimiter(rate.Every(time.Second), 5))
	return l.(*rate.Limiter)
}

// Send delivers an outbound message, splitting content over Discord's
// per-message length limit.
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord gateway not running")
	}
	if msg.ChannelID == "" {
		return fmt.Errorf("empty channel id for discord send")
	}

	content := msg.Content
	for len(content) > 0 {
		chunk := content
		if len(chunk) > maxMessageLen {
			// Break at a newline when one falls in the back half.
			cutAt := maxMessageLen
			if idx := lastIndexByte(content[:maxMessageLen], '\n'); idx > maxMessageLen/2 {
				cutAt = idx + 1
			}
			chunk = content[:cutAt]
			content = content[cutAt:]
		} else {
			content = ""
		}

		if err := c.limiter(msg.ChannelID).Wait(ctx); err != nil {
			return err
		}
		sent, err := c.session.ChannelMessageSend(msg.ChannelID, chunk)
		if err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
		if c.onSent != nil && msg.PersonalityID != "" {
			c.onSent(sent.ID, msg.PersonalityID)
		}
	}
	return nil
}

// FetchMessage retrieves a single message by id. Missing or inaccessible
// messages map to channels.ErrNotFound.
func (c *Channel) FetchMessage(ctx context.Context, channelID, messageID string) (*bus.Message, error) {
	m, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, channels.ErrNotFound
		}
		return nil, fmt.Errorf("fetch discord message: %w", err)
	}
	return c.toBusMessage(m), nil
}

// FetchGuild retrieves guild metadata, preferring gateway state over REST.
func (c *Channel) FetchGuild(ctx context.Context, guildID string) (*bus.Guild, error) {
	if g, err := c.session.State.Guild(guildID); err == nil {
		return &bus.Guild{ID: g.ID, Name: g.Name}, nil
	}
	g, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, channels.ErrNotFound
		}
		return nil, fmt.Errorf("fetch discord guild: %w", err)
	}
	return &bus.Guild{ID: g.ID, Name: g.Name}, nil
}

// handleMessageCreate converts gateway events and publishes them inbound.
func (c *Channel) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == c.botUserID {
		return
	}

	msg := c.toBusMessage(m.Message)

	// Bot messages only pass through as webhook traffic: those may be
	// identity-proxy re-posts the pipeline has to consider.
	if m.Author.Bot && !msg.IsWebhook() {
		return
	}

	slog.Debug("discord message received",
		"channel_id", msg.ChannelID,
		"user_id", msg.AuthorID,
		"kind", msg.ChannelKind,
		"webhook", msg.IsWebhook(),
		"preview", channels.Truncate(msg.Content, 50))

	c.msgBus.PublishInbound(*msg)
}

// isNotFound reports whether a discordgo REST error carries a 404 or 403.
func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return false
	}
	code := restErr.Response.StatusCode
	return code == http.StatusNotFound || code == http.StatusForbidden
}

// lastIndexByte returns the last index of byte b in s, or -1.
func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}
