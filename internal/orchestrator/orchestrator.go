// Package orchestrator coordinates one inbound event through duplicate
// detection, mention and active-conversation resolution, reference
// resolution and the authorization gate, then hands approved interactions
// to the response pipeline.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/halcyonlabs/personagate/internal/auth"
	"github.com/halcyonlabs/personagate/internal/bus"
	"github.com/halcyonlabs/personagate/internal/channels"
	"github.com/halcyonlabs/personagate/internal/dedupe"
	"github.com/halcyonlabs/personagate/internal/mention"
	"github.com/halcyonlabs/personagate/internal/personality"
	"github.com/halcyonlabs/personagate/internal/reference"
	"github.com/halcyonlabs/personagate/internal/store"
)

// DefaultProxyDelay is how long a guild message waits for a possible proxy
// re-post before dispatch.
const DefaultProxyDelay = 2 * time.Second

// linkedPreviewLen bounds spliced link content in the resolved output.
const linkedPreviewLen = 500

// PersonalityLookup extends the directory with id lookups, which the
// pipeline needs to materialize reply and active-conversation targets.
type PersonalityLookup interface {
	personality.Directory
	GetByID(ctx context.Context, id string) (*personality.Personality, error)
}

// DispatchRequest is an approved interaction handed downstream.
type DispatchRequest struct {
	Message     *bus.Message
	Personality *personality.Personality
	Content     string
	Reference   reference.Result
	AuthContext auth.Context
}

// Dispatcher is the downstream response pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) error
}

// DispatchFunc adapts a function to the Dispatcher interface.
type DispatchFunc func(ctx context.Context, req DispatchRequest) error

func (f DispatchFunc) Dispatch(ctx context.Context, req DispatchRequest) error {
	return f(ctx, req)
}

// ProxyWebhookFunc decides whether a webhook message comes from an
// identity-proxy system. Injected so the heuristic can evolve independently
// of the pipeline.
type ProxyWebhookFunc func(msg *bus.Message) bool

// Config wires the orchestrator's collaborators.
type Config struct {
	Dedupe         *dedupe.Tracker
	Mentions       *mention.Resolver
	References     *reference.Resolver
	Auth           store.AuthStore
	Personalities  PersonalityLookup
	Transport      channels.Transport
	Dispatcher     Dispatcher
	IsProxyWebhook ProxyWebhookFunc
	Conversations  *ActiveConversations

	// ProxyDelay is the supersession wait for guild messages. Zero picks
	// the default; negative disables the delay (used by tests).
	ProxyDelay time.Duration

	// ReportFailure notifies the originating channel about an internal
	// failure. Optional.
	ReportFailure func(ctx context.Context, msg *bus.Message)
}

// Orchestrator is the top-level coordinator for inbound events.
type Orchestrator struct {
	cfg    Config
	tracer trace.Tracer
}

// New creates an orchestrator, filling unset options with defaults.
func New(cfg Config) *Orchestrator {
	if cfg.ProxyDelay == 0 {
		cfg.ProxyDelay = DefaultProxyDelay
	}
	if cfg.IsProxyWebhook == nil {
		cfg.IsProxyWebhook = func(*bus.Message) bool { return false }
	}
	if cfg.Conversations == nil {
		cfg.Conversations = NewActiveConversations(0, nil)
	}
	return &Orchestrator{cfg: cfg, tracer: otel.Tracer("personagate/orchestrator")}
}

// Run consumes inbound events from the bus until the context is cancelled.
// Each event is handled on its own goroutine so a proxy-delay wait never
// stalls the rest of the stream; per-event panics are recovered so one bad
// message cannot take the loop down.
func (o *Orchestrator) Run(ctx context.Context, b *bus.MessageBus) {
	slog.Info("interaction orchestrator started")
	for {
		msg, ok := b.ConsumeInbound(ctx)
		if !ok {
			slog.Info("interaction orchestrator stopped")
			return
		}
		go o.handleSafely(ctx, msg)
	}
}

func (o *Orchestrator) handleSafely(ctx context.Context, msg bus.Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic handling inbound event",
				"channel_id", msg.ChannelID, "message_id", msg.ID, "panic", r)
			if o.cfg.ReportFailure != nil {
				o.cfg.ReportFailure(ctx, &msg)
			}
		}
	}()

	outcome := o.HandleInboundEvent(ctx, &msg)
	if outcome.Kind == KindFailed {
		slog.Error("inbound event failed",
			"channel_id", msg.ChannelID, "message_id", msg.ID, "error", outcome.Err)
		if o.cfg.ReportFailure != nil {
			o.cfg.ReportFailure(ctx, &msg)
		}
	}
}

// HandleInboundEvent runs one event through the full pipeline and returns
// the decision.
func (o *Orchestrator) HandleInboundEvent(ctx context.Context, msg *bus.Message) Outcome {
	ctx, span := o.tracer.Start(ctx, "orchestrator.handle",
		trace.WithAttributes(
			attribute.String("channel.id", msg.ChannelID),
			attribute.String("message.id", msg.ID),
			attribute.String("channel.kind", msg.ChannelKind),
		))
	defer span.End()

	isProxy := false
	if msg.IsWebhook() {
		if !o.cfg.IsProxyWebhook(msg) {
			// Ordinary bot webhook traffic is not ours to answer.
			return ignored()
		}
		isProxy = true
	}

	// Duplicate gate before tracking, so a message never compares against
	// itself.
	if o.cfg.Dedupe.IsNearDuplicate(msg.ChannelID, msg.ID, msg.Content) {
		slog.Debug("suppressing near-duplicate",
			"channel_id", msg.ChannelID, "message_id", msg.ID, "proxy", isProxy)
		span.SetAttributes(attribute.Bool("suppressed", true))
		return suppressed()
	}
	o.cfg.Dedupe.Track(msg.ChannelID, msg.ID, msg.Content)

	// Target resolution: explicit mention wins, then reply attribution,
	// then the channel's active conversation.
	match := o.cfg.Mentions.Resolve(ctx, msg.AuthorID, msg.Content)
	activeID := o.cfg.Conversations.Lookup(msg.ChannelID)

	refs := o.cfg.References.Resolve(ctx, msg, match != nil || activeID != "")

	target, err := o.resolveTarget(ctx, match, refs, activeID)
	if err != nil {
		return failed(err)
	}
	if target == nil {
		return ignored()
	}

	// Guild messages wait out the proxy-delay window, then are re-fetched:
	// a vanished message was superseded by a proxy re-post and is
	// abandoned silently. DMs skip this (proxying does not occur there);
	// a proxy re-post is already the replacement.
	if !msg.IsDM() && !isProxy {
		if outcome, proceed := o.awaitSupersession(ctx, msg); !proceed {
			return outcome
		}
	}

	actx := auth.Context{
		ChannelKind:   channelKind(msg),
		ChannelID:     msg.ChannelID,
		NsfwChannel:   msg.NsfwChannel,
		ProxyMessage:  isProxy,
		PersonalityID: target.ID,
	}

	agg, err := o.cfg.Auth.FindByIdentity(ctx, msg.AuthorID)
	if err != nil {
		return failed(fmt.Errorf("load auth aggregate: %w", err))
	}
	if decision := auth.Authorize(agg, target, actx); !decision.Allowed {
		slog.Debug("interaction denied",
			"user_id", msg.AuthorID, "personality", target.ID, "reason", decision.Reason)
		span.SetAttributes(attribute.String("deny.reason", string(decision.Reason)))
		return unauthorized(decision.Reason)
	}

	content := resolvedContent(refs)

	o.cfg.Dedupe.MarkHandled(msg.ChannelID, msg.ID)
	if err := o.cfg.Dispatcher.Dispatch(ctx, DispatchRequest{
		Message:     msg,
		Personality: target,
		Content:     content,
		Reference:   refs,
		AuthContext: actx,
	}); err != nil {
		return failed(fmt.Errorf("dispatch to %s: %w", target.ID, err))
	}
	o.cfg.Conversations.Activate(msg.ChannelID, target.ID)

	slog.Info("interaction dispatched",
		"channel_id", msg.ChannelID, "message_id", msg.ID,
		"user_id", msg.AuthorID, "personality", target.ID)
	span.SetAttributes(attribute.String("personality.id", target.ID))
	return dispatched(target, content)
}

// resolveTarget picks the addressed personality, if any.
func (o *Orchestrator) resolveTarget(ctx context.Context, match *mention.Match, refs reference.Result, activeID string) (*personality.Personality, error) {
	if match != nil {
		return match.Personality, nil
	}
	if refs.Reply != nil && refs.Reply.PersonalityID != "" {
		p, err := o.cfg.Personalities.GetByID(ctx, refs.Reply.PersonalityID)
		if err != nil {
			return nil, fmt.Errorf("lookup reply personality: %w", err)
		}
		if p != nil {
			return p, nil
		}
	}
	if activeID != "" {
		p, err := o.cfg.Personalities.GetByID(ctx, activeID)
		if err != nil {
			return nil, fmt.Errorf("lookup active personality: %w", err)
		}
		return p, nil
	}
	return nil, nil
}

// awaitSupersession waits the proxy delay and re-fetches the message.
// Returns proceed=false with the final outcome when the interaction must
// stop here.
func (o *Orchestrator) awaitSupersession(ctx context.Context, msg *bus.Message) (Outcome, bool) {
	if o.cfg.ProxyDelay < 0 {
		return Outcome{}, true
	}

	timer := time.NewTimer(o.cfg.ProxyDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ignored(), false
	case <-timer.C:
	}

	if _, err := o.cfg.Transport.FetchMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		if errors.Is(err, channels.ErrNotFound) {
			slog.Debug("message superseded during proxy delay, abandoning",
				"channel_id", msg.ChannelID, "message_id", msg.ID)
			return suppressed(), false
		}
		// Transport hiccup on re-fetch: proceed, dedupe still protects us.
		slog.Debug("proxy-delay refetch failed",
			"channel_id", msg.ChannelID, "message_id", msg.ID, "error", err)
	}
	return Outcome{}, true
}

// resolvedContent folds the spliced link context into the outgoing text.
// Reply context travels as a structured Chain for prompt assembly.
func resolvedContent(refs reference.Result) string {
	content := refs.Content
	if refs.Linked != nil {
		author := refs.Linked.AuthorName
		if author == "" {
			author = refs.Linked.AuthorID
		}
		content = fmt.Sprintf("%s\n[Linked message from %s: %s]",
			content, author, channels.Truncate(refs.Linked.Content, linkedPreviewLen))
	}
	return content
}

func channelKind(msg *bus.Message) auth.ChannelKind {
	switch msg.ChannelKind {
	case bus.KindDM:
		return auth.ChannelDM
	case bus.KindThread:
		return auth.ChannelThread
	default:
		return auth.ChannelGuild
	}
}
