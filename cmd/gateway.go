package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/halcyonlabs/personagate/internal/bus"
	"github.com/halcyonlabs/personagate/internal/channels/discord"
	"github.com/halcyonlabs/personagate/internal/config"
	"github.com/halcyonlabs/personagate/internal/dedupe"
	"github.com/halcyonlabs/personagate/internal/mention"
	"github.com/halcyonlabs/personagate/internal/orchestrator"
	"github.com/halcyonlabs/personagate/internal/personality"
	"github.com/halcyonlabs/personagate/internal/reference"
	"github.com/halcyonlabs/personagate/internal/store"
	"github.com/halcyonlabs/personagate/internal/store/pg"
	"github.com/halcyonlabs/personagate/internal/store/sqlite"
	"github.com/halcyonlabs/personagate/internal/tracing"
)

var echoMode bool

func gatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Run the PersonaGate gateway",
		Run: func(cmd *cobra.Command, args []string) {
			runGateway()
		},
	}
	cmd.Flags().BoolVar(&echoMode, "echo", false, "reply with the resolved content instead of dispatching to a responder (routing dry-run)")
	return cmd
}

// openStores selects the storage backend by database mode.
func openStores(cfg *config.Config) (*store.Stores, error) {
	if cfg.IsManagedMode() {
		return pg.New(cfg.Database.PostgresDSN)
	}
	return sqlite.Open(config.ExpandHome(cfg.Database.SQLitePath))
}

// seedUserAliases loads persisted per-identity aliases into the registry.
func seedUserAliases(ctx context.Context, registry *personality.Registry, aliases store.AliasStore) error {
	all, err := aliases.ListAll(ctx)
	if err != nil {
		return err
	}
	seeded := 0
	for identity, m := range all {
		for alias, personalityID := range m {
			p, err := registry.GetByID(ctx, personalityID)
			if err != nil || p == nil {
				slog.Warn("alias points at unknown personality, skipping",
					"identity", identity, "alias", alias, "personality", personalityID)
				continue
			}
			registry.SetUserAlias(identity, alias, p)
			seeded++
		}
	}
	if seeded > 0 {
		slog.Info("user aliases loaded", "count", seeded)
	}
	return nil
}

func runGateway() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Discord.Token == "" {
		fmt.Println("No Discord bot token configured. Set PERSONAGATE_DISCORD_TOKEN and retry.")
		os.Exit(1)
	}
	if len(cfg.Personalities) == 0 {
		slog.Warn("no personalities configured, every message will be ignored", "config", cfgPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Telemetry, Version)
	if err != nil {
		slog.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	stores, err := openStores(cfg)
	if err != nil {
		slog.Error("failed to open stores", "error", err, "mode", cfg.Database.Mode)
		os.Exit(1)
	}
	defer stores.Close()

	registry := personality.NewRegistry(cfg.PersonalitySnapshot())
	if err := seedUserAliases(ctx, registry, stores.Aliases); err != nil {
		slog.Warn("alias seeding failed", "error", err)
	}

	msgBus := bus.New()

	dc, err := discord.New(cfg.Discord, msgBus)
	if err != nil {
		slog.Error("failed to initialize discord channel", "error", err)
		os.Exit(1)
	}

	attribution := reference.NewAttributionCache()
	dc.SetSentObserver(attribution.Record)

	tracker := dedupe.New(dedupe.Options{
		WindowTTL:     cfg.Pipeline.DedupeWindowDuration(),
		ProxyDelay:    cfg.Pipeline.DedupeProxyDelayDuration(),
		MaxPerChannel: cfg.Pipeline.MaxTrackedPerChannel,
	})

	orch := orchestrator.New(orchestrator.Config{
		Dedupe:         tracker,
		Mentions:       mention.New(cfg.Discord.MentionSigil, cfg.Pipeline.MaxMentionWords, registry),
		References:     reference.New(dc, registry, attribution.Lookup),
		Auth:           stores.Auth,
		Personalities:  registry,
		Transport:      dc,
		Dispatcher:     newDispatcher(msgBus, echoMode),
		IsProxyWebhook: discord.ProxyWebhookPredicate(cfg.Discord.ProxyApplicationIDs),
		Conversations:  orchestrator.NewActiveConversations(cfg.Pipeline.ConversationTTLDuration(), nil),
		ProxyDelay:     cfg.Pipeline.ProxyDelayDuration(),
		ReportFailure: func(ctx context.Context, msg *bus.Message) {
			out := bus.OutboundMessage{
				ChannelID: msg.ChannelID,
				Content:   "Something went wrong handling that message. Please try again.",
			}
			if err := dc.Send(ctx, out); err != nil {
				slog.Warn("failure notice undeliverable", "channel_id", msg.ChannelID, "error", err)
			}
		},
	})

	// Live personality reload: edits to the config file swap the roster
	// without dropping the gateway connection.
	if err := config.Watch(ctx, cfgPath, cfg, func(c *config.Config) {
		registry.Reload(c.PersonalitySnapshot())
		if err := seedUserAliases(ctx, registry, stores.Aliases); err != nil {
			slog.Warn("alias re-seed failed", "error", err)
		}
	}); err != nil {
		slog.Warn("config watcher unavailable", "error", err)
	}

	if err := dc.Start(ctx); err != nil {
		slog.Error("discord start failed", "error", err)
		os.Exit(1)
	}
	defer dc.Stop(context.Background())

	mode := "standalone"
	if cfg.IsManagedMode() {
		mode = "managed"
	}
	slog.Info("personagate gateway starting",
		"version", Version,
		"mode", mode,
		"personalities", len(cfg.Personalities),
		"echo", echoMode,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orch.Run(ctx, msgBus)
		return nil
	})
	g.Go(func() error {
		tracker.Run(ctx, cfg.Pipeline.SweepIntervalDuration())
		return nil
	})
	g.Go(func() error {
		for {
			out, ok := msgBus.ConsumeOutbound(ctx)
			if !ok {
				return nil
			}
			if err := dc.Send(ctx, out); err != nil {
				slog.Warn("outbound send failed", "channel_id", out.ChannelID, "error", err)
			}
		}
	})

	if err := g.Wait(); err != nil {
		slog.Error("gateway error", "error", err)
		os.Exit(1)
	}
	slog.Info("personagate gateway stopped")
}
