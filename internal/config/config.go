// Package config holds the PersonaGate runtime configuration: the Discord
// connection, the interaction pipeline tuning knobs, the personality roster
// and the storage backend. Secrets are never read from the config file,
// only from environment variables.
package config

import (
	"sync"
	"time"

	"github.com/halcyonlabs/personagate/internal/personality"
)

// Config is the root configuration.
type Config struct {
	Discord       DiscordConfig             `json:"discord"`
	Pipeline      PipelineConfig            `json:"pipeline,omitempty"`
	Personalities []personality.Personality `json:"personalities,omitempty"`
	Database      DatabaseConfig            `json:"database,omitempty"`
	Telemetry     TelemetryConfig           `json:"telemetry,omitempty"`
	mu            sync.RWMutex
}

// DiscordConfig configures the Discord transport.
// Token is NEVER read from the config file (secret), only from env
// PERSONAGATE_DISCORD_TOKEN.
type DiscordConfig struct {
	Token        string `json:"-"`
	MentionSigil string `json:"mention_sigil,omitempty"` // default "&"

	// ProxyApplicationIDs lists webhook application ids that should still
	// count as identity-proxy traffic. Most proxy systems post with no
	// application id at all; this covers the exceptions.
	ProxyApplicationIDs []string `json:"proxy_application_ids,omitempty"`
}

// PipelineConfig tunes the interaction pipeline. All durations are Go
// duration strings ("10s", "5m"); zero values mean "use default".
type PipelineConfig struct {
	ProxyDelay           string `json:"proxy_delay,omitempty"`            // default "2s"
	DedupeWindow         string `json:"dedupe_window,omitempty"`          // default "5m"
	DedupeProxyDelay     string `json:"dedupe_proxy_delay,omitempty"`     // default "10s"
	MaxTrackedPerChannel int    `json:"max_tracked_per_channel,omitempty"` // default 50
	SweepInterval        string `json:"sweep_interval,omitempty"`         // default "1m"
	ConversationTTL      string `json:"conversation_ttl,omitempty"`       // default "10m"
	MaxMentionWords      int    `json:"max_mention_words,omitempty"`      // default 4
}

// DatabaseConfig selects the storage backend.
// PostgresDSN is NEVER read from the config file (secret), only from env
// PERSONAGATE_POSTGRES_DSN.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`
	Mode        string `json:"mode,omitempty"`        // "standalone" (default) or "managed"
	SQLitePath  string `json:"sqlite_path,omitempty"` // default ~/.personagate/personagate.db
}

// TelemetryConfig configures OpenTelemetry trace export to an
// OTLP-compatible backend.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`     // e.g. "localhost:4317"
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plaintext transport, local dev only
	ServiceName string            `json:"service_name,omitempty"` // default "personagate"
	Headers     map[string]string `json:"headers,omitempty"`      // extra OTLP headers (auth tokens)
}

// IsManagedMode returns true when the gateway runs against Postgres.
func (c *Config) IsManagedMode() bool {
	return c.Database.Mode == "managed" && c.Database.PostgresDSN != ""
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
// Used by the config watcher on live reload.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Discord = src.Discord
	c.Pipeline = src.Pipeline
	c.Personalities = src.Personalities
	c.Database = src.Database
	c.Telemetry = src.Telemetry
}

// PersonalitySnapshot returns a copy of the current roster.
func (c *Config) PersonalitySnapshot() []personality.Personality {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]personality.Personality, len(c.Personalities))
	copy(out, c.Personalities)
	return out
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ProxyDelayDuration returns the supersession wait for guild messages.
func (p PipelineConfig) ProxyDelayDuration() time.Duration {
	return parseDuration(p.ProxyDelay, 2*time.Second)
}

// DedupeWindowDuration returns how long tracked messages are retained.
func (p PipelineConfig) DedupeWindowDuration() time.Duration {
	return parseDuration(p.DedupeWindow, 5*time.Minute)
}

// DedupeProxyDelayDuration returns the near-duplicate comparison horizon.
func (p PipelineConfig) DedupeProxyDelayDuration() time.Duration {
	return parseDuration(p.DedupeProxyDelay, 10*time.Second)
}

// SweepIntervalDuration returns how often expired entries are swept.
func (p PipelineConfig) SweepIntervalDuration() time.Duration {
	return parseDuration(p.SweepInterval, time.Minute)
}

// ConversationTTLDuration returns how long a channel conversation stays
// active without a new interaction.
func (p PipelineConfig) ConversationTTLDuration() time.Duration {
	return parseDuration(p.ConversationTTL, 10*time.Minute)
}
