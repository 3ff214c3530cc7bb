// SPDX-License-Identifier: MIT

// Package config loads daemon configuration with precedence ENV > file > defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the full daemon configuration.
type Config struct {
	// Push-service and enrichment API surface.
	ServiceID string // Census service id credential, required
	StreamURL string // websocket endpoint of the push service
	CensusURL string // base URL of the enrichment REST API

	// Platforms to connect; each gets its own stream connector.
	Platforms []string
	// World ids to subscribe to ("all" is accepted by the upstream service).
	Worlds []string

	// Subscriber registry (sqlite).
	RegistryPath string

	// Optional redis enrichment cache; empty addr selects the in-memory cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Notification sink.
	WebhookBase string // base URL for destination webhooks, required
	SendRate    float64
	SendBurst   int

	// Stream reconnect behaviour.
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	StabilityWindow time.Duration

	// Operations HTTP server.
	ListenAddr string

	LogLevel string
}

// KnownPlatforms are the platform slugs the push service partitions events by.
var KnownPlatforms = []string{"pc", "ps4us", "ps4eu"}

func defaults() *Config {
	return &Config{
		StreamURL:       "wss://push.planetside2.com/streaming",
		CensusURL:       "https://census.daybreakgames.com",
		Platforms:       []string{"pc"},
		Worlds:          []string{"all"},
		RegistryPath:    "auraxd.db",
		CacheTTL:        15 * time.Minute,
		SendRate:        5,
		SendBurst:       10,
		BackoffBase:     time.Second,
		BackoffCap:      5 * time.Minute,
		StabilityWindow: 60 * time.Second,
		ListenAddr:      ":8080",
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// process environment, in ascending precedence. Validation failures are the
// only fatal startup condition in the daemon.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ServiceID = ParseString("AURAXD_SERVICE_ID", cfg.ServiceID)
	cfg.StreamURL = ParseString("AURAXD_STREAM_URL", cfg.StreamURL)
	cfg.CensusURL = ParseString("AURAXD_CENSUS_URL", cfg.CensusURL)
	cfg.Platforms = ParseStringList("AURAXD_PLATFORMS", cfg.Platforms)
	cfg.Worlds = ParseStringList("AURAXD_WORLDS", cfg.Worlds)
	cfg.RegistryPath = ParseString("AURAXD_REGISTRY_PATH", cfg.RegistryPath)
	cfg.RedisAddr = ParseString("AURAXD_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = ParseString("AURAXD_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = ParseInt("AURAXD_REDIS_DB", cfg.RedisDB)
	cfg.CacheTTL = ParseDuration("AURAXD_CACHE_TTL", cfg.CacheTTL)
	cfg.WebhookBase = ParseString("AURAXD_WEBHOOK_BASE", cfg.WebhookBase)
	cfg.SendRate = float64(ParseInt("AURAXD_SEND_RATE", int(cfg.SendRate)))
	cfg.SendBurst = ParseInt("AURAXD_SEND_BURST", cfg.SendBurst)
	cfg.BackoffBase = ParseDuration("AURAXD_BACKOFF_BASE", cfg.BackoffBase)
	cfg.BackoffCap = ParseDuration("AURAXD_BACKOFF_CAP", cfg.BackoffCap)
	cfg.StabilityWindow = ParseDuration("AURAXD_STABILITY_WINDOW", cfg.StabilityWindow)
	cfg.ListenAddr = ParseString("AURAXD_LISTEN", cfg.ListenAddr)
	cfg.LogLevel = ParseString("AURAXD_LOG_LEVEL", cfg.LogLevel)
}

// Validate checks the invariants that must hold before the daemon starts.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServiceID) == "" {
		return fmt.Errorf("AURAXD_SERVICE_ID is required")
	}
	if strings.TrimSpace(c.WebhookBase) == "" {
		return fmt.Errorf("AURAXD_WEBHOOK_BASE is required")
	}
	if _, err := url.Parse(c.WebhookBase); err != nil {
		return fmt.Errorf("invalid webhook base URL %q: %w", c.WebhookBase, err)
	}
	if strings.TrimSpace(c.RegistryPath) == "" {
		return fmt.Errorf("registry path is empty")
	}
	if u, err := url.Parse(c.StreamURL); err != nil {
		return fmt.Errorf("invalid stream URL %q: %w", c.StreamURL, err)
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported stream URL scheme %q", u.Scheme)
	}
	if u, err := url.Parse(c.CensusURL); err != nil {
		return fmt.Errorf("invalid census base URL %q: %w", c.CensusURL, err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported census base URL scheme %q", u.Scheme)
	}
	if len(c.Platforms) == 0 {
		return fmt.Errorf("at least one platform is required")
	}
	for _, p := range c.Platforms {
		if !knownPlatform(p) {
			return fmt.Errorf("unknown platform %q (known: %s)", p, strings.Join(KnownPlatforms, ", "))
		}
	}
	if c.BackoffBase <= 0 || c.BackoffCap < c.BackoffBase {
		return fmt.Errorf("invalid backoff bounds: base=%s cap=%s", c.BackoffBase, c.BackoffCap)
	}
	return nil
}

func knownPlatform(p string) bool {
	for _, k := range KnownPlatforms {
		if k == p {
			return true
		}
	}
	return false
}
