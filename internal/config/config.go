// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	DiscordToken  string
	DatabasePath  string
	LogLevel      string
	CommandPrefix string
	AllowedGuilds []uint64

	ActivityDebounce      time.Duration
	ActivityFreshness     time.Duration
	ActivitySweepInterval time.Duration

	DMRatePerSec            int
	MaxConcurrentCandidates int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is required")
	}

	cfg := &Config{
		DiscordToken:  token,
		DatabasePath:  envOr("DATABASE_PATH", "./data/bot.db"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		CommandPrefix: envOr("COMMAND_PREFIX", "n!"),
	}

	if raw := os.Getenv("ALLOWED_GUILDS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			gid, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid guild ID %q in ALLOWED_GUILDS: %w", s, err)
			}
			cfg.AllowedGuilds = append(cfg.AllowedGuilds, gid)
		}
	}

	var err error
	if cfg.ActivityDebounce, err = durationEnv("ACTIVITY_DEBOUNCE", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ActivityFreshness, err = durationEnv("ACTIVITY_FRESHNESS", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ActivitySweepInterval, err = durationEnv("ACTIVITY_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DMRatePerSec, err = intEnv("DM_RATE_PER_SEC", 5); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentCandidates, err = intEnv("MAX_CONCURRENT_CANDIDATES", 10); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsGuildAllowed checks whether a guild ID is in the allow list.
// Returns true if the allow list is empty (all guilds permitted).
func (c *Config) IsGuildAllowed(guildID uint64) bool {
	if len(c.AllowedGuilds) == 0 {
		return true
	}
	for _, id := range c.AllowedGuilds {
		if id == guildID {
			return true
		}
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%s must be at least 1, got %d", key, n)
	}
	return n, nil
}
