// Package config loads environment variables and provides a typed Config used across the bot.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (IRC nick and token), use ValidateChatReady.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/onnwee/metasepia/alias"
)

const (
	DefaultCommandPrefix     = "!"
	DefaultHTTPAddr          = ":8080"
	DefaultTopicPollInterval = 60 * time.Second
	DefaultShutdownTimeout   = 5 * time.Second
	DefaultCommandTimeout    = 5 * time.Second
)

type Config struct {
	// Chat transport
	IRCNick       string
	IRCOAuthToken string
	IRCAddress    string
	IRCTLS        bool

	// Channels whose topic drives session tracking.
	TrackedChannels []string

	// Commands
	CommandPrefix      string
	SilentDestinations []string
	AliasesFile        string
	Aliases            []alias.Group
	// CommandTimeout bounds the session lookups behind one command.
	CommandTimeout time.Duration

	// Database
	DBDsn string

	// HTTP status endpoint
	HTTPAddr string

	// Twitch Helix (title polling)
	TwitchClientID     string
	TwitchClientSecret string
	TopicPollInterval  time.Duration

	ShutdownTimeout time.Duration
}

// Load reads environment variables and applies defaults. It doesn't fail if chat creds are missing;
// use ValidateChatReady() when the bot must connect. Malformed values are errors.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.IRCNick = firstEnv("IRC_NICK", "TWITCH_BOT_USERNAME")
	cfg.IRCOAuthToken = firstEnv("IRC_OAUTH_TOKEN", "TWITCH_OAUTH_TOKEN")
	cfg.IRCAddress = os.Getenv("IRC_ADDRESS")
	cfg.IRCTLS = true
	if v := os.Getenv("IRC_TLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid IRC_TLS: %w", err)
		}
		cfg.IRCTLS = b
	}

	cfg.TrackedChannels = SplitList(firstEnv("TRACKED_CHANNELS", "TWITCH_CHANNEL"))

	cfg.CommandPrefix = os.Getenv("COMMAND_PREFIX")
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = DefaultCommandPrefix
	}
	cfg.SilentDestinations = SplitList(os.Getenv("SILENT_DESTINATIONS"))

	cfg.AliasesFile = os.Getenv("ALIASES_FILE")
	if cfg.AliasesFile != "" {
		groups, err := LoadAliases(cfg.AliasesFile)
		if err != nil {
			return nil, err
		}
		cfg.Aliases = groups
	} else {
		cfg.Aliases = ParseInlineAliases(os.Getenv("ALIASES"))
	}

	// DB; empty lets db.Connect apply its default.
	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}

	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")

	var err error
	if cfg.TopicPollInterval, err = durationEnv("TOPIC_POLL_INTERVAL", DefaultTopicPollInterval); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT: must be positive")
	}
	if cfg.CommandTimeout, err = durationEnv("COMMAND_TIMEOUT", DefaultCommandTimeout); err != nil {
		return nil, err
	}
	if cfg.CommandTimeout <= 0 {
		return nil, errors.New("invalid COMMAND_TIMEOUT: must be positive")
	}

	return cfg, nil
}

// ValidateChatReady checks the fields needed to connect to chat.
func (c *Config) ValidateChatReady() error {
	if c.IRCNick == "" || c.IRCOAuthToken == "" {
		return fmt.Errorf("missing chat env: require IRC_NICK, IRC_OAUTH_TOKEN")
	}
	if len(c.TrackedChannels) == 0 {
		return fmt.Errorf("missing chat env: require TRACKED_CHANNELS")
	}
	return nil
}

// HelixEnabled reports whether title polling can authenticate.
func (c *Config) HelixEnabled() bool {
	return c.TwitchClientID != "" && c.TwitchClientSecret != "" && c.TopicPollInterval > 0
}

type aliasFile struct {
	Aliases [][]string `yaml:"aliases"`
}

// LoadAliases reads alias groups from a YAML file of the form:
//
//	aliases:
//	  - [arch, a, a-]
//	  - [skwid, squid]
func LoadAliases(path string) ([]alias.Group, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases file: %w", err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse aliases file %s: %w", path, err)
	}
	groups := make([]alias.Group, 0, len(f.Aliases))
	for _, g := range f.Aliases {
		if len(g) > 0 {
			groups = append(groups, alias.Group(g))
		}
	}
	return groups, nil
}

// ParseInlineAliases parses "a,b;c,d" into groups {a,b} and {c,d}.
func ParseInlineAliases(v string) []alias.Group {
	var groups []alias.Group
	for _, part := range strings.Split(v, ";") {
		if names := SplitList(part); len(names) > 0 {
			groups = append(groups, alias.Group(names))
		}
	}
	return groups
}

// SplitList splits a comma separated list, trimming blanks.
func SplitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}
	return d, nil
}
