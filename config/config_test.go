package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/onnwee/metasepia/alias"
)

var allKeys = []string{
	"IRC_NICK", "TWITCH_BOT_USERNAME", "IRC_OAUTH_TOKEN", "TWITCH_OAUTH_TOKEN", "IRC_ADDRESS", "IRC_TLS",
	"TRACKED_CHANNELS", "TWITCH_CHANNEL", "COMMAND_PREFIX", "SILENT_DESTINATIONS", "ALIASES_FILE", "ALIASES",
	"DB_DSN", "HTTP_ADDR", "TWITCH_CLIENT_ID", "TWITCH_CLIENT_SECRET", "TOPIC_POLL_INTERVAL", "SHUTDOWN_TIMEOUT",
	"COMMAND_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CommandPrefix != "!" {
		t.Errorf("CommandPrefix = %q, want !", cfg.CommandPrefix)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if !cfg.IRCTLS {
		t.Error("IRCTLS = false, want true by default")
	}
	if cfg.TopicPollInterval != time.Minute {
		t.Errorf("TopicPollInterval = %v, want 1m", cfg.TopicPollInterval)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
	}
	if cfg.CommandTimeout != 5*time.Second {
		t.Errorf("CommandTimeout = %v, want 5s", cfg.CommandTimeout)
	}
	if cfg.HelixEnabled() {
		t.Error("HelixEnabled() = true without client credentials")
	}
	if len(cfg.Aliases) != 0 || len(cfg.TrackedChannels) != 0 {
		t.Errorf("unexpected lists: aliases=%v channels=%v", cfg.Aliases, cfg.TrackedChannels)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("IRC_NICK", "metasepia")
	t.Setenv("IRC_OAUTH_TOKEN", "oauth:abc")
	t.Setenv("IRC_ADDRESS", "irc.example.net:6667")
	t.Setenv("IRC_TLS", "false")
	t.Setenv("TRACKED_CHANNELS", "skwid, #other,")
	t.Setenv("COMMAND_PREFIX", ".")
	t.Setenv("SILENT_DESTINATIONS", "quiet")
	t.Setenv("ALIASES", "arch,a,a-; skwid,squid")
	t.Setenv("TWITCH_CLIENT_ID", "id")
	t.Setenv("TWITCH_CLIENT_SECRET", "secret")
	t.Setenv("TOPIC_POLL_INTERVAL", "30s")
	t.Setenv("SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("COMMAND_TIMEOUT", "750ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := &Config{
		IRCNick:            "metasepia",
		IRCOAuthToken:      "oauth:abc",
		IRCAddress:         "irc.example.net:6667",
		IRCTLS:             false,
		TrackedChannels:    []string{"skwid", "#other"},
		CommandPrefix:      ".",
		SilentDestinations: []string{"quiet"},
		Aliases:            []alias.Group{{"arch", "a", "a-"}, {"skwid", "squid"}},
		CommandTimeout:     750 * time.Millisecond,
		HTTPAddr:           ":8080",
		TwitchClientID:     "id",
		TwitchClientSecret: "secret",
		TopicPollInterval:  30 * time.Second,
		ShutdownTimeout:    2 * time.Second,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if !cfg.HelixEnabled() {
		t.Error("HelixEnabled() = false with credentials and interval")
	}
}

func TestLoadLegacyTwitchNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("TWITCH_BOT_USERNAME", "bot")
	t.Setenv("TWITCH_OAUTH_TOKEN", "oauth:token")
	t.Setenv("TWITCH_CHANNEL", "chan")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := cfg.ValidateChatReady(); err != nil {
		t.Errorf("expected valid chat config, got %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"IRC_TLS":             "maybe",
		"TOPIC_POLL_INTERVAL": "soon",
		"SHUTDOWN_TIMEOUT":    "0s",
		"COMMAND_TIMEOUT":     "-2s",
		"ALIASES_FILE":        filepath.Join(t.TempDir(), "missing.yaml"),
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q succeeded, want error", key, val)
			}
		})
	}
	t.Run("negative poll interval", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TOPIC_POLL_INTERVAL", "-1s")
		if _, err := Load(); err == nil {
			t.Error("Load() with negative interval succeeded, want error")
		}
	})
}

func TestPollIntervalZeroDisablesHelix(t *testing.T) {
	clearEnv(t)
	t.Setenv("TWITCH_CLIENT_ID", "id")
	t.Setenv("TWITCH_CLIENT_SECRET", "secret")
	t.Setenv("TOPIC_POLL_INTERVAL", "0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HelixEnabled() {
		t.Error("HelixEnabled() = true with zero poll interval")
	}
}

func TestValidateChatReady(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"complete", Config{IRCNick: "bot", IRCOAuthToken: "tok", TrackedChannels: []string{"c"}}, false},
		{"missing nick", Config{IRCOAuthToken: "tok", TrackedChannels: []string{"c"}}, true},
		{"missing token", Config{IRCNick: "bot", TrackedChannels: []string{"c"}}, true},
		{"missing channels", Config{IRCNick: "bot", IRCOAuthToken: "tok"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.ValidateChatReady(); (err != nil) != tt.wantErr {
				t.Errorf("ValidateChatReady() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAliasesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	content := "aliases:\n  - [arch, a, a-]\n  - []\n  - [skwid, squid]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ALIASES_FILE", path)
	t.Setenv("ALIASES", "ignored,when;file,set")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := []alias.Group{{"arch", "a", "a-"}, {"skwid", "squid"}}
	if diff := cmp.Diff(want, cfg.Aliases); diff != "" {
		t.Errorf("aliases mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAliasesMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	if err := os.WriteFile(path, []byte("aliases: [[unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadAliases(path); err == nil {
		t.Error("LoadAliases() succeeded on malformed YAML")
	}
}

func TestParseInlineAliases(t *testing.T) {
	tests := []struct {
		in   string
		want []alias.Group
	}{
		{"", nil},
		{";;", nil},
		{"a", []alias.Group{{"a"}}},
		{"a, b ;c,d;", []alias.Group{{"a", "b"}, {"c", "d"}}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, ParseInlineAliases(tt.in)); diff != "" {
			t.Errorf("ParseInlineAliases(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
