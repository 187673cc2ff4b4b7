package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./jamx.db" {
			t.Errorf("expected database path ./jamx.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Slack.ChannelName != "jamcraft" {
			t.Errorf("expected channel jamcraft, got %s", config.Slack.ChannelName)
		}

		if config.Sync.DedupTTL.Duration != time.Hour {
			t.Errorf("expected dedup ttl 1h, got %v", config.Sync.DedupTTL)
		}

		if config.Sync.SweepInterval.Duration != 5*time.Minute {
			t.Errorf("expected sweep interval 5m, got %v", config.Sync.SweepInterval)
		}

		if config.Sync.TrackPacing.Duration != 100*time.Millisecond {
			t.Errorf("expected track pacing 100ms, got %v", config.Sync.TrackPacing)
		}

		if config.SpotifyConfigured() {
			t.Error("default config should not have spotify configured")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[slack]
bot_token = "xoxb-test"
signing_secret = "shh"

[server]
host = "127.0.0.1"
port = 8080

[sync]
dry_run = true
dedup_ttl = "30m"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
refresh_token = "test_refresh"
playlist_id = "pl1"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Addr() != "127.0.0.1:8080" {
			t.Errorf("expected addr 127.0.0.1:8080, got %s", config.Server.Addr())
		}

		if !config.Sync.DryRun {
			t.Error("expected dry_run to be true")
		}

		if config.Sync.DedupTTL.Duration != 30*time.Minute {
			t.Errorf("expected dedup ttl 30m, got %v", config.Sync.DedupTTL)
		}

		if config.Sync.SweepInterval.Duration != 5*time.Minute {
			t.Errorf("expected default sweep interval to survive, got %v", config.Sync.SweepInterval)
		}

		if config.Slack.ChannelName != "jamcraft" {
			t.Errorf("expected default channel to survive, got %s", config.Slack.ChannelName)
		}

		if !config.SpotifyConfigured() {
			t.Error("expected spotify to be configured")
		}

		if err := config.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("Invalid Duration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[sync]\ndedup_ttl = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for unparseable duration")
		}
	})

	t.Run("SaveConfig round trips", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Credentials.Spotify.RefreshToken = "saved_refresh"
		config.Sync.TrackPacing = Duration{250 * time.Millisecond}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}

		if loaded.Credentials.Spotify.RefreshToken != "saved_refresh" {
			t.Errorf("expected saved refresh token, got %q", loaded.Credentials.Spotify.RefreshToken)
		}
		if loaded.Sync.TrackPacing.Duration != 250*time.Millisecond {
			t.Errorf("expected 250ms pacing, got %v", loaded.Sync.TrackPacing)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SLACK_BOT_TOKEN":          "xoxb-env",
		"SLACK_SIGNING_SECRET":     "env-secret",
		"SPOTIFY_CLIENT_ID":        "env-id",
		"SPOTIFY_CLIENT_SECRET":    "env-secret",
		"SPOTIFY_REFRESH_TOKEN":    "env-refresh",
		"SPOTIFY_PLAYLIST_ID":      "env-playlist",
		"MUSIC_CHANNEL_NAME":       "tunes",
		"PORT":                     "4000",
		"DRY_RUN":                  "TRUE",
		"SCAN_EXISTING_ON_STARTUP": "0",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	t.Run("overrides file values", func(t *testing.T) {
		config := DefaultConfig()
		config.Sync.ScanExistingOnStartup = true

		if err := config.ApplyEnv(lookup); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}

		if config.Slack.BotToken != "xoxb-env" {
			t.Errorf("expected bot token from env, got %q", config.Slack.BotToken)
		}
		if config.Slack.ChannelName != "tunes" {
			t.Errorf("expected channel tunes, got %q", config.Slack.ChannelName)
		}
		if config.Server.Port != 4000 {
			t.Errorf("expected port 4000, got %d", config.Server.Port)
		}
		if !config.Sync.DryRun {
			t.Error("expected dry run enabled")
		}
		if config.Sync.ScanExistingOnStartup {
			t.Error("expected scan on startup disabled by env")
		}
		if !config.SpotifyConfigured() {
			t.Error("expected spotify configured from env")
		}
	})

	t.Run("invalid port", func(t *testing.T) {
		config := DefaultConfig()
		err := config.ApplyEnv(func(k string) (string, bool) {
			if k == "PORT" {
				return "eighty", true
			}
			return "", false
		})
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Validate requires slack credentials", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.Validate(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestSpotifyConfigUpdate(t *testing.T) {
	var sc SpotifyConfig

	if err := sc.Update(&oauth2.Token{AccessToken: "a"}); !errors.Is(err, ErrNoRefreshToken) {
		t.Errorf("expected ErrNoRefreshToken, got %v", err)
	}

	if err := sc.Update(&oauth2.Token{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if sc.RefreshToken != "r" {
		t.Errorf("expected refresh token r, got %q", sc.RefreshToken)
	}
}
