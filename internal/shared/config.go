package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Slack       SlackConfig       `toml:"slack"`
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Sync        SyncConfig        `toml:"sync"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
}

// SlackConfig contains the bot credentials and the watched channel.
type SlackConfig struct {
	BotToken      string `toml:"bot_token"`
	SigningSecret string `toml:"signing_secret"`
	ChannelName   string `toml:"channel_name"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the target playlist.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	PlaylistID   string `toml:"playlist_id"`
	RedirectURI  string `toml:"redirect_uri"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SyncConfig controls the sync pipeline and its pacing.
type SyncConfig struct {
	DryRun                bool     `toml:"dry_run"`
	ScanExistingOnStartup bool     `toml:"scan_existing_on_startup"`
	DedupTTL              Duration `toml:"dedup_ttl"`
	SweepInterval         Duration `toml:"sweep_interval"`
	TrackPacing           Duration `toml:"track_pacing"`
	HistoryPacing         Duration `toml:"history_pacing"`
}

// DatabaseConfig contains database connection settings.
//
// An empty path disables the addition history.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a [time.Duration] that reads and writes as a string ("1h", "100ms") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Update stores the refresh token from a completed authorization code exchange.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.RefreshToken == "" {
		return ErrNoRefreshToken
	}
	s.RefreshToken = token.RefreshToken
	return nil
}

// SpotifyConfigured reports whether every value needed to add tracks to the playlist is present.
func (c *Config) SpotifyConfigured() bool {
	s := c.Credentials.Spotify
	return s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != "" && s.PlaylistID != ""
}

// Validate checks the settings required to serve the Slack webhook.
func (c *Config) Validate() error {
	if c.Slack.BotToken == "" {
		return fmt.Errorf("%w: slack.bot_token (SLACK_BOT_TOKEN) is required", ErrMissingCredentials)
	}
	if c.Slack.SigningSecret == "" {
		return fmt.Errorf("%w: slack.signing_secret (SLACK_SIGNING_SECRET) is required", ErrMissingCredentials)
	}
	if c.Slack.ChannelName == "" {
		return fmt.Errorf("%w: slack.channel_name is empty", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("%w: server.port must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the configuration back to path, replacing its contents.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto the config.
//
// lookup is usually [os.LookupEnv]; empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("SLACK_BOT_TOKEN", &c.Slack.BotToken)
	str("SLACK_SIGNING_SECRET", &c.Slack.SigningSecret)
	str("MUSIC_CHANNEL_NAME", &c.Slack.ChannelName)
	str("SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID)
	str("SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret)
	str("SPOTIFY_REFRESH_TOKEN", &c.Credentials.Spotify.RefreshToken)
	str("SPOTIFY_PLAYLIST_ID", &c.Credentials.Spotify.PlaylistID)
	str("DATABASE_PATH", &c.Database.Path)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}

	for key, dst := range map[string]*bool{
		"DRY_RUN":                  &c.Sync.DryRun,
		"SCAN_EXISTING_ON_STARTUP": &c.Sync.ScanExistingOnStartup,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*dst = parseFlag(v)
		}
	}

	return nil
}

func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// ResolveConfig loads path when it exists, falls back to defaults otherwise,
// and applies environment overrides.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}
