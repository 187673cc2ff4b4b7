package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamx/internal/repositories"
	"github.com/desertthunder/jamx/internal/resolver"
	"github.com/desertthunder/jamx/internal/services"
	"github.com/desertthunder/jamx/internal/shared"
	"github.com/desertthunder/jamx/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Endpoints overrides the base URLs of the external APIs. Empty fields use the public services.
type Endpoints struct {
	Slack   string
	Spotify string
	Odesli  string
	Qobuz   string
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	endpoints  Endpoints
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Endpoints  Endpoints
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = services.NewHTTPClient()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		endpoints:  opts.Endpoints,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, backfillCommand, resolveCommand, spotifyCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// load resolves the config file and environment before any command runs.
func (r *Runner) load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")

	config, err := shared.ResolveConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config

	if err := shared.ParseLogLevel(r.logger, config.Log.Level); err != nil {
		return ctx, err
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	r.logger.Debug("configuration loaded", "path", r.configPath, "spotify", config.SpotifyConfigured(), "dry_run", config.Sync.DryRun)
	return ctx, nil
}

// SetLogger replaces the runner's logger, e.g. while a TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) slackClient() *services.SlackClient {
	return services.NewSlackClient(services.SlackOpts{
		BotToken:      r.config.Slack.BotToken,
		BaseURL:       r.endpoints.Slack,
		HTTPClient:    r.httpClient,
		HistoryPacing: r.config.Sync.HistoryPacing.Duration,
	})
}

// spotifyClient returns nil when the Spotify credentials or playlist are missing.
func (r *Runner) spotifyClient() *services.SpotifyClient {
	if !r.config.SpotifyConfigured() {
		return nil
	}
	cfg := r.config.Credentials.Spotify
	return services.NewSpotifyClient(services.SpotifyOpts{
		Credentials: services.NewTokenManager(cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken, r.httpClient),
		PlaylistID:  cfg.PlaylistID,
		HTTPClient:  r.httpClient,
		BaseURL:     r.endpoints.Spotify,
		Logger:      shared.WithLogger(r.logger, "component", "spotify"),
	})
}

// mutator returns the playlist mutator for spotify, or nil when spotify is nil.
//
// In dry-run mode additions are only logged.
func (r *Runner) mutator(spotify *services.SpotifyClient, dryRun bool) tasks.Mutator {
	if spotify == nil {
		return nil
	}
	if dryRun {
		return tasks.NewDryRunMutator(r.logger)
	}
	return spotify
}

func (r *Runner) chain() *resolver.Chain {
	return resolver.Default(resolver.Options{
		Lookup:     services.NewOdesliClient(r.endpoints.Odesli, r.httpClient),
		HTTPClient: r.httpClient,
		Logger:     shared.WithLogger(r.logger, "component", "resolver"),
	})
}

func (r *Runner) openRepository() (*sql.DB, *repositories.AdditionRepository, error) {
	db, err := repositories.Open(r.config.Database.Path, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err != nil {
		return nil, nil, err
	}
	return db, repositories.NewAdditionRepository(db), nil
}

// openHistory opens the addition history database.
//
// With no database path configured it returns a nil db and recorder.
func (r *Runner) openHistory() (*sql.DB, tasks.Recorder, error) {
	if r.config.Database.Path == "" {
		return nil, nil, nil
	}

	db, repo, err := r.openRepository()
	if err != nil {
		return nil, nil, err
	}
	return db, repositories.NewHistoryRecorder(repo), nil
}

// saveTokens stores the refresh token from token in the config file.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
