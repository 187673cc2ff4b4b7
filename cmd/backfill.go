package main

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jamx/internal/ledger"
	"github.com/desertthunder/jamx/internal/shared"
	"github.com/desertthunder/jamx/internal/tasks"
	"github.com/desertthunder/jamx/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/jamx-backfill.log"

// Backfill scans the music channel's history and adds every linked track that is not already in the playlist.
func (r *Runner) Backfill(ctx context.Context, cmd *cli.Command) error {
	if r.config.Slack.BotToken == "" {
		return fmt.Errorf("%w: slack.bot_token (SLACK_BOT_TOKEN) is required", shared.ErrMissingCredentials)
	}
	dryRun := cmd.Bool("dry-run") || r.config.Sync.DryRun

	if cmd.Bool("tui") {
		// Redirect logs to file to avoid interfering with TUI rendering
		fileLogger, err := shared.NewFileLogger(tuiLogPath)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		fileLogger.SetLevel(r.logger.GetLevel())
		r.SetLogger(fileLogger)
	}

	slack := r.slackClient()

	lookupCtx, cancel := context.WithTimeout(ctx, channelLookupTimeout)
	channelID, err := slack.ResolveChannelID(lookupCtx, r.config.Slack.ChannelName)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to resolve #%s: %w", r.config.Slack.ChannelName, err)
	}

	db, recorder, err := r.openHistory()
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	opts := tasks.BackfillOpts{
		Channel:     slack,
		Resolver:    r.chain(),
		Ledger:      ledger.New(r.config.Sync.DedupTTL.Duration),
		Recorder:    recorder,
		TrackPacing: r.config.Sync.TrackPacing.Duration,
		Logger:      shared.WithLogger(r.logger, "component", "backfill"),
	}
	if spotify := r.spotifyClient(); spotify != nil {
		opts.Playlist = spotify
		opts.PlaylistID = spotify.PlaylistID()
		opts.Mutator = r.mutator(spotify, dryRun)
	}
	backfill := tasks.NewBackfill(opts)

	run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.BackfillResult, error) {
		return backfill.Run(ctx, channelID, progress)
	}

	if cmd.Bool("tui") {
		return r.backfillTUI(ctx, run, dryRun)
	}
	return r.backfillPlain(ctx, run, dryRun)
}

func (r *Runner) backfillTUI(ctx context.Context, run ui.RunFunc, dryRun bool) error {
	model := ui.NewModel(ctx, run, dryRun)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if m, ok := final.(*ui.Model); ok {
		if _, err := m.Result(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) backfillPlain(ctx context.Context, run ui.RunFunc, dryRun bool) error {
	if dryRun {
		r.writePlain("%s\n", ui.Warn("Dry run: tracks will be resolved but not added"))
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if update.Phase == tasks.Complete {
				continue
			}
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := run(ctx, progress)
	close(progress)
	wg.Wait()

	if err != nil {
		return err
	}

	r.writePlainln("%s", ui.OK("✓ Backfill complete"))
	r.writePlain("%s\n", result)
	if result.Failed > 0 {
		r.writePlain("%s\n", ui.Warn(fmt.Sprintf("%d tracks failed; see the log for details", result.Failed)))
	}
	return nil
}
