package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/jamx/internal/ledger"
	"github.com/desertthunder/jamx/internal/server"
	"github.com/desertthunder/jamx/internal/shared"
	"github.com/desertthunder/jamx/internal/tasks"
	"github.com/urfave/cli/v3"
)

const (
	channelLookupTimeout = 10 * time.Second
	shutdownTimeout      = 10 * time.Second
)

// Serve runs the Slack events webhook until SIGINT or SIGTERM.
//
// Startup fails when the music channel cannot be found. Without Spotify
// credentials the server still runs and answers every link with a
// "not configured" reply.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slack := r.slackClient()

	lookupCtx, cancel := context.WithTimeout(ctx, channelLookupTimeout)
	channelID, err := slack.ResolveChannelID(lookupCtx, r.config.Slack.ChannelName)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to resolve #%s: %w", r.config.Slack.ChannelName, err)
	}
	r.logger.Info("watching channel", "name", r.config.Slack.ChannelName, "id", channelID)

	spotify := r.spotifyClient()
	if spotify == nil {
		r.logger.Warn("spotify is not configured, links will not be added")
	}
	mutator := r.mutator(spotify, r.config.Sync.DryRun)
	if r.config.Sync.DryRun {
		r.logger.Warn("dry run enabled, tracks will not be added")
	}

	db, recorder, err := r.openHistory()
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	dedup := ledger.New(r.config.Sync.DedupTTL.Duration)
	sweeper := ledger.NewSweeper(dedup, r.config.Sync.SweepInterval.Duration, shared.WithLogger(r.logger, "component", "ledger"))
	sweeper.Start(ctx)
	defer sweeper.Stop()

	chain := r.chain()

	pipeline := tasks.NewPipeline(tasks.PipelineOpts{
		Resolver: chain,
		Mutator:  mutator,
		Ledger:   dedup,
		Feedback: tasks.NewChatFeedback(slack, shared.WithLogger(r.logger, "component", "feedback")),
		Recorder: recorder,
		Logger:   shared.WithLogger(r.logger, "component", "pipeline"),
	})

	if r.config.Sync.ScanExistingOnStartup && mutator != nil {
		backfill := tasks.NewBackfill(tasks.BackfillOpts{
			Channel:     slack,
			Playlist:    spotify,
			PlaylistID:  spotify.PlaylistID(),
			Resolver:    chain,
			Mutator:     mutator,
			Ledger:      dedup,
			Recorder:    recorder,
			TrackPacing: r.config.Sync.TrackPacing.Duration,
			Logger:      shared.WithLogger(r.logger, "component", "backfill"),
		})
		go func() {
			if _, err := backfill.Run(ctx, channelID, nil); err != nil {
				r.logger.Error("startup backfill failed", "error", err)
			}
		}()
	}

	events := server.NewEventsHandler(r.config.Slack.SigningSecret, channelID, pipeline, shared.WithLogger(r.logger, "component", "events"))
	router := server.NewRouter(r.logger, events, server.HealthHandler{})
	srv := server.New(r.config.Server.Addr(), router, r.logger)

	serverErrors := make(chan error, 1)
	go func() { serverErrors <- srv.Start() }()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}
	events.Wait()

	r.logger.Info("shutdown complete")
	return nil
}
