package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamx/internal/links"
	"github.com/desertthunder/jamx/internal/models"
	"github.com/desertthunder/jamx/internal/shared"
	"golang.org/x/time/rate"
)

const defaultTrackPacing = 100 * time.Millisecond

// ChannelReader reads the text of every message in a channel.
type ChannelReader interface {
	FetchChannelMessages(ctx context.Context, channelID string) ([]string, error)
}

// PlaylistReader lists the tracks already in a playlist.
type PlaylistReader interface {
	PlaylistTrackIDs(ctx context.Context, playlistID string) (map[string]struct{}, error)
}

// BackfillResult summarises a backfill run.
type BackfillResult struct {
	Messages int // messages scanned
	URLs     int // links found
	Resolved int // links that resolved to a track
	Added    int
	Skipped  int // already in the playlist or added recently
	Failed   int
}

func (r *BackfillResult) String() string {
	return fmt.Sprintf("%d messages scanned, %d links, %d resolved, %d added, %d skipped, %d failed",
		r.Messages, r.URLs, r.Resolved, r.Added, r.Skipped, r.Failed)
}

// BackfillOpts configures a [Backfill].
type BackfillOpts struct {
	Channel     ChannelReader
	Playlist    PlaylistReader
	PlaylistID  string
	Resolver    Resolver
	Mutator     Mutator
	Ledger      Ledger
	Recorder    Recorder
	TrackPacing time.Duration
	Logger      *log.Logger
}

// Backfill adds every track linked in a channel's history to the playlist.
type Backfill struct {
	channel    ChannelReader
	playlist   PlaylistReader
	playlistID string
	resolver   Resolver
	mutator    Mutator
	ledger     Ledger
	recorder   Recorder
	pacing     *rate.Limiter
	logger     *log.Logger
}

// NewBackfill creates a [Backfill] from opts. A nil Playlist skips the existing-track check.
func NewBackfill(opts BackfillOpts) *Backfill {
	if opts.TrackPacing <= 0 {
		opts.TrackPacing = defaultTrackPacing
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &Backfill{
		channel:    opts.Channel,
		playlist:   opts.Playlist,
		playlistID: opts.PlaylistID,
		resolver:   opts.Resolver,
		mutator:    opts.Mutator,
		ledger:     opts.Ledger,
		recorder:   opts.Recorder,
		pacing:     rate.NewLimiter(rate.Every(opts.TrackPacing), 1),
		logger:     opts.Logger,
	}
}

// Run scans channelID and adds every resolved track that is neither in the
// playlist nor live in the ledger. Failures on individual tracks are counted,
// not returned.
func (b *Backfill) Run(ctx context.Context, channelID string, progress chan<- ProgressUpdate) (*BackfillResult, error) {
	if b.mutator == nil {
		return nil, fmt.Errorf("%w: spotify is not configured", shared.ErrServiceUnavailable)
	}

	b.logger.Info("starting backfill", "channel", channelID)
	sendProgress(progress, fetchHistoryUpdate(channelID))

	texts, err := b.channel.FetchChannelMessages(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel history: %w", err)
	}
	sendProgress(progress, fetchedHistoryUpdate(len(texts)))

	existing := map[string]struct{}{}
	if b.playlist != nil {
		sendProgress(progress, fetchPlaylistUpdate(b.playlistID))
		existing, err = b.playlist.PlaylistTrackIDs(ctx, b.playlistID)
		if err != nil {
			return nil, fmt.Errorf("failed to read playlist: %w", err)
		}
		sendProgress(progress, fetchedPlaylistUpdate(len(existing)))
	}

	var urls []string
	for _, text := range texts {
		urls = append(urls, links.Extract(text)...)
	}

	result := &BackfillResult{Messages: len(texts), URLs: len(urls)}
	seen := make(map[string]struct{})

	for i, u := range urls {
		step := i + 1
		sendProgress(progress, resolveUpdate(step, len(urls), u))

		trackID, ok := b.resolver.Resolve(ctx, u)
		if !ok {
			continue
		}
		result.Resolved++

		if _, dup := seen[trackID]; dup {
			continue
		}
		seen[trackID] = struct{}{}

		if err := b.pacing.Wait(ctx); err != nil {
			return result, err
		}

		if _, inPlaylist := existing[trackID]; inPlaylist || b.ledger.IsDuplicate(trackID) {
			result.Skipped++
			sendProgress(progress, skippedUpdate(step, len(urls), trackID))
			continue
		}

		if err := b.mutator.AddTrack(ctx, trackID); err != nil {
			b.logger.Warn("failed to add track during backfill", "track", trackID, "error", err)
			result.Failed++
			sendProgress(progress, failedUpdate(step, len(urls), trackID, err))
			continue
		}

		b.ledger.RecordAdded(trackID)
		result.Added++
		sendProgress(progress, addedUpdate(step, len(urls), trackID))

		if b.recorder != nil {
			if err := b.recorder.RecordAddition(trackID, channelID, "", models.SourceBackfill); err != nil {
				b.logger.Warn("failed to record addition", "track", trackID, "error", err)
			}
		}
	}

	b.logger.Info("backfill complete", "messages", result.Messages, "resolved", result.Resolved, "added", result.Added, "skipped", result.Skipped, "failed", result.Failed)
	sendProgress(progress, completeUpdate(result))
	return result, nil
}
