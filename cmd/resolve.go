package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/jamx/internal/resolver"
	"github.com/desertthunder/jamx/internal/services"
	"github.com/desertthunder/jamx/internal/shared"
	"github.com/desertthunder/jamx/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// Resolution is the outcome of resolving one link.
type Resolution struct {
	URL      string `json:"url"`
	TrackID  string `json:"track_id,omitempty"`
	URI      string `json:"uri,omitempty"`
	Resolved bool   `json:"resolved"`
}

// Resolve runs each argument through the resolver chain concurrently and prints the results in argument order.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		return fmt.Errorf("%w: at least one url is required", shared.ErrMissingArgument)
	}

	chain := r.chain()
	if cmd.Bool("qobuz-search") {
		spotify := r.spotifyClient()
		if spotify == nil {
			return fmt.Errorf("%w: --qobuz-search needs Spotify credentials", shared.ErrServiceUnavailable)
		}
		chain = chain.WithMetadataSearch(&resolver.MetadataSearch{
			Metadata: services.NewQobuzClient(r.endpoints.Qobuz, r.httpClient),
			Search:   spotify,
		})
	}
	r.logger.Debug("resolving links", "count", len(urls), "strategies", chain.Strategies())

	results := make([]Resolution, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cmd.Int("concurrency")))
	for i, u := range urls {
		g.Go(func() error {
			id, ok := chain.Resolve(gctx, u)
			results[i] = Resolution{URL: u, TrackID: id, Resolved: ok}
			if ok {
				results[i].URI = "spotify:track:" + id
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, true)
	}

	for _, res := range results {
		if res.Resolved {
			r.writePlain("%s %s\n  %s\n", ui.OK("✓"), res.URL, res.URI)
		} else {
			r.writePlain("%s %s\n  %s\n", ui.Error("✗"), res.URL, ui.Muted("not resolved"))
		}
	}
	return nil
}
