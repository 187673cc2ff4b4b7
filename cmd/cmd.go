// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the Slack webhook server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Listen for Slack events and add linked tracks to the playlist",
		Action: r.Serve,
	}
}

// backfillCommand adds every track linked in the channel's history
func backfillCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "backfill",
		Usage: "Scan the channel history and add every linked track",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show live progress in an interactive view",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Resolve and log tracks without adding them",
			},
		},
		Action: r.Backfill,
	}
}

// resolveCommand runs links through the resolver chain
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve music links to Spotify track IDs",
		ArgsUsage: "<url>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "qobuz-search",
				Usage: "Search Spotify by artist and title for Qobuz links",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Maximum links resolved at once",
				Value: 4,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Resolve,
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authorize jamx and save a refresh token",
				Action: r.SpotifyAuth,
			},
			{
				Name:   "check",
				Usage:  "Verify credentials and the target playlist",
				Action: r.SpotifyCheck,
			},
		},
	}
}

// historyCommand lists recent additions
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show tracks recently added to the playlist",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of additions to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "Write the additions to a file instead (csv, markdown, text)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Export file path (default: additions.<ext>)",
			},
		},
		Action: r.History,
	}
}

// setupCommand creates the config file and database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the history database",
		Action: r.Setup,
	}
}
