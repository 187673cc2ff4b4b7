package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/jamx/internal/formatter"
	"github.com/desertthunder/jamx/internal/shared"
	"github.com/desertthunder/jamx/internal/ui"
	"github.com/urfave/cli/v3"
)

type historyEntry struct {
	ID        string    `json:"id"`
	TrackID   string    `json:"track_id"`
	URI       string    `json:"uri"`
	Channel   string    `json:"channel"`
	MessageTS string    `json:"message_ts,omitempty"`
	Source    string    `json:"source"`
	AddedAt   time.Time `json:"added_at"`
}

// History lists the most recent additions recorded in the database.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if r.config.Database.Path == "" {
		return fmt.Errorf("%w: database.path is empty, history is disabled", shared.ErrInvalidConfig)
	}

	db, repo, err := r.openRepository()
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	additions, err := repo.List(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if name := cmd.String("export"); name != "" {
		format, err := formatter.ParseFormat(name)
		if err != nil {
			return err
		}
		path, err := formatter.WriteExport(additions, format, cmd.String("output"))
		if err != nil {
			return err
		}
		r.writePlain("%s\n", ui.OK(fmt.Sprintf("✓ Exported %d additions to %s", len(additions), path)))
		return nil
	}

	if cmd.Bool("json") {
		entries := make([]historyEntry, 0, len(additions))
		for _, a := range additions {
			entries = append(entries, historyEntry{
				ID:        a.ID(),
				TrackID:   a.TrackID(),
				URI:       a.URI(),
				Channel:   a.Channel(),
				MessageTS: a.MessageTS(),
				Source:    string(a.Source()),
				AddedAt:   a.AddedAt(),
			})
		}
		return r.writeJSON(entries, true)
	}

	lastDay, err := repo.CountSince(time.Now().Add(-24 * time.Hour))
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Title("Recent additions"))
	r.writePlain("%s\n", ui.AdditionsTable(additions))
	r.writePlain("%s\n", ui.Muted(fmt.Sprintf("%d added in the last 24 hours", lastDay)))
	return nil
}
