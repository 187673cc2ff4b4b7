package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/jamx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the template when missing, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}

		config, err := shared.ResolveConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
		r.config = config
		r.writePlain("✓ Created %s\n", configPath)
	} else {
		r.writePlain("✓ Using existing %s\n", configPath)
	}

	if r.config.Database.Path == "" {
		r.logger.Warn("database.path is empty, addition history is disabled")
		r.writePlain("- History disabled (database.path is empty)\n")
		return nil
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, _, err := r.openRepository()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)

	if !r.config.SpotifyConfigured() {
		r.writePlainln("Next steps:")
		r.writePlain("1. Fill in [slack] and [credentials.spotify] in %s\n", configPath)
		r.writePlain("2. Run 'jamx spotify auth' to save a refresh token\n")
		r.writePlain("3. Run 'jamx spotify check' to verify the playlist\n")
	}
	return nil
}
