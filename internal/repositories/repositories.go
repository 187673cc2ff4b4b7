package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/jamx/internal/shared"
)

// Open opens the SQLite database at path, applies the pool limits and runs pending migrations.
func Open(path string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}

	if maxOpen > 0 {
		shared.ConfigureDatabase(db, maxOpen, maxIdle)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
