package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/jamx/internal/models"
	"github.com/desertthunder/jamx/internal/shared"
)

const defaultListLimit = 20

// AdditionRepository implements [models.AppendOnlyRepository] for [models.Addition].
type AdditionRepository struct {
	db *sql.DB
}

var _ models.AppendOnlyRepository[*models.Addition] = (*AdditionRepository)(nil)

// NewAdditionRepository creates a new [AdditionRepository] with the given database connection
func NewAdditionRepository(db *sql.DB) *AdditionRepository {
	return &AdditionRepository{db: db}
}

// Create inserts an addition with a generated ID
func (r *AdditionRepository) Create(a *models.Addition) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO additions (id, track_id, channel, message_ts, source, added_at) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, id, a.TrackID(), a.Channel(), a.MessageTS(), string(a.Source()), a.AddedAt().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert addition: %w", err)
	}

	a.SetID(id)
	return nil
}

// Get retrieves an addition by ID
func (r *AdditionRepository) Get(id string) (*models.Addition, error) {
	query := `
		SELECT id, track_id, channel, message_ts, source, added_at
		FROM additions
		WHERE id = ?
	`

	a, err := scanAddition(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("addition not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query addition: %w", err)
	}
	return a, nil
}

// List returns the most recent additions first. A non-positive limit uses 20.
func (r *AdditionRepository) List(limit int) ([]*models.Addition, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, track_id, channel, message_ts, source, added_at
		FROM additions
		ORDER BY added_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query additions: %w", err)
	}
	defer rows.Close()

	var additions []*models.Addition
	for rows.Next() {
		a, err := scanAddition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan addition: %w", err)
		}
		additions = append(additions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating additions: %w", err)
	}

	return additions, nil
}

// CountSince counts additions made at or after t
func (r *AdditionRepository) CountSince(t time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM additions WHERE added_at >= ?`, t.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count additions: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddition(row rowScanner) (*models.Addition, error) {
	var (
		id        string
		trackID   string
		channel   string
		messageTS string
		source    string
		addedAt   time.Time
	)

	if err := row.Scan(&id, &trackID, &channel, &messageTS, &source, &addedAt); err != nil {
		return nil, err
	}

	a := models.NewAddition(trackID, channel, messageTS, models.Source(source))
	a.SetID(id)
	a.SetAddedAt(addedAt)
	return a, nil
}
