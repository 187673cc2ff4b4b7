package models

import (
	"errors"
	"time"
)

// Model defines the base interface for persisted entities.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// AppendOnlyRepository defines data access for entities that are inserted once and never modified.
type AppendOnlyRepository[T Model] interface {
	Create(model T) error                // Create inserts a new model into the database
	Get(id string) (T, error)            // Get retrieves a model by its ID
	List(limit int) ([]T, error)         // List returns the newest models first, at most limit of them
	CountSince(t time.Time) (int, error) // CountSince counts models created at or after t
}

// Source records which code path added a track.
type Source string

const (
	SourceMessage  Source = "message"
	SourceBackfill Source = "backfill"
)

// Addition is a track added to the playlist.
type Addition struct {
	id        string
	trackID   string
	channel   string
	messageTS string
	source    Source
	addedAt   time.Time
}

var _ Model = (*Addition)(nil)

// NewAddition creates an [Addition] stamped with the current time. The ID is assigned on insert.
func NewAddition(trackID, channel, messageTS string, source Source) *Addition {
	if source == "" {
		source = SourceMessage
	}
	return &Addition{
		trackID:   trackID,
		channel:   channel,
		messageTS: messageTS,
		source:    source,
		addedAt:   time.Now().UTC(),
	}
}

func (a *Addition) ID() string           { return a.id }
func (a *Addition) TrackID() string      { return a.trackID }
func (a *Addition) Channel() string      { return a.channel }
func (a *Addition) MessageTS() string    { return a.messageTS }
func (a *Addition) Source() Source       { return a.source }
func (a *Addition) AddedAt() time.Time   { return a.addedAt }
func (a *Addition) CreatedAt() time.Time { return a.addedAt }

// SetID sets the identifier; used by repositories.
func (a *Addition) SetID(id string) { a.id = id }

// SetAddedAt overrides the addition time; used by repositories when loading rows.
func (a *Addition) SetAddedAt(t time.Time) { a.addedAt = t }

// Validate requires a track ID.
func (a *Addition) Validate() error {
	if a.trackID == "" {
		return errors.New("track id is required")
	}
	return nil
}

// URI returns the Spotify URI of the added track.
func (a *Addition) URI() string {
	return "spotify:track:" + a.trackID
}
