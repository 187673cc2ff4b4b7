// Qobuz track metadata lookup
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/jamx/internal/shared"
)

const (
	qobuzBaseURL = "https://www.qobuz.com/api.json/0.2"
	qobuzAppID   = "712109809"
	qobuzOrigin  = "https://open.qobuz.com"
)

type named struct {
	Name string `json:"name"`
}

type qobuzTrack struct {
	Title      string  `json:"title"`
	Performer  *named  `json:"performer"`
	Performers []named `json:"performers"`
	Album      *struct {
		Artist *named `json:"artist"`
	} `json:"album"`
	Composer *named `json:"composer"`
}

// artist walks performer, performers[0], album.artist and composer in that order.
func (t qobuzTrack) artist() string {
	candidates := []*named{t.Performer}
	if len(t.Performers) > 0 {
		candidates = append(candidates, &t.Performers[0])
	}
	if t.Album != nil {
		candidates = append(candidates, t.Album.Artist)
	}
	candidates = append(candidates, t.Composer)

	for _, c := range candidates {
		if c != nil && c.Name != "" {
			return c.Name
		}
	}
	return ""
}

// TrackMetadata is the artist and title of a track on a metadata-only platform.
type TrackMetadata struct {
	Artist string
	Title  string
}

// QobuzClient reads public track metadata from Qobuz.
type QobuzClient struct {
	api   *APIService
	appID string
}

// NewQobuzClient creates a [QobuzClient]. An empty baseURL uses the public API.
func NewQobuzClient(baseURL string, client *http.Client) *QobuzClient {
	if baseURL == "" {
		baseURL = qobuzBaseURL
	}
	api := NewAPIService(baseURL, client).
		WithHeader("Origin", qobuzOrigin).
		WithHeader("Referer", qobuzOrigin+"/")
	return &QobuzClient{api: api, appID: qobuzAppID}
}

// TrackMetadata returns the artist and title for trackID.
//
// Both must be present; otherwise [shared.ErrTrackNotFound] is returned.
func (c *QobuzClient) TrackMetadata(ctx context.Context, trackID string) (*TrackMetadata, error) {
	resp, err := c.api.Get(ctx, "/track/get", url.Values{"track_id": {trackID}, "app_id": {c.appID}})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: qobuz status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var track qobuzTrack
	if err := resp.Decode(&track); err != nil {
		return nil, err
	}

	meta := &TrackMetadata{Artist: track.artist(), Title: track.Title}
	if meta.Artist == "" || meta.Title == "" {
		return nil, fmt.Errorf("%w: qobuz track %s has no artist or title", shared.ErrTrackNotFound, trackID)
	}
	return meta, nil
}
