// Odesli (song.link) cross-platform link resolution
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/jamx/internal/shared"
)

const odesliBaseURL = "https://api.song.link/v1-alpha.1"

// OdesliLinks is the Spotify entry of an Odesli response.
//
// Raw always holds the response body so callers can fall back to scanning it
// when the structured fields are empty or the JSON did not decode.
type OdesliLinks struct {
	SpotifyURL     string
	EntityUniqueID string
	Raw            []byte
}

type odesliResponse struct {
	LinksByPlatform map[string]struct {
		URL            string `json:"url"`
		EntityUniqueID string `json:"entityUniqueId"`
	} `json:"linksByPlatform"`
}

// OdesliClient looks up equivalent links for a music URL.
type OdesliClient struct {
	api *APIService
}

// NewOdesliClient creates an [OdesliClient]. An empty baseURL uses the public API.
func NewOdesliClient(baseURL string, client *http.Client) *OdesliClient {
	if baseURL == "" {
		baseURL = odesliBaseURL
	}
	return &OdesliClient{api: NewAPIService(baseURL, client)}
}

// Links resolves musicURL through Odesli.
//
// A non-2xx status is an error. A body that is not the expected JSON is not:
// the returned links carry only Raw.
func (c *OdesliClient) Links(ctx context.Context, musicURL string) (*OdesliLinks, error) {
	resp, err := c.api.Get(ctx, "/links", url.Values{"url": {musicURL}})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: odesli status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	links := &OdesliLinks{Raw: resp.Body}

	var parsed odesliResponse
	if err := json.Unmarshal(resp.Body, &parsed); err == nil {
		if spotify, ok := parsed.LinksByPlatform["spotify"]; ok {
			links.SpotifyURL = spotify.URL
			links.EntityUniqueID = spotify.EntityUniqueID
		}
	}

	return links, nil
}
