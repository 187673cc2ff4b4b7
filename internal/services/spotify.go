// Spotify Web API client: playlist mutation, playlist reads and search
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	playlistPageSize   = 50
	defaultRetryAfter  = time.Second
	defaultPagePacing  = 100 * time.Millisecond
	spotifyTrackPrefix = "spotify:track:"
)

// SpotifyScopes are requested by the authorization code flow.
var SpotifyScopes = []string{
	"playlist-modify-public",
	"playlist-modify-private",
	"playlist-read-private",
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Owner is the owner of a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylist represents the playlist fields used by diagnostics.
type SpotifyPlaylist struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Public        bool   `json:"public"`
	Collaborative bool   `json:"collaborative"`
	Owner         Owner  `json:"owner"`
}

type playlistItemsPage struct {
	Items []struct {
		Item *struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"item"`
	} `json:"items"`
	Total int `json:"total"`
}

type searchResponse struct {
	Tracks struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	} `json:"tracks"`
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

type addItemsRequest struct {
	URIs []string `json:"uris"`
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default [Sleeper].
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SpotifyClient adds tracks to one target playlist and reads from the Web API.
type SpotifyClient struct {
	creds      Credentials
	api        *APIService
	playlistID string
	sleep      Sleeper
	pages      *rate.Limiter
	logger     *log.Logger
}

// SpotifyOpts configures a [SpotifyClient].
type SpotifyOpts struct {
	Credentials Credentials
	PlaylistID  string
	HTTPClient  *http.Client
	BaseURL     string
	Sleep       Sleeper
	PagePacing  time.Duration
	Logger      *log.Logger
}

// NewSpotifyClient creates a [SpotifyClient] from opts, filling unset fields with defaults.
func NewSpotifyClient(opts SpotifyOpts) *SpotifyClient {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.Sleep == nil {
		opts.Sleep = SleepContext
	}
	if opts.PagePacing <= 0 {
		opts.PagePacing = defaultPagePacing
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	return &SpotifyClient{
		creds:      opts.Credentials,
		api:        NewAPIService(opts.BaseURL, opts.HTTPClient),
		playlistID: opts.PlaylistID,
		sleep:      opts.Sleep,
		pages:      rate.NewLimiter(rate.Every(opts.PagePacing), 1),
		logger:     opts.Logger,
	}
}

// NewSpotifyClientFromConfig wires a [TokenManager] and [SpotifyClient] from config.
func NewSpotifyClientFromConfig(cfg shared.SpotifyConfig, client *http.Client, logger *log.Logger) *SpotifyClient {
	return NewSpotifyClient(SpotifyOpts{
		Credentials: NewTokenManager(cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken, client),
		PlaylistID:  cfg.PlaylistID,
		HTTPClient:  client,
		Logger:      logger,
	})
}

// PlaylistID returns the target playlist.
func (c *SpotifyClient) PlaylistID() string {
	return c.playlistID
}

// addState records which one-shot retry budgets an AddTrack call has spent.
//
// A call moves from addStart through at most one auth retry and at most one
// rate-limit retry, in whichever order the failures arrive, then finishes.
type addState uint8

const (
	addStart        addState = 0
	addRetriedAuth  addState = 1 << 0
	addRetriedLimit addState = 1 << 1
)

func (s addState) spent(budget addState) bool {
	return s&budget != 0
}

func (s addState) String() string {
	switch s {
	case addStart:
		return "start"
	case addRetriedAuth:
		return "retried_auth"
	case addRetriedLimit:
		return "retried_rate_limit"
	default:
		return "retried_auth+retried_rate_limit"
	}
}

// AddTrack appends trackID to the target playlist.
//
// A 401 invalidates the cached token and retries once. A 429 waits for
// Retry-After (default 1s) and retries once. Any other failure, or a repeat of
// either, is returned as a [*SpotifyError].
func (c *SpotifyClient) AddTrack(ctx context.Context, trackID string) error {
	body, err := json.Marshal(addItemsRequest{URIs: []string{spotifyTrackPrefix + trackID}})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	path := "/playlists/" + url.PathEscape(c.playlistID) + "/items"

	state := addStart
	for {
		resp, err := c.authorized(ctx, APIRequest{Method: http.MethodPost, Path: path, Body: body})
		if err != nil {
			return err
		}

		switch {
		case resp.OK():
			return nil

		case resp.StatusCode == http.StatusUnauthorized:
			if state.spent(addRetriedAuth) {
				return authError(resp.StatusCode, string(resp.Body), nil)
			}
			c.logger.Warn("spotify rejected token, refreshing", "track", trackID, "state", state)
			c.creds.Invalidate()
			state |= addRetriedAuth

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp.Headers)
			if state.spent(addRetriedLimit) {
				return rateLimitError(wait)
			}
			c.logger.Warn("spotify rate limited, waiting", "track", trackID, "wait", wait, "state", state)
			if err := c.sleep(ctx, wait); err != nil {
				return networkError(err)
			}
			state |= addRetriedLimit

		default:
			c.logFailure(trackID, resp)
			return apiError(resp.StatusCode, string(resp.Body))
		}
	}
}

// PlaylistTrackIDs returns the IDs of every track item in playlistID.
//
// Pages of 50 are requested with fixed pacing until the reported total is reached or a page comes back empty.
func (c *SpotifyClient) PlaylistTrackIDs(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	path := "/playlists/" + url.PathEscape(playlistID) + "/items"

	for offset := 0; ; {
		if err := c.pages.Wait(ctx); err != nil {
			return nil, networkError(err)
		}

		query := url.Values{}
		query.Set("limit", strconv.Itoa(playlistPageSize))
		query.Set("offset", strconv.Itoa(offset))

		resp, err := c.authorized(ctx, APIRequest{Method: http.MethodGet, Path: path, Query: query})
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, apiError(resp.StatusCode, string(resp.Body))
		}

		var page playlistItemsPage
		if err := resp.Decode(&page); err != nil {
			return nil, networkError(err)
		}

		for _, entry := range page.Items {
			if entry.Item != nil && entry.Item.Type == "track" && entry.Item.ID != "" {
				ids[entry.Item.ID] = struct{}{}
			}
		}

		offset += len(page.Items)
		if offset >= page.Total || len(page.Items) == 0 {
			return ids, nil
		}
	}
}

// SearchTrack returns the best matching track ID for artist and title.
//
// A non-success search response is not an error; it yields ok == false.
func (c *SpotifyClient) SearchTrack(ctx context.Context, artist, title string) (string, bool, error) {
	q := fmt.Sprintf(`artist:"%s" track:"%s"`, escapeQuotes(artist), escapeQuotes(title))
	query := url.Values{}
	query.Set("q", q)
	query.Set("type", "track")
	query.Set("limit", "1")

	resp, err := c.authorized(ctx, APIRequest{Method: http.MethodGet, Path: "/search", Query: query})
	if err != nil {
		return "", false, err
	}
	if !resp.OK() {
		c.logger.Warn("spotify search failed", "status", resp.StatusCode)
		return "", false, nil
	}

	var result searchResponse
	if err := resp.Decode(&result); err != nil {
		return "", false, networkError(err)
	}
	if len(result.Tracks.Items) == 0 || result.Tracks.Items[0].ID == "" {
		return "", false, nil
	}
	return result.Tracks.Items[0].ID, true, nil
}

// CurrentUser returns the profile the refresh token belongs to.
func (c *SpotifyClient) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := c.getJSON(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Playlist returns metadata for playlistID.
func (c *SpotifyClient) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	var playlist SpotifyPlaylist
	if err := c.getJSON(ctx, "/playlists/"+url.PathEscape(playlistID), &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

func (c *SpotifyClient) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.authorized(ctx, APIRequest{Method: http.MethodGet, Path: path})
	if err != nil {
		return err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return authError(resp.StatusCode, string(resp.Body), nil)
	case !resp.OK():
		return apiError(resp.StatusCode, string(resp.Body))
	}
	if err := resp.Decode(v); err != nil {
		return networkError(err)
	}
	return nil
}

// authorized sends r with a bearer token from the credential cache.
func (c *SpotifyClient) authorized(ctx context.Context, r APIRequest) (*APIResponse, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, asSpotifyError(err)
	}

	r.Header = http.Header{"Authorization": {"Bearer " + token}}
	resp, err := c.api.Do(ctx, r)
	if err != nil {
		return nil, networkError(err)
	}
	return resp, nil
}

func (c *SpotifyClient) logFailure(trackID string, resp *APIResponse) {
	kv := []any{"status", resp.StatusCode, "playlist", c.playlistID, "track", trackID}

	var body spotifyErrorBody
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		kv = append(kv, "message", body.Error.Message)
		if body.Error.Reason != "" {
			kv = append(kv, "reason", body.Error.Reason)
		}
	}

	for key := range resp.Headers {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "x-") || strings.HasPrefix(lower, "sp-") || lower == "www-authenticate" {
			kv = append(kv, lower, resp.Headers.Get(key))
		}
	}

	c.logger.Warn("spotify add failed", kv...)
}

// retryAfter parses a Retry-After header in whole seconds, defaulting to one second.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After")))
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// AuthConfig returns the [oauth2.Config] for the authorization code flow used to mint a refresh token.
func AuthConfig(cfg shared.SpotifyConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyAuthURL,
			TokenURL:  spotifyTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}
