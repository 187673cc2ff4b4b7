package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/jamx/internal/services"
)

const (
	maxRedirects      = 5
	entityIDPrefix    = "SPOTIFY_SONG::"
	minEntityIDLength = 10
)

var errTooManyRedirects = errors.New("stopped after 5 redirects")

// DirectMatch resolves open.spotify.com track URLs without a network call.
type DirectMatch struct{}

func (DirectMatch) Name() string { return "direct" }

func (DirectMatch) Attempt(_ context.Context, c *Candidate) (string, Verdict) {
	if id, ok := SpotifyTrackID(c.URL); ok {
		return id, Resolved
	}
	return "", Continue
}

// SecondaryPlatform abandons Qobuz track URLs.
//
// Odesli has no Qobuz support, so asking it would only spend a request.
// [MetadataSearch] is the opt-in alternative.
type SecondaryPlatform struct{}

func (SecondaryPlatform) Name() string { return "qobuz-skip" }

func (SecondaryPlatform) Attempt(_ context.Context, c *Candidate) (string, Verdict) {
	if _, ok := QobuzTrackID(c.URL); ok {
		return "", Abandon
	}
	return "", Continue
}

// AliasNormalizer rewrites hosts to a form Odesli recognises.
type AliasNormalizer struct {
	Aliases map[string]string
}

// NewAliasNormalizer maps music.youtube.com to www.youtube.com; video IDs are shared.
func NewAliasNormalizer() AliasNormalizer {
	return AliasNormalizer{Aliases: map[string]string{"music.youtube.com": "www.youtube.com"}}
}

func (AliasNormalizer) Name() string { return "alias" }

func (a AliasNormalizer) Attempt(_ context.Context, c *Candidate) (string, Verdict) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", Continue
	}
	if canonical, ok := a.Aliases[strings.ToLower(u.Host)]; ok {
		u.Host = canonical
		c.URL = u.String()
	}
	return "", Continue
}

// ShortLinkExpander replaces a share short link with the URL it redirects to.
//
// Any failure leaves the candidate untouched.
type ShortLinkExpander struct {
	Hosts  []string
	Client *http.Client
}

// NewShortLinkExpander expands link.deezer.com and link.spotify.com links using a copy of client.
func NewShortLinkExpander(client *http.Client) ShortLinkExpander {
	return ShortLinkExpander{
		Hosts:  []string{"link.deezer.com", "link.spotify.com"},
		Client: redirectLimited(client),
	}
}

func redirectLimited(client *http.Client) *http.Client {
	if client == nil {
		client = services.NewHTTPClient()
	}
	limited := *client
	limited.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errTooManyRedirects
		}
		return nil
	}
	return &limited
}

func (ShortLinkExpander) Name() string { return "short-link" }

func (e ShortLinkExpander) Attempt(ctx context.Context, c *Candidate) (string, Verdict) {
	u, err := url.Parse(c.URL)
	if err != nil || !e.matches(u.Host) {
		return "", Continue
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", Continue
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return "", Continue
	}
	resp.Body.Close()

	if final := resp.Request.URL.String(); final != c.URL {
		c.URL = final
	}
	return "", Continue
}

func (e ShortLinkExpander) matches(host string) bool {
	host = strings.ToLower(host)
	for _, h := range e.Hosts {
		if host == h {
			return true
		}
	}
	return false
}

// CrossPlatformLookup asks Odesli for the Spotify equivalent of the candidate.
//
// The Spotify URL is tried first, then the entity ID, then a scan of the raw
// response body for any Spotify track link.
type CrossPlatformLookup struct {
	Lookup LinkLookup
}

func (CrossPlatformLookup) Name() string { return "odesli" }

func (l CrossPlatformLookup) Attempt(ctx context.Context, c *Candidate) (string, Verdict) {
	if l.Lookup == nil {
		return "", Continue
	}

	links, err := l.Lookup.Links(ctx, c.URL)
	if err != nil || links == nil {
		return "", Continue
	}

	if id, ok := SpotifyTrackID(links.SpotifyURL); ok {
		return id, Resolved
	}
	if id, ok := entityTrackID(links.EntityUniqueID); ok {
		return id, Resolved
	}
	if id, ok := firstGroup(spotifyEmbedPattern, string(links.Raw)); ok {
		return id, Resolved
	}
	return "", Continue
}

// entityTrackID accepts an Odesli entity ID such as "SPOTIFY_SONG::4uLU6hMCjMI75M1A2tKUQC".
// Short values are rejected as degenerate.
func entityTrackID(entityID string) (string, bool) {
	id := strings.TrimPrefix(entityID, entityIDPrefix)
	if len(id) <= minEntityIDLength {
		return "", false
	}
	return id, true
}

// MetadataSearch resolves Qobuz track URLs by searching Spotify for the track's artist and title.
type MetadataSearch struct {
	Metadata MetadataSource
	Search   TrackSearcher
}

func (*MetadataSearch) Name() string { return "qobuz-search" }

func (m *MetadataSearch) Attempt(ctx context.Context, c *Candidate) (string, Verdict) {
	trackID, ok := QobuzTrackID(c.URL)
	if !ok {
		return "", Continue
	}

	meta, err := m.Metadata.TrackMetadata(ctx, trackID)
	if err != nil {
		return "", Abandon
	}

	id, found, err := m.Search.SearchTrack(ctx, meta.Artist, meta.Title)
	if err != nil || !found {
		return "", Abandon
	}
	return id, Resolved
}
