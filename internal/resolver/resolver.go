package resolver

import (
	"context"
	"net/http"
	"regexp"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jamx/internal/services"
	"github.com/desertthunder/jamx/internal/shared"
)

var (
	spotifyTrackPattern = regexp.MustCompile(`open\.spotify\.com/track/([a-zA-Z0-9]+)`)
	spotifyEmbedPattern = regexp.MustCompile(`open\.spotify\.com/(?:embed/)?track/([a-zA-Z0-9]+)`)
	qobuzTrackPattern   = regexp.MustCompile(`open\.qobuz\.com/track/([a-zA-Z0-9]+)`)
)

// SpotifyTrackID extracts the track ID from an open.spotify.com track URL.
func SpotifyTrackID(s string) (string, bool) {
	return firstGroup(spotifyTrackPattern, s)
}

// QobuzTrackID extracts the track ID from an open.qobuz.com track URL.
func QobuzTrackID(s string) (string, bool) {
	return firstGroup(qobuzTrackPattern, s)
}

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// Verdict is a strategy's decision about a candidate.
type Verdict int

const (
	// Continue hands the candidate to the next strategy.
	Continue Verdict = iota
	// Resolved stops the chain with a track ID.
	Resolved
	// Abandon stops the chain without a track ID.
	Abandon
)

func (v Verdict) String() string {
	switch v {
	case Resolved:
		return "resolved"
	case Abandon:
		return "abandon"
	default:
		return "continue"
	}
}

// Candidate is the link being resolved. Strategies may rewrite URL; Original never changes.
type Candidate struct {
	Original string
	URL      string
}

// Strategy is one step of the resolution chain.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, c *Candidate) (string, Verdict)
}

// LinkLookup maps a music URL to its equivalents on other platforms.
type LinkLookup interface {
	Links(ctx context.Context, musicURL string) (*services.OdesliLinks, error)
}

// MetadataSource reads artist and title for a Qobuz track.
type MetadataSource interface {
	TrackMetadata(ctx context.Context, trackID string) (*services.TrackMetadata, error)
}

// TrackSearcher finds a Spotify track by artist and title.
type TrackSearcher interface {
	SearchTrack(ctx context.Context, artist, title string) (string, bool, error)
}

// Chain runs strategies in order; the first one that does not return [Continue] decides.
type Chain struct {
	strategies []Strategy
	logger     *log.Logger
}

// New creates a [Chain] from strategies in the order given.
func New(logger *log.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Chain{strategies: strategies, logger: logger}
}

// Options configures [Default].
type Options struct {
	Lookup     LinkLookup
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Default builds the standard chain backed by opts.Lookup.
func Default(opts Options) *Chain {
	return New(opts.Logger,
		DirectMatch{},
		SecondaryPlatform{},
		NewAliasNormalizer(),
		NewShortLinkExpander(opts.HTTPClient),
		CrossPlatformLookup{Lookup: opts.Lookup},
	)
}

// WithMetadataSearch returns a copy of c with m placed directly before the
// Qobuz short-circuit, or appended when c has none.
func (c *Chain) WithMetadataSearch(m *MetadataSearch) *Chain {
	strategies := make([]Strategy, 0, len(c.strategies)+1)
	inserted := false
	for _, s := range c.strategies {
		if _, ok := s.(SecondaryPlatform); ok && !inserted {
			strategies = append(strategies, m)
			inserted = true
		}
		strategies = append(strategies, s)
	}
	if !inserted {
		strategies = append(strategies, m)
	}
	return &Chain{strategies: strategies, logger: c.logger}
}

// Strategies reports the names of the chain's strategies in order.
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the Spotify track ID for rawURL, or false when no strategy could produce one.
func (c *Chain) Resolve(ctx context.Context, rawURL string) (string, bool) {
	cand := &Candidate{Original: rawURL, URL: rawURL}

	for _, s := range c.strategies {
		id, verdict := s.Attempt(ctx, cand)
		switch verdict {
		case Resolved:
			c.logger.Debug("resolved", "url", rawURL, "strategy", s.Name(), "track", id)
			return id, true
		case Abandon:
			c.logger.Debug("abandoned", "url", rawURL, "strategy", s.Name())
			return "", false
		}
	}

	c.logger.Debug("unresolved", "url", rawURL, "tried", cand.URL)
	return "", false
}
