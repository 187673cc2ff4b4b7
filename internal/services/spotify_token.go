package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// tokenSafetyMargin is subtracted from the server's expires_in so a token is
// never handed out in its final minute.
const tokenSafetyMargin = 60 * time.Second

// Credentials yields bearer tokens for the Spotify Web API.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// TokenManager caches one Spotify access token obtained from a refresh token.
//
// The mutex guards only the in-memory slot and is never held across the
// refresh request. Callers that find the slot empty or expired at the same
// time each perform their own refresh; the last one to finish wins.
type TokenManager struct {
	config       *oauth2.Config
	refreshToken string
	httpClient   *http.Client
	now          func() time.Time

	mu     sync.Mutex
	cached *cachedToken
}

var _ Credentials = (*TokenManager)(nil)

// NewTokenManager creates a [TokenManager] that exchanges refreshToken at Spotify's token endpoint.
//
// Client credentials are sent with HTTP Basic auth.
func NewTokenManager(clientID, clientSecret, refreshToken string, client *http.Client) *TokenManager {
	if client == nil {
		client = NewHTTPClient()
	}
	return &TokenManager{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyAuthURL,
				TokenURL:  spotifyTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		refreshToken: refreshToken,
		httpClient:   client,
		now:          time.Now,
	}
}

// Token returns the cached access token, refreshing it when the slot is empty or expired.
//
// A failed refresh leaves the slot untouched.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if c := m.cached; c != nil && m.now().Before(c.expiresAt) {
		token := c.token
		m.mu.Unlock()
		return token, nil
	}
	refreshToken := m.refreshToken
	m.mu.Unlock()

	fresh, err := m.exchange(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	expiresAt := m.now()
	if !fresh.Expiry.IsZero() {
		expiresAt = m.now().Add(fresh.Expiry.Sub(time.Now()) - tokenSafetyMargin)
	}

	m.mu.Lock()
	m.cached = &cachedToken{token: fresh.AccessToken, expiresAt: expiresAt}
	if fresh.RefreshToken != "" {
		m.refreshToken = fresh.RefreshToken
	}
	m.mu.Unlock()

	return fresh.AccessToken, nil
}

// Invalidate clears the cached token so the next [TokenManager.Token] call refreshes.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
}

func (m *TokenManager) exchange(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	src := m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			return nil, authError(status, string(re.Body), err)
		}
		return nil, networkError(err)
	}

	if token.AccessToken == "" {
		return nil, authError(0, "", errors.New("token response carried no access_token"))
	}
	return token, nil
}
