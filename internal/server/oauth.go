package server

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/desertthunder/jamx/internal/shared"
	"golang.org/x/oauth2"
)

// CallbackPath is where Spotify redirects after the user approves jamx.
const CallbackPath = "/spotify/callback"

// OAuthResult is the outcome of one authorization code exchange.
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

// OAuthHandler completes the authorization code flow started by `jamx spotify auth`.
//
// Only the first callback is processed; later requests are rejected.
type OAuthHandler struct {
	config *oauth2.Config
	state  string
	result chan OAuthResult
	once   sync.Once

	mu  sync.Mutex
	hit bool
}

// NewOAuthHandler creates an [OAuthHandler] that expects state on the callback.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config: config,
		state:  state,
		result: make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []Route {
	path := CallbackPath
	if u, err := url.Parse(h.config.RedirectURL); err == nil && u.Path != "" {
		path = u.Path
	}
	return []Route{{Method: http.MethodGet, Pattern: path}}
}

// AuthURL is the Spotify consent page the user must visit.
func (h *OAuthHandler) AuthURL() string {
	return h.config.AuthCodeURL(h.state, oauth2.AccessTypeOffline)
}

// ServeHTTP checks state, exchanges the code for a token and publishes the result.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	q := r.URL.Query()

	if q.Get("state") != h.state {
		h.publish(OAuthResult{Err: fmt.Errorf("%w: state mismatch", shared.ErrInvalidState)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.publish(OAuthResult{Err: fmt.Errorf("%w: %s %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.publish(OAuthResult{Err: fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.publish(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, callbackPage)
}

func (h *OAuthHandler) publish(result OAuthResult) {
	h.once.Do(func() {
		h.result <- result
		close(h.result)
	})
}

// Result delivers exactly one [OAuthResult] and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.result
}

const callbackPage = `<!DOCTYPE html>
<html>
<head>
    <title>jamx is connected</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .card { text-align: center; background: white; padding: 2rem;
                border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>Spotify connected</h1>
        <p>The refresh token has been saved. You can close this tab.</p>
    </div>
</body>
</html>
`
