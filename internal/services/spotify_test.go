package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/jamx/internal/shared"
)

// tokenServer counts refresh-token exchanges and returns tok-1, tok-2, ...
func tokenServer(t *testing.T, expiresIn int, status *atomic.Int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)

		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			t.Errorf("expected basic auth client:secret, got %q:%q (ok=%v)", user, pass, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh" {
			t.Errorf("unexpected form %v", r.Form)
		}

		if status != nil && status.Load() != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(int(status.Load()))
			io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":%d}`, n, expiresIn)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestTokenManager(tokenURL string) *TokenManager {
	m := NewTokenManager("client", "secret", "refresh", nil)
	m.config.Endpoint.TokenURL = tokenURL
	return m
}

func TestTokenManager(t *testing.T) {
	ctx := context.Background()

	t.Run("Caches Within Expiry Window", func(t *testing.T) {
		srv, calls := tokenServer(t, 3600, nil)
		m := newTestTokenManager(srv.URL)

		first, err := m.Token(ctx)
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		second, err := m.Token(ctx)
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}

		if first != second {
			t.Errorf("expected identical cached token, got %q and %q", first, second)
		}
		if calls.Load() != 1 {
			t.Errorf("expected exactly 1 refresh, got %d", calls.Load())
		}
	})

	t.Run("Refreshes After Expiry", func(t *testing.T) {
		srv, calls := tokenServer(t, 3600, nil)
		m := newTestTokenManager(srv.URL)

		first, err := m.Token(ctx)
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}

		later := time.Now().Add(time.Hour)
		m.now = func() time.Time { return later }

		second, err := m.Token(ctx)
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if first == second {
			t.Error("expected a new token after expiry")
		}
		if calls.Load() != 2 {
			t.Errorf("expected exactly 2 refreshes, got %d", calls.Load())
		}
	})

	t.Run("Safety Margin Applied", func(t *testing.T) {
		srv, calls := tokenServer(t, 3600, nil)
		m := newTestTokenManager(srv.URL)

		if _, err := m.Token(ctx); err != nil {
			t.Fatalf("Token() error = %v", err)
		}

		justBefore := time.Now().Add(time.Hour - 61*time.Second)
		m.now = func() time.Time { return justBefore }
		if _, err := m.Token(ctx); err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected cached token before the margin, got %d refreshes", calls.Load())
		}

		inMargin := time.Now().Add(time.Hour - 30*time.Second)
		m.now = func() time.Time { return inMargin }
		if _, err := m.Token(ctx); err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected refresh inside the final minute, got %d refreshes", calls.Load())
		}
	})

	t.Run("Invalidate Forces Refresh", func(t *testing.T) {
		srv, calls := tokenServer(t, 3600, nil)
		m := newTestTokenManager(srv.URL)

		if _, err := m.Token(ctx); err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		m.Invalidate()
		if _, err := m.Token(ctx); err != nil {
			t.Fatalf("Token() error = %v", err)
		}

		if calls.Load() != 2 {
			t.Errorf("expected 2 refreshes, got %d", calls.Load())
		}
	})

	t.Run("Rejected Refresh Is Auth Error And Leaves Cache", func(t *testing.T) {
		var status atomic.Int32
		srv, _ := tokenServer(t, 3600, &status)
		m := newTestTokenManager(srv.URL)

		cached, err := m.Token(ctx)
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}

		status.Store(http.StatusBadRequest)
		later := time.Now().Add(2 * time.Hour)
		m.now = func() time.Time { return later }

		_, err = m.Token(ctx)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}

		var se *SpotifyError
		if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
			t.Errorf("expected SpotifyError with status 400, got %#v", err)
		}

		if m.cached == nil || m.cached.token != cached {
			t.Error("expected cache to be left untouched after failed refresh")
		}
	})

	t.Run("Transport Failure Is Network Error", func(t *testing.T) {
		srv, _ := tokenServer(t, 3600, nil)
		url := srv.URL
		srv.Close()

		_, err := newTestTokenManager(url).Token(ctx)
		if !errors.Is(err, shared.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
	})

	t.Run("Concurrent Callers All Get Valid Tokens", func(t *testing.T) {
		srv, calls := tokenServer(t, 3600, nil)
		m := newTestTokenManager(srv.URL)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if tok, err := m.Token(ctx); err != nil || !strings.HasPrefix(tok, "tok-") {
					t.Errorf("Token() = %q, %v", tok, err)
				}
			}()
		}
		wg.Wait()

		if calls.Load() < 1 || calls.Load() > 8 {
			t.Errorf("expected between 1 and 8 refreshes, got %d", calls.Load())
		}
	})
}

// stubCredentials hands out a fixed token and counts invalidations.
type stubCredentials struct {
	mu           sync.Mutex
	token        string
	err          error
	tokenCalls   int
	invalidation int
}

func (s *stubCredentials) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenCalls++
	return s.token, s.err
}

func (s *stubCredentials) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidation++
}

type scriptedResponse struct {
	status     int
	retryAfter string
	body       string
}

// scriptedServer replies with each response in order, repeating the last one.
func scriptedServer(t *testing.T, script ...scriptedResponse) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		if n > len(script) {
			n = len(script)
		}
		step := script[n-1]

		if step.retryAfter != "" {
			w.Header().Set("Retry-After", step.retryAfter)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(step.status)
		io.WriteString(w, step.body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

type recordedSleeps struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
	return nil
}

func TestSpotifyClientAddTrack(t *testing.T) {
	ctx := context.Background()

	newClient := func(url string, creds Credentials, sleeps *recordedSleeps) *SpotifyClient {
		return NewSpotifyClient(SpotifyOpts{
			Credentials: creds,
			PlaylistID:  "pl1",
			BaseURL:     url,
			Sleep:       sleeps.sleep,
		})
	}

	t.Run("Request Shape", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/playlists/pl1/items" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer abc" {
				t.Errorf("expected bearer token, got %q", got)
			}

			var body addItemsRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if len(body.URIs) != 1 || body.URIs[0] != "spotify:track:abc123" {
				t.Errorf("unexpected uris %v", body.URIs)
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		client := newClient(srv.URL, &stubCredentials{token: "abc"}, &recordedSleeps{})
		if err := client.AddTrack(ctx, "abc123"); err != nil {
			t.Fatalf("AddTrack() error = %v", err)
		}
	})

	tc := []struct {
		name          string
		script        []scriptedResponse
		wantErr       error
		wantRequests  int32
		wantInvalid   int
		wantSleeps    []time.Duration
		wantRetryWait int
	}{
		{
			name:         "success first try",
			script:       []scriptedResponse{{status: 201}},
			wantRequests: 1,
		},
		{
			name:         "401 then success",
			script:       []scriptedResponse{{status: 401}, {status: 201}},
			wantRequests: 2,
			wantInvalid:  1,
		},
		{
			name:         "two 401s",
			script:       []scriptedResponse{{status: 401}, {status: 401}, {status: 201}},
			wantErr:      shared.ErrAuthFailed,
			wantRequests: 2,
			wantInvalid:  1,
		},
		{
			name:         "429 then success",
			script:       []scriptedResponse{{status: 429, retryAfter: "2"}, {status: 201}},
			wantRequests: 2,
			wantSleeps:   []time.Duration{2 * time.Second},
		},
		{
			name:          "two 429s",
			script:        []scriptedResponse{{status: 429, retryAfter: "2"}, {status: 429, retryAfter: "2"}, {status: 201}},
			wantErr:       shared.ErrRateLimited,
			wantRequests:  2,
			wantSleeps:    []time.Duration{2 * time.Second},
			wantRetryWait: 2,
		},
		{
			name:         "429 without header defaults to one second",
			script:       []scriptedResponse{{status: 429}, {status: 200}},
			wantRequests: 2,
			wantSleeps:   []time.Duration{time.Second},
		},
		{
			name:         "429 with unparseable header defaults to one second",
			script:       []scriptedResponse{{status: 429, retryAfter: "soon"}, {status: 200}},
			wantRequests: 2,
			wantSleeps:   []time.Duration{time.Second},
		},
		{
			name:         "both budgets spent independently",
			script:       []scriptedResponse{{status: 401}, {status: 429, retryAfter: "3"}, {status: 201}},
			wantRequests: 3,
			wantInvalid:  1,
			wantSleeps:   []time.Duration{3 * time.Second},
		},
		{
			name:         "rate limit then auth then auth",
			script:       []scriptedResponse{{status: 429, retryAfter: "1"}, {status: 401}, {status: 401}},
			wantErr:      shared.ErrAuthFailed,
			wantRequests: 3,
			wantInvalid:  1,
			wantSleeps:   []time.Duration{time.Second},
		},
		{
			name:         "other status is api error without retry",
			script:       []scriptedResponse{{status: 403, body: `{"error":{"status":403,"message":"Forbidden","reason":"NOT_OWNER"}}`}},
			wantErr:      shared.ErrAPIRequest,
			wantRequests: 1,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := scriptedServer(t, tt.script...)
			creds := &stubCredentials{token: "abc"}
			sleeps := &recordedSleeps{}

			err := newClient(srv.URL, creds, sleeps).AddTrack(ctx, "abc123")

			if tt.wantErr == nil && err != nil {
				t.Fatalf("AddTrack() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddTrack() error = %v, want %v", err, tt.wantErr)
			}
			if calls.Load() != tt.wantRequests {
				t.Errorf("expected %d requests, got %d", tt.wantRequests, calls.Load())
			}
			if creds.invalidation != tt.wantInvalid {
				t.Errorf("expected %d invalidations, got %d", tt.wantInvalid, creds.invalidation)
			}
			if len(sleeps.sleeps) != len(tt.wantSleeps) {
				t.Fatalf("expected sleeps %v, got %v", tt.wantSleeps, sleeps.sleeps)
			}
			for i := range tt.wantSleeps {
				if sleeps.sleeps[i] != tt.wantSleeps[i] {
					t.Errorf("sleep %d = %v, want %v", i, sleeps.sleeps[i], tt.wantSleeps[i])
				}
			}
			if tt.wantRetryWait != 0 {
				var se *SpotifyError
				if !errors.As(err, &se) || se.RetryAfterSeconds() != tt.wantRetryWait {
					t.Errorf("expected RateLimit(%d), got %v", tt.wantRetryWait, err)
				}
			}
		})
	}

	t.Run("Api Error Carries Status And Body", func(t *testing.T) {
		srv, _ := scriptedServer(t, scriptedResponse{status: 500, body: "boom"})

		err := newClient(srv.URL, &stubCredentials{token: "abc"}, &recordedSleeps{}).AddTrack(ctx, "abc123")

		var se *SpotifyError
		if !errors.As(err, &se) {
			t.Fatalf("expected *SpotifyError, got %T", err)
		}
		if se.StatusCode != 500 || se.Body != "boom" {
			t.Errorf("expected status 500 body boom, got %d %q", se.StatusCode, se.Body)
		}
	})

	t.Run("Token Failure Sends No Request", func(t *testing.T) {
		srv, calls := scriptedServer(t, scriptedResponse{status: 201})
		creds := &stubCredentials{err: authError(400, "invalid_grant", nil)}

		err := newClient(srv.URL, creds, &recordedSleeps{}).AddTrack(ctx, "abc123")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no requests, got %d", calls.Load())
		}
	})

	t.Run("Transport Failure Is Network Error", func(t *testing.T) {
		srv, _ := scriptedServer(t, scriptedResponse{status: 201})
		url := srv.URL
		srv.Close()

		err := newClient(url, &stubCredentials{token: "abc"}, &recordedSleeps{}).AddTrack(ctx, "abc123")
		if !errors.Is(err, shared.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
	})
}

func TestSpotifyClientReads(t *testing.T) {
	ctx := context.Background()

	t.Run("PlaylistTrackIDs Paginates", func(t *testing.T) {
		var offsets []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlists/pl1/items" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("limit") != "50" {
				t.Errorf("expected limit 50, got %s", r.URL.Query().Get("limit"))
			}
			offset := r.URL.Query().Get("offset")
			offsets = append(offsets, offset)

			switch offset {
			case "0":
				io.WriteString(w, `{"total":3,"items":[
					{"item":{"id":"t1","type":"track"}},
					{"item":{"id":"e1","type":"episode"}}]}`)
			default:
				io.WriteString(w, `{"total":3,"items":[{"item":{"id":"t2","type":"track"}},{"item":null}]}`)
			}
		}))
		defer srv.Close()

		client := NewSpotifyClient(SpotifyOpts{
			Credentials: &stubCredentials{token: "abc"},
			PlaylistID:  "pl1",
			BaseURL:     srv.URL,
			PagePacing:  time.Millisecond,
		})

		ids, err := client.PlaylistTrackIDs(ctx, "pl1")
		if err != nil {
			t.Fatalf("PlaylistTrackIDs() error = %v", err)
		}

		if len(ids) != 2 {
			t.Errorf("expected 2 track ids, got %v", ids)
		}
		for _, id := range []string{"t1", "t2"} {
			if _, ok := ids[id]; !ok {
				t.Errorf("expected %s in %v", id, ids)
			}
		}
		if strings.Join(offsets, ",") != "0,2" {
			t.Errorf("expected offsets 0,2, got %v", offsets)
		}
	})

	t.Run("PlaylistTrackIDs Stops On Empty Page", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			io.WriteString(w, `{"total":10,"items":[]}`)
		}))
		defer srv.Close()

		client := NewSpotifyClient(SpotifyOpts{Credentials: &stubCredentials{token: "abc"}, BaseURL: srv.URL, PagePacing: time.Millisecond})
		ids, err := client.PlaylistTrackIDs(ctx, "pl1")
		if err != nil {
			t.Fatalf("PlaylistTrackIDs() error = %v", err)
		}
		if len(ids) != 0 || calls.Load() != 1 {
			t.Errorf("expected one call and no ids, got %d calls %v", calls.Load(), ids)
		}
	})

	t.Run("SearchTrack", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("q") != `artist:"Dua \"Lipa" track:"Levitating"` {
				t.Errorf("unexpected query %q", q.Get("q"))
			}
			if q.Get("type") != "track" || q.Get("limit") != "1" {
				t.Errorf("unexpected type/limit %v", q)
			}
			io.WriteString(w, `{"tracks":{"items":[{"id":"found1"}]}}`)
		}))
		defer srv.Close()

		client := NewSpotifyClient(SpotifyOpts{Credentials: &stubCredentials{token: "abc"}, BaseURL: srv.URL})
		id, ok, err := client.SearchTrack(ctx, `Dua "Lipa`, "Levitating")
		if err != nil || !ok || id != "found1" {
			t.Errorf("SearchTrack() = %q, %v, %v", id, ok, err)
		}
	})

	t.Run("SearchTrack Failure Is Not Found", func(t *testing.T) {
		srv, _ := scriptedServer(t, scriptedResponse{status: 502})

		client := NewSpotifyClient(SpotifyOpts{Credentials: &stubCredentials{token: "abc"}, BaseURL: srv.URL})
		_, ok, err := client.SearchTrack(ctx, "a", "b")
		if err != nil || ok {
			t.Errorf("expected not found without error, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("CurrentUser And Playlist", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/me":
				io.WriteString(w, `{"id":"u1","display_name":"DJ"}`)
			case "/playlists/pl1":
				io.WriteString(w, `{"id":"pl1","name":"Jams","owner":{"id":"u1"}}`)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		client := NewSpotifyClient(SpotifyOpts{Credentials: &stubCredentials{token: "abc"}, BaseURL: srv.URL})

		user, err := client.CurrentUser(ctx)
		if err != nil || user.ID != "u1" {
			t.Fatalf("CurrentUser() = %v, %v", user, err)
		}

		pl, err := client.Playlist(ctx, "pl1")
		if err != nil || pl.Owner.ID != "u1" || pl.Name != "Jams" {
			t.Fatalf("Playlist() = %v, %v", pl, err)
		}

		if _, err := client.Playlist(ctx, "missing"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest for missing playlist, got %v", err)
		}
	})
}

func TestAuthConfig(t *testing.T) {
	cfg := AuthConfig(shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://127.0.0.1:3000/spotify/callback",
	})

	authURL := cfg.AuthCodeURL("test_state")
	if !strings.Contains(authURL, "accounts.spotify.com") {
		t.Error("auth URL should contain Spotify domain")
	}
	if !strings.Contains(authURL, "test_client_id") {
		t.Error("auth URL should contain client_id")
	}
	if !strings.Contains(authURL, "test_state") {
		t.Error("auth URL should contain state")
	}
	if !strings.Contains(authURL, "playlist-modify-private") {
		t.Error("auth URL should request playlist scopes")
	}
}
