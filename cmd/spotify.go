package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/jamx/internal/server"
	"github.com/desertthunder/jamx/internal/services"
	"github.com/desertthunder/jamx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth performs the OAuth2 authorization code flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and saves the refresh token to the config file.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	token, err := r.doOAuth(ctx, services.AuthConfig(creds))
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Refresh token saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: jamx spotify check\n")

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	state := shared.GenerateID()

	oauthHandler := server.NewOAuthHandler(config, state)
	router := server.NewRouter(r.logger, oauthHandler)

	addr, err := callbackAddr(config.RedirectURL)
	if err != nil {
		return nil, err
	}
	srv := server.New(addr, router, r.logger)

	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrors <- err
		}
	}()

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}
	defer shutdown()

	authURL := oauthHandler.AuthURL()
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Err != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Err)
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// SpotifyCheck refreshes an access token, then reports the account and target playlist.
func (r *Runner) SpotifyCheck(ctx context.Context, cmd *cli.Command) error {
	spotify := r.spotifyClient()
	if spotify == nil {
		return fmt.Errorf("%w: client_id, client_secret, refresh_token and playlist_id are required", shared.ErrServiceUnavailable)
	}

	user, err := spotify.CurrentUser(ctx)
	if err != nil {
		var se *services.SpotifyError
		if errors.As(err, &se) && errors.Is(err, shared.ErrAuthFailed) {
			return fmt.Errorf("refresh token rejected (status %d), run 'jamx spotify auth': %w", se.StatusCode, err)
		}
		return err
	}
	r.writePlain("✓ Authenticated as %s (%s)\n", user.DisplayName, user.ID)

	playlist, err := spotify.Playlist(ctx, spotify.PlaylistID())
	if err != nil {
		return fmt.Errorf("failed to read playlist %s: %w", spotify.PlaylistID(), err)
	}

	r.writePlain("✓ Playlist: %s (owner %s)\n", playlist.Name, playlist.Owner.ID)
	if playlist.Owner.ID != user.ID && !playlist.Collaborative {
		r.writePlain("⚠ Playlist is owned by someone else and is not collaborative; adding will fail\n")
	}

	ids, err := spotify.PlaylistTrackIDs(ctx, spotify.PlaylistID())
	if err != nil {
		r.logger.Warn("could not read playlist items", "error", err)
		r.writePlain("- Could not read playlist items (missing playlist-read-private scope?)\n")
		return nil
	}
	r.writePlain("✓ %d tracks in playlist\n", len(ids))

	return nil
}

// callbackAddr is the host:port the redirect URL points at.
func callbackAddr(redirectURL string) (string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, redirectURL)
	}
	if u.Port() == "" {
		return u.Host + ":80", nil
	}
	return u.Host, nil
}
