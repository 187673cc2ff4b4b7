package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/desertthunder/jamx/internal/shared"
)

// SpotifyError classifies a failed call to the Spotify Web API.
//
// Kind is one of [shared.ErrNetwork], [shared.ErrAuthFailed], [shared.ErrRateLimited]
// or [shared.ErrAPIRequest], so callers can match with [errors.Is].
type SpotifyError struct {
	Kind       error
	StatusCode int
	Body       string
	RetryAfter time.Duration
	Err        error
}

func (e *SpotifyError) Error() string {
	switch {
	case errors.Is(e.Kind, shared.ErrRateLimited):
		return fmt.Sprintf("%v: retry after %ds", e.Kind, e.RetryAfterSeconds())
	case e.StatusCode != 0:
		return fmt.Sprintf("%v: status %d: %s", e.Kind, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

func (e *SpotifyError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// RetryAfterSeconds is the server's wait hint, rounded up to whole seconds.
func (e *SpotifyError) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

func networkError(err error) *SpotifyError {
	return &SpotifyError{Kind: shared.ErrNetwork, Err: err}
}

func authError(status int, body string, err error) *SpotifyError {
	return &SpotifyError{Kind: shared.ErrAuthFailed, StatusCode: status, Body: body, Err: err}
}

func rateLimitError(wait time.Duration) *SpotifyError {
	return &SpotifyError{Kind: shared.ErrRateLimited, StatusCode: 429, RetryAfter: wait}
}

func apiError(status int, body string) *SpotifyError {
	return &SpotifyError{Kind: shared.ErrAPIRequest, StatusCode: status, Body: body}
}

// asSpotifyError converts a transport error from [APIService.Do] into a Network error.
func asSpotifyError(err error) *SpotifyError {
	var se *SpotifyError
	if errors.As(err, &se) {
		return se
	}
	return networkError(err)
}
