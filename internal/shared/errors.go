package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrInvalidState   = fmt.Errorf("invalid oauth state")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// API and service errors
	ErrNetwork            = fmt.Errorf("network failure")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrChannelNotFound    = fmt.Errorf("channel not found")
	ErrSlackAPI           = fmt.Errorf("slack API error")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Webhook errors
	ErrMissingSignature = fmt.Errorf("missing request signature")
	ErrInvalidSignature = fmt.Errorf("invalid request signature")
	ErrStaleTimestamp   = fmt.Errorf("request timestamp outside tolerance")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
