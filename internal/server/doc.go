// Package server exposes jamx over HTTP.
//
// # Routes
//
// [NewRouter] builds a chi router with request IDs, real-IP detection, panic
// recovery and a debug access log, then mounts each [Handler] on the routes it
// reports:
//
//	POST /slack/events      [EventsHandler]
//	GET  /health            [HealthHandler]
//	GET  /spotify/callback  [OAuthHandler] (only while `jamx spotify auth` runs)
//
// # Slack events
//
// Requests are signed with the app's signing secret (see [VerifySignature]).
// A url_verification challenge is echoed back whatever the signature says.
// Everything else needs both signature headers (400 without them) and a valid
// signature no more than five minutes old (401 otherwise).
//
// Messages from bots, messages with a subtype (edits, joins) and messages in
// other channels are acknowledged and dropped. Accepted messages are handed to
// a [Processor] on a new goroutine and the request is answered with {}
// straight away, so Slack never retries because of a slow Spotify call.
//
// # OAuth callback
//
// [OAuthHandler] validates the state token, exchanges the authorization code
// and publishes the token on [OAuthHandler.Result]. It accepts one callback.
package server
