// Package services implements the HTTP clients jamx talks to: Spotify, Slack, Odesli and Qobuz.
//
// # Transport
//
// Every client is built on [APIService], a thin wrapper around [http.Client]
// that carries a base URL and default headers. Transport failures are wrapped
// with [shared.ErrNetwork]; callers decide what a non-2xx status means.
//
// # Spotify
//
// [SpotifyClient] adds tracks to the target playlist. Access tokens come from
// a [Credentials] implementation, normally [TokenManager], which exchanges a
// long-lived refresh token through [oauth2.Config] and caches the result
// until sixty seconds before expiry.
//
// [SpotifyClient.AddTrack] retries at most once after a 401 (after
// invalidating the cached token) and at most once after a 429 (after sleeping
// for Retry-After). Failures are returned as [*SpotifyError], whose Kind is one
// of the shared sentinels:
//   - [shared.ErrNetwork] : the request never produced a response
//   - [shared.ErrAuthFailed] : the token endpoint or the API rejected the credentials
//   - [shared.ErrRateLimited] : a second 429, RetryAfter holds the server's wait
//   - [shared.ErrAPIRequest] : any other non-2xx response
//
// # Slack
//
// [SlackClient] resolves the music channel, reads its history (including
// thread replies) for backfills, and posts feedback messages and reactions.
// A response with ok=false is reported as [shared.ErrSlackAPI].
//
// # Odesli and Qobuz
//
// [OdesliClient] maps a link from any platform to its equivalents.
// [QobuzClient] reads artist and title for a Qobuz track so it can be searched
// for on Spotify.
package services
