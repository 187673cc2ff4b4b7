// Package resolver turns a music link from any platform into a Spotify track ID.
//
// # Strategy chain
//
// A [Chain] runs an ordered list of [Strategy] values against one [Candidate].
// Each strategy either resolves the candidate, abandons it, or lets the next
// strategy try (possibly after rewriting the candidate's URL). The default
// order runs cheapest first:
//
//  1. [DirectMatch] reads the ID out of an open.spotify.com track URL.
//  2. [SecondaryPlatform] abandons Qobuz track URLs, which Odesli cannot map.
//  3. [AliasNormalizer] rewrites hosts Odesli does not recognise.
//  4. [ShortLinkExpander] follows redirects for share short links.
//  5. [CrossPlatformLookup] asks Odesli for the Spotify equivalent.
//
// # Failures
//
// [Chain.Resolve] never returns an error. Network failures, unexpected
// responses and links that are simply not music all come back as "not
// resolved" and are only visible in the debug log.
//
// # Qobuz
//
// [MetadataSearch] looks up a Qobuz track's artist and title and searches
// Spotify for them. It is not part of [Default]; [WithMetadataSearch] places
// it ahead of the Qobuz short-circuit for callers that opt in.
package resolver
