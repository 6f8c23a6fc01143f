// Package services implements the upstream provider boundary.
//
// [SpotifyService] is a thin typed client over the Spotify Web API: OAuth
// authorize-URL construction, PKCE code exchange, token refresh, profile and
// playlist reads, playlist creation, batched track insertion, and cover
// upload. List endpoints are drained through a generic cursor-pagination
// helper that follows upstream "next" URLs.
//
// [Authenticator] is the token-refresh guard sitting between callers and the
// client: it resolves identities to valid access tokens, refreshes expired
// sets, and performs the single 401 refresh-and-retry.
//
// [CoverFetcher] downloads public cover art over a separate resty client;
// its callers treat every failure as best-effort.
//
// PKCE primitives (verifier, challenge, state) live in pkce.go and have no
// dependencies beyond crypto/rand.
package services
