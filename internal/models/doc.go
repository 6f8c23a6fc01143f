// Package models defines domain entities and transient DTOs for the betterd shuffle service.
//
// The package contains two categories of types:
//
// 1. Persistent entities, backed by sqlite via internal/repositories:
//   - [Identity] : local account keyed by Spotify user id
//   - [TokenSet] : access/refresh token pair owned by one identity
//   - [AuthRequest] : short-lived CSRF state to PKCE verifier mapping
//   - [Session] : browser session referenced by the sid cookie
//
// 2. Transient DTOs representing upstream Spotify data, fetched on demand and
// never cached beyond a request:
//   - [Playlist], [Track], [Image], [Profile]
//   - [NewPlaylistDetails] : result of a completed shuffle-and-publish run
package models
