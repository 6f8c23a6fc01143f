// Package server provides HTTP routing, middleware, and the web handlers for
// the shuffle service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-qualified patterns.
//
// # Authentication
//
// [AuthHandler] implements the OAuth2 authorization code flow with PKCE.
// GET /login persists a single-use state/verifier pair and redirects to the
// provider; GET /callback validates state (CSRF protection), exchanges the
// code, upserts the identity, and issues the session cookie. Failed callbacks
// redirect back to the login page with a machine-readable error code and
// never set a cookie.
//
// [SessionLoader] resolves the session cookie into an identity on every
// request; [RequireSession] enforces it, redirecting pages to the login page
// and answering API calls with 401 JSON.
//
// # JSON API
//
// [APIHandler] serves the endpoints the browser polls:
//   - GET /api/me: the signed-in profile
//   - GET /api/playlists: the fully paginated playlist listing
//   - POST /api/playlists/{id}/shuffle: start a shuffle job
//   - GET /api/shuffle/{id}: poll a job's stage
//
// Shuffle jobs run on their own goroutines and are tracked in an in-memory
// registry; see the tasks package.
//
// # Lifecycle
//
// [Server] owns the http.Server plus a background sweeper that purges
// expired auth requests and sessions on an interval.
package server
