// package repositories provides the sqlite persistence layer for all entities.
//
// Each repository wraps a *sql.DB and exposes the operations its entity
// needs; there is no generic CRUD surface because every entity has a
// different access pattern (read-once auth requests, upsert-by-provider-id
// identities, replace-on-exchange token sets).
package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// Stores bundles every repository over one database handle.
type Stores struct {
	Identities   *IdentityRepository
	Tokens       *TokenRepository
	AuthRequests *AuthRequestRepository
	Sessions     *SessionRepository
}

// NewStores creates all repositories over the given database connection.
func NewStores(db *sql.DB) *Stores {
	return &Stores{
		Identities:   NewIdentityRepository(db),
		Tokens:       NewTokenRepository(db),
		AuthRequests: NewAuthRequestRepository(db),
		Sessions:     NewSessionRepository(db),
	}
}

// DeleteExpired sweeps expired auth requests and sessions.
//
// Run periodically by the server; rows past expiry are already unusable
// (every read checks expires_at), the sweep just reclaims space.
func (s *Stores) DeleteExpired() error {
	now := time.Now()
	if err := s.AuthRequests.DeleteExpired(now); err != nil {
		return fmt.Errorf("failed to sweep auth requests: %w", err)
	}
	if err := s.Sessions.DeleteExpired(now); err != nil {
		return fmt.Errorf("failed to sweep sessions: %w", err)
	}
	return nil
}
