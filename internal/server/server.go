// package server contains the HTTP surface of the shuffle web service
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterd/internal/repositories"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows which route patterns it serves.
//
// Routes returns method-qualified [http.ServeMux] patterns ("GET /login"),
// letting a handler encapsulate a group of endpoints.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers and applies middleware to every route.
type Router interface {
	Use(middleware ...Middleware)
	Handle(pattern string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// defaultSweepInterval is how often expired auth requests and sessions are
// purged from the database.
const defaultSweepInterval = 10 * time.Minute

// Server owns the http.Server lifecycle plus the background sweeper that
// clears expired auth requests and sessions.
type Server struct {
	httpServer *http.Server
	stores     *repositories.Stores
	logger     *log.Logger

	sweepInterval time.Duration
	done          chan struct{}
}

// New creates a [Server] listening on addr and routing through handler.
func New(addr string, handler http.Handler, stores *repositories.Stores, logger *log.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		stores:        stores,
		logger:        logger,
		sweepInterval: defaultSweepInterval,
		done:          make(chan struct{}),
	}
}

// Start begins serving and blocks until the listener closes. The expired-row
// sweeper runs on its own goroutine for the server's lifetime.
func (s *Server) Start() error {
	go s.sweep()

	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.done)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) sweep() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.stores.DeleteExpired(); err != nil {
				s.logger.Warn("expired-row sweep failed", "err", err)
			}
		}
	}
}
