package server

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterd/internal/repositories"
)

// NewRouter wires the full route table: auth routes are open, while the home
// page and the JSON API sit behind the session guard.
func NewRouter(auth *AuthHandler, api *APIHandler, pages *PageHandler, stores *repositories.Stores, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(RequestLogger(logger), SessionLoader(stores))

	router.Handler(auth)

	guard := RequireSession()
	for _, route := range pages.Routes() {
		router.Handle(route, guard(pages))
	}
	for _, route := range api.Routes() {
		router.Handle(route, guard(api))
	}

	return router
}
