// Package api exposes the funding round operations over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vocdoni/qf-tally/funding"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/registry"
	"github.com/vocdoni/qf-tally/storage"
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host         string
	Port         int
	Orchestrator *funding.Orchestrator
	// Registry is the local recipient registry. If nil, the recipient
	// endpoints are not available.
	Registry *registry.Static
}

// API type represents the API HTTP server.
type API struct {
	router   *chi.Mux
	orch     *funding.Orchestrator
	storage  *storage.Storage
	registry *registry.Static

	addr     string
	server   *http.Server
	listener net.Listener
}

// New creates a new API instance with the given configuration. The server
// is not listening until Start is called.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Orchestrator == nil {
		return nil, fmt.Errorf("missing orchestrator instance")
	}
	a := &API{
		orch:     conf.Orchestrator,
		storage:  conf.Orchestrator.Storage(),
		registry: conf.Registry,
		addr:     net.JoinHostPort(conf.Host, fmt.Sprint(conf.Port)),
	}
	a.initRouter()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Start listens on the configured address and serves the API in the
// background.
func (a *API) Start() error {
	l, err := net.Listen("tcp", a.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.addr, err)
	}
	a.listener = l
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "address", l.Addr().String())
		if err := a.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw(err, "API server failed")
		}
	}()
	return nil
}

// Addr returns the address the server listens on, once started.
func (a *API) Addr() string {
	if a.listener == nil {
		return a.addr
	}
	return a.listener.Addr().String()
}

// Stop gracefully shuts down the server.
func (a *API) Stop(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	handle := func(method, endpoint string, h http.HandlerFunc) {
		log.Infow("register handler", "endpoint", endpoint, "method", method)
		a.router.Method(method, endpoint, h)
	}
	handle(http.MethodGet, PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	handle(http.MethodGet, MetricsEndpoint, promhttp.Handler().ServeHTTP)

	handle(http.MethodPost, RoundsEndpoint, a.newRound)
	handle(http.MethodGet, RoundsEndpoint, a.listRounds)
	handle(http.MethodGet, RoundEndpoint, a.round)
	handle(http.MethodPost, ContributionsEndpoint, a.contribute)
	handle(http.MethodPost, MatchingEndpoint, a.addMatchingFunds)
	handle(http.MethodPost, VotingEndpoint, a.concludeVoting)
	handle(http.MethodPost, TallyHashEndpoint, a.publishTallyHash)
	handle(http.MethodPost, BatchesEndpoint, a.verifyBatch)
	handle(http.MethodPost, FinalizeEndpoint, a.finalize)
	handle(http.MethodPost, CancelEndpoint, a.cancel)

	handle(http.MethodPost, ClaimsEndpoint, a.claim)
	handle(http.MethodGet, ClaimEndpoint, a.claimRecord)
	handle(http.MethodGet, ClaimProofEndpoint, a.claimProof)
	handle(http.MethodGet, ProofsEndpoint, a.claimRequest)

	handle(http.MethodPost, ArtifactsEndpoint, a.publishArtifact)
	handle(http.MethodGet, ArtifactEndpoint, a.artifact)

	handle(http.MethodPut, RecipientEndpoint, a.setRecipient)
	handle(http.MethodDelete, RecipientEndpoint, a.removeRecipient)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.Timeout(45 * time.Second))
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrResourceNotFound.With(r.URL.Path).Write(w)
	})

	a.registerHandlers()
}
