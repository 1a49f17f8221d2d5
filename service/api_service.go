package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/qf-tally/api"
	"github.com/vocdoni/qf-tally/funding"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/registry"
)

const apiShutdownTimeout = 10 * time.Second

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	orch     *funding.Orchestrator
	registry *registry.Static
	api      *api.API
	mu       sync.Mutex
	host     string
	port     int
}

// NewAPI creates a new APIService instance. reg may be nil if the node
// does not manage the recipient registry.
func NewAPI(orch *funding.Orchestrator, reg *registry.Static, host string, port int) *APIService {
	return &APIService{
		orch:     orch,
		registry: reg,
		host:     host,
		port:     port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(_ context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api != nil {
		return fmt.Errorf("service already running")
	}
	a, err := api.New(&api.APIConfig{
		Host:         as.host,
		Port:         as.port,
		Orchestrator: as.orch,
		Registry:     as.registry,
	})
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	if err := a.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.api = a
	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), apiShutdownTimeout)
	defer cancel()
	if err := as.api.Stop(ctx); err != nil {
		log.Warnw("API server shutdown failed", "error", err.Error())
	}
	as.api = nil
}

// Addr returns the address the API listens on, or the configured one if
// the service is not running.
func (as *APIService) Addr() string {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api == nil {
		return fmt.Sprintf("%s:%d", as.host, as.port)
	}
	return as.api.Addr()
}
