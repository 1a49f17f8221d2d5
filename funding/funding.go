// Package funding implements the round state machine of a quadratic-funding
// round: tally commitments are published, verified in resumable batches
// against the published tally artifact, the round is finalized with its
// matching coefficient and recipients claim their allocations exactly once.
//
// Every mutating operation runs under a per-round lock and re-reads the
// round from storage inside it, so the storage is the only source of truth
// for the round state and the verification cursor.
package funding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/vocdoni/qf-tally/registry"
	"github.com/vocdoni/qf-tally/storage"
	"github.com/vocdoni/qf-tally/types"
)

// treeCacheCost bounds the number of tally leaves kept in built trees.
const treeCacheCost = 1 << 20

// Orchestrator drives the lifecycle of the funding rounds.
type Orchestrator struct {
	stg       *storage.Storage
	artifacts storage.ArtifactStore
	registry  registry.Registry
	trees     *ristretto.Cache
	now       func() time.Time

	locksMu sync.Mutex
	locks   map[types.RoundID]*sync.Mutex
}

// New returns an orchestrator over stg. Tally artifacts are fetched from
// artifacts; if nil, the storage content store is used.
func New(stg *storage.Storage, artifacts storage.ArtifactStore, reg registry.Registry) (*Orchestrator, error) {
	if stg == nil || reg == nil {
		return nil, fmt.Errorf("storage and registry are required")
	}
	if artifacts == nil {
		artifacts = stg
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     treeCacheCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("tree cache: %w", err)
	}
	return &Orchestrator{
		stg:       stg,
		artifacts: artifacts,
		registry:  reg,
		trees:     cache,
		now:       time.Now,
		locks:     make(map[types.RoundID]*sync.Mutex),
	}, nil
}

// Storage returns the storage the orchestrator works on.
func (o *Orchestrator) Storage() *storage.Storage {
	return o.stg
}

func (o *Orchestrator) lock(id types.RoundID) func() {
	o.locksMu.Lock()
	m, ok := o.locks[id]
	if !ok {
		m = &sync.Mutex{}
		o.locks[id] = m
	}
	o.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}

func (o *Orchestrator) load(id types.RoundID) (*types.Round, error) {
	r, err := o.stg.Round(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRoundNotFound, id)
	}
	return r, err
}

// update runs fn on a fresh copy of the round under the round lock and
// stores the result. If fn fails nothing is stored.
func (o *Orchestrator) update(ctx context.Context, id types.RoundID, fn func(r *types.Round) error) (*types.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := o.lock(id)
	defer unlock()
	r, err := o.load(id)
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	if err := o.stg.SetRound(r); err != nil {
		return nil, fmt.Errorf("store round: %w", err)
	}
	return r, nil
}
