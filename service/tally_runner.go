package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/vocdoni/qf-tally/funding"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/types"
)

// maxCursorRetries bounds how many consecutive cursor races a round run
// tolerates before giving up until the next tick.
const maxCursorRetries = 10

// TallyRunner drives the batch verification of tallying rounds to
// completion and, if enabled, finalizes them with the totals of the
// published artifact.
type TallyRunner struct {
	orch         *funding.Orchestrator
	batchSize    uint32
	interval     time.Duration
	autoFinalize bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// stuckMu guards stuck, the budget at which a round last failed to
	// finalize for a reason retrying cannot fix.
	stuckMu sync.Mutex
	stuck   map[types.RoundID]string
}

// NewTallyRunner returns a runner verifying batchSize results per call.
func NewTallyRunner(orch *funding.Orchestrator, batchSize uint32, interval time.Duration, autoFinalize bool) *TallyRunner {
	return &TallyRunner{
		orch:         orch,
		batchSize:    batchSize,
		interval:     interval,
		autoFinalize: autoFinalize,
		stuck:        make(map[types.RoundID]string),
	}
}

// Start begins polling the tallying rounds.
func (tr *TallyRunner) Start(ctx context.Context) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.cancel != nil {
		return fmt.Errorf("service already running")
	}
	if tr.batchSize == 0 || tr.interval <= 0 {
		return fmt.Errorf("batch size and interval must be positive")
	}
	ctx, tr.cancel = context.WithCancel(ctx)
	tr.done = make(chan struct{})
	go tr.run(ctx, tr.done)
	return nil
}

// Stop halts the runner and waits for the running batch, if any.
func (tr *TallyRunner) Stop() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.cancel == nil {
		return
	}
	tr.cancel()
	<-tr.done
	tr.cancel = nil
}

func (tr *TallyRunner) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(tr.interval)
	defer ticker.Stop()
	log.Infow("tally runner started", "batchSize", tr.batchSize, "autoFinalize", tr.autoFinalize)
	for {
		tr.runAll(ctx)
		select {
		case <-ctx.Done():
			log.Infow("tally runner stopped")
			return
		case <-ticker.C:
		}
	}
}

func (tr *TallyRunner) runAll(ctx context.Context) {
	status := types.RoundTallying
	ids, err := tr.orch.Storage().ListRounds(&status)
	if err != nil {
		log.Errorw(err, "failed to list tallying rounds")
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if err := tr.RunRound(ctx, id); err != nil {
			log.Warnw("tally run failed", "round", id.String(), "error", err.Error())
		}
	}
}

// RunRound verifies the remaining batches of a tallying round. The cursor
// is read fresh before every batch; losing a race against another
// verifier re-reads it and retries.
func (tr *TallyRunner) RunRound(ctx context.Context, id types.RoundID) error {
	retries := 0
	for {
		r, err := tr.orch.Round(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != types.RoundTallying {
			return nil
		}
		if r.IsComplete() {
			break
		}
		out, err := tr.orch.VerifyBatch(ctx, id, r.TotalTallyResults, tr.batchSize)
		if errors.Is(err, funding.ErrStaleCursor) || errors.Is(err, funding.ErrVoteResultsAlreadyVerified) {
			runnerRetries.Inc()
			if retries++; retries > maxCursorRetries {
				return fmt.Errorf("cursor kept moving: %w", err)
			}
			continue
		}
		if err != nil {
			return err
		}
		retries = 0
		log.Debugw("runner verified batch", "round", id.String(), "next", out.NextIndex)
		if out.Complete {
			roundsVerified.Inc()
			log.Infow("round tally verified", "round", id.String(), "recipients", out.NextIndex)
			break
		}
	}
	if !tr.autoFinalize {
		return nil
	}
	return tr.finalize(ctx, id)
}

// finalize finalizes a fully verified round with the total spent voice
// credits of its published artifact. A round whose allocation cannot be
// computed is skipped until its budget changes; it has to be topped up
// or cancelled.
func (tr *TallyRunner) finalize(ctx context.Context, id types.RoundID) error {
	r, err := tr.orch.Round(ctx, id)
	if err != nil {
		return err
	}
	budget := roundBudget(r)
	if tr.stuckAt(id) == budget {
		return nil
	}
	a, err := tr.orch.Artifact(ctx, id)
	if err != nil {
		return err
	}
	_, err = tr.orch.Finalize(ctx, id,
		a.TotalSpentVoiceCredits.Spent.MathBigInt(),
		a.TotalSpentVoiceCredits.Salt.MathBigInt(),
		r.Commitments.Results.MathBigInt(),
		r.Commitments.PerRecipientSpent.MathBigInt())
	switch {
	case err == nil:
		tr.setStuck(id, "")
		return nil
	case errors.Is(err, funding.ErrRoundAlreadyFinalized):
		return nil
	case errors.Is(err, funding.ErrInvalidBudget),
		errors.Is(err, funding.ErrNoProjectHasMoreThanOneVote),
		errors.Is(err, funding.ErrNoVotes):
		tr.setStuck(id, budget)
		log.Errorw(err, fmt.Sprintf("round %s cannot be finalized with budget %s", id, budget))
		return nil
	default:
		return err
	}
}

func roundBudget(r *types.Round) string {
	return new(big.Int).Add(r.TotalContributions.Clone().MathBigInt(),
		r.MatchingPool.Clone().MathBigInt()).String()
}

// stuckAt returns the budget at which the round failed to finalize, or an
// empty string.
func (tr *TallyRunner) stuckAt(id types.RoundID) string {
	tr.stuckMu.Lock()
	defer tr.stuckMu.Unlock()
	return tr.stuck[id]
}

func (tr *TallyRunner) setStuck(id types.RoundID, budget string) {
	tr.stuckMu.Lock()
	defer tr.stuckMu.Unlock()
	if budget == "" {
		delete(tr.stuck, id)
		return
	}
	tr.stuck[id] = budget
}
