package funding

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/vocdoni/qf-tally/commitment"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/merkle"
	"github.com/vocdoni/qf-tally/types"
	"golang.org/x/sync/errgroup"
)

// BatchOutcome is the result of a verified batch.
type BatchOutcome struct {
	StartIndex        uint32        `json:"startIndex"`
	NextIndex         uint32        `json:"nextIndex"`
	TotalVotesSquares *types.BigInt `json:"totalVotesSquares"`
	Complete          bool          `json:"complete"`
}

// tallyTrees holds a tally artifact and the trees built from its vectors.
// It is never mutated once built.
type tallyTrees struct {
	artifact *types.TallyArtifact
	results  *merkle.Tree
	spent    *merkle.Tree
}

// VerifyBatch verifies the tally results of recipients
// [startIndex, startIndex+batchSize) against the engine commitments and
// accumulates their squared tallies. startIndex must equal the current
// cursor; batches past the recipient count are clamped. A rejected batch
// changes nothing.
func (o *Orchestrator) VerifyBatch(ctx context.Context, id types.RoundID, startIndex, batchSize uint32) (*BatchOutcome, error) {
	if batchSize == 0 {
		return nil, ErrInvalidBatchSize
	}
	began := time.Now()
	var outcome *BatchOutcome
	_, err := o.update(ctx, id, func(r *types.Round) error {
		if r.Status.Terminal() {
			return ErrRoundAlreadyFinalized
		}
		if r.Status != types.RoundTallying {
			return ErrRoundNotTallying
		}
		if startIndex < r.TotalTallyResults || r.IsComplete() {
			return fmt.Errorf("%w: cursor at %d", ErrVoteResultsAlreadyVerified, r.TotalTallyResults)
		}
		if startIndex > r.TotalTallyResults {
			return fmt.Errorf("%w: start %d, cursor at %d", ErrStaleCursor, startIndex, r.TotalTallyResults)
		}
		tt, err := o.tallyTrees(ctx, r)
		if err != nil {
			return err
		}
		if err := verifyRoots(r, tt); err != nil {
			return err
		}

		end := uint32(min(uint64(startIndex)+uint64(batchSize), uint64(r.RecipientCount)))
		sum := r.TotalVotesSquares.Clone().MathBigInt()
		for i := startIndex; i < end; i++ {
			t := tt.artifact.Results.Tally[i].MathBigInt()
			sum.Add(sum, new(big.Int).Mul(t, t))
		}
		r.TotalTallyResults = end
		r.TotalVotesSquares = types.FromBig(sum)
		outcome = &BatchOutcome{
			StartIndex:        startIndex,
			NextIndex:         end,
			TotalVotesSquares: r.TotalVotesSquares.Clone(),
			Complete:          r.IsComplete(),
		}
		return nil
	})
	if err != nil {
		batchesRejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}
	batchesVerified.Inc()
	batchDuration.Observe(time.Since(began).Seconds())
	log.Debugw("tally batch verified", "round", id.String(), "start", startIndex,
		"next", outcome.NextIndex, "complete", outcome.Complete)
	return outcome, nil
}

// verifyRoots checks that both tree roots committed with the artifact salts
// match the engine commitments.
func verifyRoots(r *types.Round, tt *tallyTrees) error {
	if r.Commitments == nil {
		return ErrVotesNotTallied
	}
	if !commitment.Verify([]*big.Int{tt.results.Root()},
		tt.artifact.Results.Salt.MathBigInt(), r.Commitments.Results.MathBigInt()) {
		return fmt.Errorf("%w: results commitment mismatch", ErrIncorrectTallyResult)
	}
	if !commitment.Verify([]*big.Int{tt.spent.Root()},
		tt.artifact.PerVOSpentVoiceCredits.Salt.MathBigInt(), r.Commitments.PerRecipientSpent.MathBigInt()) {
		return fmt.Errorf("%w: per-recipient spent commitment mismatch", ErrIncorrectTallyResult)
	}
	return nil
}

func treeCacheKey(r *types.Round) string {
	return fmt.Sprintf("%x/%d", []byte(r.TallyHash), r.VoteOptionDepth)
}

// tallyTrees fetches the artifact addressed by the round tally hash and
// builds the results and spent trees from it.
func (o *Orchestrator) tallyTrees(ctx context.Context, r *types.Round) (*tallyTrees, error) {
	if len(r.TallyHash) == 0 {
		return nil, ErrTallyHashNotPublished
	}
	key := treeCacheKey(r)
	if v, ok := o.trees.Get(key); ok {
		if tt, ok := v.(*tallyTrees); ok {
			return tt, nil
		}
	}

	a, err := o.artifacts.FetchArtifact(r.TallyHash)
	if err != nil {
		return nil, fmt.Errorf("fetch tally artifact: %w", err)
	}
	digest, err := commitment.ArtifactDigest(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if !digest.Equal(r.TallyHash) {
		return nil, fmt.Errorf("%w: digest %s does not match tally hash %s", ErrInvalidArtifact, digest, r.TallyHash)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if a.Len() < int(r.RecipientCount) {
		return nil, fmt.Errorf("%w: %d results for %d recipients", ErrInvalidArtifact, a.Len(), r.RecipientCount)
	}

	tt, err := buildTallyTrees(ctx, r.VoteOptionDepth, a)
	if err != nil {
		return nil, err
	}
	o.trees.Set(key, tt, int64(a.Len())+1)
	return tt, nil
}

func buildTallyTrees(ctx context.Context, depth uint8, a *types.TallyArtifact) (*tallyTrees, error) {
	tt := &tallyTrees{artifact: a}
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tt.results, err = buildTree(depth, a.Results.Tally)
		return err
	})
	g.Go(func() error {
		var err error
		tt.spent, err = buildTree(depth, a.PerVOSpentVoiceCredits.Tally)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	return tt, nil
}

func buildTree(depth uint8, values []*types.BigInt) (*merkle.Tree, error) {
	leaves := make([]*big.Int, len(values))
	for i, v := range values {
		leaves[i] = v.MathBigInt()
	}
	return merkle.FromLeaves(depth, nil, leaves)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrVoteResultsAlreadyVerified):
		return "already_verified"
	case errors.Is(err, ErrStaleCursor):
		return "stale_cursor"
	case errors.Is(err, ErrIncorrectTallyResult):
		return "incorrect_result"
	case errors.Is(err, ErrInvalidArtifact):
		return "invalid_artifact"
	case errors.Is(err, ErrRoundNotTallying), errors.Is(err, ErrRoundAlreadyFinalized):
		return "wrong_state"
	default:
		return "other"
	}
}
