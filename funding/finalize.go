package funding

import (
	"context"
	"fmt"
	"math/big"

	"github.com/vocdoni/qf-tally/alloc"
	"github.com/vocdoni/qf-tally/commitment"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/types"
)

// Finalize closes a tallying round whose results are all verified and
// fixes its allocation parameters. The supplied total spent voice credits
// must match the engine total spent commitment and both per-recipient
// commitments must be the ones the results were verified against.
func (o *Orchestrator) Finalize(ctx context.Context, id types.RoundID,
	totalSpent, totalSpentSalt, resultsCommitment, spentCommitment *big.Int,
) (*types.Fraction, error) {
	r, err := o.update(ctx, id, func(r *types.Round) error {
		if r.Status.Terminal() {
			return ErrRoundAlreadyFinalized
		}
		if len(r.TallyHash) == 0 {
			return ErrTallyHashNotPublished
		}
		if r.Status != types.RoundTallying || r.Commitments == nil {
			return fmt.Errorf("%w: voting has not concluded", ErrVotesNotTallied)
		}
		if !r.IsComplete() {
			return fmt.Errorf("%w: %d of %d verified", ErrIncompleteTallyResults,
				r.TotalTallyResults, r.RecipientCount)
		}
		if totalSpent == nil || totalSpent.Sign() == 0 {
			return ErrNoVotes
		}
		if resultsCommitment == nil || resultsCommitment.Cmp(r.Commitments.Results.MathBigInt()) != 0 ||
			spentCommitment == nil || spentCommitment.Cmp(r.Commitments.PerRecipientSpent.MathBigInt()) != 0 {
			return fmt.Errorf("%w: commitments do not match the verified ones", ErrVotesNotTallied)
		}
		if !commitment.Verify([]*big.Int{totalSpent}, totalSpentSalt, r.Commitments.TotalSpent.MathBigInt()) {
			return fmt.Errorf("%w: total spent commitment mismatch", ErrVotesNotTallied)
		}

		f := r.VoiceCreditFactor.MathBigInt()
		budget := new(big.Int).Add(r.TotalContributions.Clone().MathBigInt(), r.MatchingPool.Clone().MathBigInt())
		alpha, err := alloc.CalcAlpha(budget, r.TotalVotesSquares.MathBigInt(), totalSpent, alloc.AlphaPrecision, f)
		if err != nil {
			return err
		}
		matchingPoolSize := new(big.Int).Sub(budget, new(big.Int).Mul(totalSpent, f))

		r.Allocation = &types.AllocationParameters{
			Alpha: &types.Fraction{
				Numerator:   types.FromBig(alpha),
				Denominator: types.FromBig(alloc.AlphaPrecision),
			},
			TotalVotesSquares: r.TotalVotesSquares.Clone(),
			TotalSpent:        types.FromBig(totalSpent),
			Budget:            types.FromBig(budget),
			MatchingPoolSize:  types.FromBig(matchingPoolSize),
		}
		r.Status = types.RoundFinalized
		r.FinalizedAt = o.now().Unix()
		return nil
	})
	if err != nil {
		return nil, err
	}
	roundsFinalized.Inc()
	log.Infow("round finalized", "round", id.String(),
		"alpha", r.Allocation.Alpha.Numerator.String(),
		"budget", r.Allocation.Budget.String(),
		"matchingPoolSize", r.Allocation.MatchingPoolSize.String())
	return r.Allocation.Alpha, nil
}
