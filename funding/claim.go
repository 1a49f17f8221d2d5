package funding

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/qf-tally/alloc"
	"github.com/vocdoni/qf-tally/commitment"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/merkle"
	"github.com/vocdoni/qf-tally/storage"
	"github.com/vocdoni/qf-tally/types"
)

// ClaimRequest carries a recipient's tally values and their Merkle paths
// in the results and spent trees.
type ClaimRequest struct {
	Index     uint32            `json:"index"`
	Tally     *types.BigInt     `json:"tally"`
	TallySalt *types.BigInt     `json:"tallySalt"`
	TallyPath [][]*types.BigInt `json:"tallyPath"`
	Spent     *types.BigInt     `json:"spent"`
	SpentSalt *types.BigInt     `json:"spentSalt"`
	SpentPath [][]*types.BigInt `json:"spentPath"`
}

// Claim verifies the proofs of a recipient's tally results and records
// its allocation. The amount goes to the resolved recipient address, or
// to the round fallback address if the recipient is no longer valid. A
// recipient can claim only once; the payout is queued in the same write.
func (o *Orchestrator) Claim(ctx context.Context, id types.RoundID, req *ClaimRequest) (*types.ClaimRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: missing claim request", ErrIncorrectTallyResult)
	}
	r, err := o.load(id)
	if err != nil {
		return nil, err
	}
	if r.Status == types.RoundCancelled {
		return nil, ErrRoundCancelled
	}
	if r.Status != types.RoundFinalized || r.Allocation == nil {
		return nil, ErrRoundNotFinalized
	}
	if _, err := o.stg.Claim(id, req.Index); err == nil {
		return nil, ErrFundsAlreadyClaimed
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if req.Index >= r.RecipientCount {
		return nil, fmt.Errorf("%w: index %d, %d recipients", ErrIndexOutOfRange, req.Index, r.RecipientCount)
	}
	if !verifyClaimPath(r, req.Index, req.Tally, req.TallySalt, req.TallyPath, r.Commitments.Results) {
		return nil, fmt.Errorf("%w: recipient %d", ErrIncorrectTallyResult, req.Index)
	}
	if !verifyClaimPath(r, req.Index, req.Spent, req.SpentSalt, req.SpentPath, r.Commitments.PerRecipientSpent) {
		return nil, fmt.Errorf("%w: recipient %d", ErrIncorrectSpentVoiceCredits, req.Index)
	}

	amount, err := alloc.AllocatedAmount(
		r.Allocation.Alpha.Numerator.MathBigInt(),
		req.Tally.MathBigInt(),
		req.Spent.MathBigInt(),
		r.Allocation.Alpha.Denominator.MathBigInt(),
		r.VoiceCreditFactor.MathBigInt(),
	)
	if err != nil {
		return nil, err
	}

	rec := &types.ClaimRecord{
		RoundID:   id,
		Index:     req.Index,
		Amount:    types.FromBig(amount),
		Payee:     r.FallbackAddress,
		Fallback:  true,
		Claimed:   true,
		ClaimedAt: o.now().Unix(),
	}
	valid, err := o.registry.IsValidRecipient(ctx, req.Index)
	if err != nil {
		return nil, fmt.Errorf("recipient registry: %w", err)
	}
	if valid {
		if rec.Payee, err = o.registry.ResolveAddress(ctx, req.Index); err != nil {
			return nil, fmt.Errorf("resolve recipient %d: %w", req.Index, err)
		}
		rec.Fallback = false
	}

	if err := o.stg.CommitClaim(rec); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrFundsAlreadyClaimed
		}
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	claimsTotal.Inc()
	claimedAmount.Add(amountFloat(amount))
	log.Infow("funds claimed", "round", id.String(), "index", req.Index,
		"amount", amount.String(), "payee", rec.Payee.Hex(), "fallback", rec.Fallback)
	return rec, nil
}

// verifyClaimPath recomputes the tree root from the leaf and its path and
// checks it against the commitment.
func verifyClaimPath(r *types.Round, index uint32, leaf, salt *types.BigInt,
	path [][]*types.BigInt, expected *types.BigInt,
) bool {
	if leaf == nil || salt == nil {
		return false
	}
	root, err := merkle.VerifyPath(r.VoteOptionDepth, uint64(index), leaf.MathBigInt(), pathFromTypes(path))
	if err != nil {
		return false
	}
	return commitment.Verify([]*big.Int{root}, salt.MathBigInt(), expected.MathBigInt())
}

func pathFromTypes(p [][]*types.BigInt) merkle.Path {
	out := make(merkle.Path, len(p))
	for l, siblings := range p {
		out[l] = make([]*big.Int, len(siblings))
		for i, s := range siblings {
			out[l][i] = s.MathBigInt()
		}
	}
	return out
}

func pathToTypes(p merkle.Path) [][]*types.BigInt {
	out := make([][]*types.BigInt, len(p))
	for l, siblings := range p {
		out[l] = make([]*types.BigInt, len(siblings))
		for i, s := range siblings {
			out[l][i] = types.FromBig(s)
		}
	}
	return out
}

func amountFloat(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
