package commitment

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/qf-tally/merkle"
	"github.com/vocdoni/qf-tally/types"
)

// TallyCommitments returns the commitments of an artifact as the
// vote-processing engine produces them for a vote option tree of the given
// depth: the salted Merkle roots of the results and per-recipient spent
// vectors, and the salted total spent.
func TallyCommitments(depth uint8, a *types.TallyArtifact) (*types.TallyCommitments, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	results, err := rootCommitment(depth, a.Results)
	if err != nil {
		return nil, fmt.Errorf("results: %w", err)
	}
	spent, err := rootCommitment(depth, a.PerVOSpentVoiceCredits)
	if err != nil {
		return nil, fmt.Errorf("per-recipient spent: %w", err)
	}
	total, err := Commit([]*big.Int{a.TotalSpentVoiceCredits.Spent.MathBigInt()},
		a.TotalSpentVoiceCredits.Salt.MathBigInt())
	if err != nil {
		return nil, fmt.Errorf("total spent: %w", err)
	}
	return &types.TallyCommitments{
		Results:           types.FromBig(results),
		PerRecipientSpent: types.FromBig(spent),
		TotalSpent:        types.FromBig(total),
	}, nil
}

func rootCommitment(depth uint8, r types.TallyResults) (*big.Int, error) {
	leaves := make([]*big.Int, len(r.Tally))
	for i, v := range r.Tally {
		leaves[i] = v.MathBigInt()
	}
	tree, err := merkle.FromLeaves(depth, nil, leaves)
	if err != nil {
		return nil, err
	}
	return Commit([]*big.Int{tree.Root()}, r.Salt.MathBigInt())
}

// SumOfSquares returns the sum of the squared tally results of the first n
// recipients.
func SumOfSquares(a *types.TallyArtifact, n int) *big.Int {
	sum := new(big.Int)
	for i := 0; i < n && i < a.Len(); i++ {
		t := a.Results.Tally[i].MathBigInt()
		sum.Add(sum, new(big.Int).Mul(t, t))
	}
	return sum
}
