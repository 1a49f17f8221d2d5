// Package testutil builds tally artifacts and their engine commitments
// for tests.
package testutil

import (
	"math/big"

	"github.com/vocdoni/qf-tally/commitment"
	"github.com/vocdoni/qf-tally/types"
	"github.com/vocdoni/qf-tally/util"
)

// Tally is a tally artifact together with the commitments the engine
// would produce for it.
type Tally struct {
	Artifact    *types.TallyArtifact
	Commitments *types.TallyCommitments
	Digest      types.HexBytes
	TotalSpent  *big.Int
}

func toBigInts(vals []int64) []*types.BigInt {
	out := make([]*types.BigInt, len(vals))
	for i, v := range vals {
		out[i] = types.NewInt(v)
	}
	return out
}

// NewTally returns the artifact holding tally and per-recipient spent
// vectors, with random salts, and its commitments for a vote option tree
// of the given depth. The total spent is the sum of the spent vector.
func NewTally(depth uint8, tally, spent []int64) *Tally {
	totalSpent := new(big.Int)
	for _, s := range spent {
		totalSpent.Add(totalSpent, big.NewInt(s))
	}
	a := &types.TallyArtifact{
		TotalSpentVoiceCredits: types.SpentCredits{
			Spent: types.FromBig(totalSpent),
			Salt:  types.FromBig(util.RandomFieldElement()),
		},
		Results: types.TallyResults{
			Tally: toBigInts(tally),
			Salt:  types.FromBig(util.RandomFieldElement()),
		},
		PerVOSpentVoiceCredits: types.TallyResults{
			Tally: toBigInts(spent),
			Salt:  types.FromBig(util.RandomFieldElement()),
		},
	}
	return FromArtifact(depth, a)
}

// FromArtifact computes the commitments and digest of an artifact.
func FromArtifact(depth uint8, a *types.TallyArtifact) *Tally {
	commitments, err := commitment.TallyCommitments(depth, a)
	if err != nil {
		panic(err)
	}
	digest, err := commitment.ArtifactDigest(a)
	if err != nil {
		panic(err)
	}
	return &Tally{
		Artifact:    a,
		Commitments: commitments,
		Digest:      digest,
		TotalSpent:  a.TotalSpentVoiceCredits.Spent.MathBigInt(),
	}
}
