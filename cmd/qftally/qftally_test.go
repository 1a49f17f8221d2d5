package main

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/qf-tally/alloc"
	"github.com/vocdoni/qf-tally/testutil"
	"github.com/vocdoni/qf-tally/types"
)

func TestBuildReport(t *testing.T) {
	c := qt.New(t)
	tally := testutil.NewTally(1, []int64{30, 40, 0}, []int64{500, 1000, 0})

	r, err := buildReport(tally.Artifact, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(r.Digest, qt.DeepEquals, tally.Digest)
	c.Assert(r.Commitments, qt.DeepEquals, tally.Commitments)
	c.Assert(r.Recipients, qt.Equals, 3)
	c.Assert(r.TotalSpent.MathBigInt().Int64(), qt.Equals, int64(1500))
	c.Assert(r.TotalVotesSquares.MathBigInt().Int64(), qt.Equals, int64(2500))
}

func TestComputeAllocations(t *testing.T) {
	c := qt.New(t)
	tally := testutil.NewTally(1, []int64{30, 40, 0}, []int64{500, 1000, 0})

	out, err := computeAllocations(tally.Artifact, big.NewInt(20000), big.NewInt(10))
	c.Assert(err, qt.IsNil)
	half := new(big.Int).Div(alloc.AlphaPrecision, big.NewInt(2))
	c.Assert(out.Alpha.Numerator.MathBigInt().Cmp(half), qt.Equals, 0)
	c.Assert(out.Allocations, qt.HasLen, 3)
	c.Assert(out.Allocations[0].Amount.MathBigInt().Int64(), qt.Equals, int64(7000))
	c.Assert(out.Allocations[1].Amount.MathBigInt().Int64(), qt.Equals, int64(13000))
	c.Assert(out.Allocations[2].Amount.MathBigInt().Int64(), qt.Equals, int64(0))
	c.Assert(out.Total.MathBigInt().Int64(), qt.Equals, int64(20000))

	_, err = computeAllocations(tally.Artifact, big.NewInt(100), big.NewInt(10))
	c.Assert(err, qt.ErrorIs, alloc.ErrInvalidBudget)
}

func TestParseAmount(t *testing.T) {
	c := qt.New(t)
	v, err := parseAmount("budget", "1000000000000000000000")
	c.Assert(err, qt.IsNil)
	c.Assert(v.String(), qt.Equals, "1000000000000000000000")
	for _, s := range []string{"", "-1", "1e3", "abc"} {
		_, err := parseAmount("budget", s)
		c.Assert(err, qt.IsNotNil, qt.Commentf("%q", s))
	}
}

func finalizedRound(tally *testutil.Tally) *types.Round {
	half := new(big.Int).Div(alloc.AlphaPrecision, big.NewInt(2))
	return &types.Round{
		ID:                types.NewRoundID(),
		Status:            types.RoundFinalized,
		VoiceCreditFactor: types.NewInt(10),
		RecipientCount:    3,
		VoteOptionDepth:   1,
		TallyHash:         tally.Digest,
		Commitments:       tally.Commitments,
		TotalTallyResults: 3,
		TotalVotesSquares: types.NewInt(2500),
		Allocation: &types.AllocationParameters{
			Alpha: &types.Fraction{
				Numerator:   types.FromBig(half),
				Denominator: types.FromBig(alloc.AlphaPrecision),
			},
			TotalVotesSquares: types.NewInt(2500),
			TotalSpent:        types.NewInt(1500),
			Budget:            types.NewInt(20000),
			MatchingPoolSize:  types.NewInt(5000),
		},
	}
}

func failed(checks []check) []string {
	var names []string
	for _, chk := range checks {
		if !chk.OK {
			names = append(names, chk.Name)
		}
	}
	return names
}

func TestAuditRound(t *testing.T) {
	c := qt.New(t)
	tally := testutil.NewTally(1, []int64{30, 40, 0}, []int64{500, 1000, 0})

	r := finalizedRound(tally)
	checks, err := auditRound(r, tally.Artifact)
	c.Assert(err, qt.IsNil)
	c.Assert(failed(checks), qt.HasLen, 0)
	c.Assert(checks, qt.HasLen, 8)

	// a node reporting a different alpha or depth is caught
	r.Allocation.Alpha.Numerator = types.FromBig(alloc.AlphaPrecision)
	r.VoteOptionDepth = 2
	checks, err = auditRound(r, tally.Artifact)
	c.Assert(err, qt.IsNil)
	c.Assert(failed(checks), qt.DeepEquals, []string{"results commitment", "spent commitment", "alpha"})

	// partially verified rounds only account for the verified results
	r = finalizedRound(tally)
	r.Status = types.RoundTallying
	r.Allocation = nil
	r.TotalTallyResults = 1
	r.TotalVotesSquares = types.NewInt(900)
	checks, err = auditRound(r, tally.Artifact)
	c.Assert(err, qt.IsNil)
	c.Assert(failed(checks), qt.HasLen, 0)

	other := testutil.NewTally(1, []int64{30, 40, 0}, []int64{500, 1000, 0})
	checks, err = auditRound(r, other.Artifact)
	c.Assert(err, qt.IsNil)
	c.Assert(failed(checks), qt.DeepEquals, []string{"tally hash", "results commitment", "spent commitment", "total spent commitment"})
}
