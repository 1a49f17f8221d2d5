package funding

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/qf-tally/registry"
	"github.com/vocdoni/qf-tally/storage"
	"github.com/vocdoni/qf-tally/testutil"
	"github.com/vocdoni/qf-tally/types"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	coordinator = common.HexToAddress("0xc00d")
	fallback    = common.HexToAddress("0xfa11")
)

type testEnv struct {
	c   *qt.C
	ctx context.Context
	stg *storage.Storage
	reg *registry.Static
	o   *Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	reg := registry.NewStatic(stg)
	o, err := New(stg, nil, reg)
	c.Assert(err, qt.IsNil)
	return &testEnv{c: c, ctx: context.Background(), stg: stg, reg: reg, o: o}
}

func (e *testEnv) openRound(depth uint8, recipients uint32, factor, contributions, matching int64) *types.Round {
	r, err := e.o.NewRound(e.ctx, &RoundParams{
		Coordinator:       coordinator,
		FallbackAddress:   fallback,
		VoiceCreditFactor: types.NewInt(factor),
		MatchingPool:      types.NewInt(matching),
		RecipientCount:    recipients,
		VoteOptionDepth:   depth,
	})
	e.c.Assert(err, qt.IsNil)
	if contributions > 0 {
		r, err = e.o.Contribute(e.ctx, r.ID, big.NewInt(contributions))
		e.c.Assert(err, qt.IsNil)
	}
	return r
}

// tallyingRound creates a round and moves it to tallying with the
// artifact built from tally and spent.
func (e *testEnv) tallyingRound(depth uint8, tally, spent []int64, factor, contributions, matching int64) (*types.Round, *testutil.Tally) {
	r := e.openRound(depth, uint32(len(tally)), factor, contributions, matching)
	tl := testutil.NewTally(depth, tally, spent)
	digest, err := e.stg.PublishArtifact(tl.Artifact)
	e.c.Assert(err, qt.IsNil)
	e.c.Assert(digest.Equal(tl.Digest), qt.IsTrue)

	_, err = e.o.ConcludeVoting(e.ctx, r.ID, tl.Commitments)
	e.c.Assert(err, qt.IsNil)
	r, err = e.o.PublishTallyHash(e.ctx, r.ID, tl.Digest)
	e.c.Assert(err, qt.IsNil)
	e.c.Assert(r.Status, qt.Equals, types.RoundTallying)
	return r, tl
}

func (e *testEnv) verifyAll(id types.RoundID, batchSize uint32) *BatchOutcome {
	var out *BatchOutcome
	for {
		cursor, err := e.o.TotalTallyResults(e.ctx, id)
		e.c.Assert(err, qt.IsNil)
		out, err = e.o.VerifyBatch(e.ctx, id, cursor, batchSize)
		e.c.Assert(err, qt.IsNil)
		if out.Complete {
			return out
		}
	}
}

func (e *testEnv) finalize(id types.RoundID, tl *testutil.Tally) (*types.Fraction, error) {
	return e.o.Finalize(e.ctx, id, tl.TotalSpent,
		tl.Artifact.TotalSpentVoiceCredits.Salt.MathBigInt(),
		tl.Commitments.Results.MathBigInt(),
		tl.Commitments.PerRecipientSpent.MathBigInt())
}
