package service

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/qf-tally/api/client"
	"github.com/vocdoni/qf-tally/funding"
	"github.com/vocdoni/qf-tally/registry"
	"github.com/vocdoni/qf-tally/settlement"
	"github.com/vocdoni/qf-tally/storage"
	"github.com/vocdoni/qf-tally/testutil"
	"github.com/vocdoni/qf-tally/types"
)

func newOrchestrator(c *qt.C) (*storage.Storage, *registry.Static, *funding.Orchestrator) {
	stg := storage.New(memdb.New())
	reg := registry.NewStatic(stg)
	orch, err := funding.New(stg, nil, reg)
	c.Assert(err, qt.IsNil)
	return stg, reg, orch
}

// tallyingRound returns a round in tallying over the given vectors, with
// factor 10, contributions 15000 and a matching pool of 5000.
func tallyingRound(c *qt.C, stg *storage.Storage, orch *funding.Orchestrator, tally, spent []int64) *types.Round {
	ctx := context.Background()
	r, err := orch.NewRound(ctx, &funding.RoundParams{
		FallbackAddress:   common.HexToAddress("0xfa11"),
		VoiceCreditFactor: types.NewInt(10),
		MatchingPool:      types.NewInt(5000),
		RecipientCount:    uint32(len(tally)),
	})
	c.Assert(err, qt.IsNil)
	_, err = orch.Contribute(ctx, r.ID, big.NewInt(15000))
	c.Assert(err, qt.IsNil)
	tl := testutil.NewTally(r.VoteOptionDepth, tally, spent)
	_, err = stg.PublishArtifact(tl.Artifact)
	c.Assert(err, qt.IsNil)
	_, err = orch.ConcludeVoting(ctx, r.ID, tl.Commitments)
	c.Assert(err, qt.IsNil)
	r, err = orch.PublishTallyHash(ctx, r.ID, tl.Digest)
	c.Assert(err, qt.IsNil)
	return r
}

func TestAPIService(t *testing.T) {
	c := qt.New(t)
	_, reg, orch := newOrchestrator(c)
	ctx := context.Background()

	apiService := NewAPI(orch, reg, "127.0.0.1", 0) // Port 0 lets the OS choose an available port
	c.Assert(apiService.Start(ctx), qt.IsNil)
	defer apiService.Stop()

	cli, err := client.New("http://" + apiService.Addr())
	c.Assert(err, qt.IsNil)
	c.Assert(cli.Ping(), qt.IsNil)

	err = apiService.Start(ctx)
	c.Assert(err, qt.ErrorMatches, "service already running")

	apiService.Stop()
	c.Assert(apiService.Start(ctx), qt.IsNil)
}

func TestTallyRunnerRunRound(t *testing.T) {
	c := qt.New(t)
	stg, _, orch := newOrchestrator(c)
	ctx := context.Background()
	r := tallyingRound(c, stg, orch, []int64{30, 40, 0, 0, 0, 0, 0}, []int64{500, 1000, 0, 0, 0, 0, 0})

	// another verifier already moved the cursor
	_, err := orch.VerifyBatch(ctx, r.ID, 0, 2)
	c.Assert(err, qt.IsNil)

	runner := NewTallyRunner(orch, 2, time.Second, false)
	c.Assert(runner.RunRound(ctx, r.ID), qt.IsNil)
	got, err := orch.Round(ctx, r.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.IsComplete(), qt.IsTrue)
	c.Assert(got.Status, qt.Equals, types.RoundTallying)
	c.Assert(got.TotalVotesSquares.MathBigInt().Int64(), qt.Equals, int64(2500))

	// a complete round is a no-op
	c.Assert(runner.RunRound(ctx, r.ID), qt.IsNil)
}

func TestTallyRunnerSkipsUnfinalizableRound(t *testing.T) {
	c := qt.New(t)
	stg, _, orch := newOrchestrator(c)
	ctx := context.Background()
	// spent credits need 21000 but the budget is 20000
	r := tallyingRound(c, stg, orch, []int64{30, 40, 0}, []int64{1100, 1000, 0})

	runner := NewTallyRunner(orch, 25, time.Second, true)
	c.Assert(runner.RunRound(ctx, r.ID), qt.IsNil)
	got, err := orch.Round(ctx, r.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.IsComplete(), qt.IsTrue)
	c.Assert(got.Status, qt.Equals, types.RoundTallying)
	c.Assert(runner.stuckAt(r.ID), qt.Equals, "20000")

	// nothing changed, the round is skipped
	c.Assert(runner.RunRound(ctx, r.ID), qt.IsNil)
	c.Assert(runner.stuckAt(r.ID), qt.Equals, "20000")

	// topping up the matching pool unblocks it
	_, err = orch.AddMatchingFunds(ctx, r.ID, big.NewInt(5000))
	c.Assert(err, qt.IsNil)
	c.Assert(runner.RunRound(ctx, r.ID), qt.IsNil)
	fin, err := orch.IsFinalized(ctx, r.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(fin, qt.IsTrue)
	c.Assert(runner.stuckAt(r.ID), qt.Equals, "")
}

func TestTallyRunnerAutoFinalize(t *testing.T) {
	c := qt.New(t)
	stg, _, orch := newOrchestrator(c)
	ctx := context.Background()
	r := tallyingRound(c, stg, orch, []int64{30, 40, 0}, []int64{500, 1000, 0})

	runner := NewTallyRunner(orch, 25, 10*time.Millisecond, true)
	c.Assert(runner.Start(ctx), qt.IsNil)
	defer runner.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for {
		fin, err := orch.IsFinalized(ctx, r.ID)
		c.Assert(err, qt.IsNil)
		if fin {
			break
		}
		if time.Now().After(deadline) {
			c.Fatal("round was not finalized")
		}
		time.Sleep(10 * time.Millisecond)
	}
	alpha, err := orch.Alpha(ctx, r.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(alpha.Numerator.String(), qt.Equals, "500000000000000000")
}

// failingSettlement fails every transfer with err.
type failingSettlement struct {
	err   error
	calls int
}

func (f *failingSettlement) Transfer(context.Context, common.Address, *big.Int) (string, error) {
	f.calls++
	return "", f.err
}

func commitClaim(c *qt.C, stg *storage.Storage, id types.RoundID, index uint32, payee common.Address, amount int64) {
	c.Assert(stg.CommitClaim(&types.ClaimRecord{
		RoundID: id,
		Index:   index,
		Amount:  types.NewInt(amount),
		Payee:   payee,
		Claimed: true,
	}), qt.IsNil)
}

func TestPayoutServiceLedger(t *testing.T) {
	c := qt.New(t)
	stg, _, _ := newOrchestrator(c)
	ctx := context.Background()
	id := types.NewRoundID()
	alice, bob := common.HexToAddress("0xa1"), common.HexToAddress("0xb0b")
	commitClaim(c, stg, id, 0, alice, 700)
	commitClaim(c, stg, id, 1, bob, 1300)
	commitClaim(c, stg, id, 2, alice, 0)

	ps := NewPayoutService(stg, settlement.NewLedger(stg), time.Second)
	n, err := ps.ProcessPayouts(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 3)

	balance, err := stg.Balance(alice)
	c.Assert(err, qt.IsNil)
	c.Assert(balance.Int64(), qt.Equals, int64(700))
	balance, err = stg.Balance(bob)
	c.Assert(err, qt.IsNil)
	c.Assert(balance.Int64(), qt.Equals, int64(1300))

	receipt, err := stg.PayoutReceipt(id, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.TxRef, qt.Not(qt.Equals), "")
	receipt, err = stg.PayoutReceipt(id, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.TxRef, qt.Equals, "")

	pending, err := stg.CountPendingPayouts()
	c.Assert(err, qt.IsNil)
	c.Assert(pending, qt.Equals, 0)
	n, err = ps.ProcessPayouts(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 0)
}

func TestPayoutServiceNotSubmittedIsReleased(t *testing.T) {
	c := qt.New(t)
	stg, _, _ := newOrchestrator(c)
	id := types.NewRoundID()
	commitClaim(c, stg, id, 0, common.HexToAddress("0xa1"), 10)

	fs := &failingSettlement{err: settlement.ErrNotSubmitted}
	ps := NewPayoutService(stg, fs, time.Second)
	_, err := ps.ProcessPayouts(context.Background())
	c.Assert(err, qt.ErrorIs, settlement.ErrNotSubmitted)
	c.Assert(fs.calls, qt.Equals, 1)

	// released: the next run sees it again
	p, _, err := stg.NextPayout()
	c.Assert(err, qt.IsNil)
	c.Assert(p.Index, qt.Equals, uint32(0))
}

func TestPayoutServiceSubmittedFailureStaysReserved(t *testing.T) {
	c := qt.New(t)
	stg, _, _ := newOrchestrator(c)
	id := types.NewRoundID()
	commitClaim(c, stg, id, 0, common.HexToAddress("0xa1"), 10)

	fs := &failingSettlement{err: errors.New("receipt timeout")}
	ps := NewPayoutService(stg, fs, time.Second)
	n, err := ps.ProcessPayouts(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 0)
	c.Assert(fs.calls, qt.Equals, 1)

	_, _, err = stg.NextPayout()
	c.Assert(err, qt.ErrorIs, storage.ErrNoMoreElements)
	pending, err := stg.CountPendingPayouts()
	c.Assert(err, qt.IsNil)
	c.Assert(pending, qt.Equals, 1)
}

func TestPayoutServiceStartStop(t *testing.T) {
	c := qt.New(t)
	stg, _, _ := newOrchestrator(c)
	id := types.NewRoundID()
	to := common.HexToAddress("0xa1")

	ps := NewPayoutService(stg, settlement.NewLedger(stg), 10*time.Millisecond)
	c.Assert(ps.Start(context.Background()), qt.IsNil)
	c.Assert(ps.Start(context.Background()), qt.ErrorMatches, "service already running")
	commitClaim(c, stg, id, 0, to, 42)

	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, err := stg.PayoutReceipt(id, 0); err == nil {
			break
		}
		if time.Now().After(deadline) {
			c.Fatal("payout was not settled")
		}
		time.Sleep(10 * time.Millisecond)
	}
	ps.Stop()
	balance, err := stg.Balance(to)
	c.Assert(err, qt.IsNil)
	c.Assert(balance.Int64(), qt.Equals, int64(42))
}
