package funding

import (
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/qf-tally/storage"
	"github.com/vocdoni/qf-tally/testutil"
	"github.com/vocdoni/qf-tally/types"
)

// finalizedRound returns a finalized round over the given vectors.
func (e *testEnv) finalizedRound(tally, spent []int64, factor, contributions, matching int64) (*types.Round, *testutil.Tally) {
	r, tl := e.tallyingRound(1, tally, spent, factor, contributions, matching)
	e.verifyAll(r.ID, 2)
	_, err := e.finalize(r.ID, tl)
	e.c.Assert(err, qt.IsNil)
	return r, tl
}

func (e *testEnv) claimRequest(id types.RoundID, index uint32) *ClaimRequest {
	req, err := e.o.ClaimRequestFor(e.ctx, id, index)
	e.c.Assert(err, qt.IsNil)
	return req
}

func TestClaimAllocations(t *testing.T) {
	e := newTestEnv(t)
	c := e.c
	recipient := common.HexToAddress("0xabcd")
	c.Assert(e.reg.Add(0, recipient), qt.IsNil)
	r, _ := e.finalizedRound([]int64{30, 40, 0}, []int64{500, 1000, 0}, 10, 15000, 5000)

	want := []int64{7000, 13000, 0}
	total := new(big.Int)
	for i, w := range want {
		rec, err := e.o.Claim(e.ctx, r.ID, e.claimRequest(r.ID, uint32(i)))
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Amount.MathBigInt().Int64(), qt.Equals, w)
		c.Assert(rec.Claimed, qt.IsTrue)
		total.Add(total, rec.Amount.MathBigInt())
		if i == 0 {
			c.Assert(rec.Payee, qt.Equals, recipient)
			c.Assert(rec.Fallback, qt.IsFalse)
		} else {
			c.Assert(rec.Payee, qt.Equals, fallback)
			c.Assert(rec.Fallback, qt.IsTrue)
		}
	}
	c.Assert(total.Int64(), qt.Equals, int64(20000))

	claims, err := e.stg.ListClaims(r.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(claims, qt.HasLen, 3)
	pending, err := e.stg.CountPendingPayouts()
	c.Assert(err, qt.IsNil)
	c.Assert(pending, qt.Equals, 3)

	proof, err := e.stg.ClaimProof(r.ID, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(storage.VerifyClaimProof(proof), qt.IsTrue)
}

func TestClaimOnlyOnce(t *testing.T) {
	e := newTestEnv(t)
	c := e.c
	r, _ := e.finalizedRound([]int64{3, 4}, []int64{5, 8}, 1, 20, 0)
	req := e.claimRequest(r.ID, 1)

	_, err := e.o.Claim(e.ctx, r.ID, req)
	c.Assert(err, qt.IsNil)
	_, err = e.o.Claim(e.ctx, r.ID, req)
	c.Assert(err, qt.ErrorIs, ErrFundsAlreadyClaimed)

	// the claimed check comes before proof verification
	_, err = e.o.Claim(e.ctx, r.ID, &ClaimRequest{Index: 1})
	c.Assert(err, qt.ErrorIs, ErrFundsAlreadyClaimed)
}

func TestClaimRejectsBadProofs(t *testing.T) {
	e := newTestEnv(t)
	c := e.c
	r, _ := e.finalizedRound([]int64{3, 4}, []int64{5, 8}, 1, 20, 0)

	req := e.claimRequest(r.ID, 0)
	req.Tally = types.NewInt(30)
	_, err := e.o.Claim(e.ctx, r.ID, req)
	c.Assert(err, qt.ErrorIs, ErrIncorrectTallyResult)

	req = e.claimRequest(r.ID, 0)
	req.Spent = types.NewInt(50)
	_, err = e.o.Claim(e.ctx, r.ID, req)
	c.Assert(err, qt.ErrorIs, ErrIncorrectSpentVoiceCredits)

	// a valid proof for another index
	req = e.claimRequest(r.ID, 1)
	req.Index = 0
	_, err = e.o.Claim(e.ctx, r.ID, req)
	c.Assert(err, qt.ErrorIs, ErrIncorrectTallyResult)

	req = e.claimRequest(r.ID, 0)
	req.TallyPath = req.TallyPath[:0]
	_, err = e.o.Claim(e.ctx, r.ID, req)
	c.Assert(err, qt.ErrorIs, ErrIncorrectTallyResult)

	_, err = e.o.Claim(e.ctx, r.ID, &ClaimRequest{Index: 2})
	c.Assert(err, qt.ErrorIs, ErrIndexOutOfRange)

	_, err = e.o.Claim(e.ctx, r.ID, nil)
	c.Assert(err, qt.ErrorIs, ErrIncorrectTallyResult)

	// null siblings decoded from JSON
	var decoded ClaimRequest
	data, err := json.Marshal(e.claimRequest(r.ID, 0))
	c.Assert(err, qt.IsNil)
	c.Assert(json.Unmarshal(data, &decoded), qt.IsNil)
	decoded.TallyPath[0][0] = nil
	_, err = e.o.Claim(e.ctx, r.ID, &decoded)
	c.Assert(err, qt.ErrorIs, ErrIncorrectTallyResult)

	req = e.claimRequest(r.ID, 0)
	req.SpentPath[0][3] = nil
	_, err = e.o.Claim(e.ctx, r.ID, req)
	c.Assert(err, qt.ErrorIs, ErrIncorrectSpentVoiceCredits)

	// nothing was recorded by the failed attempts
	claims, err := e.stg.ListClaims(r.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(claims, qt.HasLen, 0)
	_, err = e.o.Claim(e.ctx, r.ID, e.claimRequest(r.ID, 0))
	c.Assert(err, qt.IsNil)
}

func TestClaimRequiresFinalizedRound(t *testing.T) {
	e := newTestEnv(t)
	c := e.c
	r, _ := e.tallyingRound(1, []int64{3, 4}, []int64{5, 8}, 1, 20, 0)
	e.verifyAll(r.ID, 2)
	req := e.claimRequest(r.ID, 0)

	_, err := e.o.Claim(e.ctx, r.ID, req)
	c.Assert(err, qt.ErrorIs, ErrRoundNotFinalized)

	_, err = e.o.Cancel(e.ctx, r.ID)
	c.Assert(err, qt.IsNil)
	_, err = e.o.Claim(e.ctx, r.ID, req)
	c.Assert(err, qt.ErrorIs, ErrRoundCancelled)
}

func TestClaimWithZeroAlpha(t *testing.T) {
	e := newTestEnv(t)
	c := e.c
	r, _ := e.finalizedRound([]int64{200, 200}, []int64{20000, 20000}, 1, 40000, 0)
	alpha, err := e.o.Alpha(e.ctx, r.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(alpha.Numerator.IsZero(), qt.IsTrue)

	for i := uint32(0); i < 2; i++ {
		rec, err := e.o.Claim(e.ctx, r.ID, e.claimRequest(r.ID, i))
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Amount.MathBigInt().Int64(), qt.Equals, int64(20000))
	}
}

func TestClaimConcurrentSameIndex(t *testing.T) {
	e := newTestEnv(t)
	c := e.c
	r, _ := e.finalizedRound([]int64{3, 4}, []int64{5, 8}, 1, 20, 0)
	req := e.claimRequest(r.ID, 1)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.o.Claim(e.ctx, r.ID, req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		c.Assert(errors.Is(err, ErrFundsAlreadyClaimed), qt.IsTrue, qt.Commentf("%v", err))
	}
	c.Assert(wins, qt.Equals, 1)
	pending, err := e.stg.CountPendingPayouts()
	c.Assert(err, qt.IsNil)
	c.Assert(pending, qt.Equals, 1)
}

func TestClaimRequestFromArtifact(t *testing.T) {
	e := newTestEnv(t)
	c := e.c
	r, tl := e.finalizedRound([]int64{30, 40, 0}, []int64{500, 1000, 0}, 10, 15000, 5000)

	req, err := ClaimRequestFromArtifact(e.ctx, tl.Artifact, r.VoteOptionDepth, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(req, qt.DeepEquals, e.claimRequest(r.ID, 1))
	rec, err := e.o.Claim(e.ctx, r.ID, req)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Amount.MathBigInt().Int64(), qt.Equals, int64(13000))

	_, err = ClaimRequestFromArtifact(e.ctx, tl.Artifact, r.VoteOptionDepth, 3)
	c.Assert(err, qt.ErrorIs, ErrIndexOutOfRange)
	// three results do not fit a tree of depth zero
	_, err = ClaimRequestFromArtifact(e.ctx, tl.Artifact, 0, 0)
	c.Assert(err, qt.ErrorIs, ErrInvalidArtifact)
}
