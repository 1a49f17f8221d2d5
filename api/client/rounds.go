package client

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/qf-tally/api"
	"github.com/vocdoni/qf-tally/funding"
	"github.com/vocdoni/qf-tally/types"
)

func roundPath(pattern string, id types.RoundID) string {
	return endpoint(pattern, api.RoundURLParam, id.String())
}

func claimPath(pattern string, id types.RoundID, index uint32) string {
	return endpoint(pattern, api.RoundURLParam, id.String(), api.IndexURLParam, fmt.Sprint(index))
}

// NewRound creates a round.
func (c *HTTPclient) NewRound(params *funding.RoundParams) (*types.Round, error) {
	r := &types.Round{}
	return r, c.call(HTTPPOST, params, r, api.RoundsEndpoint)
}

// Rounds lists the rounds in the given status, or every round if status
// is nil.
func (c *HTTPclient) Rounds(status *types.RoundStatus) ([]types.RoundID, error) {
	var params []string
	if status != nil {
		params = []string{"status", status.String()}
	}
	data, code, err := c.Request(HTTPGET, nil, params, api.RoundsEndpoint)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, responseError(code, data)
	}
	list := &api.RoundList{}
	if err := json.Unmarshal(data, list); err != nil {
		return nil, err
	}
	return list.Rounds, nil
}

// Round returns the state of a round.
func (c *HTTPclient) Round(id types.RoundID) (*types.Round, error) {
	r := &types.Round{}
	return r, c.call(HTTPGET, nil, r, roundPath(api.RoundEndpoint, id))
}

// Contribute records a contribution.
func (c *HTTPclient) Contribute(id types.RoundID, amount *big.Int) (*types.Round, error) {
	r := &types.Round{}
	return r, c.call(HTTPPOST, &api.Amount{Amount: types.FromBig(amount)}, r, roundPath(api.ContributionsEndpoint, id))
}

// AddMatchingFunds adds funds to the matching pool.
func (c *HTTPclient) AddMatchingFunds(id types.RoundID, amount *big.Int) (*types.Round, error) {
	r := &types.Round{}
	return r, c.call(HTTPPOST, &api.Amount{Amount: types.FromBig(amount)}, r, roundPath(api.MatchingEndpoint, id))
}

// ConcludeVoting publishes the vote-processing engine commitments.
func (c *HTTPclient) ConcludeVoting(id types.RoundID, commitments *types.TallyCommitments) (*types.Round, error) {
	r := &types.Round{}
	return r, c.call(HTTPPOST, commitments, r, roundPath(api.VotingEndpoint, id))
}

// PublishTallyHash publishes the tally artifact digest.
func (c *HTTPclient) PublishTallyHash(id types.RoundID, digest types.HexBytes) (*types.Round, error) {
	r := &types.Round{}
	return r, c.call(HTTPPOST, &api.TallyHash{TallyHash: digest}, r, roundPath(api.TallyHashEndpoint, id))
}

// VerifyBatch verifies a batch of tally results.
func (c *HTTPclient) VerifyBatch(id types.RoundID, start, size uint32) (*funding.BatchOutcome, error) {
	out := &funding.BatchOutcome{}
	return out, c.call(HTTPPOST, &api.Batch{StartIndex: start, BatchSize: size}, out, roundPath(api.BatchesEndpoint, id))
}

// Finalize finalizes a round.
func (c *HTTPclient) Finalize(id types.RoundID, req *api.Finalize) (*types.Fraction, error) {
	out := &api.Alpha{}
	if err := c.call(HTTPPOST, req, out, roundPath(api.FinalizeEndpoint, id)); err != nil {
		return nil, err
	}
	return out.Alpha, nil
}

// Cancel cancels a round.
func (c *HTTPclient) Cancel(id types.RoundID) (*types.Round, error) {
	r := &types.Round{}
	return r, c.call(HTTPPOST, nil, r, roundPath(api.CancelEndpoint, id))
}

// ClaimRequest fetches the claim request of a recipient.
func (c *HTTPclient) ClaimRequest(id types.RoundID, index uint32) (*funding.ClaimRequest, error) {
	req := &funding.ClaimRequest{}
	return req, c.call(HTTPGET, nil, req, claimPath(api.ProofsEndpoint, id, index))
}

// Claim claims the allocation of a recipient.
func (c *HTTPclient) Claim(id types.RoundID, req *funding.ClaimRequest) (*types.ClaimRecord, error) {
	rec := &types.ClaimRecord{}
	return rec, c.call(HTTPPOST, req, rec, roundPath(api.ClaimsEndpoint, id))
}

// ClaimRecord returns a claim and its payout receipt.
func (c *HTTPclient) ClaimRecord(id types.RoundID, index uint32) (*api.Claim, error) {
	out := &api.Claim{}
	return out, c.call(HTTPGET, nil, out, claimPath(api.ClaimEndpoint, id, index))
}

// ClaimProof returns the claims ledger proof of a claim.
func (c *HTTPclient) ClaimProof(id types.RoundID, index uint32) (*types.ClaimProof, error) {
	out := &types.ClaimProof{}
	return out, c.call(HTTPGET, nil, out, claimPath(api.ClaimProofEndpoint, id, index))
}

// PublishArtifact publishes a tally artifact and returns its digest.
func (c *HTTPclient) PublishArtifact(a *types.TallyArtifact) (types.HexBytes, error) {
	out := &api.Artifact{}
	if err := c.call(HTTPPOST, a, out, api.ArtifactsEndpoint); err != nil {
		return nil, err
	}
	return out.Digest, nil
}

// Artifact fetches a tally artifact by digest.
func (c *HTTPclient) Artifact(digest types.HexBytes) (*types.TallyArtifact, error) {
	a := &types.TallyArtifact{}
	return a, c.call(HTTPGET, nil, a, endpoint(api.ArtifactEndpoint, api.DigestURLParam, digest.String()))
}

// SetRecipient registers a recipient in the node registry.
func (c *HTTPclient) SetRecipient(index uint32, addr common.Address) error {
	return c.call(HTTPPUT, &api.Recipient{Address: addr}, nil,
		endpoint(api.RecipientEndpoint, api.IndexURLParam, fmt.Sprint(index)))
}
