package api

import (
	"errors"
	"net/http"

	"github.com/vocdoni/qf-tally/funding"
	"github.com/vocdoni/qf-tally/storage"
)

// claim verifies the proofs of a recipient and records its allocation
// POST /rounds/{roundId}/claims
func (a *API) claim(w http.ResponseWriter, r *http.Request) {
	id, ok := roundID(w, r)
	if !ok {
		return
	}
	req := &funding.ClaimRequest{}
	if !decodeBody(w, r, req) {
		return
	}
	rec, err := a.orch.Claim(r.Context(), id, req)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, rec)
}

// claimRecord returns the claim of a recipient with its payout receipt,
// if already paid
// GET /rounds/{roundId}/claims/{index}
func (a *API) claimRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := roundID(w, r)
	if !ok {
		return
	}
	index, ok := recipientIndex(w, r)
	if !ok {
		return
	}
	rec, err := a.storage.Claim(id, index)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrClaimNotFound.Withf("round %s, index %d", id, index).Write(w)
			return
		}
		errorFor(err).Write(w)
		return
	}
	resp := &Claim{Claim: rec}
	receipt, err := a.storage.PayoutReceipt(id, index)
	switch {
	case err == nil:
		resp.Receipt = receipt
	case !errors.Is(err, storage.ErrNotFound):
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, resp)
}

// claimProof returns the proof of a claim in the round claims ledger
// GET /rounds/{roundId}/claims/{index}/proof
func (a *API) claimProof(w http.ResponseWriter, r *http.Request) {
	id, ok := roundID(w, r)
	if !ok {
		return
	}
	index, ok := recipientIndex(w, r)
	if !ok {
		return
	}
	proof, err := a.storage.ClaimProof(id, index)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrClaimNotFound.Withf("round %s, index %d", id, index).Write(w)
			return
		}
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, proof)
}

// claimRequest builds the claim request of a recipient from the published
// tally artifact
// GET /rounds/{roundId}/proofs/{index}
func (a *API) claimRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := roundID(w, r)
	if !ok {
		return
	}
	index, ok := recipientIndex(w, r)
	if !ok {
		return
	}
	req, err := a.orch.ClaimRequestFor(r.Context(), id, index)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrArtifactNotFound.WithErr(err).Write(w)
			return
		}
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, req)
}
