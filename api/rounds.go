package api

import (
	"net/http"

	"github.com/vocdoni/qf-tally/funding"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/types"
)

// newRound creates an open round
// POST /rounds
func (a *API) newRound(w http.ResponseWriter, r *http.Request) {
	params := &funding.RoundParams{}
	if !decodeBody(w, r, params) {
		return
	}
	round, err := a.orch.NewRound(r.Context(), params)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, round)
}

// listRounds lists the rounds, optionally filtered by ?status=
// GET /rounds
func (a *API) listRounds(w http.ResponseWriter, r *http.Request) {
	var filter *types.RoundStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status := new(types.RoundStatus)
		if err := status.UnmarshalJSON([]byte(`"` + s + `"`)); err != nil {
			ErrMalformedParam.WithErr(err).Write(w)
			return
		}
		filter = status
	}
	ids, err := a.storage.ListRounds(filter)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	if ids == nil {
		ids = []types.RoundID{}
	}
	httpWriteJSON(w, &RoundList{Rounds: ids})
}

// round returns the state of a round
// GET /rounds/{roundId}
func (a *API) round(w http.ResponseWriter, r *http.Request) {
	id, ok := roundID(w, r)
	if !ok {
		return
	}
	round, err := a.orch.Round(r.Context(), id)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, round)
}

// contribute records a contribution
// POST /rounds/{roundId}/contributions
func (a *API) contribute(w http.ResponseWriter, r *http.Request) {
	id, ok := roundID(w, r)
	if !ok {
		return
	}
	req := &Amount{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.Amount == nil {
		ErrInvalidAmount.With("missing amount").Write(w)
		return
	}
	round, err := a.orch.Contribute(r.Context(), id, req.Amount.MathBigInt())
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, round)
}

// addMatchingFunds adds funds to the matching pool
// POST /rounds/{roundId}/matching
func (a *API) addMatchingFunds(w http.ResponseWriter, r *http.Request) {
	id, ok := roundID(w, r)
	if !ok {
		return
	}
	req := &Amount{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.Amount == nil {
		ErrInvalidAmount.With("missing amount").Write(w)
		return
	}
	round, err := a.orch.AddMatchingFunds(r.Context(), id, req.Amount.MathBigInt())
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, round)
}

// concludeVoting records the vote-processing engine commitments
// POST /rounds/{roundId}/voting
func (a *API) concludeVoting(w http.ResponseWriter, r *http.Request) {
	id, ok := roundID(w, r)
	if !ok {
		return
	}
	req := &types.TallyCommitments{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.Results == nil || req.PerRecipientSpent == nil || req.TotalSpent == nil {
		ErrInvalidArtifact.With("missing commitments").Write(w)
		return
	}
	round, err := a.orch.ConcludeVoting(r.Context(), id, req)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, round)
}

// publishTallyHash records the tally artifact digest
// POST /rounds/{roundId}/tallyhash
func (a *API) publishTallyHash(w http.ResponseWriter, r *http.Request) {
	id, ok := roundID(w, r)
	if !ok {
		return
	}
	req := &TallyHash{}
	if !decodeBody(w, r, req) {
		return
	}
	round, err := a.orch.PublishTallyHash(r.Context(), id, req.TallyHash)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, round)
}

// verifyBatch verifies a batch of tally results
// POST /rounds/{roundId}/batches
func (a *API) verifyBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := roundID(w, r)
	if !ok {
		return
	}
	req := &Batch{}
	if !decodeBody(w, r, req) {
		return
	}
	out, err := a.orch.VerifyBatch(r.Context(), id, req.StartIndex, req.BatchSize)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, out)
}

// finalize finalizes a round and returns its alpha
// POST /rounds/{roundId}/finalize
func (a *API) finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := roundID(w, r)
	if !ok {
		return
	}
	req := &Finalize{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.TotalSpent == nil || req.TotalSpentSalt == nil ||
		req.ResultsCommitment == nil || req.SpentCommitment == nil {
		ErrMalformedBody.With("missing finalization fields").Write(w)
		return
	}
	alpha, err := a.orch.Finalize(r.Context(), id,
		req.TotalSpent.MathBigInt(), req.TotalSpentSalt.MathBigInt(),
		req.ResultsCommitment.MathBigInt(), req.SpentCommitment.MathBigInt())
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	log.Infow("round finalized through the API", "round", id.String())
	httpWriteJSON(w, &Alpha{Alpha: alpha})
}

// cancel cancels a round
// POST /rounds/{roundId}/cancel
func (a *API) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := roundID(w, r)
	if !ok {
		return
	}
	round, err := a.orch.Cancel(r.Context(), id)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteJSON(w, round)
}
