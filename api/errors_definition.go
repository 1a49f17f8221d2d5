//nolint:lll
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/qf-tally/funding"
	"github.com/vocdoni/qf-tally/registry"
	"github.com/vocdoni/qf-tally/storage"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXXX or 5XXXX.
// If there is a gap in the list, that code was used in the past and shouldn't be reused.
var (
	ErrResourceNotFound           = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody              = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedRoundID           = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed round ID")}
	ErrRoundNotFound              = Error{Code: 40007, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("round not found")}
	ErrMalformedParam             = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}
	ErrInvalidRoundParams         = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid round parameters")}
	ErrWrongRoundState            = Error{Code: 40010, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("operation not allowed in the current round state")}
	ErrVoteResultsAlreadyVerified = Error{Code: 40011, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("vote results already verified")}
	ErrStaleCursor                = Error{Code: 40012, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("batch does not start at the verification cursor")}
	ErrInvalidBatchSize           = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid batch size")}
	ErrIncorrectTallyResult       = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("incorrect tally result")}
	ErrIncorrectSpentVoiceCredits = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("incorrect spent voice credits")}
	ErrFundsAlreadyClaimed        = Error{Code: 40016, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("funds already claimed")}
	ErrIncompleteTallyResults     = Error{Code: 40017, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("incomplete tally results")}
	ErrNoVotes                    = Error{Code: 40018, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("no votes")}
	ErrInvalidArtifact            = Error{Code: 40019, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid tally artifact")}
	ErrArtifactNotFound           = Error{Code: 40020, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("tally artifact not found")}
	ErrAllocation                 = Error{Code: 40021, HTTPstatus: http.StatusUnprocessableEntity, Err: fmt.Errorf("cannot compute allocation")}
	ErrIndexOutOfRange            = Error{Code: 40022, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("recipient index out of range")}
	ErrClaimNotFound              = Error{Code: 40023, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("claim not found")}
	ErrCommitmentAlreadyPublished = Error{Code: 40024, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("commitment already published")}
	ErrVotesNotTallied            = Error{Code: 40025, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("votes not tallied")}
	ErrTallyHashNotPublished      = Error{Code: 40026, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("tally hash not published")}
	ErrInvalidAmount              = Error{Code: 40027, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid amount")}
	ErrRecipientNotFound          = Error{Code: 40028, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("recipient not registered")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrRegistryNotAvailable       = Error{Code: 50003, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("recipient registry not managed by this node")}
)

// errorCatalog maps the domain errors to their API error. The first match
// wins, so more specific errors go first.
var errorCatalog = []struct {
	target error
	apiErr Error
}{
	{funding.ErrRoundNotFound, ErrRoundNotFound},
	{funding.ErrInvalidRoundParams, ErrInvalidRoundParams},
	{funding.ErrInvalidAmount, ErrInvalidAmount},
	{funding.ErrVoteResultsAlreadyVerified, ErrVoteResultsAlreadyVerified},
	{funding.ErrStaleCursor, ErrStaleCursor},
	{funding.ErrInvalidBatchSize, ErrInvalidBatchSize},
	{funding.ErrIncorrectTallyResult, ErrIncorrectTallyResult},
	{funding.ErrIncorrectSpentVoiceCredits, ErrIncorrectSpentVoiceCredits},
	{funding.ErrFundsAlreadyClaimed, ErrFundsAlreadyClaimed},
	{funding.ErrIncompleteTallyResults, ErrIncompleteTallyResults},
	{funding.ErrNoVotes, ErrNoVotes},
	{funding.ErrInvalidArtifact, ErrInvalidArtifact},
	{funding.ErrIndexOutOfRange, ErrIndexOutOfRange},
	{funding.ErrCommitmentAlreadyPublished, ErrCommitmentAlreadyPublished},
	{funding.ErrVotesNotTallied, ErrVotesNotTallied},
	{funding.ErrTallyHashNotPublished, ErrTallyHashNotPublished},
	{funding.ErrInvalidBudget, ErrAllocation},
	{funding.ErrNoProjectHasMoreThanOneVote, ErrAllocation},
	{funding.ErrOverflow, ErrAllocation},
	{funding.ErrRoundNotTallying, ErrWrongRoundState},
	{funding.ErrRoundAlreadyFinalized, ErrWrongRoundState},
	{funding.ErrRoundCancelled, ErrWrongRoundState},
	{funding.ErrRoundNotFinalized, ErrWrongRoundState},
	{funding.ErrRoundNotOpen, ErrWrongRoundState},
	{registry.ErrNotRegistered, ErrRecipientNotFound},
	{storage.ErrDigestMismatch, ErrInvalidArtifact},
	{storage.ErrNotFound, ErrResourceNotFound},
}

// errorFor returns the API error matching err, keeping err as its message.
// Unknown errors are internal server errors.
func errorFor(err error) Error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, e := range errorCatalog {
		if errors.Is(err, e.target) {
			return Error{Err: err, Code: e.apiErr.Code, HTTPstatus: e.apiErr.HTTPstatus}
		}
	}
	return ErrGenericInternalServerError.WithErr(err)
}
