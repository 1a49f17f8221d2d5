package funding

import (
	"errors"

	"github.com/vocdoni/qf-tally/alloc"
	"github.com/vocdoni/qf-tally/merkle"
)

var (
	ErrRoundNotFound              = errors.New("round not found")
	ErrRoundNotTallying           = errors.New("round is not tallying")
	ErrRoundAlreadyFinalized      = errors.New("round already finalized")
	ErrRoundCancelled             = errors.New("round cancelled")
	ErrRoundNotFinalized          = errors.New("round not finalized")
	ErrRoundNotOpen               = errors.New("round is not open")
	ErrVoteResultsAlreadyVerified = errors.New("vote results already verified")
	ErrStaleCursor                = errors.New("start index is ahead of the verified results")
	ErrInvalidBatchSize           = errors.New("invalid batch size")
	ErrIncorrectTallyResult       = errors.New("incorrect tally result")
	ErrIncorrectSpentVoiceCredits = errors.New("incorrect spent voice credits")
	ErrFundsAlreadyClaimed        = errors.New("funds already claimed")
	ErrVotesNotTallied            = errors.New("votes not tallied")
	ErrIncompleteTallyResults     = errors.New("incomplete tally results")
	ErrNoVotes                    = errors.New("no votes")
	ErrTallyHashNotPublished      = errors.New("tally hash not published")
	ErrCommitmentAlreadyPublished = errors.New("commitment already published")
	ErrInvalidArtifact            = errors.New("invalid tally artifact")
	ErrInvalidRoundParams         = errors.New("invalid round parameters")
	ErrInvalidAmount              = errors.New("invalid amount")

	ErrInvalidBudget               = alloc.ErrInvalidBudget
	ErrNoProjectHasMoreThanOneVote = alloc.ErrNoProjectHasMoreThanOneVote
	ErrOverflow                    = alloc.ErrOverflow
	ErrIndexOutOfRange             = merkle.ErrIndexOutOfRange
)
