package funding

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/merkle"
	"github.com/vocdoni/qf-tally/types"
	"github.com/vocdoni/qf-tally/util"
)

// RoundParams are the parameters of a new round.
type RoundParams struct {
	Coordinator       common.Address `json:"coordinator"`
	FallbackAddress   common.Address `json:"fallbackAddress"`
	VoiceCreditFactor *types.BigInt  `json:"voiceCreditFactor"`
	MatchingPool      *types.BigInt  `json:"matchingPool,omitempty"`
	RecipientCount    uint32         `json:"recipientCount"`
	// VoteOptionDepth is the depth of the vote option tree. Zero selects
	// the minimal depth holding RecipientCount leaves.
	VoteOptionDepth uint8 `json:"voteOptionTreeDepth,omitempty"`
}

func (p *RoundParams) validate() error {
	if p.FallbackAddress == (common.Address{}) {
		return fmt.Errorf("%w: missing fallback address", ErrInvalidRoundParams)
	}
	if p.VoiceCreditFactor == nil || p.VoiceCreditFactor.MathBigInt().Sign() <= 0 {
		return fmt.Errorf("%w: voice credit factor must be positive", ErrInvalidRoundParams)
	}
	if p.MatchingPool != nil && p.MatchingPool.MathBigInt().Sign() < 0 {
		return fmt.Errorf("%w: negative matching pool", ErrInvalidRoundParams)
	}
	if p.RecipientCount == 0 {
		return fmt.Errorf("%w: no recipients", ErrInvalidRoundParams)
	}
	if p.VoteOptionDepth == 0 {
		p.VoteOptionDepth = merkle.DepthFor(uint64(p.RecipientCount))
	}
	if p.VoteOptionDepth > merkle.MaxDepth {
		return fmt.Errorf("%w: vote option tree depth %d", ErrInvalidRoundParams, p.VoteOptionDepth)
	}
	capacity := uint64(1)
	for i := uint8(0); i < p.VoteOptionDepth; i++ {
		capacity *= merkle.Arity
	}
	if uint64(p.RecipientCount) > capacity {
		return fmt.Errorf("%w: %d recipients do not fit a tree of depth %d",
			ErrInvalidRoundParams, p.RecipientCount, p.VoteOptionDepth)
	}
	return nil
}

// NewRound creates an open round.
func (o *Orchestrator) NewRound(ctx context.Context, params *RoundParams) (*types.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := *params
	if err := p.validate(); err != nil {
		return nil, err
	}
	r := &types.Round{
		ID:                 types.NewRoundID(),
		Status:             types.RoundOpen,
		Coordinator:        p.Coordinator,
		FallbackAddress:    p.FallbackAddress,
		VoiceCreditFactor:  p.VoiceCreditFactor.Clone(),
		TotalContributions: new(types.BigInt),
		MatchingPool:       p.MatchingPool.Clone(),
		RecipientCount:     p.RecipientCount,
		VoteOptionDepth:    p.VoteOptionDepth,
		TotalVotesSquares:  new(types.BigInt),
		CreatedAt:          o.now().Unix(),
	}
	if err := o.stg.CreateRound(r); err != nil {
		return nil, err
	}
	log.Infow("round created", "round", r.ID.String(), "recipients", r.RecipientCount,
		"depth", r.VoteOptionDepth, "voiceCreditFactor", r.VoiceCreditFactor.String())
	return r, nil
}

// Round returns the current state of a round.
func (o *Orchestrator) Round(ctx context.Context, id types.RoundID) (*types.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.load(id)
}

func positive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	return nil
}

// Contribute records a contribution to the round. Contributions are
// accepted only while the round is open.
func (o *Orchestrator) Contribute(ctx context.Context, id types.RoundID, amount *big.Int) (*types.Round, error) {
	if err := positive(amount); err != nil {
		return nil, err
	}
	return o.update(ctx, id, func(r *types.Round) error {
		if r.Status.Terminal() {
			return ErrRoundAlreadyFinalized
		}
		if r.Status != types.RoundOpen {
			return ErrRoundNotOpen
		}
		r.TotalContributions = new(types.BigInt).Add(r.TotalContributions.Clone(), types.FromBig(amount))
		r.Contributors++
		return nil
	})
}

// AddMatchingFunds increases the matching pool of a round that is not
// finalized or cancelled.
func (o *Orchestrator) AddMatchingFunds(ctx context.Context, id types.RoundID, amount *big.Int) (*types.Round, error) {
	if err := positive(amount); err != nil {
		return nil, err
	}
	return o.update(ctx, id, func(r *types.Round) error {
		if r.Status.Terminal() {
			return ErrRoundAlreadyFinalized
		}
		r.MatchingPool = new(types.BigInt).Add(r.MatchingPool.Clone(), types.FromBig(amount))
		return nil
	})
}

func startTallying(r *types.Round) {
	if r.Status == types.RoundOpen && r.Commitments != nil && len(r.TallyHash) > 0 {
		r.Status = types.RoundTallying
		log.Infow("round tallying", "round", r.ID.String(), "tallyHash", r.TallyHash.String())
	}
}

// ConcludeVoting records the commitments produced by the vote-processing
// engine. Once the tally hash is also published the round moves to
// tallying. Repeating the call with identical commitments is a no-op.
func (o *Orchestrator) ConcludeVoting(ctx context.Context, id types.RoundID, c *types.TallyCommitments) (*types.Round, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: missing commitments", ErrInvalidArtifact)
	}
	for _, v := range []*types.BigInt{c.Results, c.PerRecipientSpent, c.TotalSpent} {
		if !util.InField(v.MathBigInt()) {
			return nil, fmt.Errorf("%w: commitment is not a field element", ErrInvalidArtifact)
		}
	}
	return o.update(ctx, id, func(r *types.Round) error {
		if r.Status.Terminal() {
			return ErrRoundAlreadyFinalized
		}
		if r.Commitments != nil {
			if r.Commitments.Equal(c) {
				return nil
			}
			return fmt.Errorf("%w: voting already concluded with other commitments", ErrCommitmentAlreadyPublished)
		}
		r.Commitments = &types.TallyCommitments{
			Results:           c.Results.Clone(),
			PerRecipientSpent: c.PerRecipientSpent.Clone(),
			TotalSpent:        c.TotalSpent.Clone(),
		}
		startTallying(r)
		return nil
	})
}

// PublishTallyHash records the digest of the tally artifact. Publishing
// the same digest again is a no-op; publishing another one fails.
func (o *Orchestrator) PublishTallyHash(ctx context.Context, id types.RoundID, digest types.HexBytes) (*types.Round, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("%w: tally hash must be 32 bytes", ErrInvalidArtifact)
	}
	return o.update(ctx, id, func(r *types.Round) error {
		if r.Status.Terminal() {
			return ErrRoundAlreadyFinalized
		}
		if len(r.TallyHash) > 0 {
			if r.TallyHash.Equal(digest) {
				return nil
			}
			return fmt.Errorf("%w: tally hash %s", ErrCommitmentAlreadyPublished, r.TallyHash)
		}
		r.TallyHash = append(types.HexBytes(nil), digest...)
		startTallying(r)
		return nil
	})
}

// Cancel cancels an open or tallying round. No claims are accepted after.
func (o *Orchestrator) Cancel(ctx context.Context, id types.RoundID) (*types.Round, error) {
	return o.update(ctx, id, func(r *types.Round) error {
		if r.Status.Terminal() {
			return ErrRoundAlreadyFinalized
		}
		r.Status = types.RoundCancelled
		log.Infow("round cancelled", "round", r.ID.String())
		return nil
	})
}

// IsFinalized reports whether the round is finalized.
func (o *Orchestrator) IsFinalized(ctx context.Context, id types.RoundID) (bool, error) {
	r, err := o.Round(ctx, id)
	if err != nil {
		return false, err
	}
	return r.Status == types.RoundFinalized, nil
}

// IsCancelled reports whether the round is cancelled.
func (o *Orchestrator) IsCancelled(ctx context.Context, id types.RoundID) (bool, error) {
	r, err := o.Round(ctx, id)
	if err != nil {
		return false, err
	}
	return r.Status == types.RoundCancelled, nil
}

// TotalTallyResults returns the verification cursor of the round.
func (o *Orchestrator) TotalTallyResults(ctx context.Context, id types.RoundID) (uint32, error) {
	r, err := o.Round(ctx, id)
	if err != nil {
		return 0, err
	}
	return r.TotalTallyResults, nil
}

// Alpha returns the matching coefficient of a finalized round.
func (o *Orchestrator) Alpha(ctx context.Context, id types.RoundID) (*types.Fraction, error) {
	r, err := o.Round(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != types.RoundFinalized || r.Allocation == nil {
		return nil, ErrRoundNotFinalized
	}
	return r.Allocation.Alpha, nil
}
