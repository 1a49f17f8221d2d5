package funding

import (
	"context"
	"fmt"

	"github.com/vocdoni/qf-tally/types"
)

// ClaimRequestFor builds the claim request of a recipient from the
// published tally artifact, with the Merkle paths of its results and
// spent voice credits.
func (o *Orchestrator) ClaimRequestFor(ctx context.Context, id types.RoundID, index uint32) (*ClaimRequest, error) {
	r, err := o.Round(ctx, id)
	if err != nil {
		return nil, err
	}
	if index >= r.RecipientCount {
		return nil, fmt.Errorf("%w: index %d, %d recipients", ErrIndexOutOfRange, index, r.RecipientCount)
	}
	tt, err := o.tallyTrees(ctx, r)
	if err != nil {
		return nil, err
	}
	return tt.claimRequest(index)
}

// ClaimRequestFromArtifact builds the claim request of a recipient from a
// tally artifact whose vote option tree has the given depth, without any
// round state.
func ClaimRequestFromArtifact(ctx context.Context, a *types.TallyArtifact, depth uint8, index uint32) (*ClaimRequest, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if int(index) >= a.Len() {
		return nil, fmt.Errorf("%w: index %d, %d results", ErrIndexOutOfRange, index, a.Len())
	}
	tt, err := buildTallyTrees(ctx, depth, a)
	if err != nil {
		return nil, err
	}
	return tt.claimRequest(index)
}

func (tt *tallyTrees) claimRequest(index uint32) (*ClaimRequest, error) {
	tallyPath, err := tt.results.GenMerklePath(int(index))
	if err != nil {
		return nil, err
	}
	spentPath, err := tt.spent.GenMerklePath(int(index))
	if err != nil {
		return nil, err
	}
	return &ClaimRequest{
		Index:     index,
		Tally:     tt.artifact.Results.Tally[index].Clone(),
		TallySalt: tt.artifact.Results.Salt.Clone(),
		TallyPath: pathToTypes(tallyPath),
		Spent:     tt.artifact.PerVOSpentVoiceCredits.Tally[index].Clone(),
		SpentSalt: tt.artifact.PerVOSpentVoiceCredits.Salt.Clone(),
		SpentPath: pathToTypes(spentPath),
	}, nil
}

// Artifact returns the verified tally artifact published for a round. The
// returned artifact is shared and must not be modified.
func (o *Orchestrator) Artifact(ctx context.Context, id types.RoundID) (*types.TallyArtifact, error) {
	r, err := o.Round(ctx, id)
	if err != nil {
		return nil, err
	}
	tt, err := o.tallyTrees(ctx, r)
	if err != nil {
		return nil, err
	}
	return tt.artifact, nil
}
