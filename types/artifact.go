package types

import (
	"fmt"
)

// SpentCredits is the total spent voice credits of a round and its salt.
type SpentCredits struct {
	Spent *BigInt `json:"spent"`
	Salt  *BigInt `json:"salt"`
}

// TallyResults is a per-recipient vector and the salt used to commit to
// its Merkle root.
type TallyResults struct {
	Tally []*BigInt `json:"tally"`
	Salt  *BigInt   `json:"salt"`
}

// TallyArtifact is the off-chain tally output published by the coordinator.
// Its canonical JSON encoding is the content addressed by the tally hash.
type TallyArtifact struct {
	TotalSpentVoiceCredits SpentCredits `json:"totalSpentVoiceCredits"`
	Results                TallyResults `json:"results"`
	PerVOSpentVoiceCredits TallyResults `json:"perVOSpentVoiceCredits"`
}

// Len returns the number of vote options in the artifact.
func (a *TallyArtifact) Len() int {
	return len(a.Results.Tally)
}

// Validate checks the structural invariants of the artifact.
func (a *TallyArtifact) Validate() error {
	if len(a.Results.Tally) != len(a.PerVOSpentVoiceCredits.Tally) {
		return fmt.Errorf("results has %d entries but perVOSpentVoiceCredits has %d",
			len(a.Results.Tally), len(a.PerVOSpentVoiceCredits.Tally))
	}
	if a.TotalSpentVoiceCredits.Spent == nil || a.TotalSpentVoiceCredits.Salt == nil {
		return fmt.Errorf("missing totalSpentVoiceCredits")
	}
	if a.Results.Salt == nil || a.PerVOSpentVoiceCredits.Salt == nil {
		return fmt.Errorf("missing salt")
	}
	for _, v := range []*BigInt{
		a.TotalSpentVoiceCredits.Spent, a.TotalSpentVoiceCredits.Salt,
		a.Results.Salt, a.PerVOSpentVoiceCredits.Salt,
	} {
		if v.MathBigInt().Sign() < 0 {
			return fmt.Errorf("negative value %s", v)
		}
	}
	for i := range a.Results.Tally {
		t, s := a.Results.Tally[i], a.PerVOSpentVoiceCredits.Tally[i]
		if t == nil || s == nil {
			return fmt.Errorf("missing value at index %d", i)
		}
		if t.MathBigInt().Sign() < 0 || s.MathBigInt().Sign() < 0 {
			return fmt.Errorf("negative value at index %d", i)
		}
	}
	return nil
}
