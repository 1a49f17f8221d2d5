package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/qf-tally/types"
)

// RoundList is the response to a round listing request.
type RoundList struct {
	Rounds []types.RoundID `json:"rounds"`
}

// Amount is the body of contribution and matching fund requests.
type Amount struct {
	Amount *types.BigInt `json:"amount"`
}

// TallyHash is the body of a tally hash publication.
type TallyHash struct {
	TallyHash types.HexBytes `json:"tallyHash"`
}

// Batch is the body of a batch verification request.
type Batch struct {
	StartIndex uint32 `json:"startIndex"`
	BatchSize  uint32 `json:"batchSize"`
}

// Finalize is the body of a finalization request.
type Finalize struct {
	TotalSpent        *types.BigInt `json:"totalSpent"`
	TotalSpentSalt    *types.BigInt `json:"totalSpentSalt"`
	ResultsCommitment *types.BigInt `json:"resultsCommitment"`
	SpentCommitment   *types.BigInt `json:"spentCommitment"`
}

// Alpha is the response to a finalization.
type Alpha struct {
	Alpha *types.Fraction `json:"alpha"`
}

// Claim is the response to a claim query.
type Claim struct {
	Claim   *types.ClaimRecord   `json:"claim"`
	Receipt *types.PayoutReceipt `json:"receipt,omitempty"`
}

// Artifact is the response to an artifact publication.
type Artifact struct {
	Digest types.HexBytes `json:"digest"`
}

// Recipient is the body of a recipient registration.
type Recipient struct {
	Address common.Address `json:"address"`
}
