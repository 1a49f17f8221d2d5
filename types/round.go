package types

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// RoundID identifies a funding round.
type RoundID = uuid.UUID

// NewRoundID returns a new random round identifier.
func NewRoundID() RoundID {
	return uuid.New()
}

// ParseRoundID parses the canonical textual form of a round identifier.
func ParseRoundID(s string) (RoundID, error) {
	return uuid.Parse(s)
}

// RoundStatus is the lifecycle state of a round.
type RoundStatus uint8

const (
	RoundOpen RoundStatus = iota
	RoundTallying
	RoundFinalized
	RoundCancelled
)

var roundStatusNames = map[RoundStatus]string{
	RoundOpen:      "open",
	RoundTallying:  "tallying",
	RoundFinalized: "finalized",
	RoundCancelled: "cancelled",
}

func (s RoundStatus) String() string {
	if name, ok := roundStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// Terminal reports whether no further transition is allowed from s.
func (s RoundStatus) Terminal() bool {
	return s == RoundFinalized || s == RoundCancelled
}

func (s RoundStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *RoundStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for k, v := range roundStatusNames {
		if v == name {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown round status %q", name)
}

// TallyCommitments are the commitments produced by the vote-processing
// engine when voting concludes. Each is a field element.
type TallyCommitments struct {
	Results           *BigInt `json:"results"           cbor:"0,keyasint,omitempty"`
	PerRecipientSpent *BigInt `json:"perRecipientSpent" cbor:"1,keyasint,omitempty"`
	TotalSpent        *BigInt `json:"totalSpent"        cbor:"2,keyasint,omitempty"`
}

// Equal reports whether both sets of commitments are identical.
func (tc *TallyCommitments) Equal(o *TallyCommitments) bool {
	if tc == nil || o == nil {
		return tc == o
	}
	return tc.Results.Equal(o.Results) &&
		tc.PerRecipientSpent.Equal(o.PerRecipientSpent) &&
		tc.TotalSpent.Equal(o.TotalSpent)
}

// Fraction is a rational number Numerator/Denominator.
type Fraction struct {
	Numerator   *BigInt `json:"numerator"   cbor:"0,keyasint,omitempty"`
	Denominator *BigInt `json:"denominator" cbor:"1,keyasint,omitempty"`
}

// AllocationParameters are fixed when a round is finalized.
type AllocationParameters struct {
	Alpha             *Fraction `json:"alpha"             cbor:"0,keyasint,omitempty"`
	TotalVotesSquares *BigInt   `json:"totalVotesSquares" cbor:"1,keyasint,omitempty"`
	TotalSpent        *BigInt   `json:"totalSpent"        cbor:"2,keyasint,omitempty"`
	Budget            *BigInt   `json:"budget"            cbor:"3,keyasint,omitempty"`
	MatchingPoolSize  *BigInt   `json:"matchingPoolSize"  cbor:"4,keyasint,omitempty"`
}

// Round is a single quadratic-funding round. It is mutated only through the
// round state machine.
type Round struct {
	ID                 RoundID               `json:"id"                     cbor:"0,keyasint"`
	Status             RoundStatus           `json:"status"                 cbor:"1,keyasint,omitempty"`
	Coordinator        common.Address        `json:"coordinator"            cbor:"2,keyasint"`
	FallbackAddress    common.Address        `json:"fallbackAddress"        cbor:"3,keyasint"`
	VoiceCreditFactor  *BigInt               `json:"voiceCreditFactor"      cbor:"4,keyasint,omitempty"`
	TotalContributions *BigInt               `json:"totalContributions"     cbor:"5,keyasint,omitempty"`
	MatchingPool       *BigInt               `json:"matchingPool"           cbor:"6,keyasint,omitempty"`
	Contributors       uint32                `json:"contributors"           cbor:"7,keyasint,omitempty"`
	RecipientCount     uint32                `json:"recipientCount"         cbor:"8,keyasint,omitempty"`
	VoteOptionDepth    uint8                 `json:"voteOptionTreeDepth"    cbor:"9,keyasint,omitempty"`
	TallyHash          HexBytes              `json:"tallyHash,omitempty"    cbor:"10,keyasint,omitempty"`
	Commitments        *TallyCommitments     `json:"commitments,omitempty"  cbor:"11,keyasint,omitempty"`
	TotalTallyResults  uint32                `json:"totalTallyResults"      cbor:"12,keyasint,omitempty"`
	TotalVotesSquares  *BigInt               `json:"totalVotesSquares"      cbor:"13,keyasint,omitempty"`
	Allocation         *AllocationParameters `json:"allocation,omitempty"   cbor:"14,keyasint,omitempty"`
	CreatedAt          int64                 `json:"createdAt"              cbor:"15,keyasint,omitempty"`
	FinalizedAt        int64                 `json:"finalizedAt,omitempty"  cbor:"16,keyasint,omitempty"`
}

// IsComplete reports whether every recipient's tally result has been
// verified.
func (r *Round) IsComplete() bool {
	return r.TotalTallyResults == r.RecipientCount
}

func (r *Round) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(data)
}
