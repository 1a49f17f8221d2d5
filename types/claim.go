package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// ClaimRecord is created once when a recipient's allocation is claimed and
// never mutated afterwards.
type ClaimRecord struct {
	RoundID   RoundID        `json:"roundId"    cbor:"0,keyasint"`
	Index     uint32         `json:"index"      cbor:"1,keyasint,omitempty"`
	Amount    *BigInt        `json:"amount"     cbor:"2,keyasint,omitempty"`
	Payee     common.Address `json:"payee"      cbor:"3,keyasint"`
	Fallback  bool           `json:"fallback"   cbor:"4,keyasint,omitempty"`
	Claimed   bool           `json:"claimed"    cbor:"5,keyasint,omitempty"`
	ClaimedAt int64          `json:"claimedAt"  cbor:"6,keyasint,omitempty"`
}

// Payout is a pending transfer of the settlement asset.
type Payout struct {
	RoundID RoundID        `json:"roundId" cbor:"0,keyasint"`
	Index   uint32         `json:"index"   cbor:"1,keyasint,omitempty"`
	To      common.Address `json:"to"      cbor:"2,keyasint"`
	Amount  *BigInt        `json:"amount"  cbor:"3,keyasint,omitempty"`
}

// PayoutReceipt records a settled payout.
type PayoutReceipt struct {
	Payout *Payout `json:"payout" cbor:"0,keyasint"`
	TxRef  string  `json:"txRef"  cbor:"1,keyasint,omitempty"`
	PaidAt int64   `json:"paidAt" cbor:"2,keyasint,omitempty"`
}

// ClaimProof is an inclusion proof of a claim in the claims ledger tree.
type ClaimProof struct {
	Root     HexBytes `json:"root"`
	Key      HexBytes `json:"key"`
	Value    HexBytes `json:"value"`
	Siblings HexBytes `json:"siblings"`
}
