// Package settlement transfers the allocated amounts to payees.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/qf-tally/storage"
)

// ErrNotSubmitted wraps transfer failures that happened before the
// transfer was submitted, so it is safe to retry them.
var ErrNotSubmitted = errors.New("transfer not submitted")

// Settlement moves amount of the settlement asset to an address and
// returns a reference of the transfer.
type Settlement interface {
	Transfer(ctx context.Context, to common.Address, amount *big.Int) (string, error)
}

// Ledger credits the balances kept in the local storage.
type Ledger struct {
	stg *storage.Storage
}

var _ Settlement = (*Ledger)(nil)

// NewLedger returns a settlement over the storage ledger balances.
func NewLedger(stg *storage.Storage) *Ledger {
	return &Ledger{stg: stg}
}

func (l *Ledger) Transfer(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotSubmitted, err)
	}
	balance, err := l.stg.Credit(to, amount)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotSubmitted, err)
	}
	ref := crypto.Keccak256Hash(to.Bytes(), amount.Bytes(), balance.Bytes())
	return ref.Hex(), nil
}
