package storage

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/qf-tally/types"
)

// Balance returns the settlement ledger balance of an account.
func (s *Storage) Balance(addr common.Address) (*big.Int, error) {
	b := new(types.BigInt)
	if err := s.getArtifact(ledgerBalancePrefix, addr.Bytes(), b); err != nil {
		if errors.Is(err, ErrNotFound) {
			return new(big.Int), nil
		}
		return nil, err
	}
	return b.MathBigInt(), nil
}

// Credit adds amount to the settlement ledger balance of an account and
// returns the new balance.
func (s *Storage) Credit(addr common.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid credit amount")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	balance, err := s.Balance(addr)
	if err != nil {
		return nil, err
	}
	balance.Add(balance, amount)
	if err := s.setArtifact(ledgerBalancePrefix, addr.Bytes(), types.FromBig(balance)); err != nil {
		return nil, err
	}
	return balance, nil
}
