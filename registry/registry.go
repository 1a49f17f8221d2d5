// Package registry resolves recipient indexes to payout addresses.
package registry

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/qf-tally/storage"
)

// ErrNotRegistered is returned when resolving an index with no valid
// recipient.
var ErrNotRegistered = errors.New("recipient not registered")

// Registry decides whether a recipient is eligible and where its funds go.
type Registry interface {
	IsValidRecipient(ctx context.Context, index uint32) (bool, error)
	ResolveAddress(ctx context.Context, index uint32) (common.Address, error)
}

// Static is a registry kept in the local storage. Recipients are added and
// removed by the operator.
type Static struct {
	stg *storage.Storage
}

var _ Registry = (*Static)(nil)

// NewStatic returns a registry backed by stg.
func NewStatic(stg *storage.Storage) *Static {
	return &Static{stg: stg}
}

// Add registers or replaces the recipient at index.
func (s *Static) Add(index uint32, addr common.Address) error {
	return s.stg.SetRecipient(index, addr)
}

// Remove deregisters the recipient at index. Its allocation is redirected
// to the round fallback address.
func (s *Static) Remove(index uint32) error {
	if err := s.stg.RemoveRecipient(index); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotRegistered
		}
		return err
	}
	return nil
}

func (s *Static) IsValidRecipient(_ context.Context, index uint32) (bool, error) {
	addr, err := s.stg.Recipient(index)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return addr != (common.Address{}), nil
}

func (s *Static) ResolveAddress(_ context.Context, index uint32) (common.Address, error) {
	addr, err := s.stg.Recipient(index)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && addr == (common.Address{})) {
		return common.Address{}, ErrNotRegistered
	}
	return addr, err
}
