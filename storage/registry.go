package storage

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

func recipientKey(index uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, index)
}

// SetRecipient registers the payout address of the recipient at index.
func (s *Storage) SetRecipient(index uint32, addr common.Address) error {
	return s.setArtifact(recipientPrefix, recipientKey(index), addr)
}

// RemoveRecipient removes the recipient at index from the registry.
func (s *Storage) RemoveRecipient(index uint32) error {
	return s.deleteArtifact(recipientPrefix, recipientKey(index))
}

// Recipient returns the payout address of the recipient at index, or
// ErrNotFound if it is not registered.
func (s *Storage) Recipient(index uint32) (common.Address, error) {
	var addr common.Address
	if err := s.getArtifact(recipientPrefix, recipientKey(index), &addr); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}
