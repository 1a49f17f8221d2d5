package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/vocdoni/qf-tally/types"
)

// NextPayout returns the next non-reserved pending payout and reserves it.
// The returned key identifies the payout in MarkPayoutDone and
// ReleasePayout. If no payout is available it returns ErrNoMoreElements.
func (s *Storage) NextPayout() (*types.Payout, []byte, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	var chosenKey, chosenVal []byte
	if err := s.iterate(payoutPrefix, nil, func(k, v []byte) bool {
		if s.isReserved(payoutReservPrefix, k) {
			return true
		}
		chosenKey, chosenVal = k, v
		return false
	}); err != nil {
		return nil, nil, fmt.Errorf("iterate payouts: %w", err)
	}
	if chosenVal == nil {
		return nil, nil, ErrNoMoreElements
	}

	p := &types.Payout{}
	if err := decodeArtifact(chosenVal, p); err != nil {
		return nil, nil, fmt.Errorf("decode payout: %w", err)
	}
	if err := s.setReservation(payoutReservPrefix, chosenKey); err != nil {
		return nil, nil, fmt.Errorf("reserve payout: %w", err)
	}
	return p, chosenKey, nil
}

// MarkPayoutDone removes a settled payout from the queue and stores its
// receipt.
func (s *Storage) MarkPayoutDone(key []byte, txRef string) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	p := &types.Payout{}
	if err := s.getArtifact(payoutPrefix, key, p); err != nil {
		return fmt.Errorf("pending payout: %w", err)
	}
	if err := s.setArtifact(payoutReceiptPrefix, key, &types.PayoutReceipt{
		Payout: p,
		TxRef:  txRef,
		PaidAt: time.Now().Unix(),
	}); err != nil {
		return fmt.Errorf("store payout receipt: %w", err)
	}
	if err := s.deleteArtifact(payoutPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete pending payout: %w", err)
	}
	if err := s.deleteArtifact(payoutReservPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete payout reservation: %w", err)
	}
	return nil
}

// ReleasePayout removes the reservation of a payout so it is returned
// again by NextPayout. It must only be used when the transfer was certainly
// not submitted.
func (s *Storage) ReleasePayout(key []byte) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	if err := s.deleteArtifact(payoutReservPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete payout reservation: %w", err)
	}
	return nil
}

// PayoutReceipt returns the receipt of a settled payout, or ErrNotFound.
func (s *Storage) PayoutReceipt(roundID types.RoundID, index uint32) (*types.PayoutReceipt, error) {
	r := &types.PayoutReceipt{}
	if err := s.getArtifact(payoutReceiptPrefix, claimKey(roundID, index), r); err != nil {
		return nil, err
	}
	return r, nil
}

// CountPendingPayouts returns the number of payouts not yet settled,
// reserved or not.
func (s *Storage) CountPendingPayouts() (int, error) {
	count := 0
	if err := s.iterate(payoutPrefix, nil, func(_, _ []byte) bool {
		count++
		return true
	}); err != nil {
		return 0, err
	}
	return count, nil
}
