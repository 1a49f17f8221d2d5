package storage

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/types"
)

// Round returns the round with the given ID. Every call decodes a fresh
// copy from the database, so callers may mutate it freely.
func (s *Storage) Round(id types.RoundID) (*types.Round, error) {
	r := &types.Round{}
	if err := s.getArtifact(roundPrefix, id[:], r); err != nil {
		return nil, fmt.Errorf("round %s: %w", id, err)
	}
	return r, nil
}

// SetRound stores the round, replacing any previous version.
func (s *Storage) SetRound(r *types.Round) error {
	if r == nil || r.ID == uuid.Nil {
		return fmt.Errorf("invalid round")
	}
	return s.setArtifact(roundPrefix, r.ID[:], r)
}

// CreateRound stores a new round. It fails with ErrAlreadyExists if a round
// with the same ID exists.
func (s *Storage) CreateRound(r *types.Round) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	ok, err := s.exists(roundPrefix, r.ID[:])
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("round %s: %w", r.ID, ErrAlreadyExists)
	}
	return s.SetRound(r)
}

// ListRounds returns the IDs of the stored rounds, optionally filtered by
// status. A nil filter returns every round.
func (s *Storage) ListRounds(status *types.RoundStatus) ([]types.RoundID, error) {
	var ids []types.RoundID
	if err := s.iterate(roundPrefix, nil, func(k, v []byte) bool {
		id, err := uuid.FromBytes(k)
		if err != nil {
			log.Warnw("invalid round key", "key", fmt.Sprintf("%x", k))
			return true
		}
		if status != nil {
			var r types.Round
			if err := decodeArtifact(v, &r); err != nil {
				log.Warnw("failed to decode round", "round", id.String(), "error", err.Error())
				return true
			}
			if r.Status != *status {
				return true
			}
		}
		ids = append(ids, id)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}
	return ids, nil
}
