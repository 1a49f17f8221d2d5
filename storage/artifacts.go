package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/qf-tally/commitment"
	"github.com/vocdoni/qf-tally/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// ArtifactStore publishes and fetches tally artifacts by content digest.
type ArtifactStore interface {
	PublishArtifact(a *types.TallyArtifact) (types.HexBytes, error)
	FetchArtifact(digest types.HexBytes) (*types.TallyArtifact, error)
}

var _ ArtifactStore = (*Storage)(nil)

// PublishArtifact stores the canonical encoding of the artifact and
// returns its digest. Publishing the same artifact twice is a no-op.
func (s *Storage) PublishArtifact(a *types.TallyArtifact) (types.HexBytes, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tally artifact: %w", err)
	}
	data, err := commitment.ArtifactBytes(a)
	if err != nil {
		return nil, fmt.Errorf("encode tally artifact: %w", err)
	}
	digest := crypto.Keccak256(data)
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), artifactPrefix)
	if err := wTx.Set(digest, data); err != nil {
		wTx.Discard()
		return nil, err
	}
	if err := wTx.Commit(); err != nil {
		return nil, err
	}
	return digest, nil
}

// FetchArtifact returns the artifact addressed by digest. The stored
// content is checked against the digest before decoding.
func (s *Storage) FetchArtifact(digest types.HexBytes) (*types.TallyArtifact, error) {
	data, err := s.ArtifactBytes(digest)
	if err != nil {
		return nil, err
	}
	a := &types.TallyArtifact{}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("decode tally artifact %s: %w", digest, err)
	}
	return a, nil
}

// ArtifactBytes returns the raw canonical encoding addressed by digest.
func (s *Storage) ArtifactBytes(digest types.HexBytes) ([]byte, error) {
	pr := prefixeddb.NewPrefixedReader(s.db, artifactPrefix)
	data, err := pr.Get(digest)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("tally artifact %s: %w", digest, ErrNotFound)
		}
		return nil, err
	}
	if !bytes.Equal(crypto.Keccak256(data), digest) {
		return nil, fmt.Errorf("tally artifact %s: %w", digest, ErrDigestMismatch)
	}
	return append([]byte(nil), data...), nil
}
