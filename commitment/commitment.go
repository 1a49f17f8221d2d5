// Package commitment binds tally data to Poseidon commitments and computes
// the content digest of published tally artifacts.
package commitment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/qf-tally/types"
	"github.com/vocdoni/qf-tally/util"
)

const (
	// MaxInputs is the maximum number of values Commit accepts, salt included.
	MaxInputs = 256
	chunkSize = 16
)

var (
	ErrNoInputs      = errors.New("no inputs provided")
	ErrTooManyInputs = errors.New("too many inputs")
	ErrNotInField    = errors.New("value is not a field element")
)

// Commit returns the Poseidon commitment to leaves followed by salt. The
// commitment is order sensitive. For a single leaf it equals poseidon(leaf, salt),
// which is how Merkle roots are committed.
func Commit(leaves []*big.Int, salt *big.Int) (*big.Int, error) {
	if salt == nil {
		return nil, fmt.Errorf("%w: missing salt", ErrNoInputs)
	}
	inputs := make([]*big.Int, 0, len(leaves)+1)
	inputs = append(inputs, leaves...)
	inputs = append(inputs, salt)
	return MultiPoseidon(inputs...)
}

// Verify reports whether Commit(leaves, salt) equals expected.
func Verify(leaves []*big.Int, salt, expected *big.Int) bool {
	if expected == nil {
		return false
	}
	c, err := Commit(leaves, salt)
	if err != nil {
		return false
	}
	return c.Cmp(expected) == 0
}

// MultiPoseidon hashes up to MaxInputs field elements. Inputs are hashed in
// chunks of 16 and the chunk digests hashed again when there is more than
// one chunk.
func MultiPoseidon(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) > MaxInputs {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyInputs, len(inputs), MaxInputs)
	} else if len(inputs) == 0 {
		return nil, ErrNoInputs
	}
	for i, in := range inputs {
		if !util.InField(in) {
			return nil, fmt.Errorf("%w: input %d", ErrNotInField, i)
		}
	}
	hashes := make([]*big.Int, 0, (len(inputs)+chunkSize-1)/chunkSize)
	for start := 0; start < len(inputs); start += chunkSize {
		end := min(start+chunkSize, len(inputs))
		h, err := poseidon.Hash(inputs[start:end])
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	if len(hashes) == 1 {
		return hashes[0], nil
	}
	return poseidon.Hash(hashes)
}

// ArtifactBytes returns the canonical encoding of a tally artifact.
func ArtifactBytes(a *types.TallyArtifact) ([]byte, error) {
	return json.Marshal(a)
}

// ArtifactDigest returns the keccak256 digest of the canonical encoding of
// a tally artifact. It is the tally hash the coordinator publishes.
func ArtifactDigest(a *types.TallyArtifact) (types.HexBytes, error) {
	data, err := ArtifactBytes(a)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(data), nil
}
