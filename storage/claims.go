package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	// claimsTreeLevels bounds the claims ledger tree; keys are 4-byte
	// recipient indexes.
	claimsTreeLevels = 32
	claimsTreeKeyLen = claimsTreeLevels / 8
)

// claimKey returns roundID || bigEndian(index).
func claimKey(roundID types.RoundID, index uint32) []byte {
	key := make([]byte, len(roundID)+4)
	copy(key, roundID[:])
	binary.BigEndian.PutUint32(key[len(roundID):], index)
	return key
}

// Claim returns the claim record of a recipient, or ErrNotFound.
func (s *Storage) Claim(roundID types.RoundID, index uint32) (*types.ClaimRecord, error) {
	rec := &types.ClaimRecord{}
	if err := s.getArtifact(claimPrefix, claimKey(roundID, index), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CommitClaim stores the claim record and queues its payout in a single
// write transaction. It fails with ErrAlreadyExists if the recipient has
// already claimed. The claim is then added to the round claims ledger tree.
func (s *Storage) CommitClaim(rec *types.ClaimRecord) error {
	key := claimKey(rec.RoundID, rec.Index)
	recData, err := encodeArtifact(rec)
	if err != nil {
		return fmt.Errorf("encode claim: %w", err)
	}
	payoutData, err := encodeArtifact(&types.Payout{
		RoundID: rec.RoundID,
		Index:   rec.Index,
		To:      rec.Payee,
		Amount:  rec.Amount,
	})
	if err != nil {
		return fmt.Errorf("encode payout: %w", err)
	}

	s.globalLock.Lock()
	ok, err := s.exists(claimPrefix, key)
	if err != nil {
		s.globalLock.Unlock()
		return err
	}
	if ok {
		s.globalLock.Unlock()
		return fmt.Errorf("claim %s/%d: %w", rec.RoundID, rec.Index, ErrAlreadyExists)
	}
	wTx := s.db.WriteTx()
	if err := prefixeddb.NewPrefixedWriteTx(wTx, claimPrefix).Set(key, recData); err != nil {
		wTx.Discard()
		s.globalLock.Unlock()
		return err
	}
	if err := prefixeddb.NewPrefixedWriteTx(wTx, payoutPrefix).Set(key, payoutData); err != nil {
		wTx.Discard()
		s.globalLock.Unlock()
		return err
	}
	err = wTx.Commit()
	s.globalLock.Unlock()
	if err != nil {
		return fmt.Errorf("commit claim: %w", err)
	}

	if err := s.addClaimLeaf(rec); err != nil {
		log.Warnw("failed to add claim to ledger tree",
			"round", rec.RoundID.String(), "index", rec.Index, "error", err.Error())
	}
	return nil
}

// ListClaims returns every claim record of a round.
func (s *Storage) ListClaims(roundID types.RoundID) ([]*types.ClaimRecord, error) {
	var claims []*types.ClaimRecord
	var decodeErr error
	if err := s.iterate(claimPrefix, roundID[:], func(_, v []byte) bool {
		rec := &types.ClaimRecord{}
		if decodeErr = decodeArtifact(v, rec); decodeErr != nil {
			return false
		}
		claims = append(claims, rec)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode claim: %w", decodeErr)
	}
	return claims, nil
}

// claimsTree opens, or returns the already opened, claims ledger tree of a round.
func (s *Storage) claimsTree(roundID types.RoundID) (*arbo.Tree, error) {
	s.treesMu.Lock()
	defer s.treesMu.Unlock()
	if tree, ok := s.claimsTrees[roundID.String()]; ok {
		return tree, nil
	}
	prefix := append(append([]byte(nil), claimsTreePrefix...), roundID[:]...)
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(s.db, prefix),
		MaxLevels:    claimsTreeLevels,
		HashFunction: arbo.HashFunctionPoseidon,
	})
	if err != nil {
		return nil, fmt.Errorf("open claims tree: %w", err)
	}
	s.claimsTrees[roundID.String()] = tree
	return tree, nil
}

// ClaimLeaf returns the key and value of a claim in the ledger tree. The
// value is poseidon(amountLow, amountHigh, payee), with the amount split in
// 128-bit limbs so every input is a field element.
func ClaimLeaf(rec *types.ClaimRecord) ([]byte, []byte, error) {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	amount := rec.Amount.MathBigInt()
	if amount == nil {
		amount = new(big.Int)
	}
	low := new(big.Int).And(amount, mask)
	high := new(big.Int).Rsh(amount, 128)
	payee := new(big.Int).SetBytes(rec.Payee.Bytes())
	h, err := poseidon.Hash([]*big.Int{low, high, payee})
	if err != nil {
		return nil, nil, err
	}
	key := arbo.BigIntToBytes(claimsTreeKeyLen, new(big.Int).SetUint64(uint64(rec.Index)))
	value := arbo.BigIntToBytes(arbo.HashFunctionPoseidon.Len(), h)
	return key, value, nil
}

func (s *Storage) addClaimLeaf(rec *types.ClaimRecord) error {
	tree, err := s.claimsTree(rec.RoundID)
	if err != nil {
		return err
	}
	key, value, err := ClaimLeaf(rec)
	if err != nil {
		return err
	}
	return tree.Add(key, value)
}

// ClaimsRoot returns the root of the claims ledger tree of a round.
func (s *Storage) ClaimsRoot(roundID types.RoundID) (types.HexBytes, error) {
	tree, err := s.claimsTree(roundID)
	if err != nil {
		return nil, err
	}
	return tree.Root()
}

// ClaimProof returns an inclusion proof of a recipient's claim in the
// claims ledger tree.
func (s *Storage) ClaimProof(roundID types.RoundID, index uint32) (*types.ClaimProof, error) {
	tree, err := s.claimsTree(roundID)
	if err != nil {
		return nil, err
	}
	root, err := tree.Root()
	if err != nil {
		return nil, err
	}
	key := arbo.BigIntToBytes(claimsTreeKeyLen, new(big.Int).SetUint64(uint64(index)))
	leafKey, leafValue, siblings, exists, err := tree.GenProof(key)
	if err != nil {
		if errors.Is(err, arbo.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return &types.ClaimProof{
		Root:     root,
		Key:      leafKey,
		Value:    leafValue,
		Siblings: siblings,
	}, nil
}

// VerifyClaimProof checks a claims ledger inclusion proof.
func VerifyClaimProof(p *types.ClaimProof) bool {
	ok, err := arbo.CheckProof(arbo.HashFunctionPoseidon, p.Key, p.Value, p.Root, p.Siblings)
	return err == nil && ok
}
