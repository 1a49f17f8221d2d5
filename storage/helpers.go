package storage

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encoding mode: %v", err))
	}
	return em
}()

func encodeArtifact(a any) ([]byte, error) {
	return encMode.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// getArtifact decodes the value stored under prefix+key into out. It
// returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	pr := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := pr.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(data, out)
}

// setArtifact encodes and stores the value under prefix+key.
func (s *Storage) setArtifact(prefix, key []byte, value any) error {
	data, err := encodeArtifact(value)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// deleteArtifact removes prefix+key. It returns ErrNotFound if the key does
// not exist.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if _, err := wTx.Get(key); err != nil {
		wTx.Discard()
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

func (s *Storage) exists(prefix, key []byte) (bool, error) {
	pr := prefixeddb.NewPrefixedReader(s.db, prefix)
	if _, err := pr.Get(key); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Storage) isReserved(prefix, key []byte) bool {
	ok, err := s.exists(prefix, key)
	return err == nil && ok
}

func (s *Storage) setReservation(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, []byte{1}); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// iterate calls fn with copies of every key/value under prefix+sub. The
// keys passed to fn do not include prefix or sub.
func (s *Storage) iterate(prefix, sub []byte, fn func(k, v []byte) bool) error {
	pr := prefixeddb.NewPrefixedReader(s.db, prefix)
	return pr.Iterate(sub, func(k, v []byte) bool {
		return fn(append([]byte(nil), k...), append([]byte(nil), v...))
	})
}
