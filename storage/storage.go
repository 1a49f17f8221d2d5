// Package storage keeps every artifact of the funding rounds in a prefixed
// key-value store, and provides the queues consumed by the services. The
// following prefixes are used:
//   - 'r/' for rounds
//   - 'a/' for published tally artifacts, addressed by their digest
//   - 'c/' for claim records
//   - 'ct/' for the per-round claims ledger trees
//   - 'po/' for pending payouts (queued)
//   - 'pr/' for payout reservations
//   - 'pd/' for payout receipts
//   - 'rr/' for recipient registry entries
//   - 'b/' for settlement ledger balances
package storage

import (
	"errors"
	"sync"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/qf-tally/log"
	"go.vocdoni.io/dvote/db"
)

var (
	roundPrefix         = []byte("r/")
	artifactPrefix      = []byte("a/")
	claimPrefix         = []byte("c/")
	claimsTreePrefix    = []byte("ct/")
	payoutPrefix        = []byte("po/")
	payoutReservPrefix  = []byte("pr/")
	payoutReceiptPrefix = []byte("pd/")
	recipientPrefix     = []byte("rr/")
	ledgerBalancePrefix = []byte("b/")
)

var (
	// ErrNotFound is returned when the requested element does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoMoreElements is returned when a queue has no available element.
	ErrNoMoreElements = errors.New("no more elements")
	// ErrAlreadyExists is returned when writing an element that can be
	// created only once.
	ErrAlreadyExists = errors.New("already exists")
	// ErrDigestMismatch is returned when stored content does not match the
	// digest it is addressed by.
	ErrDigestMismatch = errors.New("content does not match its digest")
)

// Storage wraps the database and serializes the operations that need to
// read and write more than one key.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex

	treesMu     sync.Mutex
	claimsTrees map[string]*arbo.Tree
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{
		db:          db,
		claimsTrees: make(map[string]*arbo.Tree),
	}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close database", "error", err.Error())
	}
}
