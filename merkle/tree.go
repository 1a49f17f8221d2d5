// Package merkle implements the quinary incremental Merkle tree used to
// commit to per-recipient tally vectors. Nodes are Poseidon hashes of their
// five children; positions never inserted hold the zero value of their level.
package merkle

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/qf-tally/util"
)

const (
	// Arity is the number of children of every inner node.
	Arity = 5
	// MaxDepth keeps the capacity addressable with uint32 indexes.
	MaxDepth = 13
)

var (
	ErrTreeFull        = errors.New("tree is full")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidDepth    = errors.New("invalid tree depth")
	ErrInvalidPath     = errors.New("invalid merkle path")
	ErrInvalidLeaf     = errors.New("leaf is not a field element")
)

// Path holds, for every level from the leaves up, the four siblings of the
// node on the path in left-to-right order.
type Path [][]*big.Int

// Tree is a quinary Merkle tree of fixed depth. It is not safe for
// concurrent use.
type Tree struct {
	depth  uint8
	zeros  []*big.Int
	levels [][]*big.Int
}

// New returns an empty tree of the given depth whose implicit leaves are zero.
func New(depth uint8, zero *big.Int) (*Tree, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidDepth, depth, MaxDepth)
	}
	if zero == nil {
		zero = new(big.Int)
	}
	if !util.InField(zero) {
		return nil, ErrInvalidLeaf
	}
	t := &Tree{
		depth:  depth,
		zeros:  make([]*big.Int, depth+1),
		levels: make([][]*big.Int, depth+1),
	}
	t.zeros[0] = new(big.Int).Set(zero)
	for l := 1; l <= int(depth); l++ {
		children := make([]*big.Int, Arity)
		for i := range children {
			children[i] = t.zeros[l-1]
		}
		h, err := poseidon.Hash(children)
		if err != nil {
			return nil, err
		}
		t.zeros[l] = h
	}
	return t, nil
}

// FromLeaves builds a tree holding leaves in index order. It hashes each
// level once, which is cheaper than inserting leaves one by one.
func FromLeaves(depth uint8, zero *big.Int, leaves []*big.Int) (*Tree, error) {
	t, err := New(depth, zero)
	if err != nil {
		return nil, err
	}
	if uint64(len(leaves)) > t.Capacity() {
		return nil, fmt.Errorf("%w: %d leaves, capacity %d", ErrTreeFull, len(leaves), t.Capacity())
	}
	for i, leaf := range leaves {
		if !util.InField(leaf) {
			return nil, fmt.Errorf("%w: index %d", ErrInvalidLeaf, i)
		}
		t.levels[0] = append(t.levels[0], new(big.Int).Set(leaf))
	}
	for l := 0; l < int(t.depth); l++ {
		n := (len(t.levels[l]) + Arity - 1) / Arity
		next := make([]*big.Int, n)
		for p := 0; p < n; p++ {
			if next[p], err = t.hashChildren(l, p); err != nil {
				return nil, err
			}
		}
		t.levels[l+1] = next
	}
	return t, nil
}

// DepthFor returns the minimal depth whose capacity holds n leaves.
func DepthFor(n uint64) uint8 {
	var depth uint8
	for capacity := uint64(1); capacity < n; capacity *= Arity {
		depth++
	}
	return depth
}

// Depth returns the depth of the tree.
func (t *Tree) Depth() uint8 {
	return t.depth
}

// Len returns the number of inserted leaves.
func (t *Tree) Len() int {
	return len(t.levels[0])
}

// Capacity returns the maximum number of leaves.
func (t *Tree) Capacity() uint64 {
	capacity := uint64(1)
	for i := uint8(0); i < t.depth; i++ {
		capacity *= Arity
	}
	return capacity
}

// Insert appends a leaf at the next free index and updates its path to
// the root.
func (t *Tree) Insert(leaf *big.Int) error {
	if uint64(t.Len()) >= t.Capacity() {
		return ErrTreeFull
	}
	if !util.InField(leaf) {
		return ErrInvalidLeaf
	}
	idx := t.Len()
	t.levels[0] = append(t.levels[0], new(big.Int).Set(leaf))
	for l := 0; l < int(t.depth); l++ {
		parent := idx / Arity
		h, err := t.hashChildren(l, parent)
		if err != nil {
			return err
		}
		if parent < len(t.levels[l+1]) {
			t.levels[l+1][parent] = h
		} else {
			t.levels[l+1] = append(t.levels[l+1], h)
		}
		idx = parent
	}
	return nil
}

// Root returns the current root.
func (t *Tree) Root() *big.Int {
	return new(big.Int).Set(t.node(int(t.depth), 0))
}

// Leaf returns the leaf at index, or the zero value if it was never inserted.
func (t *Tree) Leaf(index int) *big.Int {
	return new(big.Int).Set(t.node(0, index))
}

// GenMerklePath returns the siblings of every node from the leaf at index
// up to the root. Only inserted leaves have a path.
func (t *Tree) GenMerklePath(index int) (Path, error) {
	if index < 0 || index >= t.Len() {
		return nil, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, t.Len())
	}
	path := make(Path, t.depth)
	for l := 0; l < int(t.depth); l++ {
		pos := index % Arity
		first := index - pos
		siblings := make([]*big.Int, 0, Arity-1)
		for i := 0; i < Arity; i++ {
			if i == pos {
				continue
			}
			siblings = append(siblings, new(big.Int).Set(t.node(l, first+i)))
		}
		path[l] = siblings
		index /= Arity
	}
	return path, nil
}

// VerifyPath computes the root of a tree of the given depth holding leaf at
// index with the given path.
func VerifyPath(depth uint8, index uint64, leaf *big.Int, path Path) (*big.Int, error) {
	if depth > MaxDepth {
		return nil, ErrInvalidDepth
	}
	if len(path) != int(depth) {
		return nil, fmt.Errorf("%w: %d levels, expected %d", ErrInvalidPath, len(path), depth)
	}
	capacity := uint64(1)
	for i := uint8(0); i < depth; i++ {
		capacity *= Arity
	}
	if index >= capacity {
		return nil, fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, index, capacity)
	}
	if !util.InField(leaf) {
		return nil, ErrInvalidLeaf
	}
	current := leaf
	for l, siblings := range path {
		if len(siblings) != Arity-1 {
			return nil, fmt.Errorf("%w: level %d has %d siblings", ErrInvalidPath, l, len(siblings))
		}
		for i, sib := range siblings {
			if !util.InField(sib) {
				return nil, fmt.Errorf("%w: level %d sibling %d is not a field element", ErrInvalidPath, l, i)
			}
		}
		pos := int(index % Arity)
		children := make([]*big.Int, 0, Arity)
		children = append(children, siblings[:pos]...)
		children = append(children, current)
		children = append(children, siblings[pos:]...)
		h, err := poseidon.Hash(children)
		if err != nil {
			return nil, fmt.Errorf("%w: level %d: %v", ErrInvalidPath, l, err)
		}
		current = h
		index /= Arity
	}
	return current, nil
}

func (t *Tree) node(level, index int) *big.Int {
	if index < len(t.levels[level]) {
		return t.levels[level][index]
	}
	return t.zeros[level]
}

func (t *Tree) hashChildren(level, parent int) (*big.Int, error) {
	children := make([]*big.Int, Arity)
	for i := range children {
		children[i] = t.node(level, parent*Arity+i)
	}
	return poseidon.Hash(children)
}
