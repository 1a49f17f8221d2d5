package merkle

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

func bigs(vals ...int64) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestEmptyRootIsZeroHash(t *testing.T) {
	c := qt.New(t)
	tree, err := New(1, nil)
	c.Assert(err, qt.IsNil)
	want, err := poseidon.Hash(bigs(0, 0, 0, 0, 0))
	c.Assert(err, qt.IsNil)
	c.Assert(tree.Root().Cmp(want), qt.Equals, 0)
	c.Assert(tree.Len(), qt.Equals, 0)
	c.Assert(tree.Capacity(), qt.Equals, uint64(5))
}

func TestInsertMatchesDirectHash(t *testing.T) {
	c := qt.New(t)
	tree, err := New(1, nil)
	c.Assert(err, qt.IsNil)
	for _, v := range bigs(0, 200, 200) {
		c.Assert(tree.Insert(v), qt.IsNil)
	}
	want, err := poseidon.Hash(bigs(0, 200, 200, 0, 0))
	c.Assert(err, qt.IsNil)
	c.Assert(tree.Root().Cmp(want), qt.Equals, 0)

	c.Assert(tree.Insert(big.NewInt(1)), qt.IsNil)
	c.Assert(tree.Insert(big.NewInt(2)), qt.IsNil)
	c.Assert(tree.Insert(big.NewInt(3)), qt.ErrorIs, ErrTreeFull)
}

func TestInsertAndFromLeavesAgree(t *testing.T) {
	c := qt.New(t)
	leaves := make([]*big.Int, 37)
	for i := range leaves {
		leaves[i] = big.NewInt(int64(i * i))
	}
	incremental, err := New(3, nil)
	c.Assert(err, qt.IsNil)
	for _, l := range leaves {
		c.Assert(incremental.Insert(l), qt.IsNil)
	}
	bulk, err := FromLeaves(3, nil, leaves)
	c.Assert(err, qt.IsNil)
	c.Assert(bulk.Root().Cmp(incremental.Root()), qt.Equals, 0)
	c.Assert(bulk.Len(), qt.Equals, 37)

	// implicit zeros equal explicit zeros
	padded := append(leaves, bigs(0, 0, 0)...)
	explicit, err := FromLeaves(3, nil, padded)
	c.Assert(err, qt.IsNil)
	c.Assert(explicit.Root().Cmp(bulk.Root()), qt.Equals, 0)

	_, err = FromLeaves(1, nil, bigs(1, 2, 3, 4, 5, 6))
	c.Assert(err, qt.ErrorIs, ErrTreeFull)
}

func TestPathsVerifyForEveryIndex(t *testing.T) {
	c := qt.New(t)
	leaves := make([]*big.Int, 27)
	for i := range leaves {
		leaves[i] = big.NewInt(int64(1000 + i))
	}
	tree, err := FromLeaves(3, nil, leaves)
	c.Assert(err, qt.IsNil)
	root := tree.Root()
	for i, leaf := range leaves {
		path, err := tree.GenMerklePath(i)
		c.Assert(err, qt.IsNil)
		c.Assert(path, qt.HasLen, 3)
		got, err := VerifyPath(3, uint64(i), leaf, path)
		c.Assert(err, qt.IsNil)
		c.Assert(got.Cmp(root), qt.Equals, 0, qt.Commentf("index %d", i))

		// wrong leaf or wrong index produce another root
		got, err = VerifyPath(3, uint64(i), big.NewInt(1), path)
		c.Assert(err, qt.IsNil)
		c.Assert(got.Cmp(root), qt.Not(qt.Equals), 0)
		got, err = VerifyPath(3, uint64((i+1)%len(leaves)), leaf, path)
		c.Assert(err, qt.IsNil)
		c.Assert(got.Cmp(root), qt.Not(qt.Equals), 0)
	}
}

func TestGenMerklePathOutOfRange(t *testing.T) {
	c := qt.New(t)
	tree, err := FromLeaves(2, nil, bigs(1, 2, 3))
	c.Assert(err, qt.IsNil)
	_, err = tree.GenMerklePath(3)
	c.Assert(err, qt.ErrorIs, ErrIndexOutOfRange)
	_, err = tree.GenMerklePath(25)
	c.Assert(err, qt.ErrorIs, ErrIndexOutOfRange)
	_, err = tree.GenMerklePath(-1)
	c.Assert(err, qt.ErrorIs, ErrIndexOutOfRange)
	c.Assert(tree.Leaf(10).Sign(), qt.Equals, 0)
}

func TestVerifyPathMalformed(t *testing.T) {
	c := qt.New(t)
	tree, err := FromLeaves(2, nil, bigs(1, 2, 3))
	c.Assert(err, qt.IsNil)
	path, err := tree.GenMerklePath(1)
	c.Assert(err, qt.IsNil)

	_, err = VerifyPath(2, 1, big.NewInt(2), path[:1])
	c.Assert(err, qt.ErrorIs, ErrInvalidPath)

	short := Path{path[0][:3], path[1]}
	_, err = VerifyPath(2, 1, big.NewInt(2), short)
	c.Assert(err, qt.ErrorIs, ErrInvalidPath)

	_, err = VerifyPath(2, 25, big.NewInt(2), path)
	c.Assert(err, qt.ErrorIs, ErrIndexOutOfRange)

	missing := Path{{nil, path[0][1], path[0][2], path[0][3]}, path[1]}
	_, err = VerifyPath(2, 1, big.NewInt(2), missing)
	c.Assert(err, qt.ErrorIs, ErrInvalidPath)

	negative := Path{path[0], {path[1][0], big.NewInt(-1), path[1][2], path[1][3]}}
	_, err = VerifyPath(2, 1, big.NewInt(2), negative)
	c.Assert(err, qt.ErrorIs, ErrInvalidPath)
}

func TestDepthFor(t *testing.T) {
	c := qt.New(t)
	for _, tc := range []struct {
		n     uint64
		depth uint8
	}{
		{0, 0}, {1, 0}, {2, 1}, {5, 1}, {6, 2}, {25, 2}, {26, 3}, {125, 3},
	} {
		c.Assert(DepthFor(tc.n), qt.Equals, tc.depth, qt.Commentf("n=%d", tc.n))
	}
	_, err := New(MaxDepth+1, nil)
	c.Assert(err, qt.ErrorIs, ErrInvalidDepth)
}

func TestDepthZero(t *testing.T) {
	c := qt.New(t)
	tree, err := New(0, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(tree.Insert(big.NewInt(42)), qt.IsNil)
	c.Assert(tree.Root().Int64(), qt.Equals, int64(42))
	path, err := tree.GenMerklePath(0)
	c.Assert(err, qt.IsNil)
	root, err := VerifyPath(0, 0, big.NewInt(42), path)
	c.Assert(err, qt.IsNil)
	c.Assert(root.Int64(), qt.Equals, int64(42))
}
