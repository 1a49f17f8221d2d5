package commitment

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/qf-tally/types"
	"github.com/vocdoni/qf-tally/util"
)

func TestCommitSingleLeafIsHashLeftRight(t *testing.T) {
	c := qt.New(t)
	root, salt := big.NewInt(12345), big.NewInt(678)
	got, err := Commit([]*big.Int{root}, salt)
	c.Assert(err, qt.IsNil)
	want, err := poseidon.Hash([]*big.Int{root, salt})
	c.Assert(err, qt.IsNil)
	c.Assert(got.Cmp(want), qt.Equals, 0)
	c.Assert(Verify([]*big.Int{root}, salt, want), qt.IsTrue)
}

func TestCommitDeterministicAndOrderSensitive(t *testing.T) {
	c := qt.New(t)
	salt := util.RandomFieldElement()
	a := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	b := []*big.Int{big.NewInt(3), big.NewInt(2), big.NewInt(1)}

	c1, err := Commit(a, salt)
	c.Assert(err, qt.IsNil)
	c2, err := Commit(a, salt)
	c.Assert(err, qt.IsNil)
	c.Assert(c1.Cmp(c2), qt.Equals, 0)

	c3, err := Commit(b, salt)
	c.Assert(err, qt.IsNil)
	c.Assert(c1.Cmp(c3), qt.Not(qt.Equals), 0)

	c4, err := Commit(a, new(big.Int).Add(salt, big.NewInt(1)))
	c.Assert(err, qt.IsNil)
	c.Assert(c1.Cmp(c4), qt.Not(qt.Equals), 0)
	c.Assert(Verify(a, salt, c4), qt.IsFalse)
}

func TestMultiPoseidonChunks(t *testing.T) {
	c := qt.New(t)
	inputs := make([]*big.Int, 40)
	for i := range inputs {
		inputs[i] = big.NewInt(int64(i + 1))
	}
	got, err := MultiPoseidon(inputs...)
	c.Assert(err, qt.IsNil)

	h1, _ := poseidon.Hash(inputs[0:16])
	h2, _ := poseidon.Hash(inputs[16:32])
	h3, _ := poseidon.Hash(inputs[32:40])
	want, err := poseidon.Hash([]*big.Int{h1, h2, h3})
	c.Assert(err, qt.IsNil)
	c.Assert(got.Cmp(want), qt.Equals, 0)
}

func TestMultiPoseidonErrors(t *testing.T) {
	c := qt.New(t)
	_, err := MultiPoseidon()
	c.Assert(err, qt.ErrorIs, ErrNoInputs)

	_, err = MultiPoseidon(make([]*big.Int, MaxInputs+1)...)
	c.Assert(err, qt.ErrorIs, ErrTooManyInputs)

	_, err = MultiPoseidon(big.NewInt(1), new(big.Int).Set(util.FieldModulus))
	c.Assert(err, qt.ErrorIs, ErrNotInField)

	_, err = Commit([]*big.Int{big.NewInt(1)}, nil)
	c.Assert(err, qt.ErrorIs, ErrNoInputs)
}

func TestArtifactDigest(t *testing.T) {
	c := qt.New(t)
	a := &types.TallyArtifact{
		TotalSpentVoiceCredits: types.SpentCredits{Spent: types.NewInt(5), Salt: types.NewInt(1)},
		Results:                types.TallyResults{Tally: []*types.BigInt{types.NewInt(1), types.NewInt(2)}, Salt: types.NewInt(2)},
		PerVOSpentVoiceCredits: types.TallyResults{Tally: []*types.BigInt{types.NewInt(1), types.NewInt(4)}, Salt: types.NewInt(3)},
	}
	d1, err := ArtifactDigest(a)
	c.Assert(err, qt.IsNil)
	c.Assert(d1, qt.HasLen, 32)
	d2, err := ArtifactDigest(a)
	c.Assert(err, qt.IsNil)
	c.Assert(d1.Equal(d2), qt.IsTrue)

	a.Results.Tally[0] = types.NewInt(9)
	d3, err := ArtifactDigest(a)
	c.Assert(err, qt.IsNil)
	c.Assert(d1.Equal(d3), qt.IsFalse)
}
