package util

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestTrimHex(t *testing.T) {
	c := qt.New(t)
	c.Assert(TrimHex("0xabcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("0XAB"), qt.Equals, "AB")
	c.Assert(TrimHex("abcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("0"), qt.Equals, "0")
}

func TestBigToFF(t *testing.T) {
	c := qt.New(t)
	c.Assert(BigToFF(big.NewInt(7)).Int64(), qt.Equals, int64(7))
	c.Assert(BigToFF(new(big.Int).Set(FieldModulus)).Sign(), qt.Equals, 0)
	over := new(big.Int).Add(FieldModulus, big.NewInt(5))
	c.Assert(BigToFF(over).Int64(), qt.Equals, int64(5))
	c.Assert(BigToFF(big.NewInt(-1)).Cmp(new(big.Int).Sub(FieldModulus, big.NewInt(1))), qt.Equals, 0)
}

func TestRandomFieldElement(t *testing.T) {
	c := qt.New(t)
	for i := 0; i < 32; i++ {
		c.Assert(InField(RandomFieldElement()), qt.IsTrue)
	}
	n := RandomInt(3, 10)
	c.Assert(n >= 3 && n < 10, qt.IsTrue)
}
