package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandomBytes generates a random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandomHex generates a random hex string of n bytes.
func RandomHex(n int) string {
	return fmt.Sprintf("%x", RandomBytes(n))
}

// RandomInt generates a random integer in [min, max).
func RandomInt(min, max int) int {
	num, err := rand.Int(rand.Reader, big.NewInt(int64(max-min)))
	if err != nil {
		panic(err)
	}
	return int(num.Int64()) + min
}

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// FieldModulus is the scalar field of the BN254 curve, over which the
// Poseidon hash used for tally commitments is defined.
var FieldModulus, _ = new(big.Int).SetString(
	"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// InField reports whether x is a canonical field element.
func InField(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.Cmp(FieldModulus) < 0
}

// BigToFF returns the field representation of iv, reduced with the
// Euclidean modulus.
func BigToFF(iv *big.Int) *big.Int {
	if InField(iv) {
		return iv
	}
	return new(big.Int).Mod(iv, FieldModulus)
}

// RandomFieldElement returns a uniformly random field element, suitable as
// a commitment salt.
func RandomFieldElement() *big.Int {
	n, err := rand.Int(rand.Reader, FieldModulus)
	if err != nil {
		panic(err)
	}
	return n
}
