package types

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON to a decimal string and
// CBOR to a bignum.
type BigInt big.Int

// NewInt returns a BigInt holding x.
func NewInt(x int64) *BigInt {
	return (*BigInt)(big.NewInt(x))
}

// FromBig wraps a math/big integer. A nil input returns nil.
func FromBig(x *big.Int) *BigInt {
	if x == nil {
		return nil
	}
	return (*BigInt)(new(big.Int).Set(x))
}

// MarshalText returns the decimal string representation of the big number.
func (i *BigInt) MarshalText() ([]byte, error) {
	return i.MathBigInt().MarshalText()
}

// UnmarshalText parses the text representation into the big number. A 0x
// prefix is accepted for hexadecimal values.
func (i *BigInt) UnmarshalText(data []byte) error {
	if i == nil {
		return fmt.Errorf("cannot unmarshal into nil BigInt")
	}
	s := string(data)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	if _, ok := i.MathBigInt().SetString(s, base); !ok {
		return fmt.Errorf("invalid big number %q", string(data))
	}
	return nil
}

// MarshalJSON encodes the number as a quoted decimal string.
func (i *BigInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(i.String())), nil
}

// UnmarshalJSON accepts both quoted strings and bare JSON numbers.
func (i *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	return i.UnmarshalText([]byte(s))
}

func (i *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(i.MathBigInt())
}

func (i *BigInt) UnmarshalCBOR(data []byte) error {
	bi := new(big.Int)
	if err := cbor.Unmarshal(data, bi); err != nil {
		return err
	}
	i.SetBigInt(bi)
	return nil
}

func (i *BigInt) String() string {
	if i == nil {
		return "0"
	}
	return (*big.Int)(i).String()
}

// MathBigInt returns the underlying math/big integer.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// SetBigInt sets the value of i to x.
func (i *BigInt) SetBigInt(x *big.Int) *BigInt {
	i.MathBigInt().Set(x)
	return i
}

// SetUint64 sets the value of i to x.
func (i *BigInt) SetUint64(x uint64) *BigInt {
	i.MathBigInt().SetUint64(x)
	return i
}

// Add sets i to the sum x+y and returns i.
func (i *BigInt) Add(x, y *BigInt) *BigInt {
	i.MathBigInt().Add(x.MathBigInt(), y.MathBigInt())
	return i
}

// Equal reports whether i and j hold the same value. nil is treated as zero.
func (i *BigInt) Equal(j *BigInt) bool {
	return i.Cmp(j) == 0
}

// Cmp compares i and j, treating nil as zero.
func (i *BigInt) Cmp(j *BigInt) int {
	a, b := i.MathBigInt(), j.MathBigInt()
	if a == nil {
		a = new(big.Int)
	}
	if b == nil {
		b = new(big.Int)
	}
	return a.Cmp(b)
}

// IsZero reports whether i is nil or zero.
func (i *BigInt) IsZero() bool {
	return i == nil || i.MathBigInt().Sign() == 0
}

// Clone returns a copy of i. A nil receiver returns a new zero value.
func (i *BigInt) Clone() *BigInt {
	if i == nil {
		return new(BigInt)
	}
	return FromBig(i.MathBigInt())
}
