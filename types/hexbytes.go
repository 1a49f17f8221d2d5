package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/vocdoni/qf-tally/util"
)

// HexBytes is a []byte which encodes as hexadecimal in json, as opposed to
// the base64 default.
type HexBytes []byte

func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// Equal reports whether b and o hold the same bytes.
func (b HexBytes) Equal(o HexBytes) bool {
	return bytes.Equal(b, o)
}

func (b HexBytes) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(b.String())), nil
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("invalid JSON string %q: %w", data, err)
	}
	return b.parse(s)
}

// HexBytesFromString parses a hex string, with or without 0x prefix.
func HexBytesFromString(s string) (HexBytes, error) {
	var b HexBytes
	if err := b.parse(s); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *HexBytes) parse(s string) error {
	decoded, err := hex.DecodeString(util.TrimHex(s))
	if err != nil {
		return fmt.Errorf("invalid hex string %q: %w", s, err)
	}
	*b = decoded
	return nil
}
