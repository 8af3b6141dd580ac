package session

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// parseHexUint parses s (no "0x" prefix, as GDB sends addresses and
// lengths) as an unsigned hex integer.
func parseHexUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}

// encodeHex renders data as lowercase hex, the wire encoding every
// memory/register payload in this protocol uses.
func encodeHex(data []byte) string {
	return hex.EncodeToString(data)
}

// decodeHex is the inverse of encodeHex.
func decodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("session: invalid hex %q: %w", s, err)
	}
	return b, nil
}
