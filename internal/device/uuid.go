package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// BaseUUID is the Bluetooth SIG base UUID that 16- and 32-bit UUIDs expand into.
var BaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

// ShortUUID expands a 16- or 32-bit assigned number into a full UUID.
func ShortUUID(v uint32) uuid.UUID {
	id := BaseUUID
	id[0] = byte(v >> 24)
	id[1] = byte(v >> 16)
	id[2] = byte(v >> 8)
	id[3] = byte(v)
	return id
}

// ParseUUID accepts full UUIDs (with or without dashes), and 4 or 8 hex digit
// short forms with an optional 0x prefix.
func ParseUUID(s string) (uuid.UUID, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "0x")
	switch len(s) {
	case 4, 8:
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid short UUID %q: %w", s, err)
		}
		return ShortUUID(uint32(v)), nil
	default:
		id, err := uuid.Parse(s)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid UUID %q: %w", s, err)
		}
		return id, nil
	}
}

// ShortenUUID returns a compact form for display: the assigned number for
// SIG-base UUIDs, the first eight characters otherwise.
func ShortenUUID(id uuid.UUID) string {
	s := id.String()
	if strings.HasSuffix(s, BaseUUID.String()[8:]) {
		if short := strings.TrimLeft(s[:4], "0") + s[4:8]; len(short) >= 4 {
			return short
		}
		return s[4:8]
	}
	return s[:8]
}
