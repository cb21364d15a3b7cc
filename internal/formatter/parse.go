// internal/formatter/parse.go
package formatter

import (
	"strconv"
	"strings"
)

// Value is one parsed register token.
// Valid is false when the token was not a base-10 integer; the slot is kept
// so register indices stay aligned with the device.
type Value struct {
	N     int64
	Valid bool
}

// String renders the value for display. Invalid tokens render as "NaN".
func (v Value) String() string {
	if !v.Valid {
		return "NaN"
	}
	return strconv.FormatInt(v.N, 10)
}

// ParseInts splits s on ',' and parses each trimmed token as a base-10 integer.
// Empty input yields an empty slice.
func ParseInts(s string) []Value {
	if s == "" {
		return []Value{}
	}
	tokens := strings.Split(s, ",")
	out := make([]Value, len(tokens))
	for i, tok := range tokens {
		n, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			continue
		}
		out[i] = Value{N: n, Valid: true}
	}
	return out
}

// ParseBools splits s on ',' and maps a trimmed "1" to true, anything else to false.
// Empty input yields an empty slice.
func ParseBools(s string) []bool {
	if s == "" {
		return []bool{}
	}
	tokens := strings.Split(s, ",")
	out := make([]bool, len(tokens))
	for i, tok := range tokens {
		out[i] = strings.TrimSpace(tok) == "1"
	}
	return out
}
