// AngelaMos | 2026
// origin.go

package protocol

import (
	"encoding/json"
	"errors"
)

// WildcardOrigin is never a valid target or source.
const WildcardOrigin = "*"

var ErrWildcardTarget = errors.New("wildcard target origin")

// Envelope is one message as it arrives from the other side: the sender's
// origin and the undecoded body.
type Envelope struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

// SameOrigin reports whether got is byte-for-byte the expected origin.
// There is no normalisation: a differing scheme, host, port, case or a
// trailing slash is a mismatch.
func SameOrigin(expected, got string) bool {
	if expected == "" || expected == WildcardOrigin {
		return false
	}
	return expected == got
}
