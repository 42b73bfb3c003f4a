// AngelaMos | 2026
// entity.go

package feature

import (
	"time"
)

// Flag is a global switch layered over tier entitlements. A disabled flag
// denies a capability even when the tier grants it.
type Flag struct {
	ID          string    `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Enabled     bool      `db:"enabled"     json:"enabled"`
	Description string    `db:"description" json:"description"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}

// FlagSet is the full set of global flags keyed by name.
type FlagSet map[string]Flag

func NewFlagSet(flags []Flag) FlagSet {
	set := make(FlagSet, len(flags))
	for _, f := range flags {
		set[f.Name] = f
	}
	return set
}

// Disabled reports whether a flag with this exact name exists and is off.
// A missing flag is never treated as disabled.
func (s FlagSet) Disabled(name string) bool {
	f, ok := s[name]
	return ok && !f.Enabled
}

func (s FlagSet) List() []Flag {
	out := make([]Flag, 0, len(s))
	for _, f := range s {
		out = append(out, f)
	}
	return out
}
