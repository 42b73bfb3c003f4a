// AngelaMos | 2026
// resolver.go

// Package access decides whether a user's tier and the global feature flags
// allow a capability. Resolution is a pure function of its inputs.
package access

import (
	"math"

	"github.com/carterperez-dev/playvault/internal/feature"
	"github.com/carterperez-dev/playvault/internal/tier"
)

// Capability names a gated thing: a game slug, a document action such as
// pdf_upload, or a named feature like advanced_reports.
type Capability string

type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNoTier           Reason = "no_tier"
	ReasonTierInsufficient Reason = "tier_insufficient"
	ReasonFlagDisabled     Reason = "flag_disabled"
)

type Decision struct {
	Granted bool   `json:"granted"`
	Reason  Reason `json:"reason,omitempty"`
}

func granted() Decision {
	return Decision{Granted: true}
}

func denied(r Reason) Decision {
	return Decision{Reason: r}
}

// FlagNames lists the global flags that apply to a capability.
func FlagNames(c Capability) []string {
	return []string{string(c), string(c) + "_enabled"}
}

// Resolve decides access without consumption data. A numeric entitlement
// grants only when its ceiling is above zero.
func Resolve(t *tier.Tier, c Capability, flags feature.FlagSet) Decision {
	return resolve(t, c, flags, nil)
}

// ResolveWithUsage compares externally tracked consumption against a
// numeric ceiling. Boolean and unlimited entitlements ignore consumed.
func ResolveWithUsage(
	t *tier.Tier,
	c Capability,
	flags feature.FlagSet,
	consumed int64,
) Decision {
	return resolve(t, c, flags, &consumed)
}

func resolve(
	t *tier.Tier,
	c Capability,
	flags feature.FlagSet,
	consumed *int64,
) Decision {
	for _, name := range FlagNames(c) {
		if flags.Disabled(name) {
			return denied(ReasonFlagDisabled)
		}
	}

	if t == nil {
		return denied(ReasonNoTier)
	}

	v, ok := t.Features[string(c)]
	if !ok {
		return denied(ReasonTierInsufficient)
	}

	switch v.Kind() {
	case tier.KindBool:
		if b, _ := v.Bool(); b {
			return granted()
		}
		return denied(ReasonTierInsufficient)

	case tier.KindNumber:
		if v.IsUnlimited() {
			return granted()
		}
		n, _ := v.Number()
		limit := math.Floor(n)
		if consumed == nil {
			if limit > 0 {
				return granted()
			}
			return denied(ReasonTierInsufficient)
		}
		if float64(*consumed) < limit {
			return granted()
		}
		return denied(ReasonTierInsufficient)

	default:
		return granted()
	}
}

// Ceiling is a resolved numeric entitlement.
type Ceiling struct {
	Limit     int64 `json:"limit"`
	Unlimited bool  `json:"unlimited"`
}

// ResolveCeiling returns the numeric ceiling for c. ok is false when there
// is no tier or the entry is missing or boolean.
func ResolveCeiling(t *tier.Tier, c Capability) (Ceiling, bool) {
	if t == nil {
		return Ceiling{}, false
	}

	v, ok := t.Features[string(c)]
	if !ok {
		return Ceiling{}, false
	}

	switch v.Kind() {
	case tier.KindNull:
		return Ceiling{Unlimited: true}, true
	case tier.KindNumber:
		if v.IsUnlimited() {
			return Ceiling{Unlimited: true}, true
		}
		n, _ := v.Number()
		return Ceiling{Limit: int64(math.Floor(n))}, true
	default:
		return Ceiling{}, false
	}
}
