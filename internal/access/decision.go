// AngelaMos | 2026
// decision.go

package access

import (
	"net/http"

	"github.com/carterperez-dev/playvault/internal/core"
)

// Code is the machine readable error code sent with a 403.
func (d Decision) Code() string {
	switch d.Reason {
	case ReasonNoTier:
		return "NO_TIER"
	case ReasonTierInsufficient:
		return "TIER_INSUFFICIENT"
	case ReasonFlagDisabled:
		return "FLAG_DISABLED"
	default:
		return ""
	}
}

// Err is nil for granted decisions and a 403 AppError otherwise.
func (d Decision) Err() error {
	if d.Granted {
		return nil
	}

	msg := "access denied"
	switch d.Reason {
	case ReasonNoTier:
		msg = "no subscription tier assigned"
	case ReasonTierInsufficient:
		msg = "your tier does not include this feature"
	case ReasonFlagDisabled:
		msg = "this feature is currently disabled"
	}

	return core.NewAppError(core.ErrForbidden, msg, http.StatusForbidden, d.Code())
}

// Affordance is what a client shows for a capability: locked or not, and
// the prompt to display when locked.
type Affordance struct {
	Locked        bool   `json:"locked"`
	UpgradePrompt string `json:"upgrade_prompt,omitempty"`
}

func AffordanceFor(d Decision, requiredTier string) Affordance {
	if d.Granted {
		return Affordance{}
	}

	switch d.Reason {
	case ReasonNoTier:
		return Affordance{Locked: true, UpgradePrompt: "Choose a plan to unlock this"}
	case ReasonFlagDisabled:
		return Affordance{Locked: true, UpgradePrompt: "Temporarily unavailable"}
	default:
		if requiredTier == "" {
			return Affordance{Locked: true, UpgradePrompt: "Upgrade your plan to unlock this"}
		}
		return Affordance{Locked: true, UpgradePrompt: "Upgrade to " + requiredTier + " to unlock this"}
	}
}
