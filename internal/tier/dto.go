// AngelaMos | 2026
// dto.go

package tier

import (
	"time"
)

type CreateTierRequest struct {
	Name       string   `json:"name"        validate:"required,min=1,max=100"`
	PriceCents *int64   `json:"price_cents" validate:"required,gte=0"`
	Features   Features `json:"features"`
}

type UpdateTierRequest struct {
	Name       *string   `json:"name,omitempty"        validate:"omitempty,min=1,max=100"`
	PriceCents *int64    `json:"price_cents,omitempty" validate:"omitempty,gte=0"`
	Features   *Features `json:"features,omitempty"`
}

type AssignTierRequest struct {
	TierID string `json:"tier_id" validate:"required,uuid"`
}

type TierResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Features   Features  `json:"features"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func ToTierResponse(t *Tier) TierResponse {
	features := t.Features
	if features == nil {
		features = Features{}
	}

	return TierResponse{
		ID:         t.ID,
		Name:       t.Name,
		PriceCents: t.PriceCents,
		Features:   features,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func ToTierResponseList(tiers []Tier) []TierResponse {
	out := make([]TierResponse, 0, len(tiers))
	for i := range tiers {
		out = append(out, ToTierResponse(&tiers[i]))
	}
	return out
}
