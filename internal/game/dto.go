// AngelaMos | 2026
// dto.go

package game

import (
	"github.com/carterperez-dev/playvault/internal/access"
)

type CreateGameRequest struct {
	Name           string `json:"name"             validate:"required,min=1,max=100"`
	Slug           string `json:"slug,omitempty"   validate:"omitempty,max=100"`
	Description    string `json:"description"      validate:"required"`
	ThumbnailURL   string `json:"thumbnail_url"    validate:"required,max=500"`
	GamePath       string `json:"game_path"        validate:"required,max=500"`
	RequiredTierID string `json:"required_tier_id" validate:"required,uuid"`
}

type UpdateGameRequest struct {
	Name           *string `json:"name,omitempty"             validate:"omitempty,min=1,max=100"`
	Description    *string `json:"description,omitempty"`
	ThumbnailURL   *string `json:"thumbnail_url,omitempty"    validate:"omitempty,max=500"`
	GamePath       *string `json:"game_path,omitempty"        validate:"omitempty,max=500"`
	RequiredTierID *string `json:"required_tier_id,omitempty" validate:"omitempty,uuid"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

// Listing is a game as one user sees it.
type Listing struct {
	Game     Game
	Decision access.Decision
}

type GameResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Description  string            `json:"description"`
	ThumbnailURL string            `json:"thumbnail_url"`
	GamePath     string            `json:"game_path"`
	RequiredTier string            `json:"required_tier"`
	IsActive     bool              `json:"is_active"`
	HasAccess    bool              `json:"has_access"`
	Reason       access.Reason     `json:"reason,omitempty"`
	Affordance   access.Affordance `json:"affordance"`
}

func ToGameResponse(l Listing) GameResponse {
	g := l.Game
	return GameResponse{
		ID:           g.ID,
		Name:         g.Name,
		Slug:         g.Slug,
		Description:  g.Description,
		ThumbnailURL: g.ThumbnailURL,
		GamePath:     g.GamePath,
		RequiredTier: g.RequiredTierName,
		IsActive:     g.IsActive,
		HasAccess:    l.Decision.Granted,
		Reason:       l.Decision.Reason,
		Affordance:   access.AffordanceFor(l.Decision, g.RequiredTierName),
	}
}

func ToGameResponseList(listings []Listing) []GameResponse {
	out := make([]GameResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, ToGameResponse(l))
	}
	return out
}

// AdminGameResponse is the catalogue entry without per-user access.
type AdminGameResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	Description    string `json:"description"`
	ThumbnailURL   string `json:"thumbnail_url"`
	GamePath       string `json:"game_path"`
	RequiredTierID string `json:"required_tier_id"`
	RequiredTier   string `json:"required_tier"`
	IsActive       bool   `json:"is_active"`
}

func ToAdminGameResponse(g *Game) AdminGameResponse {
	return AdminGameResponse{
		ID:             g.ID,
		Name:           g.Name,
		Slug:           g.Slug,
		Description:    g.Description,
		ThumbnailURL:   g.ThumbnailURL,
		GamePath:       g.GamePath,
		RequiredTierID: g.RequiredTierID,
		RequiredTier:   g.RequiredTierName,
		IsActive:       g.IsActive,
	}
}

type OpenSessionResponse struct {
	SessionID string `json:"session_id"`
	GameSlug  string `json:"game_slug"`
	GamePath  string `json:"game_path"`
	Origin    string `json:"origin"`
	State     string `json:"state"`
}

type SessionStateResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}
