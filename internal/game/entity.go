// AngelaMos | 2026
// entity.go

package game

import (
	"time"
)

type Game struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	Slug             string    `db:"slug"`
	Description      string    `db:"description"`
	ThumbnailURL     string    `db:"thumbnail_url"`
	GamePath         string    `db:"game_path"`
	RequiredTierID   string    `db:"required_tier_id"`
	RequiredTierName string    `db:"required_tier_name"`
	IsActive         bool      `db:"is_active"`
	CreatedAt        time.Time `db:"created_at"`
}
