// AngelaMos | 2026
// entity.go

package score

import (
	"time"
)

// Score is immutable once written.
type Score struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	GameID    string    `db:"game_id"`
	GameName  string    `db:"game_name"`
	GameSlug  string    `db:"game_slug"`
	Score     int64     `db:"score"`
	CreatedAt time.Time `db:"created_at"`
}

type LeaderboardEntry struct {
	UserID    string    `db:"user_id"`
	UserName  string    `db:"user_name"`
	Score     int64     `db:"score"`
	CreatedAt time.Time `db:"created_at"`
}

type GameStat struct {
	GameName string  `db:"game_name"`
	Best     int64   `db:"best"`
	Average  float64 `db:"average"`
	Plays    int     `db:"plays"`
}

type Stats struct {
	TotalGamesPlayed int
	FavoriteGame     *string
	PerGame          []GameStat
	Recent           []Score
}
