// AngelaMos | 2026
// dto.go

package score

import (
	"time"
)

type SubmitScoreRequest struct {
	GameSlug string   `json:"game_slug" validate:"required,max=100"`
	Score    *float64 `json:"score"     validate:"required"`
	Origin   string   `json:"origin"    validate:"required"`
}

type ScoreResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	GameID    string    `json:"game_id"`
	GameName  string    `json:"game_name"`
	GameSlug  string    `json:"game_slug"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

func ToScoreResponse(s *Score) ScoreResponse {
	return ScoreResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		GameID:    s.GameID,
		GameName:  s.GameName,
		GameSlug:  s.GameSlug,
		Score:     s.Score,
		CreatedAt: s.CreatedAt,
	}
}

func ToScoreResponseList(scores []Score) []ScoreResponse {
	out := make([]ScoreResponse, 0, len(scores))
	for i := range scores {
		out = append(out, ToScoreResponse(&scores[i]))
	}
	return out
}

type LeaderboardResponse struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

type StatsResponse struct {
	TotalGamesPlayed int                `json:"total_games_played"`
	FavoriteGame     *string            `json:"favorite_game"`
	BestScores       map[string]int64   `json:"best_scores"`
	AverageScores    map[string]float64 `json:"average_scores"`
	PlayCounts       map[string]int     `json:"play_counts"`
	RecentScores     []ScoreResponse    `json:"recent_scores"`
}

func ToStatsResponse(st *Stats) StatsResponse {
	resp := StatsResponse{
		TotalGamesPlayed: st.TotalGamesPlayed,
		FavoriteGame:     st.FavoriteGame,
		BestScores:       make(map[string]int64, len(st.PerGame)),
		AverageScores:    make(map[string]float64, len(st.PerGame)),
		PlayCounts:       make(map[string]int, len(st.PerGame)),
		RecentScores:     ToScoreResponseList(st.Recent),
	}

	for _, g := range st.PerGame {
		resp.BestScores[g.GameName] = g.Best
		resp.AverageScores[g.GameName] = g.Average
		resp.PlayCounts[g.GameName] = g.Plays
	}

	return resp
}
