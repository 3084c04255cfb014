// Package store persists game results.
package store

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrUnknownGame = errors.New("unknown game ID")
)

// Score is the record of one player over all games
type Score struct {
	Player string `json:"player"`
	Games  int    `json:"games"`
	Wins   int    `json:"wins"`
	Points int    `json:"points"`
}

// Game is one stored round
type Game struct {
	ID        int64      `json:"id"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	Turns     int        `json:"turns"`
}

// rank orders scores by wins, then by fewest points
func rank(scores []Score, limit int) []Score {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Wins != scores[j].Wins {
			return scores[i].Wins > scores[j].Wins
		}
		if scores[i].Points != scores[j].Points {
			return scores[i].Points < scores[j].Points
		}
		return scores[i].Player < scores[j].Player
	})
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}
