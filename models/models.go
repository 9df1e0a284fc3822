// models/models.go
package models

import (
	"time"
)

// Outcomes recorded per player at match end.
const (
	OutcomeWin  = "win"
	OutcomeLose = "lose"
	OutcomeDraw = "draw"
)

// MatchRecord is the post-game summary persisted once a match turns
// terminal.
type MatchRecord struct {
	RoomID    string         `json:"room_id"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Players   []PlayerResult `json:"players"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
}

// PlayerResult is one player's line in a match record.
type PlayerResult struct {
	UserID  int64  `json:"user_id"`
	Name    string `json:"name"`
	Outcome string `json:"outcome"` // win/lose/draw
	Score   int    `json:"score"`   // cells claimed
}

// PlayerStats is the accumulated record of one registered player.
type PlayerStats struct {
	UserID       int64  `json:"user_id"`
	Name         string `json:"name"`
	TotalGames   int    `json:"total_games"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Draws        int    `json:"draws"`
	CellsClaimed int    `json:"cells_claimed"`
}
