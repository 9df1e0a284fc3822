package network

import (
	"github.com/AhmadAC/Fence-Game/game"
)

// Payload shapes for the JSON bodies of wire packets. The core defines
// message content only; framing is the connection's concern.

type CreateMatchRequest struct {
	Name       string `json:"name"`
	UserID     int64  `json:"user_id,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	MaxPlayers int    `json:"max_players,omitempty"`
}

type CreateMatchReply struct {
	RoomID   string `json:"room_id"`
	JoinCode string `json:"join_code"`
	PlayerID string `json:"player_id"`
}

type JoinMatchRequest struct {
	JoinCode string `json:"join_code"`
	Name     string `json:"name"`
	UserID   int64  `json:"user_id,omitempty"`
}

type JoinMatchReply struct {
	RoomID   string   `json:"room_id"`
	JoinCode string   `json:"join_code"`
	PlayerID string   `json:"player_id"`
	Players  []string `json:"players"`
}

// PlayerJoined is broadcast to a room when a new player takes a seat.
type PlayerJoined struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Seated   int    `json:"seated"`
	MaxSeats int    `json:"max_seats"`
}

// MoveResult answers a ProposeMove. Rejections carry the reason; the
// client must re-derive a legal move rather than retry.
type MoveResult struct {
	Seq      uint32      `json:"seq"`
	Accepted bool        `json:"accepted"`
	Reason   string      `json:"reason,omitempty"`
	Delta    *game.Delta `json:"delta,omitempty"`
}

// MatchEnd is broadcast once the game state turns terminal.
type MatchEnd struct {
	Standings []game.Standing `json:"standings"`
	Winners   []game.PlayerID `json:"winners"`
	Draw      bool            `json:"draw"`
}

type ErrorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
