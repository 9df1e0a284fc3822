package game

import (
	"github.com/AhmadAC/Fence-Game/board"
)

// Delta is the minimal description of one accepted state transition,
// tagged with the version it produced. Exactly one of Move or Status is
// set. Peers must apply deltas in increasing version order.
type Delta struct {
	Version  uint64       `json:"version"`
	Move     *MoveDelta   `json:"move,omitempty"`
	Status   *StatusDelta `json:"status,omitempty"`
	NextTurn PlayerID     `json:"next_turn"`
	GameOver bool         `json:"game_over"`
}

// MoveDelta describes an accepted edge claim.
type MoveDelta struct {
	Edge      board.Edge   `json:"edge"`
	PlayerID  PlayerID     `json:"player_id"`
	Cells     []board.Cell `json:"cells,omitempty"` // newly owned cells
	Completed bool         `json:"completed"`
}

// StatusDelta describes a player connectivity change.
type StatusDelta struct {
	PlayerID     PlayerID `json:"player_id"`
	Disconnected bool     `json:"disconnected"`
}
