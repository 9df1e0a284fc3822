// state/interfaces.go
package state

import (
	"github.com/AhmadAC/Fence-Game/game"
)

// Player defines the minimal interface for a player entity that a state needs to interact with.
type Player interface {
	GetID() string
}

// RoomContext defines the interface a Room must implement to be driven
// by the lifecycle states. Declared here to break the import cycle
// between room and state.
type RoomContext interface {
	GetID() string
	GetPlayers() map[string]Player
	GetMaxPlayers() int
	ChangeState(newState State) error
	Broadcast(msgID uint16, data []byte) error

	// StartMatch builds the authoritative game state from the seated
	// players and announces the match start.
	StartMatch() error
	// ProposeMove forwards a validated move intent to the match
	// authority and answers the proposing player.
	ProposeMove(playerID string, mv game.Move) error
}
