package room

import (
	"github.com/AhmadAC/Fence-Game/models"
)

// Broadcaster fans a message out to every session in a room. Defined
// here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
}

// MatchRecorder persists post-game summaries. A nil recorder disables
// persistence (tests, ephemeral servers).
type MatchRecorder interface {
	RecordMatch(rec *models.MatchRecord) error
}
