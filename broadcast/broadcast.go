// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"errors"

	"github.com/AhmadAC/Fence-Game/room"
	"github.com/AhmadAC/Fence-Game/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// Broadcaster fans messages out to rooms or users.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	BroadcastToUsers(userIDs []int64, msgID uint16, data []byte) error
	BroadcastJSONToRoom(roomID string, msgID uint16, v interface{}) error
}

// RoomBroadcaster resolves rooms and sessions through their managers.
// A send failure to one session never blocks delivery to the rest; the
// stalled peer catches up by snapshot resync.
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	r, exists := b.roomManager.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}

	for _, s := range r.GetSessions() {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastJSONToRoom(roomID string, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.BroadcastToRoom(roomID, msgID, data)
}

func (b *RoomBroadcaster) BroadcastToUsers(userIDs []int64, msgID uint16, data []byte) error {
	for _, userID := range userIDs {
		for _, s := range b.sessionManager.GetByUserID(userID) {
			if err := s.Send(msgID, data); err != nil {
				continue
			}
		}
	}
	return nil
}
