package server

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/AhmadAC/Fence-Game/board"
	"github.com/AhmadAC/Fence-Game/broadcast"
	"github.com/AhmadAC/Fence-Game/config"
	"github.com/AhmadAC/Fence-Game/game"
	"github.com/AhmadAC/Fence-Game/network"
	"github.com/AhmadAC/Fence-Game/room"
	"github.com/AhmadAC/Fence-Game/services"
	"github.com/AhmadAC/Fence-Game/session"
	"github.com/AhmadAC/Fence-Game/timer"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error       { return nil }
func (m *MockConnection) SendJSON(msgID uint16, v interface{}) error { return nil }
func (m *MockConnection) Close() error                               { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                       { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)        {}
func (m *MockConnection) ReadPacket() (*network.Packet, error)       { return nil, nil }

func testConfig() *config.Config {
	return &config.Config{
		Game: config.GameConfig{
			BoardWidth:       5,
			BoardHeight:      5,
			MaxBoardWidth:    16,
			MaxBoardHeight:   16,
			MaxPlayers:       2,
			MaxPlayersLimit:  8,
			TurnGraceSeconds: 0,
			DisconnectPolicy: "skip",
		},
	}
}

// newTestServer wires the managers without binding any listeners.
func newTestServer(t *testing.T) *GameServer {
	t.Helper()
	s := &GameServer{
		cfg:            testConfig(),
		roomManager:    room.NewRoomManager(),
		sessionManager: session.NewManager(),
		matchService:   services.NewMatchService(nil),
		timers:         timer.NewManager(),
		shutdownChan:   make(chan struct{}),
	}
	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)
	t.Cleanup(s.timers.Stop)
	return s
}

func newTestSession(id string) *session.Session {
	sess := session.NewSession(id, &MockConnection{})
	sess.DisplayName = id
	return sess
}

func (s *GameServer) newTestRoom(t *testing.T, id string, width, height int) *room.Room {
	t.Helper()
	opts := room.Options{
		Width:            width,
		Height:           height,
		MaxPlayers:       2,
		DisconnectPolicy: game.PolicySkip,
	}
	return s.roomManager.CreateRoom(id, id, opts, s.broadcaster, s.matchService, s.timers)
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRoomOptions_ClampsToConfiguredCaps(t *testing.T) {
	s := &GameServer{cfg: testConfig()}

	opts := s.roomOptions(200, 300, 50)
	if opts.Width != 16 || opts.Height != 16 {
		t.Errorf("board = %dx%d, want clamped to 16x16", opts.Width, opts.Height)
	}
	if opts.MaxPlayers != 8 {
		t.Errorf("max players = %d, want clamped to 8", opts.MaxPlayers)
	}

	opts = s.roomOptions(0, 0, 0)
	if opts.Width != 5 || opts.Height != 5 || opts.MaxPlayers != 2 {
		t.Errorf("defaults not applied: %+v", opts)
	}
}

func TestDropFromRoom_ReclaimsEmptyWaitingRoom(t *testing.T) {
	s := newTestServer(t)
	r := s.newTestRoom(t, "waiting_room", 1, 1)

	a := newTestSession("alice")
	r.AddPlayer(a)

	s.dropFromRoom(a)

	if _, exists := s.roomManager.GetRoom("waiting_room"); exists {
		t.Fatal("empty waiting room should be removed")
	}
}

// A finished room lingers while sessions review the result, and is
// reclaimed the moment the last one drops.
func TestDropFromRoom_ReclaimsFinishedRoomAfterLastDrop(t *testing.T) {
	s := newTestServer(t)
	r := s.newTestRoom(t, "finished_room", 1, 1)

	a := newTestSession("alice")
	b := newTestSession("bob")
	r.AddPlayer(a)
	r.AddPlayer(b)
	waitFor(t, func() bool { return r.GetStatus() == room.StatusPlaying }, "match start")

	moves := []struct {
		sess *session.Session
		edge board.Edge
	}{
		{a, board.Edge{X: 0, Y: 0, Dir: board.Horizontal}},
		{b, board.Edge{X: 0, Y: 1, Dir: board.Horizontal}},
		{a, board.Edge{X: 0, Y: 0, Dir: board.Vertical}},
		{b, board.Edge{X: 1, Y: 0, Dir: board.Vertical}},
	}
	for i, mv := range moves {
		payload, _ := json.Marshal(game.Move{Edge: mv.edge, Seq: uint32(i + 1)})
		if err := r.StateMachine.GetCurrentState().HandleAction(mv.sess, payload); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
	}
	waitFor(t, func() bool { return r.GetStatus() == room.StatusFinished }, "match end")

	s.dropFromRoom(a)
	if _, exists := s.roomManager.GetRoom("finished_room"); !exists {
		t.Fatal("finished room must survive while a session is still attached")
	}

	s.dropFromRoom(b)
	if _, exists := s.roomManager.GetRoom("finished_room"); exists {
		t.Fatal("finished room must be removed after its last session drops")
	}
}

// Both players dropping mid-game ends the match (skip policy with
// nobody left) and the room is reclaimed on the final drop.
func TestDropFromRoom_ReclaimsRoomWhenAllPlayersDrop(t *testing.T) {
	s := newTestServer(t)
	r := s.newTestRoom(t, "abandoned_room", 2, 2)

	a := newTestSession("alice")
	b := newTestSession("bob")
	r.AddPlayer(a)
	r.AddPlayer(b)
	waitFor(t, func() bool { return r.GetStatus() == room.StatusPlaying }, "match start")

	s.dropFromRoom(a)
	if _, exists := s.roomManager.GetRoom("abandoned_room"); !exists {
		t.Fatal("room must survive while a player is still connected")
	}

	s.dropFromRoom(b)
	if r.GetStatus() != room.StatusFinished {
		t.Fatalf("status = %v, want finished once nobody is connected", r.GetStatus())
	}
	if _, exists := s.roomManager.GetRoom("abandoned_room"); exists {
		t.Fatal("fully abandoned room must be removed")
	}
}
