package room

import (
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/AhmadAC/Fence-Game/board"
	"github.com/AhmadAC/Fence-Game/game"
	"github.com/AhmadAC/Fence-Game/models"
	"github.com/AhmadAC/Fence-Game/network"
	"github.com/AhmadAC/Fence-Game/session"
	"github.com/AhmadAC/Fence-Game/state"
)

// MockBroadcaster records everything broadcast to any room.
type MockBroadcaster struct {
	mu       sync.Mutex
	messages []broadcastMsg
}

type broadcastMsg struct {
	roomID string
	msgID  uint16
	data   []byte
}

func (m *MockBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, broadcastMsg{roomID: roomID, msgID: msgID, data: data})
	return nil
}

func (m *MockBroadcaster) byID(msgID uint16) []broadcastMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []broadcastMsg
	for _, msg := range m.messages {
		if msg.msgID == msgID {
			out = append(out, msg)
		}
	}
	return out
}

// MockRecorder captures persisted match records.
type MockRecorder struct {
	mu      sync.Mutex
	records []*models.MatchRecord
}

func (m *MockRecorder) RecordMatch(rec *models.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *MockRecorder) all() []*models.MatchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.MatchRecord, len(m.records))
	copy(out, m.records)
	return out
}

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error     { return nil }
func (m *MockConnection) SendJSON(msgID uint16, v interface{}) error { return nil }
func (m *MockConnection) Close() error                             { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                     { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)      {}
func (m *MockConnection) ReadPacket() (*network.Packet, error)     { return nil, nil }

func newTestSession(id string) *session.Session {
	s := session.NewSession(id, &MockConnection{})
	s.DisplayName = id
	return s
}

func testOptions() Options {
	return Options{
		Width:            1,
		Height:           1,
		MaxPlayers:       2,
		TurnGrace:        0,
		DisconnectPolicy: game.PolicySkip,
	}
}

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	manager := NewRoomManager()
	mockBroadcaster := &MockBroadcaster{}

	roomID := "test_room_1"
	room := manager.CreateRoom(roomID, "Test Room", testOptions(), mockBroadcaster, nil, nil)
	defer room.Close()

	if room == nil {
		t.Fatal("CreateRoom should not return nil")
	}
	if room.ID != roomID {
		t.Errorf("Expected room ID %s, got %s", roomID, room.ID)
	}
	if room.JoinCode == "" {
		t.Error("room should get a join code")
	}

	retrievedRoom, exists := manager.GetRoom(roomID)
	if !exists {
		t.Fatal("GetRoom should find the created room")
	}
	if retrievedRoom != room {
		t.Error("GetRoom should return the same room instance")
	}

	byCode, exists := manager.GetByJoinCode(room.JoinCode)
	if !exists || byCode != room {
		t.Error("GetByJoinCode should resolve the room")
	}

	manager.RemoveRoom(roomID)
	if _, exists := manager.GetRoom(roomID); exists {
		t.Error("RemoveRoom should forget the room")
	}
	if _, exists := manager.GetByJoinCode(room.JoinCode); exists {
		t.Error("RemoveRoom should forget the join code")
	}
}

func TestRoom_AddPlayer(t *testing.T) {
	room := NewRoom("test_room_2", "Add Player Test", testOptions(), &MockBroadcaster{}, nil, nil)
	defer room.Close()

	player1 := newTestSession("player1")

	if !room.AddPlayer(player1) {
		t.Fatal("Failed to add first player")
	}
	if room.PlayerCount() != 1 {
		t.Errorf("Expected player count to be 1, got %d", room.PlayerCount())
	}
	if _, exists := room.GetPlayer(player1.GetID()); !exists {
		t.Error("Player was not correctly added to the room's player map")
	}
	if room.AddPlayer(player1) {
		t.Error("Seating the same session twice should fail")
	}
}

func TestRoom_AddPlayer_Full(t *testing.T) {
	opts := testOptions()
	opts.MaxPlayers = 1
	room := NewRoom("test_room_3", "Full Room Test", opts, &MockBroadcaster{}, nil, nil)
	defer room.Close()

	if !room.AddPlayer(newTestSession("player1")) {
		t.Fatal("Failed to add the first player")
	}
	if room.AddPlayer(newTestSession("player2")) {
		t.Fatal("Should not be able to add a player to a full room")
	}
	if room.PlayerCount() != 1 {
		t.Errorf("Expected player count to be 1, got %d", room.PlayerCount())
	}
}

func TestRoom_RemovePlayer_BeforeStart(t *testing.T) {
	room := NewRoom("test_room_4", "Remove Player Test", testOptions(), &MockBroadcaster{}, nil, nil)
	defer room.Close()

	player1 := newTestSession("player1")
	room.AddPlayer(player1)

	room.RemovePlayer(player1.GetID())

	if room.PlayerCount() != 0 {
		t.Errorf("Expected player count to be 0 after removing player, got %d", room.PlayerCount())
	}
	if player1.RoomID != "" {
		t.Error("Removed player should have its RoomID cleared")
	}
}

// Seat two players, let the waiting state start the match, play the
// 1x1 game through the lifecycle, and verify the broadcast and the
// persisted record.
func TestRoom_FullMatchLifecycle(t *testing.T) {
	broadcaster := &MockBroadcaster{}
	recorder := &MockRecorder{}
	room := NewRoom("match_room", "Lifecycle", testOptions(), broadcaster, recorder, nil)
	defer room.Close()

	a := newTestSession("alice")
	b := newTestSession("bob")
	room.AddPlayer(a)
	room.AddPlayer(b)

	waitFor(t, func() bool { return room.GetStatus() == StatusPlaying }, "match start")

	if got := len(broadcaster.byID(network.MsgTypeMatchStart)); got != 1 {
		t.Fatalf("expected 1 match-start broadcast, got %d", got)
	}

	playing := room.StateMachine.GetCurrentState()
	if playing.GetID() != state.StatePlaying {
		t.Fatalf("lifecycle state = %s, want playing", playing.GetID())
	}

	// Join order decides rotation: alice first.
	moves := []struct {
		player *session.Session
		edge   board.Edge
	}{
		{a, board.Edge{X: 0, Y: 0, Dir: board.Horizontal}},
		{b, board.Edge{X: 0, Y: 1, Dir: board.Horizontal}},
		{a, board.Edge{X: 0, Y: 0, Dir: board.Vertical}},
		{b, board.Edge{X: 1, Y: 0, Dir: board.Vertical}},
	}
	for i, mv := range moves {
		payload, _ := json.Marshal(game.Move{Edge: mv.edge, Seq: uint32(i + 1)})
		if err := playing.HandleAction(mv.player, payload); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
	}

	waitFor(t, func() bool { return room.GetStatus() == StatusFinished }, "match end")

	deltas := broadcaster.byID(network.MsgTypeStateDelta)
	if len(deltas) != 4 {
		t.Fatalf("expected 4 delta broadcasts, got %d", len(deltas))
	}
	for i, msg := range deltas {
		var d game.Delta
		if err := json.Unmarshal(msg.data, &d); err != nil {
			t.Fatalf("delta %d unmarshal: %v", i, err)
		}
		if d.Version != uint64(i+1) {
			t.Fatalf("delta %d version = %d, want %d", i, d.Version, i+1)
		}
	}

	ends := broadcaster.byID(network.MsgTypeMatchEnd)
	if len(ends) != 1 {
		t.Fatalf("expected 1 match-end broadcast, got %d", len(ends))
	}
	var end network.MatchEnd
	if err := json.Unmarshal(ends[0].data, &end); err != nil {
		t.Fatal(err)
	}
	if len(end.Winners) != 1 || end.Winners[0] != "bob" {
		t.Fatalf("winners = %v, want [bob]", end.Winners)
	}
	if end.Draw {
		t.Error("1-0 is not a draw")
	}

	waitFor(t, func() bool { return len(recorder.all()) == 1 }, "match record")
	rec := recorder.all()[0]
	if rec.RoomID != "match_room" || rec.Width != 1 || rec.Height != 1 {
		t.Fatalf("unexpected record header: %+v", rec)
	}
	outcomes := map[string]string{}
	for _, p := range rec.Players {
		outcomes[p.Name] = p.Outcome
	}
	if outcomes["bob"] != models.OutcomeWin || outcomes["alice"] != models.OutcomeLose {
		t.Fatalf("unexpected outcomes: %v", outcomes)
	}

	// Late moves bounce off the terminal state.
	late, _ := json.Marshal(game.Move{Edge: board.Edge{X: 0, Y: 0, Dir: board.Horizontal}, Seq: 99})
	if err := room.StateMachine.GetCurrentState().HandleAction(a, late); err == nil {
		t.Error("moves after game over must be rejected")
	}
}

func TestRoom_RemovePlayer_MidGameMarksDisconnected(t *testing.T) {
	broadcaster := &MockBroadcaster{}
	opts := testOptions()
	opts.Width, opts.Height = 2, 2
	room := NewRoom("dc_room", "Disconnect", opts, broadcaster, nil, nil)
	defer room.Close()

	room.AddPlayer(newTestSession("alice"))
	room.AddPlayer(newTestSession("bob"))
	waitFor(t, func() bool { return room.GetStatus() == StatusPlaying }, "match start")

	room.RemovePlayer("bob")

	waitFor(t, func() bool {
		snap := room.Authority().Snapshot()
		if snap == nil {
			return false
		}
		for _, p := range snap.Players {
			if p.ID == "bob" {
				return p.Disconnected
			}
		}
		return false
	}, "disconnect status")

	// The roster is fixed mid-game; bob stays on the player list but
	// no longer counts as attached.
	if room.PlayerCount() != 2 {
		t.Errorf("mid-game removal should not shrink the roster, count=%d", room.PlayerCount())
	}
	if room.AttachedCount() != 1 {
		t.Errorf("attached count = %d, want 1", room.AttachedCount())
	}

	deltas := broadcaster.byID(network.MsgTypeStateDelta)
	found := false
	for _, msg := range deltas {
		var d game.Delta
		if json.Unmarshal(msg.data, &d) == nil && d.Status != nil && d.Status.PlayerID == "bob" {
			found = true
		}
	}
	if !found {
		t.Error("disconnect must be broadcast as a status delta")
	}
}

// Two rooms must never share a join code; the manager regenerates on
// collision instead of overwriting the older room's entry.
func TestRoomManager_JoinCodeCollision(t *testing.T) {
	orig := newJoinCode
	defer func() { newJoinCode = orig }()

	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	calls := 0
	newJoinCode = func() string {
		code := codes[calls%len(codes)]
		calls++
		return code
	}

	manager := NewRoomManager()
	r1 := manager.CreateRoom("collide_1", "First", testOptions(), &MockBroadcaster{}, nil, nil)
	defer r1.Close()
	r2 := manager.CreateRoom("collide_2", "Second", testOptions(), &MockBroadcaster{}, nil, nil)
	defer r2.Close()

	if r1.JoinCode != "AAAAAA" {
		t.Fatalf("first room code = %q, want AAAAAA", r1.JoinCode)
	}
	if r2.JoinCode == r1.JoinCode {
		t.Fatal("second room must not reuse a taken join code")
	}

	if got, _ := manager.GetByJoinCode(r1.JoinCode); got != r1 {
		t.Error("first room lost its join-code entry")
	}
	if got, _ := manager.GetByJoinCode(r2.JoinCode); got != r2 {
		t.Error("second room unresolvable by its code")
	}
}

func TestJoinCode_Shape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := newJoinCode()
		if len(code) != joinCodeLength {
			t.Fatalf("join code %q has length %d", code, len(code))
		}
		for _, c := range code {
			if c == '0' || c == 'O' || c == '1' || c == 'I' {
				t.Fatalf("join code %q contains ambiguous character %q", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 40 {
		t.Errorf("join codes look insufficiently random: %d unique of 50", len(seen))
	}
}

// waitFor polls a condition that the room's 100ms tick loop (or the
// authority goroutine) will eventually satisfy.
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
