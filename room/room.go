// room/room.go
package room

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"sync"
	"time"

	"github.com/AhmadAC/Fence-Game/board"
	"github.com/AhmadAC/Fence-Game/game"
	"github.com/AhmadAC/Fence-Game/gamesync"
	"github.com/AhmadAC/Fence-Game/logger"
	"github.com/AhmadAC/Fence-Game/models"
	"github.com/AhmadAC/Fence-Game/network"
	"github.com/AhmadAC/Fence-Game/session"
	"github.com/AhmadAC/Fence-Game/state"
	"github.com/AhmadAC/Fence-Game/timer"
)

// Status is the coarse business state of a room.
type Status int

const (
	StatusWaiting Status = iota
	StatusPlaying
	StatusFinished
)

// Options fixes the match parameters at room creation.
type Options struct {
	Width            int
	Height           int
	MaxPlayers       int
	TurnGrace        time.Duration
	DisconnectPolicy game.DisconnectPolicy
}

// Room hosts one match: it seats players, owns the match authority
// once the game starts, and fans confirmed state out to its sessions.
type Room struct {
	ID       string
	Name     string
	JoinCode string
	Opts     Options

	StateMachine state.StateMachine
	CreatedAt    time.Time

	status      Status
	statusMutex sync.RWMutex

	players     map[string]*session.Session // sessionID -> session
	joinOrder   []string
	detached    map[string]bool // mid-game seats whose connection is gone
	playerMutex sync.RWMutex

	authority   *gamesync.Authority
	authMutex   sync.RWMutex
	startedAt   time.Time
	turnTimerID int64

	broadcaster Broadcaster
	recorder    MatchRecorder
	timers      *timer.Manager

	ticker    *time.Ticker
	closeChan chan bool
	closeOnce sync.Once
}

// NewRoom creates a room and starts its update loop.
func NewRoom(id, name string, opts Options, broadcaster Broadcaster, recorder MatchRecorder, timers *timer.Manager) *Room {
	room := &Room{
		ID:          id,
		Name:        name,
		JoinCode:    newJoinCode(),
		Opts:        opts,
		status:      StatusWaiting,
		players:     make(map[string]*session.Session),
		detached:    make(map[string]bool),
		CreatedAt:   time.Now(),
		closeChan:   make(chan bool),
		broadcaster: broadcaster,
		recorder:    recorder,
		timers:      timers,
	}

	room.StateMachine = state.NewBaseStateMachine(state.NewWaitingState(room))

	room.ticker = time.NewTicker(100 * time.Millisecond)
	go room.loop()

	return room
}

// --- state.RoomContext ---

func (r *Room) GetID() string {
	return r.ID
}

func (r *Room) GetMaxPlayers() int {
	return r.Opts.MaxPlayers
}

// GetPlayers returns a copy of the seated players as state.Player
// values.
func (r *Room) GetPlayers() map[string]state.Player {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	players := make(map[string]state.Player)
	for k, v := range r.players {
		players[k] = v
	}
	return players
}

func (r *Room) ChangeState(newState state.State) error {
	return r.StateMachine.ChangeState(newState)
}

func (r *Room) Broadcast(msgID uint16, data []byte) error {
	return r.broadcaster.BroadcastToRoom(r.ID, msgID, data)
}

// StartMatch builds the authoritative game state from the seated
// players, in join order, and announces the starting snapshot. The
// status flip below also locks the roster: AddPlayer refuses seats
// outside StatusWaiting.
func (r *Room) StartMatch() (err error) {
	r.statusMutex.Lock()
	if r.status != StatusWaiting {
		r.statusMutex.Unlock()
		return nil
	}
	r.status = StatusPlaying
	r.statusMutex.Unlock()

	defer func() {
		if err != nil {
			r.SetStatus(StatusWaiting)
		}
	}()

	grid, err := board.New(r.Opts.Width, r.Opts.Height)
	if err != nil {
		return err
	}

	r.playerMutex.RLock()
	infos := make([]game.PlayerInfo, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		if s, ok := r.players[id]; ok {
			infos = append(infos, game.PlayerInfo{ID: game.PlayerID(s.ID), Name: s.DisplayName})
		}
	}
	r.playerMutex.RUnlock()

	st, err := game.NewState(grid, infos, r.Opts.DisconnectPolicy)
	if err != nil {
		return err
	}

	r.authMutex.Lock()
	r.authority = gamesync.NewAuthority(st, r)
	r.startedAt = time.Now()
	r.authMutex.Unlock()

	if err := r.ChangeState(state.NewPlayingState(r)); err != nil {
		return err
	}

	snap := r.Authority().Snapshot()
	if err := r.broadcastJSON(network.MsgTypeMatchStart, snap); err != nil {
		logger.Log.Warnf("room %s: match start broadcast failed: %v", r.ID, err)
	}
	r.resetTurnTimer(snap.Turn, snap.Version)
	return nil
}

// ProposeMove funnels one move intent into the authority and answers
// the proposing player directly.
func (r *Room) ProposeMove(playerID string, mv game.Move) error {
	auth := r.Authority()
	if auth == nil {
		return gamesync.ErrClosed
	}

	result := auth.Propose(mv)

	if s, ok := r.GetPlayer(playerID); ok {
		reply := network.MoveResult{
			Seq:      mv.Seq,
			Accepted: result.Accepted,
			Reason:   result.Reason,
			Delta:    result.Delta,
		}
		if err := s.SendJSON(network.MsgTypeMoveResult, reply); err != nil {
			logger.Log.Warnf("room %s: move result send to %s failed: %v", r.ID, playerID, err)
		}
	}
	return nil
}

// --- gamesync.Notifier ---

// NotifyDelta broadcasts every confirmed delta and re-arms the turn
// timer for the next holder.
func (r *Room) NotifyDelta(d *game.Delta) {
	if err := r.broadcastJSON(network.MsgTypeStateDelta, d); err != nil {
		logger.Log.Warnf("room %s: delta broadcast failed: %v", r.ID, err)
	}
	r.resetTurnTimer(d.NextTurn, d.Version)
}

// NotifyGameOver records the post-game summary and parks the room in
// its terminal state.
func (r *Room) NotifyGameOver(snap *game.Snapshot, standings []game.Standing, winners []game.PlayerID) {
	end := network.MatchEnd{
		Standings: standings,
		Winners:   winners,
		Draw:      len(winners) > 1,
	}
	if err := r.broadcastJSON(network.MsgTypeMatchEnd, end); err != nil {
		logger.Log.Warnf("room %s: match end broadcast failed: %v", r.ID, err)
	}

	r.SetStatus(StatusFinished)
	if err := r.ChangeState(state.NewGameOverState(r)); err != nil {
		logger.Log.Errorf("room %s: failed to enter game over state: %v", r.ID, err)
	}

	if r.recorder != nil {
		if err := r.recorder.RecordMatch(r.buildRecord(snap, winners)); err != nil {
			logger.Log.Errorf("room %s: failed to persist match record: %v", r.ID, err)
		}
	}
}

func (r *Room) buildRecord(snap *game.Snapshot, winners []game.PlayerID) *models.MatchRecord {
	winner := make(map[game.PlayerID]bool, len(winners))
	for _, w := range winners {
		winner[w] = true
	}
	draw := len(winners) > 1

	rec := &models.MatchRecord{
		RoomID:    r.ID,
		Width:     snap.Width,
		Height:    snap.Height,
		StartedAt: r.startedAt,
		EndedAt:   time.Now(),
	}
	for _, p := range snap.Players {
		outcome := models.OutcomeLose
		if winner[p.ID] {
			outcome = models.OutcomeWin
			if draw {
				outcome = models.OutcomeDraw
			}
		}
		var userID int64
		if s, ok := r.GetPlayer(string(p.ID)); ok {
			userID = s.UserID
		}
		rec.Players = append(rec.Players, models.PlayerResult{
			UserID:  userID,
			Name:    p.Name,
			Outcome: outcome,
			Score:   p.Score,
		})
	}
	return rec
}

// --- room core ---

// AddPlayer seats a session. Returns false when the room is full or
// already playing.
func (r *Room) AddPlayer(s *session.Session) bool {
	if r.GetStatus() != StatusWaiting {
		return false
	}

	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	if len(r.players) >= r.Opts.MaxPlayers {
		return false
	}
	if _, seated := r.players[s.ID]; seated {
		return false
	}

	r.players[s.ID] = s
	r.joinOrder = append(r.joinOrder, s.ID)
	s.RoomID = r.ID
	return true
}

// RemovePlayer unseats a session. Mid-game this marks the player
// disconnected instead of deleting them; the roster is fixed for the
// whole match.
func (r *Room) RemovePlayer(sessionID string) {
	if r.GetStatus() == StatusWaiting {
		r.playerMutex.Lock()
		if player, exists := r.players[sessionID]; exists {
			player.RoomID = ""
			delete(r.players, sessionID)
			for i, id := range r.joinOrder {
				if id == sessionID {
					r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
					break
				}
			}
		}
		r.playerMutex.Unlock()
		return
	}

	r.playerMutex.Lock()
	if _, seated := r.players[sessionID]; seated {
		r.detached[sessionID] = true
	}
	r.playerMutex.Unlock()

	if auth := r.Authority(); auth != nil {
		auth.MarkDisconnected(game.PlayerID(sessionID))
	}
}

// AttachedCount returns how many seated players still have a live
// connection.
func (r *Room) AttachedCount() int {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return len(r.players) - len(r.detached)
}

func (r *Room) GetPlayer(sessionID string) (*session.Session, bool) {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	player, exists := r.players[sessionID]
	return player, exists
}

// GetSessions returns a slice of all sessions in the room (thread-safe).
func (r *Room) GetSessions() []*session.Session {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	sessions := make([]*session.Session, 0, len(r.players))
	for _, s := range r.players {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Room) PlayerCount() int {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return len(r.players)
}

func (r *Room) SetStatus(status Status) {
	r.statusMutex.Lock()
	defer r.statusMutex.Unlock()
	r.status = status
}

func (r *Room) GetStatus() Status {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()
	return r.status
}

// Authority returns the match authority, nil before the match starts.
func (r *Room) Authority() *gamesync.Authority {
	r.authMutex.RLock()
	defer r.authMutex.RUnlock()
	return r.authority
}

func (r *Room) broadcastJSON(msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.Broadcast(msgID, data)
}

// resetTurnTimer re-arms the grace-period timeout for the player now
// holding the turn. The version pins the expiry to this exact turn; a
// move that lands first makes the expiry a no-op.
func (r *Room) resetTurnTimer(holder game.PlayerID, version uint64) {
	if r.timers == nil || r.Opts.TurnGrace <= 0 {
		return
	}

	r.authMutex.Lock()
	if r.turnTimerID != 0 {
		r.timers.Remove(r.turnTimerID)
		r.turnTimerID = 0
	}
	auth := r.authority
	if holder != "" && auth != nil {
		r.turnTimerID = r.timers.Add(r.Opts.TurnGrace, 0, func() {
			logger.Log.Infof("room %s: player %s stalled past grace period", r.ID, holder)
			auth.ExpireTurn(holder, version)
		})
	}
	r.authMutex.Unlock()
}

// loop drives the state machine at 10 ticks per second.
func (r *Room) loop() {
	for {
		select {
		case <-r.ticker.C:
			r.Update()
		case <-r.closeChan:
			r.ticker.Stop()
			return
		}
	}
}

// Update advances the current lifecycle state by one tick.
func (r *Room) Update() {
	if r.StateMachine != nil {
		currentState := r.StateMachine.GetCurrentState()
		if currentState != nil {
			currentState.OnUpdate()
		}
	}
}

// Close stops the room loop and its authority.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
		if auth := r.Authority(); auth != nil {
			auth.Close()
		}
	})
}

// --- room manager ---

// Manager tracks all rooms and their join codes.
type Manager struct {
	rooms  map[string]*Room
	byCode map[string]*Room
	mutex  sync.RWMutex
}

func NewRoomManager() *Manager {
	return &Manager{
		rooms:  make(map[string]*Room),
		byCode: make(map[string]*Room),
	}
}

// CreateRoom creates a new room and registers its join code,
// regenerating on collision with a live room.
func (m *Manager) CreateRoom(id, name string, opts Options, broadcaster Broadcaster, recorder MatchRecorder, timers *timer.Manager) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room := NewRoom(id, name, opts, broadcaster, recorder, timers)
	for {
		if _, taken := m.byCode[room.JoinCode]; !taken {
			break
		}
		room.JoinCode = newJoinCode()
	}
	m.rooms[id] = room
	m.byCode[room.JoinCode] = room
	return room
}

// RemoveRoom closes a room and forgets it.
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		room.Close()
		delete(m.byCode, room.JoinCode)
		delete(m.rooms, id)
	}
}

func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// GetByJoinCode resolves the short human-shareable code clients paste
// in.
func (m *Manager) GetByJoinCode(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.byCode[code]
	return room, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// ListIDs returns the ids of all live rooms.
func (m *Manager) ListIDs() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	return ids
}

// Join codes skip easily-confused characters; they travel through chat
// messages and clipboards.
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const joinCodeLength = 6

var newJoinCode = func() string {
	code := make([]byte, joinCodeLength)
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		code[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(code)
}
