package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AhmadAC/Fence-Game/broadcast"
	"github.com/AhmadAC/Fence-Game/config"
	"github.com/AhmadAC/Fence-Game/game"
	"github.com/AhmadAC/Fence-Game/logger"
	"github.com/AhmadAC/Fence-Game/monitor"
	"github.com/AhmadAC/Fence-Game/network"
	"github.com/AhmadAC/Fence-Game/persistence"
	"github.com/AhmadAC/Fence-Game/room"
	gamerpc "github.com/AhmadAC/Fence-Game/rpc"
	"github.com/AhmadAC/Fence-Game/services"
	"github.com/AhmadAC/Fence-Game/session"
	"github.com/AhmadAC/Fence-Game/timer"
)

// GameServer accepts websocket clients, owns the session and room
// managers, and routes packets into the match rooms.
type GameServer struct {
	cfg            *config.Config
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	matchService   *services.MatchService
	broadcaster    broadcast.Broadcaster
	timers         *timer.Manager
	monitor        *monitor.Monitor
	rpcServer      *gamerpc.Server
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		cfg:            cfg,
		roomManager:    room.NewRoomManager(),
		sessionManager: session.NewManager(),
		matchService:   services.NewMatchService(db),
		timers:         timer.NewManager(),
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)

	rpcServer, err := gamerpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	adminService := gamerpc.NewAdminService(s.matchService, s.roomManager)
	rpc.Register(adminService)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	return http.ListenAndServe(s.cfg.Server.HTTPAddress, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
	s.timers.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(30 * time.Second)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncOnlinePlayers()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.dropFromRoom(sess)
		wsConn.Close()
		if s.monitor != nil {
			s.monitor.DecOnlinePlayers()
		}
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// dropFromRoom detaches a closed session from its room. A waiting room
// frees the seat; a playing room keeps the seat and marks the player
// disconnected. Rooms with nobody attached are torn down: empty
// waiting rooms immediately, finished rooms once the last session is
// gone. RemovePlayer blocks through the authority, so a drop that ends
// the match is observed as finished here.
func (s *GameServer) dropFromRoom(sess *session.Session) {
	if sess.RoomID == "" {
		return
	}
	r, exists := s.roomManager.GetRoom(sess.RoomID)
	if !exists {
		return
	}

	r.RemovePlayer(sess.GetID())

	reclaim := false
	switch r.GetStatus() {
	case room.StatusWaiting:
		reclaim = r.PlayerCount() == 0
	case room.StatusFinished:
		reclaim = r.AttachedCount() == 0
	}
	if reclaim {
		s.roomManager.RemoveRoom(r.ID)
	}
	if s.monitor != nil {
		s.monitor.SetActiveMatches(s.roomManager.Count())
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
		sess.Send(network.MsgTypeHeartbeat, nil)
	case network.MsgTypeCreateMatch:
		s.handleCreateMatch(sess, packet)
	case network.MsgTypeJoinMatch:
		s.handleJoinMatch(sess, packet)
	case network.MsgTypeLeaveMatch:
		s.handleLeaveMatch(sess, packet)
	case network.MsgTypeProposeMove:
		s.handleProposeMove(sess, packet)
	case network.MsgTypeResyncQuery:
		s.handleResyncQuery(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleCreateMatch(sess *session.Session, packet *network.Packet) {
	var req network.CreateMatchRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "bad_request", "malformed create request")
		return
	}

	opts := s.roomOptions(req.Width, req.Height, req.MaxPlayers)
	sess.DisplayName = req.Name
	sess.UserID = req.UserID

	roomID := uuid.New().String()
	r := s.roomManager.CreateRoom(roomID, req.Name, opts, s.broadcaster, s.matchService, s.timers)
	if !r.AddPlayer(sess) {
		s.roomManager.RemoveRoom(roomID)
		s.sendError(sess, "seat_failed", "could not seat creator")
		return
	}

	logger.Log.Infof("Session %s created room %s (code %s)", sess.GetID(), roomID, r.JoinCode)
	if s.monitor != nil {
		s.monitor.SetActiveMatches(s.roomManager.Count())
	}

	sess.SendJSON(network.MsgTypeCreateMatch, network.CreateMatchReply{
		RoomID:   roomID,
		JoinCode: r.JoinCode,
		PlayerID: sess.GetID(),
	})
}

func (s *GameServer) handleJoinMatch(sess *session.Session, packet *network.Packet) {
	var req network.JoinMatchRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "bad_request", "malformed join request")
		return
	}

	r, exists := s.roomManager.GetByJoinCode(req.JoinCode)
	if !exists {
		s.sendError(sess, "unknown_code", "no match with that join code")
		return
	}

	sess.DisplayName = req.Name
	sess.UserID = req.UserID

	if !r.AddPlayer(sess) {
		s.sendError(sess, "room_full", "match is full or already started")
		return
	}

	logger.Log.Infof("Session %s joined room %s", sess.GetID(), r.ID)

	names := make([]string, 0)
	for _, other := range r.GetSessions() {
		names = append(names, other.DisplayName)
	}
	sess.SendJSON(network.MsgTypeJoinMatch, network.JoinMatchReply{
		RoomID:   r.ID,
		JoinCode: r.JoinCode,
		PlayerID: sess.GetID(),
		Players:  names,
	})

	joined, _ := json.Marshal(network.PlayerJoined{
		PlayerID: sess.GetID(),
		Name:     sess.DisplayName,
		Seated:   r.PlayerCount(),
		MaxSeats: r.Opts.MaxPlayers,
	})
	s.broadcaster.BroadcastToRoom(r.ID, network.MsgTypePlayerJoined, joined)
}

func (s *GameServer) handleLeaveMatch(sess *session.Session, packet *network.Packet) {
	s.dropFromRoom(sess)
}

func (s *GameServer) handleProposeMove(sess *session.Session, packet *network.Packet) {
	if sess.RoomID == "" {
		s.sendError(sess, "not_in_match", "join a match before moving")
		return
	}

	r, exists := s.roomManager.GetRoom(sess.RoomID)
	if !exists {
		logger.Log.Errorf("Room %s not found for session %s", sess.RoomID, sess.GetID())
		return
	}

	currentState := r.StateMachine.GetCurrentState()
	if currentState == nil {
		logger.Log.Errorf("Room %s has a nil state", r.GetID())
		return
	}

	start := time.Now()
	if s.monitor != nil {
		s.monitor.IncMoveProposed()
	}
	if err := currentState.HandleAction(sess, packet.Data); err != nil {
		logger.Log.Warnf("Move rejected in room %s: %v", r.GetID(), err)
		s.sendError(sess, "move_rejected", err.Error())
	}
	if s.monitor != nil {
		s.monitor.ObserveMoveLatency(time.Since(start))
	}
}

// handleResyncQuery answers with the full authoritative snapshot, for
// clients whose projection fell behind the delta stream.
func (s *GameServer) handleResyncQuery(sess *session.Session, packet *network.Packet) {
	if sess.RoomID == "" {
		s.sendError(sess, "not_in_match", "no match to resync")
		return
	}
	r, exists := s.roomManager.GetRoom(sess.RoomID)
	if !exists {
		return
	}
	auth := r.Authority()
	if auth == nil {
		s.sendError(sess, "not_started", "match has not started")
		return
	}
	sess.SendJSON(network.MsgTypeSnapshot, auth.Snapshot())
}

// roomOptions resolves client-requested match parameters against the
// configured defaults and caps. The board caps also bound snapshot
// payloads to the wire frame limit.
func (s *GameServer) roomOptions(width, height, maxPlayers int) room.Options {
	g := s.cfg.Game
	if width < 1 {
		width = g.BoardWidth
	}
	if width > g.MaxBoardWidth {
		width = g.MaxBoardWidth
	}
	if height < 1 {
		height = g.BoardHeight
	}
	if height > g.MaxBoardHeight {
		height = g.MaxBoardHeight
	}
	if maxPlayers < 2 {
		maxPlayers = g.MaxPlayers
	}
	if maxPlayers > g.MaxPlayersLimit {
		maxPlayers = g.MaxPlayersLimit
	}
	policy := game.PolicySkip
	if g.DisconnectPolicy == "forfeit" {
		policy = game.PolicyForfeit
	}
	return room.Options{
		Width:            width,
		Height:           height,
		MaxPlayers:       maxPlayers,
		TurnGrace:        time.Duration(g.TurnGraceSeconds) * time.Second,
		DisconnectPolicy: policy,
	}
}

func (s *GameServer) sendError(sess *session.Session, code, message string) {
	if err := sess.SendJSON(network.MsgTypeError, network.ErrorReply{Code: code, Message: message}); err != nil {
		logger.Log.Warnf("Failed to send error to session %s: %v", sess.GetID(), err)
	}
}
