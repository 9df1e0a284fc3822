// rpc/rpc.go
package rpc

import (
	"net"
	"net/rpc"

	"github.com/AhmadAC/Fence-Game/logger"
	"github.com/AhmadAC/Fence-Game/models"
	"github.com/AhmadAC/Fence-Game/room"
	"github.com/AhmadAC/Fence-Game/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered with the
// rpc package by the caller before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operational queries over net/rpc.
type AdminService struct {
	matches *services.MatchService
	rooms   *room.Manager
}

func NewAdminService(matches *services.MatchService, rooms *room.Manager) *AdminService {
	return &AdminService{matches: matches, rooms: rooms}
}

type GetPlayerStatsArgs struct {
	UserID int64
}

type GetPlayerStatsReply struct {
	Stats *models.PlayerStats
}

// GetPlayerStats follows the net/rpc method signature rules: exported
// method, pointer reply, error return.
func (a *AdminService) GetPlayerStats(args *GetPlayerStatsArgs, reply *GetPlayerStatsReply) error {
	stats, err := a.matches.GetPlayerStats(args.UserID)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Count   int
	RoomIDs []string
}

func (a *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.Count = a.rooms.Count()
	reply.RoomIDs = a.rooms.ListIDs()
	return nil
}
