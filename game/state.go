// Package game implements the rule engine for a Fence match: move
// validation, cell completion, the bonus-turn rotation, scoring and
// end-of-game detection. A State is deliberately not safe for
// concurrent use; the sync authority is its single writer and everyone
// else reads snapshots.
package game

import (
	"errors"

	"github.com/AhmadAC/Fence-Game/board"
)

// Rule errors. A rejected move never changes the state.
var (
	ErrUnknownEdge   = errors.New("edge does not exist on the grid")
	ErrEdgeClaimed   = errors.New("edge is already claimed")
	ErrNotYourTurn   = errors.New("not this player's turn")
	ErrUnknownPlayer = errors.New("player is not part of this match")
	ErrGameOver      = errors.New("the game is already over")
)

var ErrTooFewPlayers = errors.New("a match needs at least two players")

// PlayerID identifies a player within one match.
type PlayerID string

// DisconnectPolicy decides what happens to a match when a player drops
// or stalls past the turn grace period.
type DisconnectPolicy int

const (
	// PolicySkip marks the player disconnected and skips their turns
	// for the rest of the match.
	PolicySkip DisconnectPolicy = iota
	// PolicyForfeit ends the match immediately; remaining players are
	// ranked by their current scores.
	PolicyForfeit
)

// Player is one participant in a match. Players are fixed at match
// creation; disconnect is a state, never a removal.
type Player struct {
	ID           PlayerID `json:"id"`
	Name         string   `json:"name"`
	Score        int      `json:"score"`
	JoinOrder    int      `json:"join_order"`
	Disconnected bool     `json:"disconnected"`
}

// Move is a proposed edge claim. Seq is client-local and used by the
// sync layer for duplicate suppression; the rule engine ignores it.
type Move struct {
	Edge     board.Edge `json:"edge"`
	PlayerID PlayerID   `json:"player_id"`
	Seq      uint32     `json:"seq"`
}

// State is the authoritative aggregate for one match.
type State struct {
	grid    *board.Grid
	edges   map[board.Edge]PlayerID
	cells   map[board.Cell]PlayerID
	players []*Player
	byID    map[PlayerID]*Player
	turn    int // index into players
	version uint64
	over    bool
	policy  DisconnectPolicy
}

// PlayerInfo seeds one player slot at match creation.
type PlayerInfo struct {
	ID   PlayerID
	Name string
}

// NewState creates the match state. Rotation order is the order of
// infos; the first entry holds the first turn.
func NewState(grid *board.Grid, infos []PlayerInfo, policy DisconnectPolicy) (*State, error) {
	if grid == nil {
		return nil, board.ErrInvalidDimensions
	}
	if len(infos) < 2 {
		return nil, ErrTooFewPlayers
	}

	s := &State{
		grid:   grid,
		edges:  make(map[board.Edge]PlayerID),
		cells:  make(map[board.Cell]PlayerID),
		byID:   make(map[PlayerID]*Player),
		policy: policy,
	}
	for i, info := range infos {
		if _, dup := s.byID[info.ID]; dup {
			return nil, errors.New("duplicate player id " + string(info.ID))
		}
		p := &Player{ID: info.ID, Name: info.Name, JoinOrder: i}
		s.players = append(s.players, p)
		s.byID[info.ID] = p
	}
	return s, nil
}

// Grid returns the board geometry.
func (s *State) Grid() *board.Grid { return s.grid }

// Version returns the monotonically increasing state version.
func (s *State) Version() uint64 { return s.version }

// Over reports whether the match is terminal.
func (s *State) Over() bool { return s.over }

// TurnHolder returns the player whose move it is. Empty once the game
// is over.
func (s *State) TurnHolder() PlayerID {
	if s.over {
		return ""
	}
	return s.players[s.turn].ID
}

// EdgeOwner returns who claimed an edge, or false if it is unclaimed.
func (s *State) EdgeOwner(e board.Edge) (PlayerID, bool) {
	id, ok := s.edges[e]
	return id, ok
}

// CellOwner returns who owns a cell, or false if it is open.
func (s *State) CellOwner(c board.Cell) (PlayerID, bool) {
	id, ok := s.cells[c]
	return id, ok
}

// Apply validates and applies one move. Validation runs to completion
// before any mutation, so a rejected move leaves the state untouched.
func (s *State) Apply(m Move) (*Delta, error) {
	if s.over {
		return nil, ErrGameOver
	}
	if _, ok := s.byID[m.PlayerID]; !ok {
		return nil, ErrUnknownPlayer
	}
	if !s.grid.ContainsEdge(m.Edge) {
		return nil, ErrUnknownEdge
	}
	if _, claimed := s.edges[m.Edge]; claimed {
		return nil, ErrEdgeClaimed
	}
	if s.players[s.turn].ID != m.PlayerID {
		return nil, ErrNotYourTurn
	}

	mover := s.byID[m.PlayerID]
	s.edges[m.Edge] = m.PlayerID

	var owned []board.Cell
	for _, c := range s.grid.CellsOfEdge(m.Edge) {
		if _, taken := s.cells[c]; taken {
			continue
		}
		if board.IsCellComplete(s.grid, c, s.isClaimed) {
			s.cells[c] = m.PlayerID
			mover.Score++
			owned = append(owned, c)
		}
	}
	completed := len(owned) > 0

	if len(s.cells) == s.grid.CellCount() {
		s.over = true
	}
	// Bonus-turn rule: completing at least one cell keeps the turn.
	if !s.over && !completed {
		s.advanceTurn()
	}
	s.version++

	return &Delta{
		Version: s.version,
		Move: &MoveDelta{
			Edge:      m.Edge,
			PlayerID:  m.PlayerID,
			Cells:     owned,
			Completed: completed,
		},
		NextTurn: s.TurnHolder(),
		GameOver: s.over,
	}, nil
}

// MarkDisconnected flags a player as disconnected and applies the
// configured policy. It is a no-op (nil Delta) if the player is already
// disconnected or the game is over.
func (s *State) MarkDisconnected(id PlayerID) (*Delta, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if s.over || p.Disconnected {
		return nil, nil
	}

	p.Disconnected = true

	switch s.policy {
	case PolicyForfeit:
		s.over = true
	case PolicySkip:
		if !s.connectedRemain() {
			// Nobody left to move.
			s.over = true
		} else if s.players[s.turn].ID == id {
			s.advanceTurn()
		}
	}
	s.version++

	return &Delta{
		Version:  s.version,
		Status:   &StatusDelta{PlayerID: id, Disconnected: true},
		NextTurn: s.TurnHolder(),
		GameOver: s.over,
	}, nil
}

// Policy returns the configured disconnect policy.
func (s *State) Policy() DisconnectPolicy { return s.policy }

// Players returns copies of all players in rotation order.
func (s *State) Players() []Player {
	out := make([]Player, len(s.players))
	for i, p := range s.players {
		out[i] = *p
	}
	return out
}

func (s *State) isClaimed(e board.Edge) bool {
	_, claimed := s.edges[e]
	return claimed
}

// advanceTurn passes the turn to the next connected player in rotation
// order.
func (s *State) advanceTurn() {
	for i := 1; i <= len(s.players); i++ {
		next := (s.turn + i) % len(s.players)
		if !s.players[next].Disconnected {
			s.turn = next
			return
		}
	}
}

func (s *State) connectedRemain() bool {
	for _, p := range s.players {
		if !p.Disconnected {
			return true
		}
	}
	return false
}
