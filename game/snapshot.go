package game

import (
	"sort"

	"github.com/AhmadAC/Fence-Game/board"
)

// EdgeClaim pairs a claimed edge with its owner for the wire.
type EdgeClaim struct {
	Edge     board.Edge `json:"edge"`
	PlayerID PlayerID   `json:"player_id"`
}

// CellClaim pairs an owned cell with its owner for the wire.
type CellClaim struct {
	Cell     board.Cell `json:"cell"`
	PlayerID PlayerID   `json:"player_id"`
}

// Snapshot is the full serializable image of a match state, used for
// rendering, catch-up and authority resync. It is a value copy;
// mutating it never touches the live State.
type Snapshot struct {
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Edges    []EdgeClaim      `json:"edges,omitempty"`
	Cells    []CellClaim      `json:"cells,omitempty"`
	Players  []Player         `json:"players"`
	Turn     PlayerID         `json:"turn"`
	Version  uint64           `json:"version"`
	GameOver bool             `json:"game_over"`
	Policy   DisconnectPolicy `json:"policy"`
}

// Snapshot copies the current state into an immutable snapshot. Edge
// and cell claims are emitted in deterministic order.
func (s *State) Snapshot() *Snapshot {
	snap := &Snapshot{
		Width:    s.grid.Width(),
		Height:   s.grid.Height(),
		Players:  s.Players(),
		Turn:     s.TurnHolder(),
		Version:  s.version,
		GameOver: s.over,
		Policy:   s.policy,
	}

	for e, id := range s.edges {
		snap.Edges = append(snap.Edges, EdgeClaim{Edge: e, PlayerID: id})
	}
	sort.Slice(snap.Edges, func(i, j int) bool {
		return edgeLess(snap.Edges[i].Edge, snap.Edges[j].Edge)
	})

	for c, id := range s.cells {
		snap.Cells = append(snap.Cells, CellClaim{Cell: c, PlayerID: id})
	}
	sort.Slice(snap.Cells, func(i, j int) bool {
		a, b := snap.Cells[i].Cell, snap.Cells[j].Cell
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	return snap
}

// Restore rebuilds a State from a snapshot. Used by peers that
// received a full-state resync.
func Restore(snap *Snapshot) (*State, error) {
	grid, err := board.New(snap.Width, snap.Height)
	if err != nil {
		return nil, err
	}

	infos := make([]PlayerInfo, len(snap.Players))
	for i, p := range snap.Players {
		infos[i] = PlayerInfo{ID: p.ID, Name: p.Name}
	}
	s, err := NewState(grid, infos, snap.Policy)
	if err != nil {
		return nil, err
	}

	for _, ec := range snap.Edges {
		if !grid.ContainsEdge(ec.Edge) {
			return nil, ErrUnknownEdge
		}
		s.edges[ec.Edge] = ec.PlayerID
	}
	for _, cc := range snap.Cells {
		s.cells[cc.Cell] = cc.PlayerID
	}
	for i, p := range snap.Players {
		s.players[i].Score = p.Score
		s.players[i].Disconnected = p.Disconnected
	}
	s.version = snap.Version
	s.over = snap.GameOver
	if !snap.GameOver {
		for i, p := range s.players {
			if p.ID == snap.Turn {
				s.turn = i
			}
		}
	}
	return s, nil
}

func edgeLess(a, b board.Edge) bool {
	if a.Dir != b.Dir {
		return a.Dir < b.Dir
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}
