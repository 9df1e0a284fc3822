package gamesync

import (
	"errors"
	"sync"

	"github.com/AhmadAC/Fence-Game/game"
)

var (
	// ErrOutOfOrderDelta reports a version gap: the peer must discard
	// its projection and request a full snapshot.
	ErrOutOfOrderDelta = errors.New("state delta out of order")
	// ErrStateMismatch reports that replaying a delta produced a
	// different state than the authority announced. Also resolved by a
	// snapshot resync.
	ErrStateMismatch = errors.New("projection diverged from authority state")
)

// Projection is a non-authority peer's local mirror of the match. It
// replays confirmed deltas through the same deterministic rule engine
// the authority runs, and detects gaps and divergence. Reads (for
// rendering) may happen concurrently with delta application.
type Projection struct {
	mu    sync.RWMutex
	state *game.State
}

// NewProjection builds a projection from a full snapshot.
func NewProjection(snap *game.Snapshot) (*Projection, error) {
	state, err := game.Restore(snap)
	if err != nil {
		return nil, err
	}
	return &Projection{state: state}, nil
}

// Version returns the last applied state version.
func (p *Projection) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Version()
}

// Snapshot returns an immutable copy for rendering.
func (p *Projection) Snapshot() *game.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Snapshot()
}

// ApplyDelta replays one confirmed delta. Deltas at or below the
// current version are ignored (duplicates from the transport). A gap
// yields ErrOutOfOrderDelta; replay divergence yields ErrStateMismatch.
// On either error the projection can no longer be trusted and the
// caller must Restore from a fresh authority snapshot.
func (p *Projection) ApplyDelta(d *game.Delta) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.state.Version()
	if d.Version <= current {
		return nil
	}
	if d.Version != current+1 {
		return ErrOutOfOrderDelta
	}

	switch {
	case d.Move != nil:
		applied, err := p.state.Apply(game.Move{Edge: d.Move.Edge, PlayerID: d.Move.PlayerID})
		if err != nil {
			return ErrStateMismatch
		}
		if applied.Version != d.Version || applied.NextTurn != d.NextTurn || applied.GameOver != d.GameOver {
			return ErrStateMismatch
		}
	case d.Status != nil:
		applied, err := p.state.MarkDisconnected(d.Status.PlayerID)
		if err != nil || applied == nil {
			return ErrStateMismatch
		}
		if applied.Version != d.Version || applied.GameOver != d.GameOver {
			return ErrStateMismatch
		}
	default:
		return ErrStateMismatch
	}
	return nil
}

// Restore discards the local projection and adopts an authority
// snapshot.
func (p *Projection) Restore(snap *game.Snapshot) error {
	state, err := game.Restore(snap)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
	return nil
}
