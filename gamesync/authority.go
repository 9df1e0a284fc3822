// Package gamesync is the session/sync layer: a single-writer Authority
// that owns the canonical game state for one match, and a Projection
// that mirrors it on peers from version-tagged deltas.
package gamesync

import (
	"errors"

	"github.com/AhmadAC/Fence-Game/game"
)

var (
	// ErrClosed is returned for proposals arriving after the match
	// authority shut down.
	ErrClosed = errors.New("match authority is closed")
)

// Notifier receives every confirmed delta, in version order. Calls are
// made from the authority's own goroutine, one at a time; implementors
// must not call back into the authority from these methods.
type Notifier interface {
	NotifyDelta(d *game.Delta)
	// NotifyGameOver fires once, right after the delta that turned the
	// state terminal, with the final snapshot and ranking.
	NotifyGameOver(snap *game.Snapshot, standings []game.Standing, winners []game.PlayerID)
}

// Result is the authority's answer to one proposal. The same Result is
// returned again, unchanged, if the proposal is replayed.
type Result struct {
	Accepted bool        `json:"accepted"`
	Reason   string      `json:"reason,omitempty"`
	Delta    *game.Delta `json:"delta,omitempty"`
}

type seenKey struct {
	player game.PlayerID
	seq    uint32
}

type proposeCmd struct {
	move  game.Move
	reply chan Result
}

type snapshotCmd struct {
	reply chan *game.Snapshot
}

type disconnectCmd struct {
	player game.PlayerID
	// expireVersion, when non-zero, makes the disconnect conditional: it
	// only applies if the player still holds the turn at exactly that
	// version. Used by turn-timeout timers so a move that raced the
	// timer wins.
	expireVersion uint64
	// done, when non-nil, is closed once the disconnect has been fully
	// processed, notifications included.
	done chan struct{}
}

// Authority owns one match state. Proposals from any number of
// connections are funneled into a single command channel and applied
// strictly in arrival order; that receipt sequence is the total order
// for the match.
type Authority struct {
	state    *game.State
	notifier Notifier
	seen     map[seenKey]Result
	cmds     chan interface{}
	done     chan struct{}
}

// NewAuthority starts the authority goroutine. The notifier may be nil.
func NewAuthority(state *game.State, notifier Notifier) *Authority {
	a := &Authority{
		state:    state,
		notifier: notifier,
		seen:     make(map[seenKey]Result),
		cmds:     make(chan interface{}, 64),
		done:     make(chan struct{}),
	}
	go a.run()
	return a
}

// Propose submits a move and blocks until the authority has processed
// it. A replayed (player, seq) pair is acknowledged with its recorded
// prior result and never reapplied.
func (a *Authority) Propose(m game.Move) Result {
	reply := make(chan Result, 1)
	select {
	case a.cmds <- proposeCmd{move: m, reply: reply}:
	case <-a.done:
		return Result{Accepted: false, Reason: ErrClosed.Error()}
	}
	select {
	case r := <-reply:
		return r
	case <-a.done:
		return Result{Accepted: false, Reason: ErrClosed.Error()}
	}
}

// Snapshot returns a consistent full-state snapshot, serialized through
// the same command loop as proposals.
func (a *Authority) Snapshot() *game.Snapshot {
	reply := make(chan *game.Snapshot, 1)
	select {
	case a.cmds <- snapshotCmd{reply: reply}:
	case <-a.done:
		return nil
	}
	select {
	case snap := <-reply:
		return snap
	case <-a.done:
		return nil
	}
}

// MarkDisconnected flags a player as dropped (connection closed). It
// blocks until the disconnect has been applied and notified, so callers
// observe the room's final status on return.
func (a *Authority) MarkDisconnected(player game.PlayerID) {
	done := make(chan struct{})
	select {
	case a.cmds <- disconnectCmd{player: player, done: done}:
	case <-a.done:
		return
	}
	select {
	case <-done:
	case <-a.done:
	}
}

// ExpireTurn is the turn-timeout entry point: it disconnects the player
// only if they still hold the turn at the given version.
func (a *Authority) ExpireTurn(player game.PlayerID, version uint64) {
	select {
	case a.cmds <- disconnectCmd{player: player, expireVersion: version}:
	case <-a.done:
	}
}

// Close stops the authority. Pending and future proposals fail with
// ErrClosed.
func (a *Authority) Close() {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
}

func (a *Authority) run() {
	for {
		select {
		case cmd := <-a.cmds:
			a.handle(cmd)
		case <-a.done:
			return
		}
	}
}

func (a *Authority) handle(cmd interface{}) {
	switch c := cmd.(type) {
	case proposeCmd:
		key := seenKey{player: c.move.PlayerID, seq: c.move.Seq}
		if prior, ok := a.seen[key]; ok {
			// No-op replay of the recorded outcome.
			c.reply <- prior
			return
		}

		var r Result
		delta, err := a.state.Apply(c.move)
		if err != nil {
			r = Result{Accepted: false, Reason: err.Error()}
		} else {
			r = Result{Accepted: true, Delta: delta}
		}
		a.seen[key] = r
		c.reply <- r

		if r.Accepted && a.notifier != nil {
			a.notifier.NotifyDelta(delta)
			if delta.GameOver {
				a.notifier.NotifyGameOver(a.state.Snapshot(), a.state.Rank(), a.state.Winners())
			}
		}

	case snapshotCmd:
		c.reply <- a.state.Snapshot()

	case disconnectCmd:
		if c.done != nil {
			defer close(c.done)
		}
		if c.expireVersion != 0 {
			if a.state.Version() != c.expireVersion || a.state.TurnHolder() != c.player {
				return
			}
		}
		delta, err := a.state.MarkDisconnected(c.player)
		if err != nil || delta == nil {
			return
		}
		if a.notifier != nil {
			a.notifier.NotifyDelta(delta)
			if delta.GameOver {
				a.notifier.NotifyGameOver(a.state.Snapshot(), a.state.Rank(), a.state.Winners())
			}
		}
	}
}
