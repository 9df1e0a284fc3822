package state

import (
	"encoding/json"
	"fmt"

	"github.com/AhmadAC/Fence-Game/game"
	"github.com/AhmadAC/Fence-Game/logger"
)

// Lifecycle state IDs.
const (
	StateWaiting  = "waiting"
	StatePlaying  = "playing"
	StateGameOver = "game_over"
)

var errMatchNotStarted = fmt.Errorf("match has not started")
var errMatchFinished = fmt.Errorf("match is over")

// WaitingState holds the room until every seat is taken, then starts
// the match.
type WaitingState struct {
	RoomStateBase
}

// NewWaitingState creates the initial room state.
func NewWaitingState(room RoomContext) *WaitingState {
	return &WaitingState{
		RoomStateBase: RoomStateBase{
			ID:   StateWaiting,
			Room: room,
		},
	}
}

func (s *WaitingState) OnUpdate() {
	if len(s.Room.GetPlayers()) >= s.Room.GetMaxPlayers() {
		if err := s.Room.StartMatch(); err != nil {
			logger.Log.Errorf("room %s failed to start match: %v", s.Room.GetID(), err)
		}
	}
}

func (s *WaitingState) HandleAction(player Player, actionData []byte) error {
	return errMatchNotStarted
}

// PlayingState routes move intents to the room's authority. Turn
// timeouts are the room's own concern (timer driven), not a per-tick
// check here.
type PlayingState struct {
	RoomStateBase
}

func NewPlayingState(room RoomContext) *PlayingState {
	return &PlayingState{
		RoomStateBase: RoomStateBase{
			ID:   StatePlaying,
			Room: room,
		},
	}
}

func (s *PlayingState) OnEnter() {
	logger.Log.Infof("room %s: match started with %d players", s.Room.GetID(), len(s.Room.GetPlayers()))
}

// HandleAction parses a move intent. The player identity comes from the
// session, never from the payload: a client cannot move on someone
// else's behalf.
func (s *PlayingState) HandleAction(player Player, actionData []byte) error {
	var mv game.Move
	if err := json.Unmarshal(actionData, &mv); err != nil {
		return fmt.Errorf("failed to unmarshal move: %w", err)
	}
	mv.PlayerID = game.PlayerID(player.GetID())
	return s.Room.ProposeMove(player.GetID(), mv)
}

// GameOverState is terminal; the final state stays readable for
// post-game summary but accepts no more moves.
type GameOverState struct {
	RoomStateBase
}

func NewGameOverState(room RoomContext) *GameOverState {
	return &GameOverState{
		RoomStateBase: RoomStateBase{
			ID:   StateGameOver,
			Room: room,
		},
	}
}

func (s *GameOverState) OnEnter() {
	logger.Log.Infof("room %s: match over", s.Room.GetID())
}

func (s *GameOverState) HandleAction(player Player, actionData []byte) error {
	return errMatchFinished
}
