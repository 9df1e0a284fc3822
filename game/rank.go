package game

import (
	"sort"
)

// Standing is one row of the final (or live) scoreboard.
type Standing struct {
	PlayerID PlayerID `json:"player_id"`
	Name     string   `json:"name"`
	Score    int      `json:"score"`
}

// Rank returns players ordered by descending score. Ties are broken by
// join order for display only; win/draw determination is by score
// equality (see Winners).
func (s *State) Rank() []Standing {
	players := s.Players()
	sort.Slice(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		return players[i].JoinOrder < players[j].JoinOrder
	})

	standings := make([]Standing, len(players))
	for i, p := range players {
		standings[i] = Standing{PlayerID: p.ID, Name: p.Name, Score: p.Score}
	}
	return standings
}

// Winners returns every player holding the top score. More than one
// entry means the match is a draw among them.
func (s *State) Winners() []PlayerID {
	standings := s.Rank()
	if len(standings) == 0 {
		return nil
	}
	top := standings[0].Score
	var winners []PlayerID
	for _, st := range standings {
		if st.Score == top {
			winners = append(winners, st.PlayerID)
		}
	}
	return winners
}
