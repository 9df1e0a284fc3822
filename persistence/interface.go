// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/AhmadAC/Fence-Game/models"
)

// Database stores finished matches and the per-player totals derived
// from them. Implementations run their own transactions internally so
// callers never see a driver handle.
type Database interface {
	// SaveMatchRecord writes the match record and folds each player's
	// result into their running totals, atomically.
	SaveMatchRecord(record *models.MatchRecord) error
	GetPlayerStats(userID int64) (*models.PlayerStats, error)
	Close() error
}

var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
