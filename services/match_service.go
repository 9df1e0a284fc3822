// services/match_service.go
package services

import (
	"github.com/AhmadAC/Fence-Game/logger"
	"github.com/AhmadAC/Fence-Game/models"
	"github.com/AhmadAC/Fence-Game/persistence"
)

// MatchService sits between the rooms and the database. It satisfies
// room.MatchRecorder.
type MatchService struct {
	db persistence.Database
}

func NewMatchService(db persistence.Database) *MatchService {
	return &MatchService{db: db}
}

// RecordMatch persists a finished match and the player totals derived
// from it.
func (s *MatchService) RecordMatch(record *models.MatchRecord) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.SaveMatchRecord(record); err != nil {
		return err
	}
	logger.Log.Infof("recorded match %s (%dx%d, %d players)",
		record.RoomID, record.Width, record.Height, len(record.Players))
	return nil
}

// GetPlayerStats returns one player's accumulated totals.
func (s *MatchService) GetPlayerStats(userID int64) (*models.PlayerStats, error) {
	if s.db == nil {
		return nil, persistence.ErrRecordNotFound
	}
	return s.db.GetPlayerStats(userID)
}
