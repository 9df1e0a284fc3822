// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormPlayer is the persisted profile and running totals of one
// registered player.
type GormPlayer struct {
	gorm.Model
	UserID       int64  `gorm:"uniqueIndex;not null"`
	Name         string `gorm:"not null"`
	TotalGames   int    `gorm:"default:0"`
	Wins         int    `gorm:"default:0"`
	Losses       int    `gorm:"default:0"`
	Draws        int    `gorm:"default:0"`
	CellsClaimed int    `gorm:"default:0"`
}

// GormMatchRecord is one finished match.
type GormMatchRecord struct {
	gorm.Model
	RoomID   string `gorm:"index;not null"`
	Width    int    `gorm:"not null"`
	Height   int    `gorm:"not null"`
	Players  string `gorm:"type:jsonb;not null"` // []PlayerResult as JSON
	Duration int    `gorm:"default:0"`           // seconds
}
