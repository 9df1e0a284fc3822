// persistence/gorm_postgresql.go
package persistence

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AhmadAC/Fence-Game/models"
)

// GormPostgreSQL is the GORM-backed PostgreSQL implementation.
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL opens a PostgreSQL connection and migrates the
// schema.
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormPlayer{},
		&models.GormMatchRecord{},
	)
}

// SaveMatchRecord writes the record and updates every named player's
// totals in one transaction.
func (p *GormPostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	playersJSON, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	return p.db.Transaction(func(tx *gorm.DB) error {
		rec := models.GormMatchRecord{
			RoomID:   record.RoomID,
			Width:    record.Width,
			Height:   record.Height,
			Players:  string(playersJSON),
			Duration: int(record.EndedAt.Sub(record.StartedAt).Seconds()),
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		for _, result := range record.Players {
			// Guests (user id 0) have no profile to update.
			if result.UserID == 0 {
				continue
			}
			if err := applyResult(tx, result); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyResult(tx *gorm.DB, result models.PlayerResult) error {
	var player models.GormPlayer
	err := tx.Where("user_id = ?", result.UserID).First(&player).Error
	if err == gorm.ErrRecordNotFound {
		player = models.GormPlayer{
			UserID: result.UserID,
			Name:   result.Name,
		}
	} else if err != nil {
		return err
	}

	player.Name = result.Name
	player.TotalGames++
	player.CellsClaimed += result.Score
	switch result.Outcome {
	case models.OutcomeWin:
		player.Wins++
	case models.OutcomeLose:
		player.Losses++
	case models.OutcomeDraw:
		player.Draws++
	}

	return tx.Save(&player).Error
}

// GetPlayerStats returns the accumulated totals of one player.
func (p *GormPostgreSQL) GetPlayerStats(userID int64) (*models.PlayerStats, error) {
	var player models.GormPlayer
	if err := p.db.Where("user_id = ?", userID).First(&player).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &models.PlayerStats{
		UserID:       player.UserID,
		Name:         player.Name,
		TotalGames:   player.TotalGames,
		Wins:         player.Wins,
		Losses:       player.Losses,
		Draws:        player.Draws,
		CellsClaimed: player.CellsClaimed,
	}, nil
}

// Close closes the underlying connection pool.
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
