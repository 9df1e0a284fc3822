// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/AhmadAC/Fence-Game/models"
)

// PostgreSQL is the raw database/sql implementation, for deployments
// that prefer hand-written SQL over the ORM.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL opens a PostgreSQL connection and creates the tables.
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS players (
            id SERIAL PRIMARY KEY,
            user_id BIGINT UNIQUE NOT NULL,
            name VARCHAR(255) NOT NULL,
            total_games INT NOT NULL DEFAULT 0,
            wins INT NOT NULL DEFAULT 0,
            losses INT NOT NULL DEFAULT 0,
            draws INT NOT NULL DEFAULT 0,
            cells_claimed INT NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS match_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            width INT NOT NULL,
            height INT NOT NULL,
            players JSONB NOT NULL,
            duration INT NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_players_user_id ON players(user_id);
        CREATE INDEX IF NOT EXISTS idx_match_records_room_id ON match_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_match_records_created_at ON match_records(created_at);
    `)

	return err
}

// SaveMatchRecord writes the record and updates every named player's
// totals in one transaction.
func (p *PostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	playersJSON, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	duration := int(record.EndedAt.Sub(record.StartedAt).Seconds())
	_, err = tx.ExecContext(ctx, `
        INSERT INTO match_records (room_id, width, height, players, duration)
        VALUES ($1, $2, $3, $4, $5)
    `, record.RoomID, record.Width, record.Height, playersJSON, duration)
	if err != nil {
		return err
	}

	for _, result := range record.Players {
		if result.UserID == 0 {
			continue
		}
		_, err = tx.ExecContext(ctx, `
            INSERT INTO players (user_id, name, total_games, wins, losses, draws, cells_claimed)
            VALUES ($1, $2, 1, $3, $4, $5, $6)
            ON CONFLICT (user_id) DO UPDATE SET
                name = $2,
                total_games = players.total_games + 1,
                wins = players.wins + $3,
                losses = players.losses + $4,
                draws = players.draws + $5,
                cells_claimed = players.cells_claimed + $6,
                updated_at = CURRENT_TIMESTAMP
        `, result.UserID, result.Name,
			btoi(result.Outcome == models.OutcomeWin),
			btoi(result.Outcome == models.OutcomeLose),
			btoi(result.Outcome == models.OutcomeDraw),
			result.Score)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetPlayerStats returns the accumulated totals of one player.
func (p *PostgreSQL) GetPlayerStats(userID int64) (*models.PlayerStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats := &models.PlayerStats{}
	err := p.db.QueryRowContext(ctx, `
        SELECT user_id, name, total_games, wins, losses, draws, cells_claimed
        FROM players WHERE user_id = $1
    `, userID).Scan(&stats.UserID, &stats.Name, &stats.TotalGames,
		&stats.Wins, &stats.Losses, &stats.Draws, &stats.CellsClaimed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return stats, nil
}

// Close closes the connection pool.
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
