package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig holds the match defaults used when a client creates a room
// without overriding them, and the hard caps client overrides are
// clamped to. The board caps keep even a fully claimed board's snapshot
// inside one wire frame (64KB payload limit).
type GameConfig struct {
	BoardWidth       int    `mapstructure:"board_width"`
	BoardHeight      int    `mapstructure:"board_height"`
	MaxBoardWidth    int    `mapstructure:"max_board_width"`
	MaxBoardHeight   int    `mapstructure:"max_board_height"`
	MaxPlayers       int    `mapstructure:"max_players"`
	MaxPlayersLimit  int    `mapstructure:"max_players_limit"`
	TurnGraceSeconds int    `mapstructure:"turn_grace_seconds"`
	DisconnectPolicy string `mapstructure:"disconnect_policy"` // "skip" or "forfeit"
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("game.board_width", 5)
	viper.SetDefault("game.board_height", 5)
	viper.SetDefault("game.max_board_width", 16)
	viper.SetDefault("game.max_board_height", 16)
	viper.SetDefault("game.max_players", 2)
	viper.SetDefault("game.max_players_limit", 8)
	viper.SetDefault("game.turn_grace_seconds", 30)
	viper.SetDefault("game.disconnect_policy", "skip")

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if err = validate(config); err != nil {
		return nil, err
	}
	return
}

func validate(c *Config) error {
	if c.Game.BoardWidth < 1 || c.Game.BoardHeight < 1 {
		return fmt.Errorf("invalid board dimensions %dx%d", c.Game.BoardWidth, c.Game.BoardHeight)
	}
	if c.Game.BoardWidth > c.Game.MaxBoardWidth || c.Game.BoardHeight > c.Game.MaxBoardHeight {
		return fmt.Errorf("default board %dx%d exceeds caps %dx%d",
			c.Game.BoardWidth, c.Game.BoardHeight, c.Game.MaxBoardWidth, c.Game.MaxBoardHeight)
	}
	if c.Game.MaxPlayers < 2 {
		return fmt.Errorf("max_players must be at least 2, got %d", c.Game.MaxPlayers)
	}
	if c.Game.MaxPlayersLimit < c.Game.MaxPlayers {
		return fmt.Errorf("max_players_limit %d below max_players %d",
			c.Game.MaxPlayersLimit, c.Game.MaxPlayers)
	}
	switch c.Game.DisconnectPolicy {
	case "skip", "forfeit":
	default:
		return fmt.Errorf("unknown disconnect_policy %q", c.Game.DisconnectPolicy)
	}
	return nil
}
