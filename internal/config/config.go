// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot         BotConfig         `mapstructure:"bot"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Games       GamesConfig       `mapstructure:"games"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	Guess  GuessConfig  `mapstructure:"guess"`
	Quiz   QuizConfig   `mapstructure:"quiz"`
	Cities CitiesConfig `mapstructure:"cities"`
}

// GuessConfig holds number guessing game configuration.
type GuessConfig struct {
	Min         int `mapstructure:"min"`
	Max         int `mapstructure:"max"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

// QuizConfig holds quiz game configuration.
type QuizConfig struct {
	QuestionSeconds  int `mapstructure:"question_seconds"`
	NextDelaySeconds int `mapstructure:"next_delay_seconds"`
	EasyCount        int `mapstructure:"easy_count"`
	MediumCount      int `mapstructure:"medium_count"`
	HardCount        int `mapstructure:"hard_count"`
}

// CitiesConfig holds word-chain game configuration.
type CitiesConfig struct {
	MinNameLength int `mapstructure:"min_name_length"`
}

// LeaderboardConfig holds leaderboard display configuration.
type LeaderboardConfig struct {
	Limit int `mapstructure:"limit"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, DATABASE_HOST, GAMES_QUIZ_QUESTION_SECONDS.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gamebot")
	v.SetDefault("database.name", "gamebot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Game defaults
	v.SetDefault("games.guess.min", 1)
	v.SetDefault("games.guess.max", 100)
	v.SetDefault("games.guess.max_attempts", 10)
	v.SetDefault("games.quiz.question_seconds", 10)
	v.SetDefault("games.quiz.next_delay_seconds", 3)
	v.SetDefault("games.quiz.easy_count", 3)
	v.SetDefault("games.quiz.medium_count", 3)
	v.SetDefault("games.quiz.hard_count", 2)
	v.SetDefault("games.cities.min_name_length", 3)

	// Leaderboard defaults
	v.SetDefault("leaderboard.limit", 10)
}
