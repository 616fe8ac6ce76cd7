// Package main is the entry point for the Telegram mini-game bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telegram-minigames-bot/internal/bot"
	"telegram-minigames-bot/internal/config"
	"telegram-minigames-bot/internal/pkg/db"
	"telegram-minigames-bot/internal/pkg/lock"
	"telegram-minigames-bot/internal/repository"
	"telegram-minigames-bot/internal/service"
	"telegram-minigames-bot/internal/session"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	gameRepo := repository.NewGameRepository(dbPool.Pool)
	sessionRepo := repository.NewSessionRepository(dbPool.Pool)
	ratingRepo := repository.NewRatingRepository(dbPool.Pool)
	quizRepo := repository.NewQuizRepository(dbPool.Pool)
	cityRepo := repository.NewCityRepository(dbPool.Pool)

	// Initialize services
	ratingService := service.NewRatingService(ratingRepo, gameRepo)

	// Initialize session manager and per-chat lock
	manager := session.NewManager(userRepo, gameRepo, sessionRepo, ratingService)
	chatLock := lock.NewChatLock()

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:        cfg,
		Manager:       manager,
		RatingService: ratingService,
		UserRepo:      userRepo,
		SessionRepo:   sessionRepo,
		QuizRepo:      quizRepo,
		CityRepo:      cityRepo,
		ChatLock:      chatLock,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create users table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			telegram_id BIGINT NOT NULL UNIQUE,
			username VARCHAR(255) NOT NULL DEFAULT '',
			first_name VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: Create games catalog and seed the built-in games
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS games (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			code VARCHAR(50) NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO games (name, code, description) VALUES
			('Угадай число', 'guess_number', 'Я загадываю число, ты отгадываешь по подсказкам'),
			('Викторина', 'quiz', 'Вопросы с вариантами ответов на время'),
			('Города', 'cities', 'Называем города по очереди, каждый на последнюю букву')
		ON CONFLICT (code) DO NOTHING;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: games table created and seeded")

	// Migration 3: Create game sessions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_sessions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			game_id BIGINT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			score INT NOT NULL DEFAULT 0,
			attempts INT NOT NULL DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user_game ON game_sessions(user_id, game_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_completed ON game_sessions(completed);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: game_sessions table created")

	// Migration 4: Create ratings table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ratings (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			game_id BIGINT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			total_score BIGINT NOT NULL DEFAULT 0,
			games_played BIGINT NOT NULL DEFAULT 0,
			best_score INT NOT NULL DEFAULT 0,
			average_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_played TIMESTAMPTZ,
			UNIQUE (user_id, game_id)
		);
		CREATE INDEX IF NOT EXISTS idx_ratings_game_score ON ratings(game_id, total_score DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: ratings table created")

	// Migration 5: Create quiz question bank
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS quiz_questions (
			id BIGSERIAL PRIMARY KEY,
			question TEXT NOT NULL,
			option1 VARCHAR(255) NOT NULL,
			option2 VARCHAR(255) NOT NULL,
			option3 VARCHAR(255) NOT NULL,
			option4 VARCHAR(255) NOT NULL,
			correct_option INT NOT NULL CHECK (correct_option BETWEEN 1 AND 4),
			difficulty VARCHAR(20) NOT NULL CHECK (difficulty IN ('easy', 'medium', 'hard')),
			category VARCHAR(100) NOT NULL DEFAULT '',
			explanation TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_questions_difficulty ON quiz_questions(difficulty) WHERE is_active;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: quiz_questions table created")

	// Migration 6: Create city catalog
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cities (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			region VARCHAR(255) NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_cities_lower_name ON cities(lower(name));
		CREATE INDEX IF NOT EXISTS idx_cities_first_letter ON cities(upper(substr(name, 1, 1)));
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 6: cities table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
