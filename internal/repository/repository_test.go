// Package repository tests use testcontainers-go to spin up a
// PostgreSQL container and exercise the real schema.
package repository

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"telegram-minigames-bot/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = runTestMigrations(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// runTestMigrations applies the database schema
func runTestMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			telegram_id BIGINT NOT NULL UNIQUE,
			username VARCHAR(255) NOT NULL DEFAULT '',
			first_name VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS games (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			code VARCHAR(50) NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`INSERT INTO games (name, code, description) VALUES
			('Угадай число', 'guess_number', ''),
			('Викторина', 'quiz', ''),
			('Города', 'cities', '')
		ON CONFLICT (code) DO NOTHING`,
		`CREATE TABLE IF NOT EXISTS game_sessions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			game_id BIGINT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			score INT NOT NULL DEFAULT 0,
			attempts INT NOT NULL DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS ratings (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			game_id BIGINT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			total_score BIGINT NOT NULL DEFAULT 0,
			games_played BIGINT NOT NULL DEFAULT 0,
			best_score INT NOT NULL DEFAULT 0,
			average_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_played TIMESTAMPTZ,
			UNIQUE (user_id, game_id)
		)`,
		`CREATE TABLE IF NOT EXISTS quiz_questions (
			id BIGSERIAL PRIMARY KEY,
			question TEXT NOT NULL,
			option1 VARCHAR(255) NOT NULL,
			option2 VARCHAR(255) NOT NULL,
			option3 VARCHAR(255) NOT NULL,
			option4 VARCHAR(255) NOT NULL,
			correct_option INT NOT NULL CHECK (correct_option BETWEEN 1 AND 4),
			difficulty VARCHAR(20) NOT NULL,
			category VARCHAR(100) NOT NULL DEFAULT '',
			explanation TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS cities (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			region VARCHAR(255) NOT NULL DEFAULT ''
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func mustGame(t *testing.T, pool *pgxpool.Pool, code string) *model.Game {
	t.Helper()
	game, err := NewGameRepository(pool).GetByCode(context.Background(), code)
	require.NoError(t, err)
	return game
}

func TestUserRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	user, err := repo.Create(ctx, 12345, "alice", "Алиса")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), user.TelegramID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Алиса", user.FirstName)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetByTelegramID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByTelegramID(ctx, 99999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	again, created, err := repo.GetOrCreate(ctx, 12345, "alice", "Алиса")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)

	fresh, created, err := repo.GetOrCreate(ctx, 54321, "bob", "Боб")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, user.ID, fresh.ID)
}

func TestGameRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameRepository(pool)
	ctx := context.Background()

	game, err := repo.GetByCode(ctx, model.GameCodeQuiz)
	require.NoError(t, err)
	assert.Equal(t, model.GameCodeQuiz, game.Code)
	assert.True(t, game.IsActive)

	_, err = repo.GetByCode(ctx, "chess")
	assert.ErrorIs(t, err, ErrGameNotFound)

	games, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, games, 3)
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user, err := NewUserRepository(pool).Create(ctx, 12345, "alice", "Алиса")
	require.NoError(t, err)
	game := mustGame(t, pool, model.GameCodeGuess)

	repo := NewSessionRepository(pool)

	sess, err := repo.Create(ctx, user.ID, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, sess.Score)
	assert.Equal(t, 0, sess.Attempts)
	assert.False(t, sess.Completed)
	assert.Nil(t, sess.FinishedAt)

	done, err := repo.Complete(ctx, sess.ID, 85, 3)
	require.NoError(t, err)
	assert.Equal(t, 85, done.Score)
	assert.Equal(t, 3, done.Attempts)
	assert.True(t, done.Completed)
	require.NotNil(t, done.FinishedAt)

	// Completion is one-shot.
	_, err = repo.Complete(ctx, sess.ID, 100, 1)
	assert.ErrorIs(t, err, ErrSessionCompleted)

	_, err = repo.Complete(ctx, 9999, 10, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	best, err := repo.BestScore(ctx, user.ID, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 85, best)

	total, completed, err := repo.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, completed)
}

func TestRatingRepository_RecordScore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user, err := NewUserRepository(pool).Create(ctx, 12345, "alice", "Алиса")
	require.NoError(t, err)
	game := mustGame(t, pool, model.GameCodeGuess)

	repo := NewRatingRepository(pool)

	rating, err := repo.RecordScore(ctx, user.ID, game.ID, 85)
	require.NoError(t, err)
	assert.Equal(t, int64(85), rating.TotalScore)
	assert.Equal(t, int64(1), rating.GamesPlayed)
	assert.Equal(t, 85, rating.BestScore)
	assert.Equal(t, 85.0, rating.AverageScore)
	require.NotNil(t, rating.LastPlayed)

	// A second, lower score accumulates without displacing the best,
	// and the average follows the cumulative total.
	rating, err = repo.RecordScore(ctx, user.ID, game.ID, 45)
	require.NoError(t, err)
	assert.Equal(t, int64(130), rating.TotalScore)
	assert.Equal(t, int64(2), rating.GamesPlayed)
	assert.Equal(t, 85, rating.BestScore)
	assert.Equal(t, 65.0, rating.AverageScore)

	got, err := repo.GetByUserAndGame(ctx, user.ID, game.ID)
	require.NoError(t, err)
	assert.Equal(t, rating.TotalScore, got.TotalScore)

	_, err = repo.GetByUserAndGame(ctx, user.ID, game.ID+100)
	assert.ErrorIs(t, err, ErrRatingNotFound)
}

func TestRatingRepository_ConcurrentRecordScore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user, err := NewUserRepository(pool).Create(ctx, 12345, "alice", "Алиса")
	require.NoError(t, err)
	game := mustGame(t, pool, model.GameCodeQuiz)

	repo := NewRatingRepository(pool)

	// Concurrent upserts for the same pair must not lose updates.
	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RecordScore(ctx, user.ID, game.ID, 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rating, err := repo.GetByUserAndGame(ctx, user.ID, game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*10), rating.TotalScore)
	assert.Equal(t, int64(workers), rating.GamesPlayed)
	assert.Equal(t, 10.0, rating.AverageScore)
}

func TestRatingRepository_LeaderboardsAndRank(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	users := NewUserRepository(pool)
	repo := NewRatingRepository(pool)

	alice, err := users.Create(ctx, 1, "alice", "Алиса")
	require.NoError(t, err)
	bob, err := users.Create(ctx, 2, "bob", "Боб")
	require.NoError(t, err)
	carol, err := users.Create(ctx, 3, "carol", "Кэрол")
	require.NoError(t, err)

	guess := mustGame(t, pool, model.GameCodeGuess)
	quiz := mustGame(t, pool, model.GameCodeQuiz)

	_, err = repo.RecordScore(ctx, alice.ID, guess.ID, 90)
	require.NoError(t, err)
	_, err = repo.RecordScore(ctx, bob.ID, guess.ID, 50)
	require.NoError(t, err)
	_, err = repo.RecordScore(ctx, bob.ID, quiz.ID, 70)
	require.NoError(t, err)
	_, err = repo.RecordScore(ctx, carol.ID, quiz.ID, 30)
	require.NoError(t, err)

	entries, err := repo.Leaderboard(ctx, guess.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Username)
	assert.Equal(t, int64(90), entries[0].TotalScore)
	assert.Equal(t, "bob", entries[1].Username)

	// Global board sums across games: bob 120, alice 90, carol 30.
	global, err := repo.GlobalLeaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, global, 3)
	assert.Equal(t, "bob", global[0].Username)
	assert.Equal(t, int64(120), global[0].TotalScore)
	assert.Equal(t, "alice", global[1].Username)
	assert.Equal(t, "carol", global[2].Username)

	rank, err := repo.GlobalRank(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)
	rank, err = repo.GlobalRank(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)
	rank, err = repo.GlobalRank(ctx, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rank)

	// A user with no finished games shares the rank below everyone.
	dave, err := users.Create(ctx, 4, "dave", "Дэйв")
	require.NoError(t, err)
	rank, err = repo.GlobalRank(ctx, dave.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, rank)

	stats, err := repo.UserStats(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), stats.TotalScore)
	assert.Equal(t, int64(2), stats.GamesPlayed)
	assert.Equal(t, 70, stats.BestScore)

	ratings, err := repo.UserRatings(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, ratings, 2)
	assert.Equal(t, model.GameCodeQuiz, ratings[0].Game.Code)
	assert.Equal(t, model.GameCodeGuess, ratings[1].Game.Code)
}

func TestQuizRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewQuizRepository(pool)

	_, err := repo.BalancedQuestions(ctx, 3, 3, 2)
	assert.ErrorIs(t, err, ErrNoQuestions)

	seed := func(difficulty string, n int) {
		for i := 0; i < n; i++ {
			_, err := pool.Exec(ctx, `
				INSERT INTO quiz_questions (question, option1, option2, option3, option4, correct_option, difficulty)
				VALUES ('q', 'a', 'b', 'c', 'd', 2, $1)
			`, difficulty)
			require.NoError(t, err)
		}
	}
	seed(model.DifficultyEasy, 5)
	seed(model.DifficultyMedium, 5)
	seed(model.DifficultyHard, 5)

	questions, err := repo.BalancedQuestions(ctx, 3, 3, 2)
	require.NoError(t, err)
	require.Len(t, questions, 8)

	counts := map[string]int{}
	for _, q := range questions {
		counts[q.Difficulty]++
	}
	assert.Equal(t, 3, counts[model.DifficultyEasy])
	assert.Equal(t, 3, counts[model.DifficultyMedium])
	assert.Equal(t, 2, counts[model.DifficultyHard])

	// A short bucket is capped at what exists, not padded.
	batch, err := repo.ByDifficulty(ctx, model.DifficultyHard, 100)
	require.NoError(t, err)
	assert.Len(t, batch, 5)
}

func TestCityRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewCityRepository(pool)

	_, err := repo.RandomStart(ctx)
	assert.ErrorIs(t, err, ErrNoCities)

	for _, name := range []string{"Москва", "Мурманск", "Абакан", "Тверь"} {
		_, err := pool.Exec(ctx, `INSERT INTO cities (name) VALUES ($1)`, name)
		require.NoError(t, err)
	}

	exists, err := repo.Exists(ctx, "москва")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "Нарния")
	require.NoError(t, err)
	assert.False(t, exists)

	names, err := repo.StartingWith(ctx, "М", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Москва", "Мурманск"}, names)

	names, err = repo.StartingWith(ctx, "М", []string{"москва"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Мурманск"}, names)

	names, err = repo.StartingWith(ctx, "Я", nil)
	require.NoError(t, err)
	assert.Empty(t, names)

	start, err := repo.RandomStart(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, start)
}
