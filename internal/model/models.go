// Package model defines the data models for the mini-game bot.
package model

import "time"

// User represents a registered Telegram user.
type User struct {
	ID         int64     `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	Username   string    `db:"username"`
	FirstName  string    `db:"first_name"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Game is a catalog entry for a playable game type.
type Game struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Code        string    `db:"code"`
	Description string    `db:"description"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

// GameSession is one play-through of one game by one user.
// Created with zero score/attempts and completed=false, finalized exactly once.
type GameSession struct {
	ID         int64      `db:"id"`
	UserID     int64      `db:"user_id"`
	GameID     int64      `db:"game_id"`
	Score      int        `db:"score"`
	Attempts   int        `db:"attempts"`
	Completed  bool       `db:"completed"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

// Rating is the per (user, game) aggregate over completed sessions.
// AverageScore is always recomputed as TotalScore/GamesPlayed.
type Rating struct {
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	GameID       int64      `db:"game_id"`
	TotalScore   int64      `db:"total_score"`
	GamesPlayed  int64      `db:"games_played"`
	BestScore    int        `db:"best_score"`
	AverageScore float64    `db:"average_score"`
	LastPlayed   *time.Time `db:"last_played"`
}

// QuizQuestion is a multiple-choice question with four options.
// CorrectOption is 1-based (1-4).
type QuizQuestion struct {
	ID            int64     `db:"id"`
	Question      string    `db:"question"`
	Option1       string    `db:"option1"`
	Option2       string    `db:"option2"`
	Option3       string    `db:"option3"`
	Option4       string    `db:"option4"`
	CorrectOption int       `db:"correct_option"`
	Difficulty    string    `db:"difficulty"`
	Category      string    `db:"category"`
	Explanation   string    `db:"explanation"`
	IsActive      bool      `db:"is_active"`
	CreatedAt     time.Time `db:"created_at"`
}

// City is a word-chain game entry.
type City struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	Region string `db:"region"`
}

// LeaderboardEntry is one row of a leaderboard, per game or summed across games.
type LeaderboardEntry struct {
	UserID      int64  `db:"user_id"`
	Username    string `db:"username"`
	FirstName   string `db:"first_name"`
	TotalScore  int64  `db:"total_score"`
	GamesPlayed int64  `db:"games_played"`
	BestScore   int    `db:"best_score"`
}

// UserStats is a user's totals across all games.
type UserStats struct {
	TotalScore  int64 `db:"total_score"`
	GamesPlayed int64 `db:"games_played"`
	BestScore   int   `db:"best_score"`
}

// GameRating pairs a rating row with its game for per-game breakdowns.
type GameRating struct {
	Rating Rating
	Game   Game
}

// Game codes registered in the games catalog.
const (
	GameCodeGuess  = "guess_number"
	GameCodeQuiz   = "quiz"
	GameCodeCities = "cities"
)

// Quiz difficulty levels.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)
