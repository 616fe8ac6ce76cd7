package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-minigames-bot/internal/model"
)

// ErrRatingNotFound is returned when no aggregate exists for a pair.
var ErrRatingNotFound = errors.New("rating not found")

const ratingColumns = "id, user_id, game_id, total_score, games_played, best_score, average_score, last_played"

// RatingRepository handles the per (user, game) rating aggregates.
type RatingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository creates a new RatingRepository instance.
func NewRatingRepository(pool *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{pool: pool}
}

func scanRating(row pgx.Row) (*model.Rating, error) {
	var rating model.Rating
	err := row.Scan(
		&rating.ID,
		&rating.UserID,
		&rating.GameID,
		&rating.TotalScore,
		&rating.GamesPlayed,
		&rating.BestScore,
		&rating.AverageScore,
		&rating.LastPlayed,
	)
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// RecordScore folds one completed session score into the (user, game)
// aggregate. The upsert is a single atomic statement so concurrent
// completions for the same pair cannot lose updates, and the average is
// always recomputed from the cumulative total.
func (r *RatingRepository) RecordScore(ctx context.Context, userID, gameID int64, score int) (*model.Rating, error) {
	const query = `
		INSERT INTO ratings (user_id, game_id, total_score, games_played, best_score, average_score, last_played)
		VALUES ($1, $2, $3, 1, $3, $3, NOW())
		ON CONFLICT (user_id, game_id) DO UPDATE SET
			total_score = ratings.total_score + EXCLUDED.total_score,
			games_played = ratings.games_played + 1,
			best_score = GREATEST(ratings.best_score, EXCLUDED.best_score),
			average_score = (ratings.total_score + EXCLUDED.total_score)::float8 / (ratings.games_played + 1),
			last_played = NOW()
		RETURNING ` + ratingColumns

	rating, err := scanRating(r.pool.QueryRow(ctx, query, userID, gameID, score))
	if err != nil {
		return nil, fmt.Errorf("failed to record score: %w", err)
	}
	return rating, nil
}

// GetByUserAndGame retrieves the aggregate for one (user, game) pair.
func (r *RatingRepository) GetByUserAndGame(ctx context.Context, userID, gameID int64) (*model.Rating, error) {
	const query = `SELECT ` + ratingColumns + ` FROM ratings WHERE user_id = $1 AND game_id = $2`

	rating, err := scanRating(r.pool.QueryRow(ctx, query, userID, gameID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return rating, nil
}

// UserRatings returns the user's aggregates with their games, best
// total first.
func (r *RatingRepository) UserRatings(ctx context.Context, userID int64) ([]*model.GameRating, error) {
	const query = `
		SELECT r.id, r.user_id, r.game_id, r.total_score, r.games_played, r.best_score, r.average_score, r.last_played,
		       g.id, g.name, g.code, g.description, g.is_active, g.created_at
		FROM ratings r
		JOIN games g ON r.game_id = g.id
		WHERE r.user_id = $1
		ORDER BY r.total_score DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*model.GameRating
	for rows.Next() {
		var gr model.GameRating
		err := rows.Scan(
			&gr.Rating.ID,
			&gr.Rating.UserID,
			&gr.Rating.GameID,
			&gr.Rating.TotalScore,
			&gr.Rating.GamesPlayed,
			&gr.Rating.BestScore,
			&gr.Rating.AverageScore,
			&gr.Rating.LastPlayed,
			&gr.Game.ID,
			&gr.Game.Name,
			&gr.Game.Code,
			&gr.Game.Description,
			&gr.Game.IsActive,
			&gr.Game.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user rating: %w", err)
		}
		ratings = append(ratings, &gr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user ratings: %w", err)
	}

	return ratings, nil
}

// UserStats returns the user's totals summed across all games.
func (r *RatingRepository) UserStats(ctx context.Context, userID int64) (*model.UserStats, error) {
	const query = `
		SELECT COALESCE(SUM(total_score), 0), COALESCE(SUM(games_played), 0), COALESCE(MAX(best_score), 0)
		FROM ratings
		WHERE user_id = $1
	`

	var stats model.UserStats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.TotalScore,
		&stats.GamesPlayed,
		&stats.BestScore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return &stats, nil
}

// GlobalRank returns the user's 1-based rank by summed score across
// all games. The rank is one plus the number of users with a strictly
// greater sum, so ties share the lower rank number.
func (r *RatingRepository) GlobalRank(ctx context.Context, userID int64) (int, error) {
	const query = `
		WITH user_totals AS (
			SELECT user_id, SUM(total_score) AS total
			FROM ratings
			GROUP BY user_id
		)
		SELECT COUNT(*)
		FROM user_totals
		WHERE total > COALESCE((SELECT total FROM user_totals WHERE user_id = $1), 0)
	`

	var greater int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&greater); err != nil {
		return 0, fmt.Errorf("failed to get global rank: %w", err)
	}
	return greater + 1, nil
}

// Leaderboard returns the top aggregates for one game, ordered by
// cumulative score descending.
func (r *RatingRepository) Leaderboard(ctx context.Context, gameID int64, limit int) ([]*model.LeaderboardEntry, error) {
	const query = `
		SELECT r.user_id, u.username, u.first_name, r.total_score, r.games_played, r.best_score
		FROM ratings r
		JOIN users u ON r.user_id = u.id
		WHERE r.game_id = $1
		ORDER BY r.total_score DESC
		LIMIT $2
	`

	return r.queryLeaderboard(ctx, query, gameID, limit)
}

// GlobalLeaderboard returns the top users by score summed across all
// games, ordered descending.
func (r *RatingRepository) GlobalLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	const query = `
		SELECT r.user_id, u.username, u.first_name,
		       SUM(r.total_score) AS total_score,
		       SUM(r.games_played) AS games_played,
		       MAX(r.best_score) AS best_score
		FROM ratings r
		JOIN users u ON r.user_id = u.id
		GROUP BY r.user_id, u.username, u.first_name
		ORDER BY total_score DESC
		LIMIT $1
	`

	return r.queryLeaderboard(ctx, query, limit)
}

func (r *RatingRepository) queryLeaderboard(ctx context.Context, query string, args ...any) ([]*model.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		err := rows.Scan(
			&e.UserID,
			&e.Username,
			&e.FirstName,
			&e.TotalScore,
			&e.GamesPlayed,
			&e.BestScore,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return entries, nil
}
