// Package service implements the scoring and rating operations on top
// of the repositories.
package service

import (
	"context"
	"errors"
	"fmt"

	"telegram-minigames-bot/internal/model"
	"telegram-minigames-bot/internal/repository"
)

// Profile is a user's rating summary: totals across all games, the
// per-game breakdown and the global rank.
type Profile struct {
	Stats   *model.UserStats
	Ratings []*model.GameRating
	Rank    int
}

// RatingService handles rating and leaderboard operations.
type RatingService struct {
	ratingRepo *repository.RatingRepository
	gameRepo   *repository.GameRepository
}

// NewRatingService creates a new RatingService instance.
func NewRatingService(
	ratingRepo *repository.RatingRepository,
	gameRepo *repository.GameRepository,
) *RatingService {
	return &RatingService{
		ratingRepo: ratingRepo,
		gameRepo:   gameRepo,
	}
}

// RecordScore folds one completed session score into the (user, game)
// aggregate and returns the updated aggregate.
func (s *RatingService) RecordScore(ctx context.Context, userID, gameID int64, score int) (*model.Rating, error) {
	return s.ratingRepo.RecordScore(ctx, userID, gameID, score)
}

// Profile assembles the user's rating summary. A user who has not
// finished any game gets zero stats, no per-game rows and the rank
// shared by all zero-score users.
func (s *RatingService) Profile(ctx context.Context, userID int64) (*Profile, error) {
	stats, err := s.ratingRepo.UserStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	ratings, err := s.ratingRepo.UserRatings(ctx, userID)
	if err != nil {
		return nil, err
	}

	rank, err := s.ratingRepo.GlobalRank(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Profile{
		Stats:   stats,
		Ratings: ratings,
		Rank:    rank,
	}, nil
}

// GameRating retrieves the user's aggregate for one game by code.
// Returns repository.ErrRatingNotFound if the user has not finished
// that game yet.
func (s *RatingService) GameRating(ctx context.Context, userID int64, gameCode string) (*model.Rating, error) {
	game, err := s.gameRepo.GetByCode(ctx, gameCode)
	if err != nil {
		return nil, err
	}
	return s.ratingRepo.GetByUserAndGame(ctx, userID, game.ID)
}

// Leaderboard retrieves the top players for one game by code.
func (s *RatingService) Leaderboard(ctx context.Context, gameCode string, limit int) (*model.Game, []*model.LeaderboardEntry, error) {
	game, err := s.gameRepo.GetByCode(ctx, gameCode)
	if err != nil {
		if errors.Is(err, repository.ErrGameNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to resolve game %q: %w", gameCode, err)
	}

	entries, err := s.ratingRepo.Leaderboard(ctx, game.ID, limit)
	if err != nil {
		return nil, nil, err
	}
	return game, entries, nil
}

// GlobalLeaderboard retrieves the top players by score summed across
// all games.
func (s *RatingService) GlobalLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	return s.ratingRepo.GlobalLeaderboard(ctx, limit)
}

// Games lists the active games from the catalog.
func (s *RatingService) Games(ctx context.Context) ([]*model.Game, error) {
	return s.gameRepo.ListActive(ctx)
}
