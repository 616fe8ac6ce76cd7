package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-minigames-bot/internal/model"
)

// ErrGameNotFound is returned when a game code is not registered.
var ErrGameNotFound = errors.New("game not found")

const gameColumns = "id, name, code, description, is_active, created_at"

// GameRepository handles the games catalog.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository instance.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

func scanGame(row pgx.Row) (*model.Game, error) {
	var game model.Game
	err := row.Scan(
		&game.ID,
		&game.Name,
		&game.Code,
		&game.Description,
		&game.IsActive,
		&game.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// GetByCode retrieves an active game by its catalog code.
// Returns ErrGameNotFound if the code is not registered or disabled.
func (r *GameRepository) GetByCode(ctx context.Context, code string) (*model.Game, error) {
	const query = `SELECT ` + gameColumns + ` FROM games WHERE code = $1 AND is_active = TRUE`

	game, err := scanGame(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}

// ListActive returns all active games ordered by id.
func (r *GameRepository) ListActive(ctx context.Context) ([]*model.Game, error) {
	const query = `SELECT ` + gameColumns + ` FROM games WHERE is_active = TRUE ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []*model.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}
