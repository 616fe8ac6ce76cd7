package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-minigames-bot/internal/model"
)

// Errors for session persistence.
var (
	ErrSessionNotFound  = errors.New("game session not found")
	ErrSessionCompleted = errors.New("game session already completed")
)

const sessionColumns = "id, user_id, game_id, score, attempts, completed, started_at, finished_at"

// SessionRepository handles game session persistence.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (*model.GameSession, error) {
	var s model.GameSession
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.GameID,
		&s.Score,
		&s.Attempts,
		&s.Completed,
		&s.StartedAt,
		&s.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create creates a new session row with zero score and attempts.
func (r *SessionRepository) Create(ctx context.Context, userID, gameID int64) (*model.GameSession, error) {
	const query = `
		INSERT INTO game_sessions (user_id, game_id, score, attempts, completed, started_at)
		VALUES ($1, $2, 0, 0, FALSE, NOW())
		RETURNING ` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query, userID, gameID))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Complete finalizes a session with its terminal score and attempt
// count. A session is finalized at most once: completing an already
// completed session returns ErrSessionCompleted.
func (r *SessionRepository) Complete(ctx context.Context, sessionID int64, score, attempts int) (*model.GameSession, error) {
	const query = `
		UPDATE game_sessions
		SET score = $2, attempts = $3, completed = TRUE, finished_at = NOW()
		WHERE id = $1 AND completed = FALSE
		RETURNING ` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query, sessionID, score, attempts))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, sessionID); getErr == nil {
				return nil, ErrSessionCompleted
			}
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}
	return session, nil
}

// GetByID retrieves a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*model.GameSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM game_sessions WHERE id = $1`

	session, err := scanSession(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// BestScore returns the user's best completed score in a game.
func (r *SessionRepository) BestScore(ctx context.Context, userID, gameID int64) (int, error) {
	const query = `
		SELECT COALESCE(MAX(score), 0)
		FROM game_sessions
		WHERE user_id = $1 AND game_id = $2 AND completed = TRUE
	`

	var best int
	if err := r.pool.QueryRow(ctx, query, userID, gameID).Scan(&best); err != nil {
		return 0, fmt.Errorf("failed to get best score: %w", err)
	}
	return best, nil
}

// CountByUser returns the user's total and completed session counts.
func (r *SessionRepository) CountByUser(ctx context.Context, userID int64) (total, completed int, err error) {
	const query = `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE completed)
		FROM game_sessions
		WHERE user_id = $1
	`

	if err := r.pool.QueryRow(ctx, query, userID).Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return total, completed, nil
}
