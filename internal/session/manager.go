// Package session tracks the active game per chat and finalizes the
// outcome exactly once: complete the session row, fold the score into
// the rating, release the slot.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"telegram-minigames-bot/internal/game"
	"telegram-minigames-bot/internal/model"
	"telegram-minigames-bot/internal/repository"
)

var (
	// ErrSessionActive is returned when the chat already has a running game.
	ErrSessionActive = errors.New("session already active")
	// ErrNoSession is returned when the chat has no running game.
	ErrNoSession = errors.New("no active session")
	// ErrAlreadyFinalized is returned on a second finalize of the same session.
	ErrAlreadyFinalized = errors.New("session already finalized")
	// ErrUnknownGame is returned for a game code missing from the catalog.
	ErrUnknownGame = errors.New("unknown game")
	// ErrUserNotRegistered is returned when the player has not done /start yet.
	ErrUserNotRegistered = errors.New("user not registered")
)

// UserStore resolves players.
type UserStore interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

// GameStore resolves catalog entries.
type GameStore interface {
	GetByCode(ctx context.Context, code string) (*model.Game, error)
}

// SessionStore persists session rows.
type SessionStore interface {
	Create(ctx context.Context, userID, gameID int64) (*model.GameSession, error)
	Complete(ctx context.Context, sessionID int64, score, attempts int) (*model.GameSession, error)
}

// ScoreRecorder folds finished scores into rating aggregates.
type ScoreRecorder interface {
	RecordScore(ctx context.Context, userID, gameID int64, score int) (*model.Rating, error)
}

// Active is one running game bound to its session row.
type Active struct {
	Engine    game.Engine
	SessionID int64
	UserID    int64
	GameID    int64

	finalized bool
}

// Outcome is the result of finalizing a session.
type Outcome struct {
	Session *model.GameSession
	Rating  *model.Rating
}

// Manager tracks at most one active game per chat.
type Manager struct {
	users    UserStore
	games    GameStore
	sessions SessionStore
	ratings  ScoreRecorder

	mu     sync.Mutex
	active map[int64]*Active
}

// NewManager creates a new Manager instance.
func NewManager(users UserStore, games GameStore, sessions SessionStore, ratings ScoreRecorder) *Manager {
	return &Manager{
		users:    users,
		games:    games,
		sessions: sessions,
		ratings:  ratings,
		active:   make(map[int64]*Active),
	}
}

// Begin starts a game in the chat: resolves the player and the catalog
// entry, builds the engine, creates the session row and claims the
// chat slot. Returns ErrSessionActive without touching storage if the
// chat already has a running game.
func (m *Manager) Begin(
	ctx context.Context,
	chatID, telegramID int64,
	gameCode string,
	build func(g *model.Game) (game.Engine, error),
) (*Active, error) {
	// The slot is claimed before any storage work: a competing Begin
	// fails fast instead of creating a second session row.
	m.mu.Lock()
	if _, busy := m.active[chatID]; busy {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	entry := &Active{}
	m.active[chatID] = entry
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		delete(m.active, chatID)
		m.mu.Unlock()
	}

	user, err := m.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		release()
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotRegistered
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	g, err := m.games.GetByCode(ctx, gameCode)
	if err != nil {
		release()
		if errors.Is(err, repository.ErrGameNotFound) {
			return nil, ErrUnknownGame
		}
		return nil, fmt.Errorf("failed to resolve game: %w", err)
	}

	engine, err := build(g)
	if err != nil {
		release()
		return nil, err
	}

	sess, err := m.sessions.Create(ctx, user.ID, g.ID)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.mu.Lock()
	entry.Engine = engine
	entry.SessionID = sess.ID
	entry.UserID = user.ID
	entry.GameID = g.ID
	m.mu.Unlock()
	return entry, nil
}

// Active returns the chat's running game, or ErrNoSession.
func (m *Manager) Active(chatID int64) (*Active, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.active[chatID]
	if !ok || entry.Engine == nil {
		return nil, ErrNoSession
	}
	return entry, nil
}

// Finalize completes the session with the engine's final score and
// attempts, folds the score into the rating and releases the chat
// slot. The slot is released even when persistence fails, so a storage
// error never wedges the chat. A second call returns ErrAlreadyFinalized.
func (m *Manager) Finalize(ctx context.Context, chatID int64) (*Outcome, error) {
	m.mu.Lock()
	entry, ok := m.active[chatID]
	if !ok || entry.Engine == nil {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	if entry.finalized {
		m.mu.Unlock()
		return nil, ErrAlreadyFinalized
	}
	entry.finalized = true
	delete(m.active, chatID)
	m.mu.Unlock()

	sess, err := m.sessions.Complete(ctx, entry.SessionID, entry.Engine.Score(), entry.Engine.Attempts())
	if err != nil {
		if errors.Is(err, repository.ErrSessionCompleted) {
			return nil, ErrAlreadyFinalized
		}
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}

	rating, err := m.ratings.RecordScore(ctx, entry.UserID, entry.GameID, sess.Score)
	if err != nil {
		return nil, fmt.Errorf("failed to record score: %w", err)
	}

	return &Outcome{Session: sess, Rating: rating}, nil
}
