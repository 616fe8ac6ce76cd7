// Package cities implements the word-chain game engine played against a
// content-driven bot opponent. The challenger and the engine take turns
// naming cities, each starting with the required letter derived from the
// previous entry.
package cities

import (
	"context"
	"errors"
	"fmt"

	"telegram-minigames-bot/internal/model"
)

// DefaultMinNameLength is the minimum accepted city name length.
const DefaultMinNameLength = 3

// Errors for the word-chain game.
var (
	ErrNameTooShort = errors.New("city name too short")
	ErrFinished     = errors.New("game already finished")
)

// ContentSource is the content lookup capability the engine depends on.
type ContentSource interface {
	// Exists reports whether a city with the given normalized name is known.
	Exists(ctx context.Context, name string) (bool, error)

	// StartingWith returns known city names starting with the given
	// letter, excluding the listed names (case-insensitive).
	StartingWith(ctx context.Context, letter string, excluding []string) ([]string, error)
}

// Outcome classifies the result of one submitted move.
type Outcome int

const (
	// OutcomeContinue means the move was accepted and the engine answered.
	OutcomeContinue Outcome = iota
	// OutcomeWin means the engine found no counter-move; the player wins.
	OutcomeWin
	// OutcomeNotFound means the city is unknown; terminal loss.
	OutcomeNotFound
	// OutcomeAlreadyUsed means the city was already named; terminal loss.
	OutcomeAlreadyUsed
	// OutcomeWrongLetter means the city starts with the wrong letter;
	// terminal loss.
	OutcomeWrongLetter
)

// Config holds configuration for the word-chain game.
type Config struct {
	MinNameLength int
}

// Game is the transient per-conversation state of one word-chain session.
type Game struct {
	content   ContentSource
	used      map[string]struct{}
	usedNames []string
	current   string

	playerScore int
	botScore    int
	moves       int
	terminal    bool
	win         bool

	minNameLength int
}

// MoveResult describes the resolution of one submitted move.
type MoveResult struct {
	Outcome        Outcome
	PlayerCity     string
	BotCity        string
	ExpectedLetter string
	GivenLetter    string
	NextLetter     string
	Terminal       bool
	Win            bool
}

// New creates a word-chain session seeded with the engine's opening
// city. The seed is marked used and becomes the current reference.
func New(content ContentSource, seed string, cfg *Config) *Game {
	minLen := DefaultMinNameLength
	if cfg != nil && cfg.MinNameLength > 0 {
		minLen = cfg.MinNameLength
	}

	g := &Game{
		content:       content,
		used:          make(map[string]struct{}),
		current:       Normalize(seed),
		minNameLength: minLen,
	}
	g.markUsed(g.current)
	return g
}

func (g *Game) markUsed(name string) {
	g.used[normKey(name)] = struct{}{}
	g.usedNames = append(g.usedNames, name)
}

func (g *Game) isUsed(name string) bool {
	_, ok := g.used[normKey(name)]
	return ok
}

// Submit applies the player's move and, when accepted, the engine's
// counter-move. A too-short name returns ErrNameTooShort with no state
// change; the caller re-prompts. Rule violations are terminal outcomes,
// not errors.
func (g *Game) Submit(ctx context.Context, raw string) (*MoveResult, error) {
	if g.terminal {
		return nil, ErrFinished
	}

	name := Normalize(raw)
	if len([]rune(name)) < g.minNameLength {
		return nil, ErrNameTooShort
	}

	exists, err := g.content.Exists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up city: %w", err)
	}
	if !exists {
		g.terminal = true
		return &MoveResult{Outcome: OutcomeNotFound, PlayerCity: name, Terminal: true}, nil
	}

	if g.isUsed(name) {
		g.terminal = true
		return &MoveResult{Outcome: OutcomeAlreadyUsed, PlayerCity: name, Terminal: true}, nil
	}

	expected := RequiredLetter(g.current)
	given := FirstLetter(name)
	if given != expected {
		g.terminal = true
		return &MoveResult{
			Outcome:        OutcomeWrongLetter,
			PlayerCity:     name,
			ExpectedLetter: expected,
			GivenLetter:    given,
			Terminal:       true,
		}, nil
	}

	// Accept the player's move.
	g.markUsed(name)
	g.playerScore++
	g.moves++
	g.current = name

	botLetter := RequiredLetter(name)
	botCity, err := g.pickBotCity(ctx, botLetter)
	if err != nil {
		return nil, err
	}
	if botCity == "" {
		// No legal counter-move: the player wins.
		g.terminal = true
		g.win = true
		return &MoveResult{
			Outcome:    OutcomeWin,
			PlayerCity: name,
			NextLetter: botLetter,
			Terminal:   true,
			Win:        true,
		}, nil
	}

	g.markUsed(botCity)
	g.botScore++
	g.moves++
	g.current = botCity

	return &MoveResult{
		Outcome:    OutcomeContinue,
		PlayerCity: name,
		BotCity:    botCity,
		NextLetter: RequiredLetter(botCity),
	}, nil
}

// pickBotCity queries content for a counter-move starting with letter.
// Candidates are fetched excluding the used set as of now, and each one
// is re-checked against the used set before being chosen: "no legal
// move" is authoritative only for the current used set.
func (g *Game) pickBotCity(ctx context.Context, letter string) (string, error) {
	candidates, err := g.content.StartingWith(ctx, letter, g.usedNames)
	if err != nil {
		return "", fmt.Errorf("failed to find counter-move: %w", err)
	}
	for _, c := range candidates {
		if !g.isUsed(c) {
			return Normalize(c), nil
		}
	}
	return "", nil
}

// CurrentCity returns the current reference city.
func (g *Game) CurrentCity() string { return g.current }

// RequiredNext returns the letter the player's next city must start with.
func (g *Game) RequiredNext() string { return RequiredLetter(g.current) }

// BotScore returns the engine's score.
func (g *Game) BotScore() int { return g.botScore }

// Win reports whether the game ended with a player win.
func (g *Game) Win() bool { return g.win }

// Code returns the game catalog code.
func (g *Game) Code() string { return model.GameCodeCities }

// Terminal reports whether the game has ended.
func (g *Game) Terminal() bool { return g.terminal }

// Score returns the player's score: one point per accepted move.
func (g *Game) Score() int { return g.playerScore }

// Attempts returns the total move count by both sides.
func (g *Game) Attempts() int { return g.moves }
