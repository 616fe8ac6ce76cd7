// Package guess implements the number guessing game engine.
// The engine draws a secret number, hands out directional hints and
// finalizes with a score rewarding fewer attempts.
package guess

import (
	"errors"
	"math/rand/v2"

	"telegram-minigames-bot/internal/model"
)

const (
	// DefaultMin is the lower bound of the secret range.
	DefaultMin = 1
	// DefaultMax is the upper bound of the secret range.
	DefaultMax = 100
	// DefaultMaxAttempts is the attempt budget per session.
	DefaultMaxAttempts = 10
)

// Errors for the guessing game.
var (
	ErrOutOfRange = errors.New("guess outside the allowed range")
	ErrFinished   = errors.New("game already finished")
)

// Hint is the directional hint returned for an accepted guess.
type Hint int

const (
	// HintLower means the secret is lower than the guess.
	HintLower Hint = iota
	// HintHigher means the secret is higher than the guess.
	HintHigher
	// HintExact means the guess equals the secret.
	HintExact
)

// RandFunc draws a uniform random integer in [lo, hi] inclusive.
type RandFunc func(lo, hi int) int

// Config holds configuration for the guessing game.
// Rand may be supplied to fix the secret in tests.
type Config struct {
	Min         int
	Max         int
	MaxAttempts int
	Rand        RandFunc
}

// Game is the transient per-conversation state of one guessing session.
type Game struct {
	min         int
	max         int
	secret      int
	attempts    int
	maxAttempts int
	terminal    bool
	win         bool
	score       int
}

// Result describes the outcome of one accepted guess.
type Result struct {
	Hint      Hint
	Terminal  bool
	Win       bool
	Score     int
	Attempts  int
	Remaining int
}

// New creates a new guessing game and draws the secret number.
func New(cfg *Config) *Game {
	min, max, maxAttempts := DefaultMin, DefaultMax, DefaultMaxAttempts
	rnd := RandFunc(defaultRand)

	if cfg != nil {
		if cfg.Min > 0 {
			min = cfg.Min
		}
		if cfg.Max > min {
			max = cfg.Max
		}
		if cfg.MaxAttempts > 0 {
			maxAttempts = cfg.MaxAttempts
		}
		if cfg.Rand != nil {
			rnd = cfg.Rand
		}
	}

	return &Game{
		min:         min,
		max:         max,
		secret:      rnd(min, max),
		maxAttempts: maxAttempts,
	}
}

func defaultRand(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}

// Guess applies one guess to the game.
// An out-of-range value returns ErrOutOfRange and consumes no attempt;
// the caller re-prompts. An accepted guess increments the attempt count
// and either continues, wins, or exhausts the budget.
func (g *Game) Guess(value int) (*Result, error) {
	if g.terminal {
		return nil, ErrFinished
	}
	if value < g.min || value > g.max {
		return nil, ErrOutOfRange
	}

	g.attempts++

	res := &Result{
		Attempts:  g.attempts,
		Remaining: g.maxAttempts - g.attempts,
	}

	switch {
	case value == g.secret:
		g.terminal = true
		g.win = true
		g.score = ScoreFor(g.attempts)
		res.Hint = HintExact
		res.Terminal = true
		res.Win = true
		res.Score = g.score
	case g.attempts >= g.maxAttempts:
		g.terminal = true
		if value > g.secret {
			res.Hint = HintLower
		} else {
			res.Hint = HintHigher
		}
		res.Terminal = true
	case value > g.secret:
		res.Hint = HintLower
	default:
		res.Hint = HintHigher
	}

	return res, nil
}

// ScoreFor computes the win score for the given attempt count.
// The score is floor-clamped at 10: completion is always rewarded,
// precision only mildly.
func ScoreFor(attempts int) int {
	score := 100 - attempts*5
	if score < 10 {
		return 10
	}
	return score
}

// Secret returns the secret number, for the loss message.
func (g *Game) Secret() int {
	return g.secret
}

// Min returns the lower bound of the secret range.
func (g *Game) Min() int { return g.min }

// Max returns the upper bound of the secret range.
func (g *Game) Max() int { return g.max }

// MaxAttempts returns the attempt budget.
func (g *Game) MaxAttempts() int { return g.maxAttempts }

// Win reports whether the game ended with the secret guessed.
func (g *Game) Win() bool { return g.win }

// Code returns the game catalog code.
func (g *Game) Code() string { return model.GameCodeGuess }

// Terminal reports whether the game has ended.
func (g *Game) Terminal() bool { return g.terminal }

// Score returns the final score (0 until a win).
func (g *Game) Score() int { return g.score }

// Attempts returns the number of accepted guesses so far.
func (g *Game) Attempts() int { return g.attempts }
