// Package game defines the common engine capability shared by all games.
// An engine is the rule state machine for one game type, holding only
// transient in-conversation state; session bookkeeping lives elsewhere.
package game

// Engine defines the interface that all game engines implement.
// The session layer stays game-agnostic: it only needs to know the game
// code, whether play has reached a terminal outcome, and the score and
// attempt count accrued so far.
type Engine interface {
	// Code returns the game catalog code (e.g. "guess_number").
	Code() string

	// Terminal reports whether the engine has reached a terminal
	// outcome (win or loss) and accepts no further moves.
	Terminal() bool

	// Score returns the score accrued so far.
	Score() int

	// Attempts returns the number of accepted moves so far.
	Attempts() int
}
