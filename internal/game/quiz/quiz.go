// Package quiz implements the timed multiple-choice quiz engine.
//
// Each presented question races a countdown timer against the user's
// answer. Exactly one of the two resolves the question: both paths go
// through the engine mutex and a per-question claim, so a late-firing
// timer for an already-resolved question is a guaranteed no-op.
package quiz

import (
	"errors"
	"sync"
	"time"

	"telegram-minigames-bot/internal/model"
)

const (
	// TimeoutChoice is the sentinel answer index meaning the countdown
	// expired. It never aliases a valid option index (0-3), so a timed
	// out question always scores zero.
	TimeoutChoice = -1

	// DefaultQuestionTime is the countdown per displayed question.
	DefaultQuestionTime = 10 * time.Second

	// DefaultNextDelay is the readability pause before the next
	// question. It is not part of scoring.
	DefaultNextDelay = 3 * time.Second
)

// Errors for the quiz game.
var (
	ErrFinished = errors.New("quiz already finished")
	ErrResolved = errors.New("question already resolved")
	ErrNoActive = errors.New("no active question")
)

// difficultyScores maps question difficulty to the score for a correct
// answer. Unknown difficulties fall back to the easy score.
var difficultyScores = map[string]int{
	model.DifficultyEasy:   5,
	model.DifficultyMedium: 10,
	model.DifficultyHard:   15,
}

// ScoreFor returns the score for answering a question of the given
// difficulty. Incorrect answers (including timeouts) score zero.
func ScoreFor(difficulty string, correct bool) int {
	if !correct {
		return 0
	}
	if s, ok := difficultyScores[difficulty]; ok {
		return s
	}
	return difficultyScores[model.DifficultyEasy]
}

// Question is the engine's private snapshot of one quiz question.
// CorrectOption is 1-based as stored in the content source.
type Question struct {
	Prompt        string
	Options       [4]string
	CorrectOption int
	Difficulty    string
	Explanation   string
}

// Config holds configuration for a quiz session.
type Config struct {
	QuestionTime time.Duration
	NextDelay    time.Duration
}

// Game is the transient per-conversation state of one quiz session.
type Game struct {
	mu        sync.Mutex
	questions []Question
	index     int
	answers   []int
	scores    []int
	total     int

	// awaiting is the single-assignment claim for the current
	// question: set when the question is presented, cleared by
	// whichever of {answer, timeout} wins.
	awaiting bool
	timer    *time.Timer
	aborted  bool

	questionTime time.Duration
	nextDelay    time.Duration
}

// AnswerResult describes the resolution of one question.
type AnswerResult struct {
	Question     Question
	Index        int // index of the resolved question
	Correct      bool
	CorrectIndex int // 0-based index of the correct option
	Score        int
	TimedOut     bool
	Finished     bool
}

// New creates a quiz session over a private copy of the given question
// set. Later mutation of the content source cannot affect the game.
func New(questions []model.QuizQuestion, cfg *Config) *Game {
	questionTime, nextDelay := DefaultQuestionTime, DefaultNextDelay
	if cfg != nil {
		if cfg.QuestionTime > 0 {
			questionTime = cfg.QuestionTime
		}
		if cfg.NextDelay > 0 {
			nextDelay = cfg.NextDelay
		}
	}

	snapshot := make([]Question, 0, len(questions))
	for _, q := range questions {
		snapshot = append(snapshot, Question{
			Prompt:        q.Question,
			Options:       [4]string{q.Option1, q.Option2, q.Option3, q.Option4},
			CorrectOption: q.CorrectOption,
			Difficulty:    q.Difficulty,
			Explanation:   q.Explanation,
		})
	}

	return &Game{
		questions:    snapshot,
		answers:      make([]int, 0, len(snapshot)),
		scores:       make([]int, 0, len(snapshot)),
		questionTime: questionTime,
		nextDelay:    nextDelay,
	}
}

// CurrentQuestion returns the active question and its index, or false
// when the quiz is finished or aborted.
func (g *Game) CurrentQuestion() (Question, int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.aborted || g.index >= len(g.questions) {
		return Question{}, 0, false
	}
	return g.questions[g.index], g.index, true
}

// ArmTimer starts the countdown for the current question and marks it
// awaiting resolution. If the countdown expires before an answer claims
// the question, onTimeout is called with the timeout resolution; if the
// question was resolved first the expired timer does nothing and
// onTimeout is never called.
func (g *Game) ArmTimer(onTimeout func(res *AnswerResult)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.aborted || g.index >= len(g.questions) {
		return ErrFinished
	}

	idx := g.index
	g.awaiting = true
	g.timer = time.AfterFunc(g.questionTime, func() {
		if res := g.claimTimeout(idx); res != nil {
			onTimeout(res)
		}
	})
	return nil
}

// claimTimeout resolves question idx as timed out if it is still the
// awaiting current question. Returns nil when the claim is lost.
func (g *Game) claimTimeout(idx int) *AnswerResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.aborted || !g.awaiting || idx != g.index {
		return nil
	}
	return g.resolve(TimeoutChoice)
}

// Answer resolves the current question with the user's choice (0-3).
// The pending countdown is cancelled before the answer is applied; if
// the timeout won the race first, ErrResolved is returned and no state
// changes.
func (g *Game) Answer(choice int) (*AnswerResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.aborted || g.index >= len(g.questions) {
		return nil, ErrFinished
	}
	if !g.awaiting {
		return nil, ErrResolved
	}

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	return g.resolve(choice), nil
}

// resolve applies the winning choice to the current question and
// advances. Caller holds g.mu and has verified the claim.
func (g *Game) resolve(choice int) *AnswerResult {
	q := g.questions[g.index]
	correct := choice == q.CorrectOption-1
	score := ScoreFor(q.Difficulty, correct)

	g.answers = append(g.answers, choice)
	g.scores = append(g.scores, score)
	g.total += score
	g.awaiting = false

	res := &AnswerResult{
		Question:     q,
		Index:        g.index,
		Correct:      correct,
		CorrectIndex: q.CorrectOption - 1,
		Score:        score,
		TimedOut:     choice == TimeoutChoice,
	}

	g.index++
	res.Finished = g.index >= len(g.questions)
	return res
}

// Abort cancels any pending countdown and stops the session. Used on
// forced termination so a stale timer cannot fire into a cleared
// conversation.
func (g *Game) Abort() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.awaiting = false
	g.aborted = true
}

// NextDelay returns the pause before the next question is presented.
func (g *Game) NextDelay() time.Duration {
	return g.nextDelay
}

// CorrectCount returns how many questions were answered correctly.
func (g *Game) CorrectCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	count := 0
	for i, a := range g.answers {
		if a == g.questions[i].CorrectOption-1 {
			count++
		}
	}
	return count
}

// BestQuestionScore returns the highest single-question score.
func (g *Game) BestQuestionScore() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	best := 0
	for _, s := range g.scores {
		if s > best {
			best = s
		}
	}
	return best
}

// Len returns the number of questions in the session.
func (g *Game) Len() int {
	return len(g.questions)
}

// Code returns the game catalog code.
func (g *Game) Code() string { return model.GameCodeQuiz }

// Terminal reports whether every question has been resolved.
func (g *Game) Terminal() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.aborted || g.index >= len(g.questions)
}

// Score returns the total score accrued so far.
func (g *Game) Score() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.total
}

// Attempts returns the number of correctly answered questions.
func (g *Game) Attempts() int {
	return g.CorrectCount()
}
