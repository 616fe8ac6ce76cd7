package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-minigames-bot/internal/model"
)

// ErrNoQuestions is returned when the question bank cannot fill a round.
var ErrNoQuestions = errors.New("no quiz questions available")

const questionColumns = "id, question, option1, option2, option3, option4, correct_option, difficulty, category, explanation, is_active, created_at"

// QuizRepository handles the quiz question bank.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository instance.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// BalancedQuestions draws a random round with the given per-difficulty
// counts. Returns ErrNoQuestions if any difficulty bucket comes up empty
// while its count is positive.
func (r *QuizRepository) BalancedQuestions(ctx context.Context, easy, medium, hard int) ([]*model.QuizQuestion, error) {
	counts := []struct {
		difficulty string
		n          int
	}{
		{model.DifficultyEasy, easy},
		{model.DifficultyMedium, medium},
		{model.DifficultyHard, hard},
	}

	var questions []*model.QuizQuestion
	for _, c := range counts {
		if c.n <= 0 {
			continue
		}
		batch, err := r.ByDifficulty(ctx, c.difficulty, c.n)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return nil, fmt.Errorf("%w: difficulty %s", ErrNoQuestions, c.difficulty)
		}
		questions = append(questions, batch...)
	}

	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	return questions, nil
}

// ByDifficulty draws up to limit random active questions of one difficulty.
func (r *QuizRepository) ByDifficulty(ctx context.Context, difficulty string, limit int) ([]*model.QuizQuestion, error) {
	const query = `
		SELECT ` + questionColumns + `
		FROM quiz_questions
		WHERE difficulty = $1 AND is_active = TRUE
		ORDER BY random()
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, difficulty, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func scanQuestions(rows pgx.Rows) ([]*model.QuizQuestion, error) {
	var questions []*model.QuizQuestion
	for rows.Next() {
		var q model.QuizQuestion
		err := rows.Scan(
			&q.ID,
			&q.Question,
			&q.Option1,
			&q.Option2,
			&q.Option3,
			&q.Option4,
			&q.CorrectOption,
			&q.Difficulty,
			&q.Category,
			&q.Explanation,
			&q.IsActive,
			&q.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, &q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return questions, nil
}
