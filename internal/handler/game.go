// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-minigames-bot/internal/config"
	"telegram-minigames-bot/internal/game"
	"telegram-minigames-bot/internal/game/cities"
	"telegram-minigames-bot/internal/game/guess"
	"telegram-minigames-bot/internal/game/quiz"
	"telegram-minigames-bot/internal/model"
	"telegram-minigames-bot/internal/pkg/lock"
	"telegram-minigames-bot/internal/repository"
	"telegram-minigames-bot/internal/session"
)

// QuizCallbackPrefix marks quiz answer buttons; the option index follows.
const QuizCallbackPrefix = "quiz_answer_"

// GameHandler handles game session commands and moves.
type GameHandler struct {
	cfg      *config.Config
	manager  *session.Manager
	quizRepo *repository.QuizRepository
	cityRepo *repository.CityRepository
	chatLock *lock.ChatLock
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(
	cfg *config.Config,
	manager *session.Manager,
	quizRepo *repository.QuizRepository,
	cityRepo *repository.CityRepository,
	chatLock *lock.ChatLock,
) *GameHandler {
	return &GameHandler{
		cfg:      cfg,
		manager:  manager,
		quizRepo: quizRepo,
		cityRepo: cityRepo,
		chatLock: chatLock,
	}
}

// HandleGuessStart handles the /guess_number command.
func (h *GameHandler) HandleGuessStart(c tele.Context) error {
	ctx := context.Background()
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	h.chatLock.Lock(chat.ID)
	defer h.chatLock.Unlock(chat.ID)

	gc := h.cfg.Games.Guess
	active, err := h.manager.Begin(ctx, chat.ID, sender.ID, model.GameCodeGuess, func(_ *model.Game) (game.Engine, error) {
		return guess.New(&guess.Config{
			Min:         gc.Min,
			Max:         gc.Max,
			MaxAttempts: gc.MaxAttempts,
		}), nil
	})
	if err != nil {
		return h.replyBeginError(c, err)
	}

	g := active.Engine.(*guess.Game)
	return c.Reply(fmt.Sprintf(
		"🎲 Я загадал число от %d до %d.\nУ тебя %d попыток. Какое это число?",
		g.Min(), g.Max(), g.MaxAttempts(),
	))
}

// HandleQuizStart handles the /quiz command.
func (h *GameHandler) HandleQuizStart(c tele.Context) error {
	ctx := context.Background()
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	h.chatLock.Lock(chat.ID)
	defer h.chatLock.Unlock(chat.ID)

	qc := h.cfg.Games.Quiz
	active, err := h.manager.Begin(ctx, chat.ID, sender.ID, model.GameCodeQuiz, func(_ *model.Game) (game.Engine, error) {
		questions, err := h.quizRepo.BalancedQuestions(ctx, qc.EasyCount, qc.MediumCount, qc.HardCount)
		if err != nil {
			return nil, err
		}
		snapshot := make([]model.QuizQuestion, 0, len(questions))
		for _, q := range questions {
			snapshot = append(snapshot, *q)
		}
		return quiz.New(snapshot, &quiz.Config{
			QuestionTime: time.Duration(qc.QuestionSeconds) * time.Second,
			NextDelay:    time.Duration(qc.NextDelaySeconds) * time.Second,
		}), nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNoQuestions) {
			return c.Reply("❌ Вопросы для викторины пока не загружены")
		}
		return h.replyBeginError(c, err)
	}

	g := active.Engine.(*quiz.Game)
	if err := c.Reply(fmt.Sprintf(
		"🧠 Викторина из %d вопросов!\nНа каждый вопрос даётся %d секунд. Поехали!",
		g.Len(), qc.QuestionSeconds,
	)); err != nil {
		return err
	}

	return h.presentQuestion(c.Bot(), chat, g)
}

// HandleCitiesStart handles the /cities command.
func (h *GameHandler) HandleCitiesStart(c tele.Context) error {
	ctx := context.Background()
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	h.chatLock.Lock(chat.ID)
	defer h.chatLock.Unlock(chat.ID)

	cc := h.cfg.Games.Cities
	active, err := h.manager.Begin(ctx, chat.ID, sender.ID, model.GameCodeCities, func(_ *model.Game) (game.Engine, error) {
		seed, err := h.cityRepo.RandomStart(ctx)
		if err != nil {
			return nil, err
		}
		return cities.New(h.cityRepo, seed, &cities.Config{MinNameLength: cc.MinNameLength}), nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNoCities) {
			return c.Reply("❌ Список городов пока пуст")
		}
		return h.replyBeginError(c, err)
	}

	g := active.Engine.(*cities.Game)
	return c.Reply(fmt.Sprintf(
		"🏙 Играем в города!\nМой город: %s\nТебе на букву «%s»",
		g.CurrentCity(), g.RequiredNext(),
	))
}

// HandleStop handles the /stop command: the session is finalized with
// the score and attempts accrued so far, like a natural loss.
func (h *GameHandler) HandleStop(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}

	h.chatLock.Lock(chat.ID)
	defer h.chatLock.Unlock(chat.ID)

	active, err := h.manager.Active(chat.ID)
	if err != nil {
		return c.Reply("❌ Сейчас нет активной игры")
	}

	// A stale quiz timer must not fire into the cleared chat.
	if g, ok := active.Engine.(*quiz.Game); ok {
		g.Abort()
	}

	outcome, err := h.finalize(chat.ID)
	if err != nil {
		return c.Reply("❌ Не удалось сохранить результат")
	}

	return c.Reply(fmt.Sprintf(
		"🛑 Игра остановлена.\n⭐ Очки: %d\n%s",
		outcome.Session.Score, formatRatingLine(outcome.Rating),
	))
}

// HandleText routes plain text messages to the chat's active game.
func (h *GameHandler) HandleText(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}

	h.chatLock.Lock(chat.ID)
	defer h.chatLock.Unlock(chat.ID)

	active, err := h.manager.Active(chat.ID)
	if err != nil {
		// Not in a game, nothing to do with free text.
		return nil
	}

	switch g := active.Engine.(type) {
	case *guess.Game:
		return h.handleGuessMove(c, chat.ID, g)
	case *cities.Game:
		return h.handleCitiesMove(c, chat.ID, g)
	case *quiz.Game:
		return c.Reply("❓ Отвечай кнопками под вопросом")
	default:
		log.Error().Int64("chat_id", chat.ID).Msg("Unknown engine type for active session")
		return nil
	}
}

// handleGuessMove applies one guess. Caller holds the chat lock.
func (h *GameHandler) handleGuessMove(c tele.Context, chatID int64, g *guess.Game) error {
	value, err := strconv.Atoi(strings.TrimSpace(c.Text()))
	if err != nil {
		return c.Reply("❌ Введи целое число")
	}

	res, err := g.Guess(value)
	if err != nil {
		if errors.Is(err, guess.ErrOutOfRange) {
			return c.Reply(fmt.Sprintf("❌ Число должно быть от %d до %d", g.Min(), g.Max()))
		}
		return c.Reply("❌ Игра уже завершена")
	}

	switch {
	case res.Win:
		outcome, err := h.finalize(chatID)
		if err != nil {
			return c.Reply("❌ Не удалось сохранить результат")
		}
		return c.Reply(fmt.Sprintf(
			"🎉 Угадал за %d попыток!\n⭐ Очки: %d\n%s",
			res.Attempts, res.Score, formatRatingLine(outcome.Rating),
		))
	case res.Terminal:
		outcome, err := h.finalize(chatID)
		if err != nil {
			return c.Reply("❌ Не удалось сохранить результат")
		}
		return c.Reply(fmt.Sprintf(
			"😢 Попытки закончились. Я загадывал %d.\n%s",
			g.Secret(), formatRatingLine(outcome.Rating),
		))
	case res.Hint == guess.HintLower:
		return c.Reply(fmt.Sprintf("⬇️ Моё число меньше. Осталось попыток: %d", res.Remaining))
	default:
		return c.Reply(fmt.Sprintf("⬆️ Моё число больше. Осталось попыток: %d", res.Remaining))
	}
}

// handleCitiesMove applies one word-chain move. Caller holds the chat lock.
func (h *GameHandler) handleCitiesMove(c tele.Context, chatID int64, g *cities.Game) error {
	ctx := context.Background()

	res, err := g.Submit(ctx, c.Text())
	if err != nil {
		if errors.Is(err, cities.ErrNameTooShort) {
			return c.Reply("❌ Слишком короткое название, попробуй ещё раз")
		}
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Cities move failed")
		return c.Reply("❌ Не получилось проверить город, попробуй ещё раз")
	}

	switch res.Outcome {
	case cities.OutcomeContinue:
		return c.Reply(fmt.Sprintf(
			"✅ %s принят!\nМой город: %s\nТебе на букву «%s»",
			res.PlayerCity, res.BotCity, res.NextLetter,
		))
	case cities.OutcomeWin:
		outcome, err := h.finalize(chatID)
		if err != nil {
			return c.Reply("❌ Не удалось сохранить результат")
		}
		return c.Reply(fmt.Sprintf(
			"🏆 Я не знаю городов на букву «%s» — ты победил!\n⭐ Очки: %d\n%s",
			res.NextLetter, outcome.Session.Score, formatRatingLine(outcome.Rating),
		))
	case cities.OutcomeNotFound:
		return h.finishCitiesLoss(c, chatID, fmt.Sprintf("❌ Не знаю города «%s». Игра окончена.", res.PlayerCity))
	case cities.OutcomeAlreadyUsed:
		return h.finishCitiesLoss(c, chatID, fmt.Sprintf("❌ %s уже называли. Игра окончена.", res.PlayerCity))
	case cities.OutcomeWrongLetter:
		return h.finishCitiesLoss(c, chatID, fmt.Sprintf(
			"❌ Нужен город на букву «%s», а не «%s». Игра окончена.",
			res.ExpectedLetter, res.GivenLetter,
		))
	default:
		return nil
	}
}

func (h *GameHandler) finishCitiesLoss(c tele.Context, chatID int64, msg string) error {
	outcome, err := h.finalize(chatID)
	if err != nil {
		return c.Reply("❌ Не удалось сохранить результат")
	}
	return c.Reply(fmt.Sprintf("%s\n⭐ Очки: %d\n%s", msg, outcome.Session.Score, formatRatingLine(outcome.Rating)))
}

// HandleQuizCallback handles quiz answer buttons.
func (h *GameHandler) HandleQuizCallback(c tele.Context) error {
	callback := c.Callback()
	chat := c.Chat()
	if callback == nil || chat == nil {
		return nil
	}

	data := strings.TrimPrefix(callback.Data, "\f")
	choice, err := strconv.Atoi(strings.TrimPrefix(data, QuizCallbackPrefix))
	if err != nil || choice < 0 || choice > 3 {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Неверный ответ"})
	}

	h.chatLock.Lock(chat.ID)
	defer h.chatLock.Unlock(chat.ID)

	active, err := h.manager.Active(chat.ID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Викторина уже закончилась"})
	}
	g, ok := active.Engine.(*quiz.Game)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Сейчас идёт другая игра"})
	}

	res, err := g.Answer(choice)
	if err != nil {
		// The countdown won the race, the timeout path reports the result.
		return c.Respond(&tele.CallbackResponse{Text: "⏰ Время на этот вопрос уже вышло"})
	}

	if err := c.Respond(&tele.CallbackResponse{}); err != nil {
		log.Debug().Err(err).Msg("Failed to ack quiz callback")
	}
	return h.reportQuizResolution(c.Bot(), chat, g, res)
}

// presentQuestion sends the current question with answer buttons and
// arms its countdown. The timeout path re-enters through the chat lock.
func (h *GameHandler) presentQuestion(bot *tele.Bot, chat *tele.Chat, g *quiz.Game) error {
	q, idx, ok := g.CurrentQuestion()
	if !ok {
		return nil
	}

	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(q.Options))
	for i, opt := range q.Options {
		btn := markup.Data(opt, fmt.Sprintf("%s%d", QuizCallbackPrefix, i))
		rows = append(rows, markup.Row(btn))
	}
	markup.Inline(rows...)

	text := fmt.Sprintf("❓ Вопрос %d из %d (%s):\n\n%s", idx+1, g.Len(), difficultyLabel(q.Difficulty), q.Prompt)
	if _, err := bot.Send(chat, text, markup); err != nil {
		return fmt.Errorf("failed to send question: %w", err)
	}

	return g.ArmTimer(func(res *quiz.AnswerResult) {
		h.chatLock.Lock(chat.ID)
		defer h.chatLock.Unlock(chat.ID)
		if err := h.reportQuizResolution(bot, chat, g, res); err != nil {
			log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to report quiz timeout")
		}
	})
}

// reportQuizResolution sends the per-question verdict, then either
// schedules the next question or finalizes the session. Caller holds
// the chat lock.
func (h *GameHandler) reportQuizResolution(bot *tele.Bot, chat *tele.Chat, g *quiz.Game, res *quiz.AnswerResult) error {
	var text string
	switch {
	case res.TimedOut:
		text = fmt.Sprintf("⏰ Время вышло! Правильный ответ: %s", res.Question.Options[res.CorrectIndex])
	case res.Correct:
		text = fmt.Sprintf("✅ Верно! +%d очков", res.Score)
	default:
		text = fmt.Sprintf("❌ Неверно. Правильный ответ: %s", res.Question.Options[res.CorrectIndex])
	}
	if res.Question.Explanation != "" {
		text += "\n💡 " + res.Question.Explanation
	}

	if _, err := bot.Send(chat, text); err != nil {
		log.Debug().Err(err).Msg("Failed to send quiz verdict")
	}

	if !res.Finished {
		time.AfterFunc(g.NextDelay(), func() {
			h.chatLock.Lock(chat.ID)
			defer h.chatLock.Unlock(chat.ID)
			if err := h.presentQuestion(bot, chat, g); err != nil {
				log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to present next question")
			}
		})
		return nil
	}

	outcome, err := h.finalize(chat.ID)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrAlreadyFinalized) {
			// Stopped or finalized concurrently, nothing left to report.
			return nil
		}
		_, sendErr := bot.Send(chat, "❌ Не удалось сохранить результат")
		return errors.Join(err, sendErr)
	}

	summary := fmt.Sprintf(
		"🏁 Викторина окончена!\nПравильных ответов: %d из %d\n⭐ Очки: %d\n%s",
		g.CorrectCount(), g.Len(), outcome.Session.Score, formatRatingLine(outcome.Rating),
	)
	_, err = bot.Send(chat, summary)
	return err
}

// finalize completes the chat's session and folds the score into the
// rating. Caller holds the chat lock.
func (h *GameHandler) finalize(chatID int64) (*session.Outcome, error) {
	outcome, err := h.manager.Finalize(context.Background(), chatID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to finalize session")
		return nil, err
	}
	log.Info().
		Int64("chat_id", chatID).
		Int64("session_id", outcome.Session.ID).
		Int("score", outcome.Session.Score).
		Int("attempts", outcome.Session.Attempts).
		Msg("Session finalized")
	return outcome, nil
}

func (h *GameHandler) replyBeginError(c tele.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrSessionActive):
		return c.Reply("❌ В этом чате уже идёт игра. Заверши её или набери /stop")
	case errors.Is(err, session.ErrUserNotRegistered):
		return c.Reply("❌ Сначала набери /start")
	case errors.Is(err, session.ErrUnknownGame):
		return c.Reply("❌ Такой игры нет. Список: /games")
	default:
		log.Error().Err(err).Msg("Failed to begin session")
		return c.Reply("❌ Не удалось начать игру, попробуй позже")
	}
}

func formatRatingLine(r *model.Rating) string {
	return fmt.Sprintf(
		"📊 Всего очков в игре: %d | Игр сыграно: %d | Рекорд: %d",
		r.TotalScore, r.GamesPlayed, r.BestScore,
	)
}

func difficultyLabel(difficulty string) string {
	switch difficulty {
	case model.DifficultyEasy:
		return "лёгкий"
	case model.DifficultyMedium:
		return "средний"
	case model.DifficultyHard:
		return "сложный"
	default:
		return difficulty
	}
}
