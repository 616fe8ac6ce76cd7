package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-minigames-bot/internal/repository"
	"telegram-minigames-bot/internal/service"
)

// CommonHandler handles registration and informational commands.
type CommonHandler struct {
	userRepo      *repository.UserRepository
	ratingService *service.RatingService
}

// NewCommonHandler creates a new CommonHandler.
func NewCommonHandler(userRepo *repository.UserRepository, ratingService *service.RatingService) *CommonHandler {
	return &CommonHandler{
		userRepo:      userRepo,
		ratingService: ratingService,
	}
}

// HandleStart handles the /start command and registers the player.
func (h *CommonHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, created, err := h.userRepo.GetOrCreate(ctx, sender.ID, sender.Username, sender.FirstName)
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", sender.ID).Msg("Failed to register user")
		return c.Reply("❌ Не удалось зарегистрироваться, попробуй позже")
	}

	if created {
		log.Info().Int64("telegram_id", sender.ID).Int64("user_id", user.ID).Msg("New user registered")
		return c.Reply(fmt.Sprintf(
			"👋 Привет, %s!\nЯ бот с мини-играми. Выбирай игру и набирай очки.\n\nСписок игр: /games\nПомощь: /help",
			displayName(user),
		))
	}
	return c.Reply(fmt.Sprintf("👋 С возвращением, %s!\nСписок игр: /games", displayName(user)))
}

// HandleHelp handles the /help command.
func (h *CommonHandler) HandleHelp(c tele.Context) error {
	return c.Reply(`ℹ️ Команды:

/games — список игр
/guess_number — угадай число
/quiz — викторина
/cities — города
/stop — остановить текущую игру

/profile — твой профиль
/rating — рейтинг по играм
/leaderboard — таблица лидеров
/leaderboard <код игры> — лидеры одной игры`)
}

// HandleGames handles the /games command.
func (h *CommonHandler) HandleGames(c tele.Context) error {
	ctx := context.Background()

	games, err := h.ratingService.Games(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list games")
		return c.Reply("❌ Не удалось получить список игр")
	}
	if len(games) == 0 {
		return c.Reply("❌ Пока нет доступных игр")
	}

	var b strings.Builder
	b.WriteString("🎮 Доступные игры:\n")
	for _, g := range games {
		fmt.Fprintf(&b, "\n/%s — %s\n%s\n", g.Code, g.Name, g.Description)
	}
	b.WriteString("\nОстановить текущую игру: /stop")
	return c.Reply(b.String())
}
