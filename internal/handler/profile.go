package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-minigames-bot/internal/config"
	"telegram-minigames-bot/internal/model"
	"telegram-minigames-bot/internal/repository"
	"telegram-minigames-bot/internal/service"
)

// ProfileHandler handles profile, rating and leaderboard commands.
type ProfileHandler struct {
	cfg           *config.Config
	userRepo      *repository.UserRepository
	sessionRepo   *repository.SessionRepository
	ratingService *service.RatingService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(
	cfg *config.Config,
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	ratingService *service.RatingService,
) *ProfileHandler {
	return &ProfileHandler{
		cfg:           cfg,
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		ratingService: ratingService,
	}
}

// HandleProfile handles the /profile command.
func (h *ProfileHandler) HandleProfile(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, err := h.userRepo.GetByTelegramID(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ Сначала набери /start")
		}
		return c.Reply("❌ Не удалось получить профиль")
	}

	profile, err := h.ratingService.Profile(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to build profile")
		return c.Reply("❌ Не удалось получить профиль")
	}

	total, completed, err := h.sessionRepo.CountByUser(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to count sessions")
		return c.Reply("❌ Не удалось получить профиль")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s\n", displayName(user))
	fmt.Fprintf(&b, "🏅 Место в общем рейтинге: %d\n", profile.Rank)
	fmt.Fprintf(&b, "⭐ Всего очков: %d\n", profile.Stats.TotalScore)
	fmt.Fprintf(&b, "🎮 Игр завершено: %d (начато %d)\n", completed, total)
	fmt.Fprintf(&b, "🥇 Лучший результат: %d", profile.Stats.BestScore)
	return c.Reply(b.String())
}

// HandleRating handles the /rating command: the per-game breakdown.
func (h *ProfileHandler) HandleRating(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, err := h.userRepo.GetByTelegramID(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ Сначала набери /start")
		}
		return c.Reply("❌ Не удалось получить рейтинг")
	}

	profile, err := h.ratingService.Profile(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to build rating")
		return c.Reply("❌ Не удалось получить рейтинг")
	}

	if len(profile.Ratings) == 0 {
		return c.Reply("📊 Ты ещё не завершил ни одной игры. Список игр: /games")
	}

	var b strings.Builder
	b.WriteString("📊 Твой рейтинг по играм:\n")
	for _, gr := range profile.Ratings {
		fmt.Fprintf(&b, "\n🎮 %s\n", gr.Game.Name)
		fmt.Fprintf(&b, "   Очки: %d | Игр: %d | Рекорд: %d | Средний: %.1f\n",
			gr.Rating.TotalScore, gr.Rating.GamesPlayed, gr.Rating.BestScore, gr.Rating.AverageScore)
	}
	fmt.Fprintf(&b, "\n🏅 Место в общем рейтинге: %d", profile.Rank)
	return c.Reply(b.String())
}

// HandleLeaderboard handles the /leaderboard command. Without an
// argument the summed cross-game board is shown; with a game code the
// board of that game.
func (h *ProfileHandler) HandleLeaderboard(c tele.Context) error {
	ctx := context.Background()
	limit := h.cfg.Leaderboard.Limit

	args := c.Args()
	if len(args) == 0 {
		entries, err := h.ratingService.GlobalLeaderboard(ctx, limit)
		if err != nil {
			log.Error().Err(err).Msg("Failed to get global leaderboard")
			return c.Reply("❌ Не удалось получить таблицу лидеров")
		}
		return c.Reply(formatLeaderboard("🏆 Общая таблица лидеров", entries))
	}

	code := strings.ToLower(args[0])
	game, entries, err := h.ratingService.Leaderboard(ctx, code, limit)
	if err != nil {
		if errors.Is(err, repository.ErrGameNotFound) {
			return c.Reply("❌ Такой игры нет. Список: /games")
		}
		log.Error().Err(err).Str("game_code", code).Msg("Failed to get leaderboard")
		return c.Reply("❌ Не удалось получить таблицу лидеров")
	}
	return c.Reply(formatLeaderboard(fmt.Sprintf("🏆 Лидеры — %s", game.Name), entries))
}

func formatLeaderboard(title string, entries []*model.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "🏆 Таблица лидеров пока пуста — сыграй первым!"
	}

	medals := []string{"🥇", "🥈", "🥉"}

	var b strings.Builder
	b.WriteString(title + ":\n")
	for i, e := range entries {
		place := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			place = medals[i]
		}
		name := e.Username
		if name == "" {
			name = e.FirstName
		}
		fmt.Fprintf(&b, "\n%s %s — %d очков (%d игр)", place, name, e.TotalScore, e.GamesPlayed)
	}
	return b.String()
}

func displayName(u *model.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}
