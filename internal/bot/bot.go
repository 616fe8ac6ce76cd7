// Package bot provides the Telegram bot initialization and handler
// registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-minigames-bot/internal/config"
	"telegram-minigames-bot/internal/handler"
	"telegram-minigames-bot/internal/pkg/lock"
	"telegram-minigames-bot/internal/repository"
	"telegram-minigames-bot/internal/service"
	"telegram-minigames-bot/internal/session"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	commonHandler  *handler.CommonHandler
	gameHandler    *handler.GameHandler
	profileHandler *handler.ProfileHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config        *config.Config
	Manager       *session.Manager
	RatingService *service.RatingService
	UserRepo      *repository.UserRepository
	SessionRepo   *repository.SessionRepository
	QuizRepo      *repository.QuizRepository
	CityRepo      *repository.CityRepository
	ChatLock      *lock.ChatLock
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}

	b.commonHandler = handler.NewCommonHandler(deps.UserRepo, deps.RatingService)
	b.gameHandler = handler.NewGameHandler(deps.Config, deps.Manager, deps.QuizRepo, deps.CityRepo, deps.ChatLock)
	b.profileHandler = handler.NewProfileHandler(deps.Config, deps.UserRepo, deps.SessionRepo, deps.RatingService)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Registration and info
	b.bot.Handle("/start", b.commonHandler.HandleStart)
	b.bot.Handle("/help", b.commonHandler.HandleHelp)
	b.bot.Handle("/games", b.commonHandler.HandleGames)

	// Game sessions
	b.bot.Handle("/guess_number", b.gameHandler.HandleGuessStart)
	b.bot.Handle("/quiz", b.gameHandler.HandleQuizStart)
	b.bot.Handle("/cities", b.gameHandler.HandleCitiesStart)
	b.bot.Handle("/stop", b.gameHandler.HandleStop)

	// Profile and leaderboards
	b.bot.Handle("/profile", b.profileHandler.HandleProfile)
	b.bot.Handle("/rating", b.profileHandler.HandleRating)
	b.bot.Handle("/leaderboard", b.profileHandler.HandleLeaderboard)

	// Moves of the active game arrive as plain text
	b.bot.Handle(tele.OnText, b.gameHandler.HandleText)

	// Quiz answer buttons
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to appropriate handlers.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")

	if strings.HasPrefix(data, handler.QuizCallbackPrefix) {
		return b.gameHandler.HandleQuizCallback(c)
	}

	log.Debug().Str("data", data).Msg("Unhandled callback")
	return c.Respond(&tele.CallbackResponse{})
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
