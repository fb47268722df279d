package controller

import (
	"context"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/controller/handlers"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// BotController бот для терапевтов: привязка чата и просмотр расписания
type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	directory handlers.TherapistDirectory,
	links handlers.ChatLinker,
	sessions handlers.TherapistSessions,
	cache handlers.CalendarInvalidator,
	loc *time.Location,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: handlers.NewHandlers(directory, links, sessions, cache, loc, logger),
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/vincular", bot.MatchTypePrefix, c.handlers.HandleLink)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/desvincular", bot.MatchTypeExact, c.handlers.HandleUnlink)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/hoy", bot.MatchTypeExact, c.handlers.HandleToday)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/agenda", bot.MatchTypeExact, c.handlers.HandleAgenda)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Empezar"},
		{Command: "vincular", Description: "🔗 Vincular chat con un código"},
		{Command: "desvincular", Description: "✂️ Desvincular chat"},
		{Command: "hoy", Description: "📅 Sesiones de hoy"},
		{Command: "agenda", Description: "🗓 Sesiones de mañana"},
		{Command: "help", Description: "❓ Ayuda"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
