package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/config"
	"github.com/Freeeeeet/therapy_scheduler/internal/notify"
	"github.com/Freeeeeet/therapy_scheduler/internal/repository"
	"github.com/Freeeeeet/therapy_scheduler/internal/scheduling"
	"github.com/Freeeeeet/therapy_scheduler/internal/service"
	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App собранные зависимости приложения
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	Bot        *bot.Bot // nil, если TELEGRAM_TOKEN не задан
	Sessions   *repository.SessionRepository
	Directory  *repository.WorkCalendarRepository
	Calendars  *repository.CachedCalendarLookup
	Scheduling *service.SchedulingService
	Agenda     *service.AgendaService
	Links      *service.LinkService
}

// New подключается к базе (и Redis, если задан) и собирает сервисы
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			// Redis необязателен: работаем только с кэшем в памяти
			logger.Warn("Redis unavailable, calendar cache stays in-process", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		}
	}

	calendarRepo := repository.NewWorkCalendarRepository(pool)
	calendars, err := repository.NewCachedCalendarLookup(calendarRepo, cfg.CalendarCacheSize, cfg.CalendarCacheTTL, redisClient, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	sessions := repository.NewSessionRepository(pool, cfg.Location, logger)

	var notifier interface {
		service.Notifier
		service.AgendaNotifier
	} = notify.Nop{}
	var telegramBot *bot.Bot
	if cfg.TelegramToken != "" {
		telegramBot, err = notify.NewTelegramBot(cfg.TelegramToken)
		if err != nil {
			pool.Close()
			return nil, err
		}
		notifier = notify.NewTelegramNotifier(telegramBot, logger)
	}

	clock := func() time.Time { return time.Now().In(cfg.Location) }

	return &App{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		Redis:     redisClient,
		Bot:       telegramBot,
		Sessions:  sessions,
		Directory: calendarRepo,
		Calendars: calendars,
		Scheduling: service.NewSchedulingService(calendars, sessions, logger,
			service.WithPolicy(scheduling.Policy{StrictLunch: cfg.StrictLunch}),
			service.WithClock(clock),
			service.WithNotifier(notifier),
		),
		Agenda: service.NewAgendaService(calendarRepo, sessions, notifier, logger),
		Links:  service.NewLinkService(calendars, repository.NewLinkCodeRepository(pool), logger),
	}, nil
}

// Close освобождает соединения
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.Pool.Close()
}

// NewPool создаёт пул соединений и проверяет доступность базы
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
