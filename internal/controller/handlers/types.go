package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/Freeeeeet/therapy_scheduler/internal/notify"
	"go.uber.org/zap"
)

// TherapistDirectory поиск и отвязка чатов Telegram
type TherapistDirectory interface {
	GetByTelegramChatID(ctx context.Context, chatID int64) (*model.WorkCalendar, error)
	UnlinkTelegramChat(ctx context.Context, therapistID int64) (bool, error)
}

// ChatLinker привязка чата по одноразовому коду
type ChatLinker interface {
	RedeemLinkCode(ctx context.Context, code string, chatID int64) (*model.LinkCode, error)
}

// TherapistSessions занятия терапевта за период
type TherapistSessions interface {
	ListByTherapistBetween(ctx context.Context, therapistID int64, from, to time.Time) ([]*model.Session, error)
}

// CalendarInvalidator сброс кэша календаря после изменения привязки
type CalendarInvalidator interface {
	Invalidate(ctx context.Context, therapistID int64)
}

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	directory TherapistDirectory
	links     ChatLinker
	sessions  TherapistSessions
	cache     CalendarInvalidator
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	directory TherapistDirectory,
	links ChatLinker,
	sessions TherapistSessions,
	cache CalendarInvalidator,
	loc *time.Location,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		directory: directory,
		links:     links,
		sessions:  sessions,
		cache:     cache,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// sender то, чем отвечают обработчики (*bot.Bot в рабочем режиме)
type sender = notify.MessageSender
