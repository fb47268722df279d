package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// MessageSender часть API бота, которая нужна для уведомлений
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier отправляет уведомления терапевтам в Telegram.
// Терапевты без telegram_chat_id пропускаются.
type TelegramNotifier struct {
	sender MessageSender
	logger *zap.Logger
}

// NewTelegramBot создаёт клиента бота по токену
func NewTelegramBot(token string) (*bot.Bot, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return b, nil
}

func NewTelegramNotifier(sender MessageSender, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, logger: logger}
}

func (n *TelegramNotifier) BatchScheduled(ctx context.Context, cal *model.WorkCalendar, batch model.ScheduleBatch) error {
	return n.send(ctx, cal, batchScheduledText(batch))
}

func (n *TelegramNotifier) SessionRescheduled(ctx context.Context, cal *model.WorkCalendar, session *model.Session) error {
	return n.send(ctx, cal, sessionRescheduledText(session))
}

func (n *TelegramNotifier) StudentReassigned(ctx context.Context, cal *model.WorkCalendar, studentID int64, sessions int64) error {
	return n.send(ctx, cal, studentReassignedText(studentID, sessions))
}

func (n *TelegramNotifier) Agenda(ctx context.Context, cal *model.WorkCalendar, day time.Time, sessions []*model.Session) error {
	return n.send(ctx, cal, AgendaText(day, sessions))
}

func (n *TelegramNotifier) send(ctx context.Context, cal *model.WorkCalendar, text string) error {
	if cal.TelegramChatID == nil {
		n.logger.Debug("Therapist has no telegram chat, skipping notification",
			zap.Int64("therapist_id", cal.TherapistID))
		return nil
	}

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *cal.TelegramChatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message to therapist %d: %w", cal.TherapistID, err)
	}

	return nil
}

// Nop уведомления отключены (TELEGRAM_TOKEN не задан)
type Nop struct{}

func (Nop) BatchScheduled(context.Context, *model.WorkCalendar, model.ScheduleBatch) error {
	return nil
}

func (Nop) SessionRescheduled(context.Context, *model.WorkCalendar, *model.Session) error {
	return nil
}

func (Nop) StudentReassigned(context.Context, *model.WorkCalendar, int64, int64) error {
	return nil
}

func (Nop) Agenda(context.Context, *model.WorkCalendar, time.Time, []*model.Session) error {
	return nil
}
