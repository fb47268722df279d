package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/notify"
	"github.com/Freeeeeet/therapy_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "📚 Comandos disponibles:\n\n" +
	"/vincular <código> - Vincular este chat a su calendario de terapeuta\n" +
	"/desvincular - Dejar de recibir notificaciones\n" +
	"/hoy - Sesiones de hoy\n" +
	"/agenda - Sesiones de mañana\n" +
	"/help - Mostrar esta ayuda"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.start(ctx, b, update)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleLink обрабатывает команду /vincular <код>
func (h *Handlers) HandleLink(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.link(ctx, b, update)
}

// HandleUnlink обрабатывает команду /desvincular
func (h *Handlers) HandleUnlink(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.unlink(ctx, b, update)
}

// HandleToday обрабатывает команду /hoy
func (h *Handlers) HandleToday(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.agenda(ctx, b, update, 0)
}

// HandleAgenda обрабатывает команду /agenda - занятия на завтра
func (h *Handlers) HandleAgenda(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.agenda(ctx, b, update, 1)
}

func (h *Handlers) start(ctx context.Context, b sender, update *models.Update) {
	if update.Message == nil {
		return
	}

	name := ""
	if update.Message.From != nil {
		name = update.Message.From.FirstName
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		fmt.Sprintf("👋 ¡Hola, %s!\n\nEste bot le avisa de las sesiones programadas.\n\n%s", name, helpText))
}

func (h *Handlers) link(ctx context.Context, b sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	fields := strings.Fields(update.Message.Text)
	if len(fields) != 2 {
		h.sendError(ctx, b, chatID, "❌ Uso: /vincular <código>\n\nEl código se lo entrega el administrador.")
		return
	}

	// чат мог быть привязан к другому терапевту, его кэш тоже сбрасываем
	previous, err := h.directory.GetByTelegramChatID(ctx, chatID)
	if err != nil {
		h.logger.Error("Failed to get calendar by chat", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Ocurrió un error. Inténtelo más tarde.")
		return
	}

	linkCode, err := h.links.RedeemLinkCode(ctx, fields[1], chatID)
	if errors.Is(err, service.ErrLinkCodeInvalid) {
		h.sendError(ctx, b, chatID, "❌ El código no es válido o ha caducado. Pida uno nuevo al administrador.")
		return
	}
	if err != nil {
		h.logger.Error("Failed to redeem link code", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Ocurrió un error. Inténtelo más tarde.")
		return
	}

	therapistID := linkCode.TherapistID
	h.cache.Invalidate(ctx, therapistID)
	if previous != nil && previous.TherapistID != therapistID {
		h.cache.Invalidate(ctx, previous.TherapistID)
	}

	h.sendMessage(ctx, b, chatID,
		fmt.Sprintf("✅ Chat vinculado al terapeuta %d. Recibirá avisos de nuevas sesiones y la agenda diaria.", therapistID))
}

func (h *Handlers) unlink(ctx context.Context, b sender, update *models.Update) {
	cal, ok := h.requireTherapist(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	if _, err := h.directory.UnlinkTelegramChat(ctx, cal.TherapistID); err != nil {
		h.logger.Error("Failed to unlink telegram chat",
			zap.Int64("therapist_id", cal.TherapistID),
			zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Ocurrió un error. Inténtelo más tarde.")
		return
	}

	h.cache.Invalidate(ctx, cal.TherapistID)

	h.sendMessage(ctx, b, chatID, "✅ Chat desvinculado. Ya no recibirá notificaciones.")
}

// agenda показывает занятия терапевта на день, сдвинутый на offset дней от сегодня
func (h *Handlers) agenda(ctx context.Context, b sender, update *models.Update, offset int) {
	cal, ok := h.requireTherapist(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	now := h.now().In(h.loc)
	from := time.Date(now.Year(), now.Month(), now.Day()+offset, 0, 0, 0, 0, h.loc)
	to := from.AddDate(0, 0, 1)

	sessions, err := h.sessions.ListByTherapistBetween(ctx, cal.TherapistID, from, to)
	if err != nil {
		h.logger.Error("Failed to list therapist sessions",
			zap.Int64("therapist_id", cal.TherapistID),
			zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Ocurrió un error. Inténtelo más tarde.")
		return
	}

	if len(sessions) == 0 {
		h.sendMessage(ctx, b, chatID, fmt.Sprintf("📭 No hay sesiones el %s.", notify.FormatDate(from)))
		return
	}

	h.sendMessage(ctx, b, chatID, notify.AgendaText(from, sessions))
}
