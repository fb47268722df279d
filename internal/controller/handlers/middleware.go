package handlers

import (
	"context"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireTherapist находит календарь терапевта, привязавшего этот чат.
// Возвращает календарь и true если OK, nil и false если нет.
func (h *Handlers) requireTherapist(ctx context.Context, b sender, update *models.Update) (*model.WorkCalendar, bool) {
	if update.Message == nil {
		return nil, false
	}

	chatID := update.Message.Chat.ID
	cal, err := h.directory.GetByTelegramChatID(ctx, chatID)
	if err != nil {
		h.logger.Error("Failed to get calendar by chat", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendError(ctx, b, chatID, "❌ Ocurrió un error. Inténtelo más tarde.")
		return nil, false
	}

	if cal == nil {
		h.sendError(ctx, b, chatID, "❌ Este chat no está vinculado a ningún terapeuta.\n\nUse /vincular <código>.")
		return nil, false
	}

	return cal, true
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b sender, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b sender, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
