package service

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/Freeeeeet/therapy_scheduler/internal/scheduling"
	"go.uber.org/zap"
)

// ErrLinkCodeInvalid кода нет, он уже использован или истёк
var ErrLinkCodeInvalid = errors.New("link code is invalid or expired")

// LinkCodeStore хранилище кодов привязки.
// Redeem возвращает (nil, nil), если код нельзя погасить.
type LinkCodeStore interface {
	Create(ctx context.Context, code *model.LinkCode) error
	CodeExists(ctx context.Context, code string) (bool, error)
	Redeem(ctx context.Context, code string, chatID int64, now time.Time) (*model.LinkCode, error)
}

// LinkService выдача и погашение одноразовых кодов привязки чата.
// Код выдаёт администратор (команда link-code), терапевт отправляет его боту.
type LinkService struct {
	calendars scheduling.CalendarLookup
	codes     LinkCodeStore
	now       func() time.Time
	logger    *zap.Logger
}

func NewLinkService(calendars scheduling.CalendarLookup, codes LinkCodeStore, logger *zap.Logger) *LinkService {
	return &LinkService{
		calendars: calendars,
		codes:     codes,
		now:       time.Now,
		logger:    logger,
	}
}

// CreateLinkCode выдаёт код для терапевта, действующий ttl
func (s *LinkService) CreateLinkCode(ctx context.Context, therapistID int64, ttl time.Duration) (*model.LinkCode, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: link code ttl must be positive, got %s", scheduling.ErrInvalidRequest, ttl)
	}

	cal, err := s.calendars.GetWorkCalendar(ctx, therapistID)
	if err != nil {
		return nil, scheduling.StorageError("get work calendar", err)
	}
	if cal == nil {
		return nil, fmt.Errorf("%w: %d", scheduling.ErrTherapistNotFound, therapistID)
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate link code: %w", err)
	}

	linkCode := &model.LinkCode{
		Code:        code,
		TherapistID: therapistID,
		ExpiresAt:   s.now().Add(ttl),
	}

	if err := s.codes.Create(ctx, linkCode); err != nil {
		return nil, scheduling.StorageError("create link code", err)
	}

	s.logger.Info("Link code created",
		zap.Int64("therapist_id", therapistID),
		zap.Time("expires_at", linkCode.ExpiresAt))

	return linkCode, nil
}

// RedeemLinkCode привязывает чат к терапевту, которому выдан код
func (s *LinkService) RedeemLinkCode(ctx context.Context, code string, chatID int64) (*model.LinkCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrLinkCodeInvalid
	}

	linkCode, err := s.codes.Redeem(ctx, code, chatID, s.now())
	if err != nil {
		return nil, scheduling.StorageError("redeem link code", err)
	}
	if linkCode == nil {
		s.logger.Info("Link code rejected", zap.Int64("chat_id", chatID))
		return nil, ErrLinkCodeInvalid
	}

	s.logger.Info("Telegram chat linked",
		zap.Int64("therapist_id", linkCode.TherapistID),
		zap.Int64("chat_id", chatID))

	return linkCode, nil
}

// generateCode генерирует уникальный код из 8 символов base32
func (s *LinkService) generateCode(ctx context.Context) (string, error) {
	const maxAttempts = 10

	for i := 0; i < maxAttempts; i++ {
		bytes := make([]byte, 6)
		if _, err := rand.Read(bytes); err != nil {
			return "", fmt.Errorf("generate random bytes: %w", err)
		}

		code := strings.TrimRight(base32.StdEncoding.EncodeToString(bytes), "=")
		if len(code) > 8 {
			code = code[:8]
		}

		exists, err := s.codes.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code exists: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique code after %d attempts", maxAttempts)
}
