package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"go.uber.org/zap"
)

// AgendaNotifier отправка расписания на день
type AgendaNotifier interface {
	Agenda(ctx context.Context, cal *model.WorkCalendar, day time.Time, sessions []*model.Session) error
}

// NotifiableCalendars календари терапевтов с подключёнными уведомлениями
type NotifiableCalendars interface {
	ListNotifiable(ctx context.Context) ([]*model.WorkCalendar, error)
}

// SessionLister выборка занятий за период
type SessionLister interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]*model.Session, error)
}

// AgendaService рассылает терапевтам их занятия на день
type AgendaService struct {
	calendars NotifiableCalendars
	sessions  SessionLister
	notifier  AgendaNotifier
	logger    *zap.Logger
}

func NewAgendaService(calendars NotifiableCalendars, sessions SessionLister, notifier AgendaNotifier, logger *zap.Logger) *AgendaService {
	return &AgendaService{
		calendars: calendars,
		sessions:  sessions,
		notifier:  notifier,
		logger:    logger,
	}
}

// SendAgenda отправляет каждому терапевту его занятия на день day.
// Терапевтам без занятий сообщение не отправляется. Возвращает число отправленных сообщений.
func (s *AgendaService) SendAgenda(ctx context.Context, day time.Time) (int, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	calendars, err := s.calendars.ListNotifiable(ctx)
	if err != nil {
		return 0, fmt.Errorf("list notifiable calendars: %w", err)
	}

	if len(calendars) == 0 {
		return 0, nil
	}

	sessions, err := s.sessions.ListBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	byTherapist := make(map[int64][]*model.Session)
	for _, session := range sessions {
		byTherapist[session.TherapistID] = append(byTherapist[session.TherapistID], session)
	}

	sent := 0
	for _, cal := range calendars {
		agenda := byTherapist[cal.TherapistID]
		if len(agenda) == 0 {
			continue
		}

		if err := s.notifier.Agenda(ctx, cal, from, agenda); err != nil {
			s.logger.Warn("Failed to send agenda",
				zap.Int64("therapist_id", cal.TherapistID),
				zap.Error(err))
			continue
		}
		sent++
	}

	s.logger.Info("Agenda sent",
		zap.String("day", from.Format("2006-01-02")),
		zap.Int("therapists", len(calendars)),
		zap.Int("messages", sent))

	return sent, nil
}
