package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/Freeeeeet/therapy_scheduler/internal/scheduling"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier уведомления терапевта о результатах планирования.
// Вызывается только после успешного коммита, ошибки только логируются.
type Notifier interface {
	BatchScheduled(ctx context.Context, cal *model.WorkCalendar, batch model.ScheduleBatch) error
	SessionRescheduled(ctx context.Context, cal *model.WorkCalendar, session *model.Session) error
	StudentReassigned(ctx context.Context, cal *model.WorkCalendar, studentID int64, sessions int64) error
}

// BatchResult результат создания регулярного расписания
type BatchResult struct {
	BatchID    uuid.UUID
	SessionIDs []int64
	Sessions   model.ScheduleBatch
}

// ReassignResult результат смены терапевта у ученика
type ReassignResult struct {
	StudentID      int64
	NewTherapistID int64
	Reassigned     int64
}

// SchedulingService создание серий занятий, перенос и смена терапевта.
// Проверка конфликтов и запись выполняются под одной блокировкой набора
// занятий терапевта, поэтому параллельный запрос не может вклиниться между ними.
type SchedulingService struct {
	calendars scheduling.CalendarLookup
	sessions  scheduling.SessionStore
	policy    scheduling.Policy
	notifier  Notifier
	now       func() time.Time
	logger    *zap.Logger
}

// SchedulingOption настройка сервиса
type SchedulingOption func(*SchedulingService)

// WithPolicy задаёт политику проверки рабочего календаря
func WithPolicy(p scheduling.Policy) SchedulingOption {
	return func(s *SchedulingService) { s.policy = p }
}

// WithClock задаёт источник текущего времени
func WithClock(now func() time.Time) SchedulingOption {
	return func(s *SchedulingService) { s.now = now }
}

// WithNotifier задаёт канал уведомлений
func WithNotifier(n Notifier) SchedulingOption {
	return func(s *SchedulingService) { s.notifier = n }
}

func NewSchedulingService(
	calendars scheduling.CalendarLookup,
	sessions scheduling.SessionStore,
	logger *zap.Logger,
	opts ...SchedulingOption,
) *SchedulingService {
	s := &SchedulingService{
		calendars: calendars,
		sessions:  sessions,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleRecurring создаёт регулярное расписание целиком или не создаёт ничего
func (s *SchedulingService) ScheduleRecurring(ctx context.Context, req model.RecurrenceRequest) (*BatchResult, error) {
	log := s.logger.With(
		zap.Int64("therapist_id", req.TherapistID),
		zap.Int64("student_id", req.StudentID),
		zap.Int64("leccion_id", req.LeccionID),
		zap.Strings("weekdays", req.Weekdays),
		zap.String("time_of_day", req.TimeOfDay),
		zap.Int("duration_minutes", req.DurationMinutes),
		zap.Int("week_count", req.WeekCount),
	)

	// запрос проверяется до любого обращения к хранилищу
	batch, err := scheduling.Generate(req, s.now())
	if err != nil {
		log.Info("Recurrence request rejected", zap.Error(err))
		return nil, err
	}

	cal, err := s.lookupCalendar(ctx, req.TherapistID)
	if err != nil {
		log.Warn("Work calendar lookup failed", zap.Error(err))
		return nil, err
	}

	if v := s.policy.CheckAll(cal, batch); v != nil {
		log.Info("Candidate outside work calendar",
			zap.Time("candidate_start", v.Candidate.Start),
			zap.String("rule", string(v.Rule)))
		return nil, v
	}

	batchID := uuid.New()
	for _, candidate := range batch {
		candidate.BatchID = batchID
	}

	ids, err := s.commitWithRetry(ctx, log, lockTherapists(req.TherapistID), func(tx scheduling.SessionTx) ([]int64, error) {
		report, err := scheduling.NewDetector(tx).FindConflicts(ctx, req.TherapistID, batch)
		if err != nil {
			return nil, err
		}
		if err := report.Err(); err != nil {
			return nil, err
		}
		return tx.InsertSessions(ctx, batch)
	})
	if err != nil {
		s.logOutcome(log, "Recurring schedule rejected", err)
		return nil, err
	}

	log.Info("Recurring schedule created",
		zap.String("batch_id", batchID.String()),
		zap.Int("sessions", len(ids)))

	s.notify(log, func(n Notifier) error { return n.BatchScheduled(ctx, cal, batch) })

	return &BatchResult{BatchID: batchID, SessionIDs: ids, Sessions: batch}, nil
}

// RescheduleSession переносит одно занятие на новое время.
// Рабочий календарь при переносе не проверяется, только конфликты.
func (s *SchedulingService) RescheduleSession(ctx context.Context, sessionID int64, newStart time.Time, newDurationMinutes int) (*model.Session, error) {
	log := s.logger.With(
		zap.Int64("session_id", sessionID),
		zap.Time("new_start", newStart),
		zap.Int("duration_minutes", newDurationMinutes),
	)

	if newDurationMinutes <= 0 {
		err := fmt.Errorf("%w: duration must be positive, got %d", scheduling.ErrInvalidRequest, newDurationMinutes)
		log.Info("Reschedule rejected", zap.Error(err))
		return nil, err
	}

	// терапевт занятия читается заново перед каждой попыткой:
	// параллельная смена терапевта меняет и блокировку
	var lockedTherapist int64
	lockOwner := func() ([]int64, error) {
		current, err := s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return nil, scheduling.StorageError("get session", err)
		}
		if current == nil {
			return nil, fmt.Errorf("%w: %d", scheduling.ErrSessionNotFound, sessionID)
		}
		lockedTherapist = current.TherapistID
		return []int64{current.TherapistID}, nil
	}

	var updated *model.Session
	_, err := s.commitWithRetry(ctx, log, lockOwner, func(tx scheduling.SessionTx) ([]int64, error) {
		// перечитываем под блокировкой: терапевт мог смениться
		locked, err := tx.GetByID(ctx, sessionID)
		if err != nil {
			return nil, scheduling.StorageError("get session", err)
		}
		if locked == nil {
			return nil, fmt.Errorf("%w: %d", scheduling.ErrSessionNotFound, sessionID)
		}
		if locked.TherapistID != lockedTherapist {
			return nil, fmt.Errorf("%w: session %d changed therapist concurrently", scheduling.ErrSerialization, sessionID)
		}

		moved := *locked
		moved.Start = newStart
		moved.End = newStart.Add(time.Duration(newDurationMinutes) * time.Minute)
		moved.DurationMinutes = newDurationMinutes

		report, err := scheduling.NewDetector(tx).FindConflicts(ctx, moved.TherapistID, model.ScheduleBatch{&moved}, sessionID)
		if err != nil {
			return nil, err
		}
		if err := report.Err(); err != nil {
			return nil, err
		}

		if err := tx.UpdateSession(ctx, sessionID, moved.Start, moved.End, moved.DurationMinutes); err != nil {
			return nil, err
		}

		updated = &moved
		return []int64{sessionID}, nil
	})
	if err != nil {
		s.logOutcome(log, "Reschedule rejected", err)
		return nil, err
	}

	log.Info("Session rescheduled", zap.Int64("therapist_id", updated.TherapistID))

	s.notifyTherapist(ctx, log, updated.TherapistID, func(n Notifier, cal *model.WorkCalendar) error {
		return n.SessionRescheduled(ctx, cal, updated)
	})

	return updated, nil
}

// ReassignTherapist переводит все занятия ученика к новому терапевту.
// Каждое занятие проверяется на конфликты с расписанием нового терапевта
// (рабочий календарь не проверяется); первый конфликт отменяет перевод целиком.
func (s *SchedulingService) ReassignTherapist(ctx context.Context, studentID, newTherapistID int64) (*ReassignResult, error) {
	log := s.logger.With(
		zap.Int64("student_id", studentID),
		zap.Int64("new_therapist_id", newTherapistID),
	)

	cal, err := s.lookupCalendar(ctx, newTherapistID)
	if err != nil {
		log.Warn("Work calendar lookup failed", zap.Error(err))
		return nil, err
	}

	var reassigned int64
	_, err = s.commitWithRetry(ctx, log, lockTherapists(newTherapistID), func(tx scheduling.SessionTx) ([]int64, error) {
		sessions, err := tx.ListByStudentID(ctx, studentID)
		if err != nil {
			return nil, scheduling.StorageError("list student sessions", err)
		}
		if len(sessions) == 0 {
			return nil, nil
		}

		// занятия ученика, уже закреплённые за новым терапевтом, не конфликтуют сами с собой
		own := make([]int64, 0, len(sessions))
		for _, session := range sessions {
			own = append(own, session.ID)
		}

		detector := scheduling.NewDetector(tx)
		for _, session := range sortedByStart(sessions) {
			report, err := detector.FindConflicts(ctx, newTherapistID, model.ScheduleBatch{session}, own...)
			if err != nil {
				return nil, err
			}
			if err := report.Err(); err != nil {
				return nil, err
			}
		}

		// после перевода все занятия ученика окажутся у одного терапевта
		if collisions := scheduling.InternalCollisions(sessions); len(collisions) > 0 {
			return nil, &scheduling.ConflictError{Internal: collisions[:1]}
		}

		n, err := tx.ReassignStudentSessions(ctx, studentID, newTherapistID)
		if err != nil {
			return nil, err
		}
		reassigned = n
		return nil, nil
	})
	if err != nil {
		s.logOutcome(log, "Therapist reassignment rejected", err)
		return nil, err
	}

	log.Info("Student sessions reassigned", zap.Int64("sessions", reassigned))

	if reassigned > 0 {
		s.notify(log, func(n Notifier) error { return n.StudentReassigned(ctx, cal, studentID, reassigned) })
	}

	return &ReassignResult{StudentID: studentID, NewTherapistID: newTherapistID, Reassigned: reassigned}, nil
}

// GetBatch возвращает занятия одной серии в порядке начала
func (s *SchedulingService) GetBatch(ctx context.Context, batchID uuid.UUID) (model.ScheduleBatch, error) {
	sessions, err := s.sessions.GetByBatchID(ctx, batchID)
	if err != nil {
		s.logger.Error("Failed to get batch", zap.String("batch_id", batchID.String()), zap.Error(err))
		return nil, scheduling.StorageError("get batch", err)
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("%w: batch %s", scheduling.ErrSessionNotFound, batchID)
	}
	return model.ScheduleBatch(sessions), nil
}

func (s *SchedulingService) lookupCalendar(ctx context.Context, therapistID int64) (*model.WorkCalendar, error) {
	cal, err := s.calendars.GetWorkCalendar(ctx, therapistID)
	if err != nil {
		return nil, scheduling.StorageError("get work calendar", err)
	}
	if cal == nil {
		return nil, fmt.Errorf("%w: %d", scheduling.ErrTherapistNotFound, therapistID)
	}
	return cal, nil
}

// lockTherapists набор блокировок, не зависящий от попытки
func lockTherapists(ids ...int64) func() ([]int64, error) {
	return func() ([]int64, error) { return ids, nil }
}

// commitWithRetry выполняет проверку и запись под блокировкой терапевтов.
// lockIDs вызывается перед каждой попыткой и определяет, чьи наборы занятий блокировать.
// Сбой сериализации повторяется один раз, повторный сбой считается конфликтом.
func (s *SchedulingService) commitWithRetry(ctx context.Context, log *zap.Logger, lockIDs func() ([]int64, error), fn func(tx scheduling.SessionTx) ([]int64, error)) ([]int64, error) {
	var ids []int64
	run := func() error {
		therapistIDs, err := lockIDs()
		if err != nil {
			return err
		}
		return s.sessions.WithTherapistLock(ctx, therapistIDs, func(tx scheduling.SessionTx) error {
			var err error
			ids, err = fn(tx)
			return err
		})
	}

	err := run()
	if errors.Is(err, scheduling.ErrSerialization) {
		log.Warn("Serialization failure, retrying once", zap.Error(err))
		err = run()
		if errors.Is(err, scheduling.ErrSerialization) {
			return nil, &scheduling.ConflictError{}
		}
	}

	return ids, classify(err)
}

// classify приводит ошибку хранилища к виду из таксономии планирования
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scheduling.ErrOverlapRejected):
		return &scheduling.ConflictError{}
	case errors.Is(err, scheduling.ErrInvalidRequest),
		errors.Is(err, scheduling.ErrSessionNotFound),
		errors.Is(err, scheduling.ErrTherapistNotFound),
		errors.Is(err, scheduling.ErrWorkHoursViolation),
		errors.Is(err, scheduling.ErrScheduleConflict),
		errors.Is(err, scheduling.ErrStorageFailure):
		return err
	default:
		return scheduling.StorageError("commit", err)
	}
}

func (s *SchedulingService) logOutcome(log *zap.Logger, msg string, err error) {
	var conflict *scheduling.ConflictError
	switch {
	case errors.As(err, &conflict):
		log.Info(msg,
			zap.Int("conflicting_sessions", len(conflict.Conflicts)),
			zap.Int("internal_collisions", len(conflict.Internal)),
			zap.Error(err))
	case errors.Is(err, scheduling.ErrCommitUnknown):
		log.Error("Commit outcome unknown, re-query before retrying", zap.Error(err))
	case errors.Is(err, scheduling.ErrStorageFailure):
		log.Error(msg, zap.Error(err))
	default:
		log.Info(msg, zap.Error(err))
	}
}

func (s *SchedulingService) notify(log *zap.Logger, send func(Notifier) error) {
	if s.notifier == nil {
		return
	}
	if err := send(s.notifier); err != nil {
		log.Warn("Failed to send notification", zap.Error(err))
	}
}

func (s *SchedulingService) notifyTherapist(ctx context.Context, log *zap.Logger, therapistID int64, send func(Notifier, *model.WorkCalendar) error) {
	if s.notifier == nil {
		return
	}

	cal, err := s.calendars.GetWorkCalendar(ctx, therapistID)
	if err != nil || cal == nil {
		log.Warn("Cannot notify therapist without calendar",
			zap.Int64("therapist_id", therapistID),
			zap.Error(err))
		return
	}

	s.notify(log, func(n Notifier) error { return send(n, cal) })
}

func sortedByStart(sessions []*model.Session) []*model.Session {
	sorted := append([]*model.Session(nil), sessions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})
	return sorted
}
