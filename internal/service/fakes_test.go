package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/Freeeeeet/therapy_scheduler/internal/scheduling"
	"github.com/google/uuid"
)

// 2026-10-18 - воскресенье, 2026-10-19 - понедельник
var testNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 10, day, hour, minute, 0, 0, time.UTC)
}

func officeCalendar(therapistID int64) *model.WorkCalendar {
	chatID := therapistID * 100
	return &model.WorkCalendar{
		TherapistID:    therapistID,
		WorkDays:       []model.WeekDay{model.Monday, model.Tuesday, model.Wednesday, model.Thursday, model.Friday},
		WorkStart:      model.MustTimeOfDay("08:00"),
		WorkEnd:        model.MustTimeOfDay("16:00"),
		LunchStart:     model.MustTimeOfDay("12:00"),
		LunchEnd:       model.MustTimeOfDay("13:00"),
		TelegramChatID: &chatID,
	}
}

// fakeCalendars календари в памяти со счётчиком обращений
type fakeCalendars struct {
	mu        sync.Mutex
	calendars map[int64]*model.WorkCalendar
	calls     int
	err       error
}

func newFakeCalendars(cals ...*model.WorkCalendar) *fakeCalendars {
	f := &fakeCalendars{calendars: make(map[int64]*model.WorkCalendar)}
	for _, cal := range cals {
		f.calendars[cal.TherapistID] = cal
	}
	return f
}

func (f *fakeCalendars) GetWorkCalendar(_ context.Context, therapistID int64) (*model.WorkCalendar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cal, ok := f.calendars[therapistID]
	if !ok {
		return nil, nil
	}
	return cal.Clone(), nil
}

func (f *fakeCalendars) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memStore хранилище занятий в памяти. Транзакции выполняются строго по одной,
// запись применяется только при успешном завершении fn.
type memStore struct {
	txMu sync.Mutex

	mu       sync.Mutex
	sessions map[int64]*model.Session
	nextID   int64
	attempts int

	// сколько ближайших транзакций завершится сбоем сериализации
	serializationFailures int
	// ошибка, которую вернёт коммит
	commitErr error
}

func newMemStore(sessions ...*model.Session) *memStore {
	s := &memStore{sessions: make(map[int64]*model.Session), nextID: 100}
	for _, session := range sessions {
		cp := *session
		s.sessions[session.ID] = &cp
	}
	return s
}

func (s *memStore) GetByID(_ context.Context, id int64) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *session
	return &cp, nil
}

func (s *memStore) GetByBatchID(_ context.Context, batchID uuid.UUID) ([]*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Session
	for _, session := range s.sessions {
		if session.BatchID == batchID {
			cp := *session
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *memStore) WithTherapistLock(_ context.Context, _ []int64, fn func(tx scheduling.SessionTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.attempts++
	tx := &memTx{sessions: make(map[int64]*model.Session, len(s.sessions)), nextID: s.nextID}
	for id, session := range s.sessions {
		cp := *session
		tx.sessions[id] = &cp
	}
	failSerialization := s.serializationFailures > 0
	if failSerialization {
		s.serializationFailures--
	}
	commitErr := s.commitErr
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}
	if failSerialization {
		return fmt.Errorf("commit tx: %w", scheduling.ErrSerialization)
	}
	if commitErr != nil {
		return commitErr
	}

	s.mu.Lock()
	s.sessions = tx.sessions
	s.nextID = tx.nextID
	s.mu.Unlock()
	return nil
}

func (s *memStore) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *memStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *memStore) ByTherapist(therapistID int64) []*model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Session
	for _, session := range s.sessions {
		if session.TherapistID == therapistID {
			cp := *session
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

type memTx struct {
	sessions map[int64]*model.Session
	nextID   int64
}

func (t *memTx) FindOverlapping(_ context.Context, therapistID int64, from, to time.Time, excludeID *int64) ([]*model.Session, error) {
	window := model.Span{Start: from, End: to}
	var out []*model.Session
	for _, session := range t.sessions {
		if session.TherapistID != therapistID {
			continue
		}
		if excludeID != nil && session.ID == *excludeID {
			continue
		}
		if scheduling.Overlaps(session.Span(), window) {
			cp := *session
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (t *memTx) GetByID(_ context.Context, id int64) (*model.Session, error) {
	session, ok := t.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *session
	return &cp, nil
}

func (t *memTx) ListByStudentID(_ context.Context, studentID int64) ([]*model.Session, error) {
	var out []*model.Session
	for _, session := range t.sessions {
		if session.StudentID == studentID {
			cp := *session
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (t *memTx) InsertSessions(_ context.Context, batch model.ScheduleBatch) ([]int64, error) {
	ids := make([]int64, 0, len(batch))
	for _, session := range batch {
		t.nextID++
		session.ID = t.nextID
		cp := *session
		t.sessions[cp.ID] = &cp
		ids = append(ids, cp.ID)
	}
	return ids, nil
}

func (t *memTx) UpdateSession(_ context.Context, id int64, start, end time.Time, durationMinutes int) error {
	session, ok := t.sessions[id]
	if !ok {
		return fmt.Errorf("update session %d: not found", id)
	}
	session.Start = start
	session.End = end
	session.DurationMinutes = durationMinutes
	return nil
}

func (t *memTx) ReassignStudentSessions(_ context.Context, studentID, newTherapistID int64) (int64, error) {
	var n int64
	for _, session := range t.sessions {
		if session.StudentID == studentID {
			session.TherapistID = newTherapistID
			n++
		}
	}
	return n, nil
}

// recordingNotifier запоминает уведомления
type recordingNotifier struct {
	mu          sync.Mutex
	batches     []model.ScheduleBatch
	rescheduled []*model.Session
	reassigned  []int64
	err         error
}

func (n *recordingNotifier) BatchScheduled(_ context.Context, _ *model.WorkCalendar, batch model.ScheduleBatch) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, batch)
	return n.err
}

func (n *recordingNotifier) SessionRescheduled(_ context.Context, _ *model.WorkCalendar, session *model.Session) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rescheduled = append(n.rescheduled, session)
	return n.err
}

func (n *recordingNotifier) StudentReassigned(_ context.Context, _ *model.WorkCalendar, studentID int64, _ int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reassigned = append(n.reassigned, studentID)
	return n.err
}

func existing(id, therapistID, studentID int64, start time.Time, minutes int) *model.Session {
	return &model.Session{
		ID:              id,
		TherapistID:     therapistID,
		StudentID:       studentID,
		Start:           start,
		End:             start.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes: minutes,
	}
}

// movingStore имитирует параллельную смену терапевта: сразу после первого
// чтения вне блокировки занятие переходит к другому терапевту
type movingStore struct {
	*memStore
	moveTo int64
	moved  bool
}

func (s *movingStore) GetByID(ctx context.Context, id int64) (*model.Session, error) {
	session, err := s.memStore.GetByID(ctx, id)
	if err != nil || session == nil || s.moved {
		return session, err
	}

	s.moved = true
	s.mu.Lock()
	s.sessions[id].TherapistID = s.moveTo
	s.mu.Unlock()

	return session, nil
}
