package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifiable struct {
	calendars []*model.WorkCalendar
	err       error
}

func (f *fakeNotifiable) ListNotifiable(context.Context) ([]*model.WorkCalendar, error) {
	return f.calendars, f.err
}

type fakeLister struct {
	sessions []*model.Session
	from, to time.Time
	calls    int
}

func (f *fakeLister) ListBetween(_ context.Context, from, to time.Time) ([]*model.Session, error) {
	f.calls++
	f.from, f.to = from, to
	return f.sessions, nil
}

type agendaCall struct {
	therapistID int64
	day         time.Time
	sessions    int
}

type recordingAgendaNotifier struct {
	calls  []agendaCall
	failOn int64
}

func (n *recordingAgendaNotifier) Agenda(_ context.Context, cal *model.WorkCalendar, day time.Time, sessions []*model.Session) error {
	if cal.TherapistID == n.failOn {
		return errors.New("chat not found")
	}
	n.calls = append(n.calls, agendaCall{therapistID: cal.TherapistID, day: day, sessions: len(sessions)})
	return nil
}

func TestAgendaService_SendAgenda(t *testing.T) {
	calendars := &fakeNotifiable{calendars: []*model.WorkCalendar{officeCalendar(1), officeCalendar(2), officeCalendar(3)}}
	lister := &fakeLister{sessions: []*model.Session{
		existing(5, 1, 10, at(19, 9, 0), 45),
		existing(6, 1, 11, at(19, 10, 0), 45),
		existing(7, 3, 12, at(19, 9, 0), 45),
	}}
	notifier := &recordingAgendaNotifier{}
	svc := NewAgendaService(calendars, lister, notifier, zap.NewNop())

	sent, err := svc.SendAgenda(context.Background(), at(19, 20, 0))
	require.NoError(t, err)

	assert.Equal(t, 2, sent)
	assert.Equal(t, at(19, 0, 0), lister.from)
	assert.Equal(t, at(20, 0, 0), lister.to)
	assert.Equal(t, []agendaCall{
		{therapistID: 1, day: at(19, 0, 0), sessions: 2},
		{therapistID: 3, day: at(19, 0, 0), sessions: 1},
	}, notifier.calls)
}

func TestAgendaService_NotifierFailureSkipsTherapist(t *testing.T) {
	calendars := &fakeNotifiable{calendars: []*model.WorkCalendar{officeCalendar(1), officeCalendar(3)}}
	lister := &fakeLister{sessions: []*model.Session{
		existing(5, 1, 10, at(19, 9, 0), 45),
		existing(7, 3, 12, at(19, 9, 0), 45),
	}}
	notifier := &recordingAgendaNotifier{failOn: 1}
	svc := NewAgendaService(calendars, lister, notifier, zap.NewNop())

	sent, err := svc.SendAgenda(context.Background(), at(19, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestAgendaService_NoCalendars(t *testing.T) {
	lister := &fakeLister{}
	svc := NewAgendaService(&fakeNotifiable{}, lister, &recordingAgendaNotifier{}, zap.NewNop())

	sent, err := svc.SendAgenda(context.Background(), at(19, 0, 0))
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, lister.calls)
}

func TestAgendaService_ListError(t *testing.T) {
	svc := NewAgendaService(&fakeNotifiable{err: errors.New("db down")}, &fakeLister{}, &recordingAgendaNotifier{}, zap.NewNop())

	_, err := svc.SendAgenda(context.Background(), at(19, 0, 0))
	assert.ErrorContains(t, err, "list notifiable calendars")
}
