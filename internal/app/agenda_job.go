package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AgendaSender отправка расписания на день
type AgendaSender interface {
	SendAgenda(ctx context.Context, day time.Time) (int, error)
}

// AgendaJob раз в день в заданный час рассылает терапевтам расписание на завтра
type AgendaJob struct {
	agenda   AgendaSender
	hour     int
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewAgendaJob создаёт задачу рассылки
func NewAgendaJob(agenda AgendaSender, hour int, loc *time.Location, logger *zap.Logger) *AgendaJob {
	return &AgendaJob{
		agenda:   agenda,
		hour:     hour,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает задачу в фоне
func (j *AgendaJob) Start(ctx context.Context) {
	j.logger.Info("Starting agenda job", zap.Int("hour", j.hour))
	go j.run(ctx)
}

// Stop останавливает задачу
func (j *AgendaJob) Stop() {
	j.logger.Info("Stopping agenda job")
	close(j.stopChan)
}

func (j *AgendaJob) run(ctx context.Context) {
	for {
		next := nextRun(j.now().In(j.loc), j.hour)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			j.sendTomorrow(ctx, next)
		case <-j.stopChan:
			timer.Stop()
			j.logger.Info("Agenda job stopped")
			return
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("Agenda job cancelled")
			return
		}
	}
}

func (j *AgendaJob) sendTomorrow(ctx context.Context, at time.Time) {
	tomorrow := at.AddDate(0, 0, 1)

	sent, err := j.agenda.SendAgenda(ctx, tomorrow)
	if err != nil {
		j.logger.Error("Failed to send agenda", zap.Error(err))
		return
	}

	j.logger.Info("Agenda job completed",
		zap.String("day", tomorrow.Format("2006-01-02")),
		zap.Int("messages", sent))
}

// nextRun ближайший момент hour:00 строго после now
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, 0, 0, 0, now.Location())
	}
	return next
}
