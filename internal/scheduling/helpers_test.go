package scheduling

import (
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
)

// 2026-10-19 - понедельник
func at(day, hour, minute int) time.Time {
	return time.Date(2026, 10, day, hour, minute, 0, 0, time.UTC)
}

func session(id int64, start time.Time, minutes int) *model.Session {
	return &model.Session{
		ID:              id,
		TherapistID:     1,
		StudentID:       10,
		Start:           start,
		End:             start.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes: minutes,
	}
}

func span(start time.Time, minutes int) model.Span {
	return model.Span{Start: start, End: start.Add(time.Duration(minutes) * time.Minute)}
}
