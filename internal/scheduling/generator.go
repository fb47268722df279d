package scheduling

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
)

// Generate разворачивает запрос в список кандидатов относительно момента now.
//
// Для каждого дня недели (воскресенье -> суббота) берётся первая дата не раньше
// now; если это сегодня и время уже прошло (или равно текущему), первая дата
// сдвигается на неделю. Дальше WeekCount дат с шагом 7 дней.
// Размер серии всегда |weekdays| * WeekCount.
func Generate(req model.RecurrenceRequest, now time.Time) (model.ScheduleBatch, error) {
	days, tod, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	batch := make(model.ScheduleBatch, 0, len(days)*req.WeekCount)

	for _, day := range days {
		offset := (int(day) - int(now.Weekday()) + 7) % 7
		first := tod.On(now.AddDate(0, 0, offset))
		if offset == 0 && !first.After(now) {
			first = tod.On(now.AddDate(0, 0, 7))
		}

		for week := 0; week < req.WeekCount; week++ {
			// через AddDate, чтобы при переходе на летнее время час не съезжал
			start := tod.On(first.AddDate(0, 0, week*7))
			batch = append(batch, &model.Session{
				TherapistID:     req.TherapistID,
				StudentID:       req.StudentID,
				LeccionID:       req.LeccionID,
				Start:           start,
				End:             start.Add(duration),
				DurationMinutes: req.DurationMinutes,
			})
		}
	}

	return batch, nil
}

// validateRequest проверяет запрос до любого обращения к хранилищу.
// Возвращает дни недели без повторов в порядке воскресенье -> суббота.
func validateRequest(req model.RecurrenceRequest) ([]model.WeekDay, model.TimeOfDay, error) {
	if len(req.Weekdays) == 0 {
		return nil, 0, invalidRequest("at least one weekday is required")
	}

	if req.DurationMinutes <= 0 {
		return nil, 0, invalidRequest("duration must be positive, got %d", req.DurationMinutes)
	}

	if req.WeekCount < 1 {
		return nil, 0, invalidRequest("week count must be at least 1, got %d", req.WeekCount)
	}

	tod, err := model.ParseTimeOfDay(req.TimeOfDay)
	if err != nil {
		return nil, 0, invalidRequest("%v", err)
	}

	var selected [7]bool
	for _, name := range req.Weekdays {
		day, err := model.ParseWeekDay(name)
		if err != nil {
			return nil, 0, fmt.Errorf("%w %q", ErrInvalidWeekday, name)
		}
		selected[day] = true
	}

	days := make([]model.WeekDay, 0, len(req.Weekdays))
	for _, day := range model.AllWeekDays() {
		if selected[day] {
			days = append(days, day)
		}
	}

	return days, tod, nil
}
