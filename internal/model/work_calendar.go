package model

import (
	"fmt"
	"time"
)

// WorkCalendar рабочий календарь терапевта (1:1 с терапевтом)
type WorkCalendar struct {
	TherapistID    int64     `json:"therapist_id"`
	WorkDays       []WeekDay `json:"work_days"`
	WorkStart      TimeOfDay `json:"work_start"`
	WorkEnd        TimeOfDay `json:"work_end"`
	LunchStart     TimeOfDay `json:"lunch_start"`
	LunchEnd       TimeOfDay `json:"lunch_end"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"` // nil - уведомления не отправляются
	UpdatedAt      time.Time `json:"updated_at"`
}

// WorksOn проверяет что день входит в рабочие дни
func (c *WorkCalendar) WorksOn(day WeekDay) bool {
	for _, d := range c.WorkDays {
		if d == day {
			return true
		}
	}
	return false
}

// HasLunch обед задан, если окно непустое
func (c *WorkCalendar) HasLunch() bool {
	return c.LunchStart < c.LunchEnd
}

// Validate проверяет инварианты календаря
func (c *WorkCalendar) Validate() error {
	for _, d := range c.WorkDays {
		if !d.Valid() {
			return fmt.Errorf("work calendar %d: invalid work day %d", c.TherapistID, int(d))
		}
	}

	if !c.WorkStart.Valid() || !c.WorkEnd.Valid() || !c.LunchStart.Valid() || !c.LunchEnd.Valid() {
		return fmt.Errorf("work calendar %d: time of day out of range", c.TherapistID)
	}

	if c.WorkStart >= c.WorkEnd {
		return fmt.Errorf("work calendar %d: work start %s must be before work end %s",
			c.TherapistID, c.WorkStart, c.WorkEnd)
	}

	if c.LunchStart > c.LunchEnd {
		return fmt.Errorf("work calendar %d: lunch start %s is after lunch end %s",
			c.TherapistID, c.LunchStart, c.LunchEnd)
	}

	if c.HasLunch() && (c.LunchStart < c.WorkStart || c.LunchEnd > c.WorkEnd) {
		return fmt.Errorf("work calendar %d: lunch %s-%s is outside work hours %s-%s",
			c.TherapistID, c.LunchStart, c.LunchEnd, c.WorkStart, c.WorkEnd)
	}

	return nil
}

// Clone возвращает независимую копию (кэш не должен отдавать общий срез)
func (c *WorkCalendar) Clone() *WorkCalendar {
	cp := *c
	cp.WorkDays = append([]WeekDay(nil), c.WorkDays...)
	if c.TelegramChatID != nil {
		chatID := *c.TelegramChatID
		cp.TelegramChatID = &chatID
	}
	return &cp
}
