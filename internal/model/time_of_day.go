package model

import (
	"fmt"
	"time"
)

// TimeOfDay время суток без даты, хранится как минуты от полуночи
type TimeOfDay int

const minutesPerDay = 24 * 60

// NewTimeOfDay создаёт время из часов и минут
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// ParseTimeOfDay разбирает строку формата "HH:MM"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// MustTimeOfDay как ParseTimeOfDay, но паникует на ошибке
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayOf извлекает время суток из метки времени (секунды отбрасываются)
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Valid проверяет что значение внутри суток
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// On комбинирует дату (в её часовом поясе) со временем суток
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(data []byte) error {
	parsed, err := ParseTimeOfDay(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
