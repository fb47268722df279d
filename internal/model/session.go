package model

import (
	"time"

	"github.com/google/uuid"
)

// Session запланированное (или кандидат на планирование) занятие
type Session struct {
	ID              int64     `json:"id"`       // 0 у кандидата, который ещё не сохранён
	BatchID         uuid.UUID `json:"batch_id"` // общий для всех занятий одной серии
	TherapistID     int64     `json:"therapist_id"`
	StudentID       int64     `json:"student_id"`
	LeccionID       int64     `json:"leccion_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"` // Start + DurationMinutes
	DurationMinutes int       `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Span возвращает полуоткрытый интервал [Start, End)
func (s *Session) Span() Span {
	return Span{Start: s.Start, End: s.End}
}

// Weekday день недели начала занятия
func (s *Session) Weekday() WeekDay {
	return WeekDay(s.Start.Weekday())
}

// Span полуоткрытый интервал времени [Start, End)
type Span struct {
	Start time.Time
	End   time.Time
}

// ScheduleBatch упорядоченный список кандидатов одной серии.
// Сохраняется целиком или не сохраняется вовсе.
type ScheduleBatch []*Session

// Bounds возвращает минимальное начало и максимальный конец по всем занятиям
func (b ScheduleBatch) Bounds() (Span, bool) {
	if len(b) == 0 {
		return Span{}, false
	}

	bounds := b[0].Span()
	for _, s := range b[1:] {
		if s.Start.Before(bounds.Start) {
			bounds.Start = s.Start
		}
		if s.End.After(bounds.End) {
			bounds.End = s.End
		}
	}
	return bounds, true
}

// IDs возвращает идентификаторы занятий в порядке серии
func (b ScheduleBatch) IDs() []int64 {
	ids := make([]int64, 0, len(b))
	for _, s := range b {
		ids = append(ids, s.ID)
	}
	return ids
}
