package scheduling

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
)

// Виды ошибок планирования. Проверяются через errors.Is.
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidWeekday     = fmt.Errorf("%w: invalid weekday", ErrInvalidRequest)
	ErrTherapistNotFound  = errors.New("therapist not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrWorkHoursViolation = errors.New("work hours violation")
	ErrScheduleConflict   = errors.New("schedule conflict")
	ErrStorageFailure     = errors.New("storage failure")
)

// Rule правило рабочего календаря, которое нарушил кандидат
type Rule string

const (
	RuleOutsideWorkHours Rule = "outside_work_hours"
	RuleNonWorkDay       Rule = "non_work_day"
	RuleDuringLunch      Rule = "during_lunch"
)

// Violation кандидат не укладывается в рабочий календарь терапевта
type Violation struct {
	Candidate *model.Session
	Rule      Rule
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: session %s-%s (%s) breaks rule %s",
		ErrWorkHoursViolation,
		v.Candidate.Start.Format("2006-01-02 15:04"),
		v.Candidate.End.Format("15:04"),
		v.Candidate.Weekday(),
		v.Rule)
}

func (v *Violation) Is(target error) bool {
	return target == ErrWorkHoursViolation
}

// Collision два кандидата одной серии, пересекающиеся между собой
type Collision struct {
	A *model.Session
	B *model.Session
}

// ConflictError кандидаты пересекаются с уже сохранёнными занятиями
// (или между собой)
type ConflictError struct {
	Conflicts []*model.Session
	Internal  []Collision
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts)+len(e.Internal))
	for _, s := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("session %d at %s-%s",
			s.ID, s.Start.Format("2006-01-02 15:04"), s.End.Format("15:04")))
	}
	for _, c := range e.Internal {
		parts = append(parts, fmt.Sprintf("candidates at %s and %s",
			c.A.Start.Format("2006-01-02 15:04"), c.B.Start.Format("2006-01-02 15:04")))
	}
	if len(parts) == 0 {
		// хранилище отклонило запись из-за параллельной брони
		return ErrScheduleConflict.Error() + ": concurrent booking of the same time"
	}
	return fmt.Sprintf("%s: %s", ErrScheduleConflict, strings.Join(parts, ", "))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrScheduleConflict
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// StorageError оборачивает ошибку хранилища в вид ErrStorageFailure
func StorageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}
