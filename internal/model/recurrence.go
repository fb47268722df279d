package model

// RecurrenceRequest запрос на создание регулярного расписания.
// Не сохраняется, сохраняются только сгенерированные занятия.
type RecurrenceRequest struct {
	StudentID       int64    `json:"student_id"`
	TherapistID     int64    `json:"therapist_id"`
	LeccionID       int64    `json:"leccion_id"`
	Weekdays        []string `json:"weekdays"`    // названия дней, например "lunes"
	TimeOfDay       string   `json:"time_of_day"` // "HH:MM"
	DurationMinutes int      `json:"duration_minutes"`
	WeekCount       int      `json:"week_count"`
}
