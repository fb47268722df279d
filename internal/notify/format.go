package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
)

// FormatDate форматирует дату с днём недели
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s %s", model.WeekDay(t.Weekday()), t.Format("02/01/2006"))
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}

// FormatDuration форматирует длительность в минутах
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}

func batchScheduledText(batch model.ScheduleBatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Nueva serie de sesiones: %d\n", len(batch))
	for _, s := range batch {
		fmt.Fprintf(&b, "• %s %s (alumno %d, %s)\n",
			FormatDate(s.Start), FormatTimeRange(s.Start, s.End), s.StudentID, FormatDuration(s.DurationMinutes))
	}
	return b.String()
}

func sessionRescheduledText(s *model.Session) string {
	return fmt.Sprintf("🔄 Sesión %d reprogramada: %s %s (alumno %d)",
		s.ID, FormatDate(s.Start), FormatTimeRange(s.Start, s.End), s.StudentID)
}

func studentReassignedText(studentID, sessions int64) string {
	return fmt.Sprintf("👤 Se le asignó el alumno %d con %d sesiones", studentID, sessions)
}

// AgendaText список занятий на день
func AgendaText(day time.Time, sessions []*model.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🗓 Agenda del %s\n", FormatDate(day))
	for _, s := range sessions {
		fmt.Fprintf(&b, "• %s alumno %d\n", FormatTimeRange(s.Start, s.End), s.StudentID)
	}
	return b.String()
}
