package scheduling

import "github.com/Freeeeeet/therapy_scheduler/internal/model"

// Overlaps сообщает, пересекаются ли полуоткрытые интервалы [a.Start, a.End) и [b.Start, b.End).
// Занятия "встык" (a.End == b.Start) не пересекаются.
// Все проверки конфликтов в пакете идут через эту функцию.
func Overlaps(a, b model.Span) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// SessionsOverlap то же самое для двух занятий
func SessionsOverlap(a, b *model.Session) bool {
	return Overlaps(a.Span(), b.Span())
}
