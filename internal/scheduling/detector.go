package scheduling

import (
	"context"
	"sort"

	"github.com/Freeeeeet/therapy_scheduler/internal/model"
)

// Report результат проверки конфликтов. Пустой отчёт - кандидаты свободны.
type Report struct {
	Existing []*model.Session // сохранённые занятия, пересекающиеся хотя бы с одним кандидатом
	Internal []Collision      // пересечения кандидатов между собой
}

// Empty нет ни одного конфликта
func (r *Report) Empty() bool {
	return len(r.Existing) == 0 && len(r.Internal) == 0
}

// Err превращает непустой отчёт в *ConflictError
func (r *Report) Err() error {
	if r.Empty() {
		return nil
	}
	return &ConflictError{Conflicts: r.Existing, Internal: r.Internal}
}

// Detector ищет конфликты кандидатов с уже сохранёнными занятиями терапевта.
// Хранилище опрашивается одним диапазонным запросом на всю серию, затем
// каждый кандидат проверяется точно в памяти.
type Detector struct {
	finder SessionFinder
}

func NewDetector(finder SessionFinder) *Detector {
	return &Detector{finder: finder}
}

// FindConflicts не изменяет состояние. exclude - идентификаторы сохранённых
// занятий, которые не участвуют в проверке (например, переносимое занятие).
// Ошибка возвращается только при сбое хранилища.
func (d *Detector) FindConflicts(ctx context.Context, therapistID int64, candidates model.ScheduleBatch, exclude ...int64) (*Report, error) {
	report := &Report{Internal: InternalCollisions(candidates)}

	bounds, ok := candidates.Bounds()
	if !ok {
		return report, nil
	}

	var excludeID *int64
	if len(exclude) == 1 {
		excludeID = &exclude[0]
	}

	existing, err := d.finder.FindOverlapping(ctx, therapistID, bounds.Start, bounds.End, excludeID)
	if err != nil {
		return nil, StorageError("find overlapping sessions", err)
	}

	skip := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	// общий диапазон серии может захватить занятия между кандидатами,
	// поэтому каждое найденное проверяем по каждому кандидату
	for _, s := range existing {
		if _, excluded := skip[s.ID]; excluded {
			continue
		}
		for _, c := range candidates {
			if SessionsOverlap(s, c) {
				report.Existing = append(report.Existing, s)
				break
			}
		}
	}

	sort.SliceStable(report.Existing, func(i, j int) bool {
		return report.Existing[i].Start.Before(report.Existing[j].Start)
	})

	return report, nil
}

// InternalCollisions находит пары кандидатов, пересекающихся между собой
func InternalCollisions(candidates model.ScheduleBatch) []Collision {
	sorted := make(model.ScheduleBatch, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var collisions []Collision
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			// дальше по отсортированному списку пересечений уже не будет
			if !sorted[j].Start.Before(sorted[i].End) {
				break
			}
			if SessionsOverlap(sorted[i], sorted[j]) {
				collisions = append(collisions, Collision{A: sorted[i], B: sorted[j]})
			}
		}
	}
	return collisions
}
