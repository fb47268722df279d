package scheduling

import "github.com/Freeeeeet/therapy_scheduler/internal/model"

// Policy проверка кандидата по рабочему календарю терапевта.
//
// По умолчанию обед проверяется только по времени начала: занятие, которое
// начинается до обеда и заходит на него, допускается. StrictLunch включает
// проверку пересечения всего интервала занятия с обедом.
type Policy struct {
	StrictLunch bool
}

// Check возвращает nil, если кандидат целиком внутри рабочего окна и вне обеда
func (p Policy) Check(cal *model.WorkCalendar, candidate *model.Session) *Violation {
	if !cal.WorksOn(candidate.Weekday()) {
		return &Violation{Candidate: candidate, Rule: RuleNonWorkDay}
	}

	workStart := cal.WorkStart.On(candidate.Start)
	workEnd := cal.WorkEnd.On(candidate.Start)

	// конец сравнивается как абсолютное время, поэтому занятие через полночь
	// тоже окажется за пределами рабочего дня
	if candidate.Start.Before(workStart) || candidate.End.After(workEnd) {
		return &Violation{Candidate: candidate, Rule: RuleOutsideWorkHours}
	}

	if !cal.HasLunch() {
		return nil
	}

	lunch := model.Span{
		Start: cal.LunchStart.On(candidate.Start),
		End:   cal.LunchEnd.On(candidate.Start),
	}

	if p.StrictLunch {
		if Overlaps(candidate.Span(), lunch) {
			return &Violation{Candidate: candidate, Rule: RuleDuringLunch}
		}
		return nil
	}

	if !candidate.Start.Before(lunch.Start) && candidate.Start.Before(lunch.End) {
		return &Violation{Candidate: candidate, Rule: RuleDuringLunch}
	}

	return nil
}

// CheckAll проверяет серию и останавливается на первом нарушении
func (p Policy) CheckAll(cal *model.WorkCalendar, batch model.ScheduleBatch) *Violation {
	for _, candidate := range batch {
		if v := p.Check(cal, candidate); v != nil {
			return v
		}
	}
	return nil
}
