package model

import (
	"fmt"
	"strings"
)

// WeekDay день недели, 0 = воскресенье, 6 = суббота (как time.Weekday)
type WeekDay int

const (
	Sunday WeekDay = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// weekDayNames отображаемые названия, индекс совпадает со значением WeekDay
var weekDayNames = [7]string{
	"domingo",
	"lunes",
	"martes",
	"miércoles",
	"jueves",
	"viernes",
	"sábado",
}

// weekDayAliases все принимаемые написания, строится один раз при старте
var weekDayAliases = buildWeekDayAliases()

func buildWeekDayAliases() map[string]WeekDay {
	aliases := map[string]WeekDay{
		"miercoles": Wednesday,
		"sabado":    Saturday,
		"sunday":    Sunday,
		"monday":    Monday,
		"tuesday":   Tuesday,
		"wednesday": Wednesday,
		"thursday":  Thursday,
		"friday":    Friday,
		"saturday":  Saturday,
	}
	for i, name := range weekDayNames {
		aliases[name] = WeekDay(i)
	}
	return aliases
}

// ParseWeekDay возвращает день недели по названию (регистр и пробелы не важны)
func ParseWeekDay(name string) (WeekDay, error) {
	day, ok := weekDayAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return day, nil
}

// Valid проверяет что значение в диапазоне 0-6
func (d WeekDay) Valid() bool {
	return d >= Sunday && d <= Saturday
}

// String возвращает отображаемое название дня
func (d WeekDay) String() string {
	if !d.Valid() {
		return fmt.Sprintf("WeekDay(%d)", int(d))
	}
	return weekDayNames[d]
}

// AllWeekDays дни недели в порядке воскресенье -> суббота
func AllWeekDays() []WeekDay {
	return []WeekDay{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}
}
