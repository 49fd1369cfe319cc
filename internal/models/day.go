package models

import "strings"

// Day is a canonical calendar column token.
type Day string

const (
	DayMonday    Day = "MON"
	DayTuesday   Day = "TUES"
	DayWednesday Day = "WED"
	DayThursday  Day = "THUR"
	DayFriday    Day = "FRI"
	DaySaturday  Day = "SAT"
	DaySunday    Day = "SUN"
)

// Week lists the calendar columns in display order.
var Week = []Day{DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday, DaySunday}

var dayAliases = map[string]Day{
	"m": DayMonday, "mo": DayMonday, "mon": DayMonday, "monday": DayMonday,
	"t": DayTuesday, "tu": DayTuesday, "tue": DayTuesday, "tues": DayTuesday, "tuesday": DayTuesday,
	"w": DayWednesday, "we": DayWednesday, "wed": DayWednesday, "wednesday": DayWednesday,
	"r": DayThursday, "th": DayThursday, "thu": DayThursday, "thur": DayThursday, "thurs": DayThursday, "thursday": DayThursday,
	"f": DayFriday, "fr": DayFriday, "fri": DayFriday, "friday": DayFriday,
	"s": DaySaturday, "sa": DaySaturday, "sat": DaySaturday, "saturday": DaySaturday,
	"u": DaySunday, "su": DaySunday, "sun": DaySunday, "sunday": DaySunday,
}

// NormalizeDay maps the backend's day spelling ("Mon", "Thurs", ...) to a calendar token.
// Unknown spellings are passed through upper-cased and reported as unrecognised.
func NormalizeDay(raw string) (Day, bool) {
	trimmed := strings.TrimSpace(raw)
	if d, ok := dayAliases[strings.ToLower(trimmed)]; ok {
		return d, true
	}
	return Day(strings.ToUpper(trimmed)), false
}

// Index returns the zero-based column of the day, or -1 for pass-through tokens.
func (d Day) Index() int {
	for i, day := range Week {
		if day == d {
			return i
		}
	}
	return -1
}
