package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

const icsLocalLayout = "20060102T150405"

// RecurringEvent is one weekly meeting expanded into a calendar series.
type RecurringEvent struct {
	UID         string
	Summary     string
	Location    string
	Description string
	// Start and End are the first occurrence in the calendar's time zone.
	Start time.Time
	End   time.Time
	Weeks int
}

// ICSExporter renders recurring events into an iCalendar document.
type ICSExporter struct {
	ProductID string
}

// NewICSExporter constructs an ICS exporter.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{ProductID: "-//course-scheduler-api//schedule export//EN"}
}

// Render writes one VEVENT per recurring meeting. Times are written as local wall-clock
// times with a TZID so the series keeps its hour across daylight saving changes.
func (e *ICSExporter) Render(events []RecurringEvent, name string, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.ProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	cal.SetXWRTimezone(loc.String())

	stamp := time.Now().UTC()
	tzid := &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{loc.String()}}
	for _, ev := range events {
		if !ev.End.After(ev.Start) {
			return nil, fmt.Errorf("event %s ends before it starts", ev.UID)
		}
		weeks := ev.Weeks
		if weeks <= 0 {
			weeks = 1
		}
		event := cal.AddEvent(ev.UID)
		event.SetDtStampTime(stamp)
		event.SetProperty(ics.ComponentPropertyDtStart, ev.Start.In(loc).Format(icsLocalLayout), tzid)
		event.SetProperty(ics.ComponentPropertyDtEnd, ev.End.In(loc).Format(icsLocalLayout), tzid)
		event.SetProperty(ics.ComponentPropertyRrule, fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", weeks))
		event.SetSummary(ev.Summary)
		if ev.Location != "" {
			event.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			event.SetDescription(ev.Description)
		}
	}
	return []byte(cal.Serialize()), nil
}
