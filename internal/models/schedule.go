package models

// MeetingPayload is a meeting row as served by the backend.
type MeetingPayload struct {
	Day            string `json:"day" mapstructure:"day"`
	BeginTime      string `json:"begin_time" mapstructure:"begin_time"`
	EndTime        string `json:"end_time" mapstructure:"end_time"`
	BuildingRoom   string `json:"building_room" mapstructure:"building_room"`
	CourseGrouping string `json:"course_grouping,omitempty" mapstructure:"course_grouping"`
	CourseCode     string `json:"course_code,omitempty" mapstructure:"course_code"`
}

// ScheduleEntry is one weekly meeting of a grouping. Entries are immutable once fetched.
type ScheduleEntry struct {
	Day          Day       `json:"day"`
	BeginTime    ClockTime `json:"begin_time"`
	EndTime      ClockTime `json:"end_time"`
	BuildingRoom string    `json:"building_room"`
}

// Overlaps reports whether two meetings share time on the same day. Touching ends do not overlap.
func (e ScheduleEntry) Overlaps(other ScheduleEntry) bool {
	return e.Day == other.Day && e.BeginTime < other.EndTime && other.BeginTime < e.EndTime
}

// SelectedCourse is a course whose chosen grouping has a resolved schedule.
type SelectedCourse struct {
	CourseCode  string          `json:"course_code"`
	GroupingID  string          `json:"grouping_id"`
	Schedule    []ScheduleEntry `json:"schedule"`
	CourseColor PaletteEntry    `json:"course_color"`
}

// Conflict is a same-day overlap between meetings of two different selected groupings.
// StartTime/EndTime span both meetings; OverlapStart/OverlapEnd is the shared window.
type Conflict struct {
	Day          Day       `json:"day"`
	StartTime    ClockTime `json:"start_time"`
	EndTime      ClockTime `json:"end_time"`
	OverlapStart ClockTime `json:"overlap_start"`
	OverlapEnd   ClockTime `json:"overlap_end"`
	Courses      [2]string `json:"courses"`
	CourseCodes  [2]string `json:"course_codes"`
}

// CalendarBlock is a positioned meeting for the weekly calendar view.
type CalendarBlock struct {
	CourseCode   string       `json:"course_code"`
	GroupingID   string       `json:"grouping_id"`
	Day          Day          `json:"day"`
	BeginTime    ClockTime    `json:"begin_time"`
	EndTime      ClockTime    `json:"end_time"`
	StartHour    float64      `json:"start_hour"`
	EndHour      float64      `json:"end_hour"`
	BuildingRoom string       `json:"building_room"`
	Color        PaletteEntry `json:"color"`
	Conflicted   bool         `json:"conflicted"`
}

// CalendarView is the full weekly layout.
type CalendarView struct {
	Days      []Day           `json:"days"`
	FirstHour int             `json:"first_hour"`
	LastHour  int             `json:"last_hour"`
	Blocks    []CalendarBlock `json:"blocks"`
	Conflicts []Conflict      `json:"conflicts"`
	Ready     bool            `json:"ready"`
}
