package models

// CourseStatus names the variant a course is currently in.
type CourseStatus string

const (
	StatusUnselected       CourseStatus = "unselected"
	StatusLoading          CourseStatus = "loading"
	StatusAwaitingGrouping CourseStatus = "awaiting_grouping"
	StatusResolved         CourseStatus = "resolved"
)

// NoGroupingsMessage is shown when a course has nothing to pick from, whether the
// backend has no groupings or the fetch failed.
const NoGroupingsMessage = "No groupings available"

// CourseState is the per-course selection state. Exactly one variant holds at a time,
// which rules out combinations such as "loading with a grouping already chosen".
type CourseState interface {
	Status() CourseStatus
	isCourseState()
}

// Unselected is the resting state of an unchecked course.
type Unselected struct{}

// Loading marks an in-flight fetch. PendingGrouping is set when a schedule fetch for a
// chosen grouping is running and empty while the grouping list itself is loading.
// Previous is the state to fall back to when the fetch fails or is cancelled.
type Loading struct {
	Generation      uint64
	PendingGrouping string
	Previous        CourseState
}

// Choice is a grouping with its resolved weekly meetings.
type Choice struct {
	GroupingID string
	Schedule   []ScheduleEntry
}

// AwaitingGrouping is an open dropdown. Current is the choice kept from before reopening.
type AwaitingGrouping struct {
	Groupings []string
	Current   *Choice
}

// Resolved is a closed course with a chosen grouping and its schedule.
type Resolved struct {
	Choice Choice
}

func (Unselected) Status() CourseStatus       { return StatusUnselected }
func (Loading) Status() CourseStatus          { return StatusLoading }
func (AwaitingGrouping) Status() CourseStatus { return StatusAwaitingGrouping }
func (Resolved) Status() CourseStatus         { return StatusResolved }

func (Unselected) isCourseState()       {}
func (Loading) isCourseState()          {}
func (AwaitingGrouping) isCourseState() {}
func (Resolved) isCourseState()         {}

// ChoiceOf returns the chosen grouping carried by a state, if any.
func ChoiceOf(state CourseState) (*Choice, bool) {
	switch s := state.(type) {
	case Resolved:
		c := s.Choice
		return &c, true
	case AwaitingGrouping:
		if s.Current != nil {
			c := *s.Current
			return &c, true
		}
	}
	return nil, false
}

// CourseSnapshot is the read model of one course for the sidebar.
type CourseSnapshot struct {
	CourseCode         string       `json:"course_code"`
	Status             CourseStatus `json:"status"`
	IsOpen             bool         `json:"is_open"`
	IsLoading          bool         `json:"is_loading"`
	SelectedGrouping   *string      `json:"selected_grouping"`
	PendingGrouping    *string      `json:"pending_grouping,omitempty"`
	Groupings          []string     `json:"groupings"`
	GroupingsAvailable bool         `json:"groupings_available"`
	Message            string       `json:"message,omitempty"`
	Color              PaletteEntry `json:"color"`
}

// SessionSnapshot is the read model of a whole scheduler session.
type SessionSnapshot struct {
	SessionID string           `json:"session_id"`
	Student   StudentInfo      `json:"student"`
	Courses   []CourseSnapshot `json:"courses"`
	Selected  []SelectedCourse `json:"selected"`
	Conflicts []Conflict       `json:"conflicts"`
	Ready     bool             `json:"ready"`
}
