package models

// StudentInfo is the backend's student record. The scheduler treats it as read-only input;
// changes produce new values through the With* helpers.
type StudentInfo struct {
	ID          string            `json:"id"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Email       string            `json:"email"`
	IsCompleted bool              `json:"is_completed"`
	Preferences []string          `json:"preferences"`
	CourseCodes []string          `json:"course_codes"`
	Courses     map[string]string `json:"courses"`
}

// Clone returns a deep copy.
func (s StudentInfo) Clone() StudentInfo {
	next := s
	next.Preferences = append([]string(nil), s.Preferences...)
	next.CourseCodes = append([]string(nil), s.CourseCodes...)
	next.Courses = make(map[string]string, len(s.Courses))
	for k, v := range s.Courses {
		next.Courses[k] = v
	}
	return next
}

// WithCompleted returns a copy carrying the given completion flag.
func (s StudentInfo) WithCompleted(done bool) StudentInfo {
	next := s.Clone()
	next.IsCompleted = done
	return next
}

// SavedGrouping returns the persisted grouping for a course that appears in CourseCodes.
func (s StudentInfo) SavedGrouping(courseCode string) (string, bool) {
	saved := false
	for _, code := range s.CourseCodes {
		if code == courseCode {
			saved = true
			break
		}
	}
	if !saved {
		return "", false
	}
	grouping, ok := s.Courses[courseCode]
	return grouping, ok && grouping != ""
}

// ReplaceCourseGroupingsRequest is the persistence payload for a finished selection.
type ReplaceCourseGroupingsRequest struct {
	CourseGroupings []string `json:"course_groupings"`
}
