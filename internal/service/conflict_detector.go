package service

import "github.com/noah-isme/course-scheduler-api/internal/models"

// DetectConflicts returns every same-day overlap between meetings of two different selected
// courses. Pairs are enumerated as (i, j) with i < j, then meeting a of i, then meeting b of j.
// Meetings that only touch (a ends when b starts) are not conflicts. Each overlapping meeting
// pair yields its own record; overlapping triples are never merged.
func DetectConflicts(selected []models.SelectedCourse) []models.Conflict {
	conflicts := make([]models.Conflict, 0)
	for i := 0; i < len(selected); i++ {
		for j := i + 1; j < len(selected); j++ {
			left, right := selected[i], selected[j]
			for _, a := range left.Schedule {
				for _, b := range right.Schedule {
					if !a.Overlaps(b) {
						continue
					}
					conflicts = append(conflicts, models.Conflict{
						Day:          a.Day,
						StartTime:    minClock(a.BeginTime, b.BeginTime),
						EndTime:      maxClock(a.EndTime, b.EndTime),
						OverlapStart: maxClock(a.BeginTime, b.BeginTime),
						OverlapEnd:   minClock(a.EndTime, b.EndTime),
						Courses:      [2]string{left.GroupingID, right.GroupingID},
						CourseCodes:  [2]string{left.CourseCode, right.CourseCode},
					})
				}
			}
		}
	}
	return conflicts
}

// IsConflicted reports whether a meeting falls inside any reported conflict window on its day.
func IsConflicted(entry models.ScheduleEntry, conflicts []models.Conflict) bool {
	for _, c := range conflicts {
		if c.Day == entry.Day && entry.BeginTime < c.EndTime && entry.EndTime > c.StartTime {
			return true
		}
	}
	return false
}

func minClock(a, b models.ClockTime) models.ClockTime {
	if a < b {
		return a
	}
	return b
}

func maxClock(a, b models.ClockTime) models.ClockTime {
	if a > b {
		return a
	}
	return b
}
