package dto

import (
	"time"

	"github.com/noah-isme/course-scheduler-api/internal/models"
)

// SelectGroupingRequest picks a grouping for a course in a session.
type SelectGroupingRequest struct {
	GroupingID string `json:"grouping_id" validate:"required,max=128"`
}

// ExportQuery selects the export format and the first week of term for calendar files.
type ExportQuery struct {
	Format    string `form:"format" validate:"required,oneof=xlsx csv pdf ics"`
	TermStart string `form:"term_start" validate:"omitempty,datetime=2006-01-02"`
}

// ConflictsResponse carries the conflict list with the readiness flag.
type ConflictsResponse struct {
	Conflicts []models.Conflict `json:"conflicts"`
	Ready     bool              `json:"ready"`
}

// SaveResult describes a persisted selection.
type SaveResult struct {
	StudentID       string    `json:"student_id"`
	CourseGroupings []string  `json:"course_groupings"`
	SavedAt         time.Time `json:"saved_at"`
}
