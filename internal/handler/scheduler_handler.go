package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-scheduler-api/internal/dto"
	"github.com/noah-isme/course-scheduler-api/internal/middleware"
	"github.com/noah-isme/course-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduler-api/pkg/errors"
	"github.com/noah-isme/course-scheduler-api/pkg/response"
)

type schedulerService interface {
	Mount(ctx context.Context, principal *models.Principal, studentID string) (*models.SessionSnapshot, error)
	Snapshot(ctx context.Context, principal *models.Principal, sessionID string) (*models.SessionSnapshot, error)
	Unmount(ctx context.Context, principal *models.Principal, sessionID string) error
	ToggleCourse(ctx context.Context, principal *models.Principal, sessionID, courseCode string) (*models.SessionSnapshot, error)
	SelectGrouping(ctx context.Context, principal *models.Principal, sessionID, courseCode string, req dto.SelectGroupingRequest) (*models.SessionSnapshot, error)
	DeselectCourse(ctx context.Context, principal *models.Principal, sessionID, courseCode string) (*models.SessionSnapshot, error)
	Conflicts(ctx context.Context, principal *models.Principal, sessionID string) (*dto.ConflictsResponse, error)
	Calendar(ctx context.Context, principal *models.Principal, sessionID string) (*models.CalendarView, error)
	Save(ctx context.Context, principal *models.Principal, sessionID string) (*dto.SaveResult, error)
	MarkDone(ctx context.Context, principal *models.Principal, sessionID string) (*models.StudentInfo, error)
}

// SchedulerHandler exposes the course selection workflow over HTTP.
type SchedulerHandler struct {
	service schedulerService
}

// NewSchedulerHandler constructs the scheduler handler.
func NewSchedulerHandler(service schedulerService) *SchedulerHandler {
	return &SchedulerHandler{service: service}
}

// Mount godoc
// @Summary Open a scheduler session for a student
// @Description Loads the student, restores saved groupings and returns the session snapshot.
// @Tags Scheduler
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /scheduler/students/{studentId}/sessions [post]
func (h *SchedulerHandler) Mount(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		return
	}
	studentID := requireParam(c, "studentId")
	if studentID == "" {
		return
	}
	snapshot, err := h.service.Mount(c.Request.Context(), principal, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondSnapshot(c, http.StatusCreated, snapshot)
}

// Snapshot godoc
// @Summary Get a scheduler session
// @Tags Scheduler
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scheduler/sessions/{sessionId} [get]
func (h *SchedulerHandler) Snapshot(c *gin.Context) {
	h.withSession(c, func(ctx context.Context, principal *models.Principal, sessionID string) {
		snapshot, err := h.service.Snapshot(ctx, principal, sessionID)
		if err != nil {
			response.Error(c, err)
			return
		}
		h.respondSnapshot(c, http.StatusOK, snapshot)
	})
}

// Unmount godoc
// @Summary Close a scheduler session
// @Tags Scheduler
// @Param sessionId path string true "Session ID"
// @Success 204
// @Router /scheduler/sessions/{sessionId} [delete]
func (h *SchedulerHandler) Unmount(c *gin.Context) {
	h.withSession(c, func(ctx context.Context, principal *models.Principal, sessionID string) {
		if err := h.service.Unmount(ctx, principal, sessionID); err != nil {
			response.Error(c, err)
			return
		}
		response.NoContent(c)
	})
}

// Toggle godoc
// @Summary Open or close the grouping dropdown of a course
// @Tags Scheduler
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param courseCode path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /scheduler/sessions/{sessionId}/courses/{courseCode}/toggle [post]
func (h *SchedulerHandler) Toggle(c *gin.Context) {
	h.withCourse(c, func(ctx context.Context, principal *models.Principal, sessionID, courseCode string) {
		snapshot, err := h.service.ToggleCourse(ctx, principal, sessionID, courseCode)
		if err != nil {
			response.Error(c, err)
			return
		}
		h.respondSnapshot(c, http.StatusOK, snapshot)
	})
}

// SelectGrouping godoc
// @Summary Choose a grouping for a course
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param courseCode path string true "Course code"
// @Param payload body dto.SelectGroupingRequest true "Grouping"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /scheduler/sessions/{sessionId}/courses/{courseCode}/grouping [put]
func (h *SchedulerHandler) SelectGrouping(c *gin.Context) {
	h.withCourse(c, func(ctx context.Context, principal *models.Principal, sessionID, courseCode string) {
		var req dto.SelectGroupingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid grouping payload"))
			return
		}
		snapshot, err := h.service.SelectGrouping(ctx, principal, sessionID, courseCode, req)
		if err != nil {
			response.Error(c, err)
			return
		}
		h.respondSnapshot(c, http.StatusOK, snapshot)
	})
}

// DeselectCourse godoc
// @Summary Clear the grouping of a course
// @Tags Scheduler
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param courseCode path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /scheduler/sessions/{sessionId}/courses/{courseCode} [delete]
func (h *SchedulerHandler) DeselectCourse(c *gin.Context) {
	h.withCourse(c, func(ctx context.Context, principal *models.Principal, sessionID, courseCode string) {
		snapshot, err := h.service.DeselectCourse(ctx, principal, sessionID, courseCode)
		if err != nil {
			response.Error(c, err)
			return
		}
		h.respondSnapshot(c, http.StatusOK, snapshot)
	})
}

// Conflicts godoc
// @Summary List meeting conflicts between selected courses
// @Tags Scheduler
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /scheduler/sessions/{sessionId}/conflicts [get]
func (h *SchedulerHandler) Conflicts(c *gin.Context) {
	h.withSession(c, func(ctx context.Context, principal *models.Principal, sessionID string) {
		result, err := h.service.Conflicts(ctx, principal, sessionID)
		if err != nil {
			response.Error(c, err)
			return
		}
		middleware.SetReady(c, result.Ready)
		response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
	})
}

// Calendar godoc
// @Summary Weekly calendar of the selected schedule
// @Tags Scheduler
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /scheduler/sessions/{sessionId}/calendar [get]
func (h *SchedulerHandler) Calendar(c *gin.Context) {
	h.withSession(c, func(ctx context.Context, principal *models.Principal, sessionID string) {
		view, err := h.service.Calendar(ctx, principal, sessionID)
		if err != nil {
			response.Error(c, err)
			return
		}
		middleware.SetReady(c, view.Ready)
		response.JSON(c, http.StatusOK, view, middleware.ExtractMeta(c))
	})
}

// Save godoc
// @Summary Persist the selected groupings
// @Tags Scheduler
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /scheduler/sessions/{sessionId}/save [post]
func (h *SchedulerHandler) Save(c *gin.Context) {
	h.withSession(c, func(ctx context.Context, principal *models.Principal, sessionID string) {
		result, err := h.service.Save(ctx, principal, sessionID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, result, nil)
	})
}

// MarkDone godoc
// @Summary Flip the student's completion flag
// @Tags Scheduler
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /scheduler/sessions/{sessionId}/mark-done [post]
func (h *SchedulerHandler) MarkDone(c *gin.Context) {
	h.withSession(c, func(ctx context.Context, principal *models.Principal, sessionID string) {
		student, err := h.service.MarkDone(ctx, principal, sessionID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, student, nil)
	})
}

func (h *SchedulerHandler) respondSnapshot(c *gin.Context, status int, snapshot *models.SessionSnapshot) {
	middleware.SetReady(c, snapshot.Ready)
	middleware.SetMeta(c, "session_id", snapshot.SessionID)
	response.JSON(c, status, snapshot, middleware.ExtractMeta(c))
}

func (h *SchedulerHandler) withSession(c *gin.Context, fn func(ctx context.Context, principal *models.Principal, sessionID string)) {
	principal := principalFromContext(c)
	if principal == nil {
		return
	}
	sessionID := requireParam(c, "sessionId")
	if sessionID == "" {
		return
	}
	fn(c.Request.Context(), principal, sessionID)
}

func (h *SchedulerHandler) withCourse(c *gin.Context, fn func(ctx context.Context, principal *models.Principal, sessionID, courseCode string)) {
	h.withSession(c, func(ctx context.Context, principal *models.Principal, sessionID string) {
		courseCode := requireParam(c, "courseCode")
		if courseCode == "" {
			return
		}
		fn(ctx, principal, sessionID, courseCode)
	})
}
