package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-scheduler-api/internal/dto"
	"github.com/noah-isme/course-scheduler-api/internal/middleware"
	"github.com/noah-isme/course-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduler-api/pkg/errors"
)

type schedulerServiceMock struct {
	snapshot  *models.SessionSnapshot
	conflicts *dto.ConflictsResponse
	calendar  *models.CalendarView
	saved     *dto.SaveResult
	student   *models.StudentInfo
	err       error

	lastSession string
	lastCourse  string
	lastRequest dto.SelectGroupingRequest
	unmounted   bool
}

func (m *schedulerServiceMock) Mount(ctx context.Context, principal *models.Principal, studentID string) (*models.SessionSnapshot, error) {
	return m.snapshot, m.err
}

func (m *schedulerServiceMock) Snapshot(ctx context.Context, principal *models.Principal, sessionID string) (*models.SessionSnapshot, error) {
	m.lastSession = sessionID
	return m.snapshot, m.err
}

func (m *schedulerServiceMock) Unmount(ctx context.Context, principal *models.Principal, sessionID string) error {
	m.unmounted = m.err == nil
	return m.err
}

func (m *schedulerServiceMock) ToggleCourse(ctx context.Context, principal *models.Principal, sessionID, courseCode string) (*models.SessionSnapshot, error) {
	m.lastSession, m.lastCourse = sessionID, courseCode
	return m.snapshot, m.err
}

func (m *schedulerServiceMock) SelectGrouping(ctx context.Context, principal *models.Principal, sessionID, courseCode string, req dto.SelectGroupingRequest) (*models.SessionSnapshot, error) {
	m.lastSession, m.lastCourse, m.lastRequest = sessionID, courseCode, req
	return m.snapshot, m.err
}

func (m *schedulerServiceMock) DeselectCourse(ctx context.Context, principal *models.Principal, sessionID, courseCode string) (*models.SessionSnapshot, error) {
	m.lastSession, m.lastCourse = sessionID, courseCode
	return m.snapshot, m.err
}

func (m *schedulerServiceMock) Conflicts(ctx context.Context, principal *models.Principal, sessionID string) (*dto.ConflictsResponse, error) {
	return m.conflicts, m.err
}

func (m *schedulerServiceMock) Calendar(ctx context.Context, principal *models.Principal, sessionID string) (*models.CalendarView, error) {
	return m.calendar, m.err
}

func (m *schedulerServiceMock) Save(ctx context.Context, principal *models.Principal, sessionID string) (*dto.SaveResult, error) {
	return m.saved, m.err
}

func (m *schedulerServiceMock) MarkDone(ctx context.Context, principal *models.Principal, sessionID string) (*models.StudentInfo, error) {
	return m.student, m.err
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newSchedulerContext(method, target string, body []byte, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params
	c.Set(middleware.ContextPrincipalKey, &models.Principal{UserID: "u-1", Role: models.RoleVerified})
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestSchedulerHandlerMountCreatesSession(t *testing.T) {
	mock := &schedulerServiceMock{snapshot: &models.SessionSnapshot{SessionID: "s-1", Ready: true}}
	handler := NewSchedulerHandler(mock)
	c, w := newSchedulerContext(http.MethodPost, "/scheduler/students/42/sessions", nil, gin.Params{{Key: "studentId", Value: "42"}})

	handler.Mount(c)

	require.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, true, env.Meta["ready"])
	require.Equal(t, "s-1", env.Meta["session_id"])
}

func TestSchedulerHandlerRequiresPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSchedulerHandler(&schedulerServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/scheduler/sessions/s-1", nil)
	c.Params = gin.Params{{Key: "sessionId", Value: "s-1"}}

	handler.Snapshot(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSchedulerHandlerRequiresSessionID(t *testing.T) {
	handler := NewSchedulerHandler(&schedulerServiceMock{})
	c, w := newSchedulerContext(http.MethodGet, "/scheduler/sessions/", nil, nil)

	handler.Snapshot(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedulerHandlerToggle(t *testing.T) {
	mock := &schedulerServiceMock{snapshot: &models.SessionSnapshot{SessionID: "s-1"}}
	handler := NewSchedulerHandler(mock)
	c, w := newSchedulerContext(http.MethodPost, "/scheduler/sessions/s-1/courses/SENG201/toggle", nil,
		gin.Params{{Key: "sessionId", Value: "s-1"}, {Key: "courseCode", Value: "SENG201"}})

	handler.Toggle(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "s-1", mock.lastSession)
	require.Equal(t, "SENG201", mock.lastCourse)
	require.Equal(t, false, decodeEnvelope(t, w).Meta["ready"])
}

func TestSchedulerHandlerSelectGrouping(t *testing.T) {
	mock := &schedulerServiceMock{snapshot: &models.SessionSnapshot{SessionID: "s-1", Ready: true}}
	handler := NewSchedulerHandler(mock)
	c, w := newSchedulerContext(http.MethodPut, "/scheduler/sessions/s-1/courses/SENG201/grouping", []byte(`{"grouping_id":"G7"}`),
		gin.Params{{Key: "sessionId", Value: "s-1"}, {Key: "courseCode", Value: "SENG201"}})

	handler.SelectGrouping(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "G7", mock.lastRequest.GroupingID)
}

func TestSchedulerHandlerSelectGroupingInvalidBody(t *testing.T) {
	handler := NewSchedulerHandler(&schedulerServiceMock{})
	c, w := newSchedulerContext(http.MethodPut, "/scheduler/sessions/s-1/courses/SENG201/grouping", []byte(`{"grouping_id":`),
		gin.Params{{Key: "sessionId", Value: "s-1"}, {Key: "courseCode", Value: "SENG201"}})

	handler.SelectGrouping(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedulerHandlerSelectGroupingWhileLoading(t *testing.T) {
	mock := &schedulerServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "groupings are still loading")}
	handler := NewSchedulerHandler(mock)
	c, w := newSchedulerContext(http.MethodPut, "/scheduler/sessions/s-1/courses/SENG201/grouping", []byte(`{"grouping_id":"G7"}`),
		gin.Params{{Key: "sessionId", Value: "s-1"}, {Key: "courseCode", Value: "SENG201"}})

	handler.SelectGrouping(c)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	require.Equal(t, appErrors.ErrConflict.Code, env.Error.Code)
}

func TestSchedulerHandlerDeselect(t *testing.T) {
	mock := &schedulerServiceMock{snapshot: &models.SessionSnapshot{SessionID: "s-1", Ready: true}}
	handler := NewSchedulerHandler(mock)
	c, w := newSchedulerContext(http.MethodDelete, "/scheduler/sessions/s-1/courses/COSC261", nil,
		gin.Params{{Key: "sessionId", Value: "s-1"}, {Key: "courseCode", Value: "COSC261"}})

	handler.DeselectCourse(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "COSC261", mock.lastCourse)
}

func TestSchedulerHandlerConflicts(t *testing.T) {
	mock := &schedulerServiceMock{conflicts: &dto.ConflictsResponse{
		Conflicts: []models.Conflict{{Day: models.DayMonday, Courses: [2]string{"G1", "G2"}}},
		Ready:     true,
	}}
	handler := NewSchedulerHandler(mock)
	c, w := newSchedulerContext(http.MethodGet, "/scheduler/sessions/s-1/conflicts", nil, gin.Params{{Key: "sessionId", Value: "s-1"}})

	handler.Conflicts(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	var body dto.ConflictsResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.Len(t, body.Conflicts, 1)
	require.Equal(t, [2]string{"G1", "G2"}, body.Conflicts[0].Courses)
	require.Equal(t, true, env.Meta["ready"])
}

func TestSchedulerHandlerCalendar(t *testing.T) {
	mock := &schedulerServiceMock{calendar: &models.CalendarView{Days: models.Week, FirstHour: 8, LastHour: 23}}
	handler := NewSchedulerHandler(mock)
	c, w := newSchedulerContext(http.MethodGet, "/scheduler/sessions/s-1/calendar", nil, gin.Params{{Key: "sessionId", Value: "s-1"}})

	handler.Calendar(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, decodeEnvelope(t, w).Meta["ready"])
}

func TestSchedulerHandlerSaveNotReady(t *testing.T) {
	mock := &schedulerServiceMock{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "a grouping schedule is still loading")}
	handler := NewSchedulerHandler(mock)
	c, w := newSchedulerContext(http.MethodPost, "/scheduler/sessions/s-1/save", nil, gin.Params{{Key: "sessionId", Value: "s-1"}})

	handler.Save(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestSchedulerHandlerSave(t *testing.T) {
	mock := &schedulerServiceMock{saved: &dto.SaveResult{StudentID: "42", CourseGroupings: []string{"G1"}}}
	handler := NewSchedulerHandler(mock)
	c, w := newSchedulerContext(http.MethodPost, "/scheduler/sessions/s-1/save", nil, gin.Params{{Key: "sessionId", Value: "s-1"}})

	handler.Save(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestSchedulerHandlerMarkDoneUpstreamFailure(t *testing.T) {
	mock := &schedulerServiceMock{err: appErrors.Clone(appErrors.ErrUpstream, "failed to update student")}
	handler := NewSchedulerHandler(mock)
	c, w := newSchedulerContext(http.MethodPost, "/scheduler/sessions/s-1/mark-done", nil, gin.Params{{Key: "sessionId", Value: "s-1"}})

	handler.MarkDone(c)

	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSchedulerHandlerUnmount(t *testing.T) {
	mock := &schedulerServiceMock{}
	handler := NewSchedulerHandler(mock)
	c, _ := newSchedulerContext(http.MethodDelete, "/scheduler/sessions/s-1", nil, gin.Params{{Key: "sessionId", Value: "s-1"}})

	handler.Unmount(c)

	require.Equal(t, http.StatusNoContent, c.Writer.Status())
	require.True(t, mock.unmounted)
}

func TestSchedulerHandlerSnapshotNotFound(t *testing.T) {
	mock := &schedulerServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "scheduler session not found")}
	handler := NewSchedulerHandler(mock)
	c, w := newSchedulerContext(http.MethodGet, "/scheduler/sessions/missing", nil, gin.Params{{Key: "sessionId", Value: "missing"}})

	handler.Snapshot(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "missing", mock.lastSession)
}
