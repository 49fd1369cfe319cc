package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-scheduler-api/internal/backend"
	"github.com/noah-isme/course-scheduler-api/internal/dto"
	"github.com/noah-isme/course-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduler-api/pkg/errors"
)

type studentBackendStub struct {
	mu       sync.Mutex
	student  *models.StudentInfo
	err      error
	saveErr  error
	flipErr  error
	saved    []string
	flips    int
	loadedID string
}

func (s *studentBackendStub) Student(ctx context.Context, studentID string) (*models.StudentInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadedID = studentID
	if s.err != nil {
		return nil, s.err
	}
	clone := s.student.Clone()
	return &clone, nil
}

func (s *studentBackendStub) ReplaceCourseGroupings(ctx context.Context, studentID string, groupingIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append([]string(nil), groupingIDs...)
	return nil
}

func (s *studentBackendStub) FlipMarkDone(ctx context.Context, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flipErr != nil {
		return s.flipErr
	}
	s.flips++
	return nil
}

var (
	owner = &models.Principal{UserID: "u-1", Role: models.RoleVerified}
	other = &models.Principal{UserID: "u-2", Role: models.RoleVerified}
	admin = &models.Principal{UserID: "u-9", Role: models.RoleAdmin}
)

func schedulerFixture() (*SchedulerService, *studentBackendStub, *fetcherStub) {
	student := &models.StudentInfo{
		ID:          "S1",
		FirstName:   "Ada",
		Preferences: []string{"CPSC110", "MATH100"},
		CourseCodes: []string{"CPSC110", "MATH100"},
		Courses:     map[string]string{"CPSC110": "G1", "MATH100": "M1"},
	}
	resolver := newResolverStub()
	resolver.result["CPSC110"] = &ResolvedGroupings{Order: []string{"G1", "G2"}, Schedules: map[string][]models.ScheduleEntry{}}
	resolver.result["MATH100"] = &ResolvedGroupings{Order: []string{"M1", "M2"}, Schedules: map[string][]models.ScheduleEntry{}}
	fetcher := &fetcherStub{result: map[string][]models.ScheduleEntry{
		"G1": {meeting(models.DayMonday, "09:00", "10:30")},
		"G2": {meeting(models.DayTuesday, "09:00", "10:30")},
		"M1": {meeting(models.DayMonday, "10:00", "11:00")},
		"M2": {meeting(models.DayWednesday, "10:00", "11:00")},
	}}
	stub := &studentBackendStub{student: student}
	svc := NewSchedulerService(stub, resolver, fetcher, NewMetricsService(), nil, SchedulerConfig{SessionTTL: time.Hour}, nil)
	return svc, stub, fetcher
}

func TestSchedulerServiceMountReplaysSavedSelection(t *testing.T) {
	svc, stub, _ := schedulerFixture()

	snap, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)
	assert.Equal(t, "S1", stub.loadedID)
	assert.NotEmpty(t, snap.SessionID)
	assert.True(t, snap.Ready)
	require.Len(t, snap.Courses, 2)
	require.Len(t, snap.Selected, 2)
	require.Len(t, snap.Conflicts, 1)

	conflict := snap.Conflicts[0]
	assert.Equal(t, models.DayMonday, conflict.Day)
	assert.Equal(t, "09:00", conflict.StartTime.String())
	assert.Equal(t, "11:00", conflict.EndTime.String())
	assert.Equal(t, "10:00", conflict.OverlapStart.String())
	assert.Equal(t, "10:30", conflict.OverlapEnd.String())
	assert.Equal(t, [2]string{"G1", "M1"}, conflict.Courses)
	assert.Equal(t, 1, svc.ActiveSessions())
}

func TestSchedulerServiceMountMapsBackendErrors(t *testing.T) {
	svc, stub, _ := schedulerFixture()

	stub.err = &backend.StatusError{Op: "student", StatusCode: 404}
	_, err := svc.Mount(context.Background(), owner, "S1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	stub.err = &backend.TransportError{Op: "student", Err: errors.New("refused")}
	_, err = svc.Mount(context.Background(), owner, "S1")
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))

	_, err = svc.Mount(context.Background(), nil, "S1")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestSchedulerServiceRemountReplacesSession(t *testing.T) {
	svc, _, _ := schedulerFixture()

	first, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)
	second, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, svc.ActiveSessions())

	_, err = svc.Snapshot(context.Background(), owner, first.SessionID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Mount(context.Background(), admin, "S1")
	require.NoError(t, err)
	assert.Equal(t, 2, svc.ActiveSessions())
}

func TestSchedulerServiceOwnershipIsEnforced(t *testing.T) {
	svc, _, _ := schedulerFixture()
	snap, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)

	_, err = svc.Snapshot(context.Background(), other, snap.SessionID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Snapshot(context.Background(), admin, snap.SessionID)
	assert.NoError(t, err)

	_, err = svc.Snapshot(context.Background(), owner, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSchedulerServiceSelectAndDeselectUpdateConflicts(t *testing.T) {
	svc, _, _ := schedulerFixture()
	snap, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)
	id := snap.SessionID

	_, err = svc.ToggleCourse(context.Background(), owner, id, "MATH100")
	require.NoError(t, err)
	snap, err = svc.SelectGrouping(context.Background(), owner, id, "MATH100", dto.SelectGroupingRequest{GroupingID: "M2"})
	require.NoError(t, err)
	assert.Empty(t, snap.Conflicts)

	_, err = svc.ToggleCourse(context.Background(), owner, id, "MATH100")
	require.NoError(t, err)
	_, err = svc.SelectGrouping(context.Background(), owner, id, "MATH100", dto.SelectGroupingRequest{GroupingID: "M1"})
	require.NoError(t, err)
	conflicts, err := svc.Conflicts(context.Background(), owner, id)
	require.NoError(t, err)
	assert.True(t, conflicts.Ready)
	assert.Len(t, conflicts.Conflicts, 1)

	snap, err = svc.DeselectCourse(context.Background(), owner, id, "CPSC110")
	require.NoError(t, err)
	assert.Empty(t, snap.Conflicts)
	assert.Len(t, snap.Selected, 1)

	_, err = svc.SelectGrouping(context.Background(), owner, id, "MATH100", dto.SelectGroupingRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSchedulerServiceCalendarFlagsConflictedBlocks(t *testing.T) {
	svc, _, _ := schedulerFixture()
	snap, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)

	view, err := svc.Calendar(context.Background(), owner, snap.SessionID)
	require.NoError(t, err)
	assert.True(t, view.Ready)
	assert.Equal(t, models.Week, view.Days)
	assert.Equal(t, 8, view.FirstHour)
	assert.Equal(t, 23, view.LastHour)
	require.Len(t, view.Blocks, 2)
	for _, block := range view.Blocks {
		assert.True(t, block.Conflicted)
	}
	assert.Equal(t, 9.0, view.Blocks[0].StartHour)
	assert.Equal(t, 10.5, view.Blocks[0].EndHour)
	assert.Equal(t, models.DefaultPalette()[1], view.Blocks[1].Color)
}

func TestSchedulerServiceSavePersistsPreferenceOrder(t *testing.T) {
	svc, stub, _ := schedulerFixture()
	snap, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)

	result, err := svc.Save(context.Background(), owner, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"G1", "M1"}, result.CourseGroupings)
	assert.Equal(t, []string{"G1", "M1"}, stub.saved)

	_, err = svc.DeselectCourse(context.Background(), owner, snap.SessionID, "MATH100")
	require.NoError(t, err)
	result, err = svc.Save(context.Background(), owner, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"G1"}, result.CourseGroupings)

	current, err := svc.Snapshot(context.Background(), owner, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"CPSC110"}, current.Student.CourseCodes)
}

func TestSchedulerServiceSaveRefusedWhileLoading(t *testing.T) {
	svc, _, fetcher := schedulerFixture()
	snap, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)

	fetcher.mu.Lock()
	fetcher.release = make(chan struct{})
	fetcher.started = make(chan struct{}, 1)
	fetcher.mu.Unlock()

	_, err = svc.ToggleCourse(context.Background(), owner, snap.SessionID, "MATH100")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		_, err := svc.SelectGrouping(context.Background(), owner, snap.SessionID, "MATH100", dto.SelectGroupingRequest{GroupingID: "M2"})
		done <- err
	}()
	<-fetcher.started

	_, err = svc.Save(context.Background(), owner, snap.SessionID)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	conflicts, err := svc.Conflicts(context.Background(), owner, snap.SessionID)
	require.NoError(t, err)
	assert.False(t, conflicts.Ready)
	assert.Empty(t, conflicts.Conflicts)

	close(fetcher.release)
	require.NoError(t, <-done)
	_, err = svc.Save(context.Background(), owner, snap.SessionID)
	assert.NoError(t, err)
}

func TestSchedulerServiceSaveMapsUpstreamFailure(t *testing.T) {
	svc, stub, _ := schedulerFixture()
	snap, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)

	stub.saveErr = &backend.StatusError{Op: "replace_course_groupings", StatusCode: 500}
	_, err = svc.Save(context.Background(), owner, snap.SessionID)
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
}

func TestSchedulerServiceMarkDoneFlipsWithoutAliasing(t *testing.T) {
	svc, stub, _ := schedulerFixture()
	snap, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)
	before := snap.Student

	student, err := svc.MarkDone(context.Background(), owner, snap.SessionID)
	require.NoError(t, err)
	assert.True(t, student.IsCompleted)
	assert.False(t, before.IsCompleted)
	assert.Equal(t, 1, stub.flips)

	student.Courses["CPSC110"] = "mutated"
	current, err := svc.Snapshot(context.Background(), owner, snap.SessionID)
	require.NoError(t, err)
	assert.True(t, current.Student.IsCompleted)
	assert.Equal(t, "G1", current.Student.Courses["CPSC110"])

	stub.flipErr = errors.New("down")
	_, err = svc.MarkDone(context.Background(), owner, snap.SessionID)
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
}

func TestSchedulerServiceConcurrentMarkDoneMirrorsEveryFlip(t *testing.T) {
	svc, stub, _ := schedulerFixture()
	snap, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)

	const requests = 8
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.MarkDone(context.Background(), owner, snap.SessionID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, requests, stub.flips)
	current, err := svc.Snapshot(context.Background(), owner, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, snap.Student.IsCompleted, current.Student.IsCompleted)

	student, err := svc.MarkDone(context.Background(), owner, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, !snap.Student.IsCompleted, student.IsCompleted)
}

func TestSchedulerServiceExpiresIdleSessions(t *testing.T) {
	svc, _, _ := schedulerFixture()
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	first, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)
	second, err := svc.Mount(context.Background(), admin, "S1")
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	_, err = svc.Snapshot(context.Background(), owner, first.SessionID)
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, svc.Sweep())
	_, err = svc.Snapshot(context.Background(), admin, second.SessionID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = svc.Snapshot(context.Background(), owner, first.SessionID)
	assert.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = svc.Snapshot(context.Background(), owner, first.SessionID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, 0, svc.ActiveSessions())
}

func TestSchedulerServiceUnmount(t *testing.T) {
	svc, _, _ := schedulerFixture()
	snap, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)

	assert.True(t, errors.Is(svc.Unmount(context.Background(), other, snap.SessionID), appErrors.ErrForbidden))
	require.NoError(t, svc.Unmount(context.Background(), owner, snap.SessionID))
	assert.Equal(t, 0, svc.ActiveSessions())
	assert.True(t, errors.Is(svc.Unmount(context.Background(), owner, snap.SessionID), appErrors.ErrNotFound))
}

func TestSchedulerServiceShutdownClosesEverySession(t *testing.T) {
	svc, _, _ := schedulerFixture()
	first, err := svc.Mount(context.Background(), owner, "S1")
	require.NoError(t, err)
	_, err = svc.Mount(context.Background(), other, "S1")
	require.NoError(t, err)
	require.Equal(t, 2, svc.ActiveSessions())

	assert.Equal(t, 2, svc.Shutdown())
	assert.Equal(t, 0, svc.ActiveSessions())
	_, err = svc.Snapshot(context.Background(), owner, first.SessionID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCourseCodesForAppendsSavedCoursesOutsidePreferences(t *testing.T) {
	codes := courseCodesFor(models.StudentInfo{
		Preferences: []string{"A", "B", "A"},
		CourseCodes: []string{"C", "B"},
	})
	assert.Equal(t, []string{"A", "B", "C"}, codes)
}
