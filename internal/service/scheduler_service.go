package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduler-api/internal/backend"
	"github.com/noah-isme/course-scheduler-api/internal/dto"
	"github.com/noah-isme/course-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduler-api/pkg/errors"
)

const (
	calendarFirstHour = 8
	calendarLastHour  = 23
)

type studentBackend interface {
	Student(ctx context.Context, studentID string) (*models.StudentInfo, error)
	ReplaceCourseGroupings(ctx context.Context, studentID string, groupingIDs []string) error
	FlipMarkDone(ctx context.Context, studentID string) error
}

type groupingForgetter interface {
	Forget(ctx context.Context, studentID string) error
}

// SchedulerConfig tunes session lifetime and replay.
type SchedulerConfig struct {
	SessionTTL        time.Duration
	SweepInterval     time.Duration
	ReplayConcurrency int
	Palette           models.Palette
}

type schedulerSession struct {
	id        string
	ownerID   string
	studentID string
	state     *SelectionState

	mu      sync.RWMutex
	student models.StudentInfo

	createdAt time.Time
	lastSeen  time.Time
}

func (s *schedulerSession) Student() models.StudentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.student.Clone()
}

func (s *schedulerSession) setStudent(student models.StudentInfo) {
	s.mu.Lock()
	s.student = student
	s.mu.Unlock()
}

// flipCompleted toggles the mirrored completion flag and returns the new student value.
func (s *schedulerSession) flipCompleted() models.StudentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.student = s.student.WithCompleted(!s.student.IsCompleted)
	return s.student.Clone()
}

type sessionStore struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	items   map[string]*schedulerSession
	byOwner map[string]string
}

func newSessionStore(ttl time.Duration, now func() time.Time) *sessionStore {
	return &sessionStore{
		ttl:     ttl,
		now:     now,
		items:   make(map[string]*schedulerSession),
		byOwner: make(map[string]string),
	}
}

func ownerKey(ownerID, studentID string) string {
	return ownerID + "|" + studentID
}

// Save stores the session and returns the one it replaced for the same owner and student.
func (s *sessionStore) Save(session *schedulerSession) *schedulerSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerKey(session.ownerID, session.studentID)
	var replaced *schedulerSession
	if prevID, ok := s.byOwner[key]; ok {
		replaced = s.items[prevID]
		delete(s.items, prevID)
	}
	session.lastSeen = s.now()
	s.items[session.id] = session
	s.byOwner[key] = session.id
	return replaced
}

// Get returns a live session and refreshes its deadline. Expired sessions are evicted and returned as expired.
func (s *sessionStore) Get(id string) (session *schedulerSession, expired *schedulerSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	now := s.now()
	if s.ttl > 0 && now.Sub(found.lastSeen) > s.ttl {
		s.deleteLocked(found)
		return nil, found
	}
	found.lastSeen = now
	return found, nil
}

func (s *sessionStore) Delete(id string) *schedulerSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	found, ok := s.items[id]
	if !ok {
		return nil
	}
	s.deleteLocked(found)
	return found
}

func (s *sessionStore) deleteLocked(session *schedulerSession) {
	delete(s.items, session.id)
	key := ownerKey(session.ownerID, session.studentID)
	if s.byOwner[key] == session.id {
		delete(s.byOwner, key)
	}
}

// Sweep removes every expired session.
func (s *sessionStore) Sweep() []*schedulerSession {
	if s.ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var expired []*schedulerSession
	for _, session := range s.items {
		if now.Sub(session.lastSeen) > s.ttl {
			expired = append(expired, session)
		}
	}
	for _, session := range expired {
		s.deleteLocked(session)
	}
	return expired
}

// Drain removes every session regardless of age.
func (s *sessionStore) Drain() []*schedulerSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := make([]*schedulerSession, 0, len(s.items))
	for _, session := range s.items {
		drained = append(drained, session)
	}
	s.items = make(map[string]*schedulerSession)
	s.byOwner = make(map[string]string)
	return drained
}

func (s *sessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// SchedulerService owns mounted scheduler sessions and exposes the selection engine per session.
type SchedulerService struct {
	backend   studentBackend
	resolver  groupingResolver
	fetcher   scheduleFetcher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SchedulerConfig
	store     *sessionStore
	now       func() time.Time
}

// NewSchedulerService wires the session manager.
func NewSchedulerService(backend studentBackend, resolver groupingResolver, fetcher scheduleFetcher, metrics *MetricsService, validate *validator.Validate, cfg SchedulerConfig, logger *zap.Logger) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.ReplayConcurrency <= 0 {
		cfg.ReplayConcurrency = 4
	}
	if len(cfg.Palette) == 0 {
		cfg.Palette = models.DefaultPalette()
	}
	svc := &SchedulerService{
		backend:   backend,
		resolver:  resolver,
		fetcher:   fetcher,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
	svc.store = newSessionStore(cfg.SessionTTL, func() time.Time { return svc.now() })
	return svc
}

// Run evicts idle sessions until ctx is done.
func (s *SchedulerService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("evicted idle scheduler sessions", zap.Int("count", n))
			}
		}
	}
}

// Sweep evicts expired sessions and reports how many were dropped.
func (s *SchedulerService) Sweep() int {
	expired := s.store.Sweep()
	for _, session := range expired {
		s.closeSession(session)
	}
	return len(expired)
}

// Shutdown closes every mounted session and cancels their in-flight fetches.
func (s *SchedulerService) Shutdown() int {
	drained := s.store.Drain()
	for _, session := range drained {
		s.closeSession(session)
	}
	return len(drained)
}

func (s *SchedulerService) closeSession(session *schedulerSession) {
	session.state.Close()
	s.metrics.SessionClosed()
}

func upstreamError(err error, action string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case backend.IsNotFound(err):
		return appErrors.WrapAs(appErrors.ErrNotFound, err, "student not found")
	case backend.IsUnauthorized(err):
		return appErrors.WrapAs(appErrors.ErrUnauthorized, err, "backend rejected the session")
	default:
		return appErrors.WrapAs(appErrors.ErrUpstream, err, action)
	}
}

// courseCodesFor lists preference courses first, then saved courses missing from the preferences.
func courseCodesFor(student models.StudentInfo) []string {
	codes := make([]string, 0, len(student.Preferences)+len(student.CourseCodes))
	seen := make(map[string]struct{}, cap(codes))
	for _, list := range [][]string{student.Preferences, student.CourseCodes} {
		for _, code := range list {
			if _, dup := seen[code]; dup || code == "" {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	return codes
}

// Mount loads the student, restores saved groupings and registers a new session.
func (s *SchedulerService) Mount(ctx context.Context, principal *models.Principal, studentID string) (*models.SessionSnapshot, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}

	student, err := s.backend.Student(ctx, studentID)
	if err != nil {
		s.logger.Warn("load student failed", zap.String("student_id", studentID), zap.Error(err))
		return nil, upstreamError(err, "failed to load student")
	}
	if student.ID == "" {
		student.ID = studentID
	}

	logger := s.logger.With(zap.String("owner_id", principal.UserID))
	state := NewSelectionState(studentID, courseCodesFor(*student), s.cfg.Palette, s.resolver, s.fetcher, s.metrics, logger)
	state.Replay(ctx, *student, s.cfg.ReplayConcurrency)

	now := s.now()
	session := &schedulerSession{
		id:        uuid.NewString(),
		ownerID:   principal.UserID,
		studentID: studentID,
		state:     state,
		student:   *student,
		createdAt: now,
	}
	if replaced := s.store.Save(session); replaced != nil {
		s.closeSession(replaced)
	}
	s.metrics.SessionOpened()
	logger.Info("scheduler session mounted", zap.String("session_id", session.id), zap.String("student_id", studentID))
	return s.snapshot(session), nil
}

func (s *SchedulerService) session(principal *models.Principal, sessionID string) (*schedulerSession, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	session, expired := s.store.Get(sessionID)
	if expired != nil {
		s.closeSession(expired)
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduler session not found")
	}
	if session.ownerID != principal.UserID && !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another user")
	}
	return session, nil
}

// Snapshot returns the full read model of a session.
func (s *SchedulerService) Snapshot(ctx context.Context, principal *models.Principal, sessionID string) (*models.SessionSnapshot, error) {
	session, err := s.session(principal, sessionID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(session), nil
}

func (s *SchedulerService) snapshot(session *schedulerSession) *models.SessionSnapshot {
	courses, selected, ready := session.state.Snapshot()
	conflicts := s.detect(selected, ready)
	return &models.SessionSnapshot{
		SessionID: session.id,
		Student:   session.Student(),
		Courses:   courses,
		Selected:  selected,
		Conflicts: conflicts,
		Ready:     ready,
	}
}

func (s *SchedulerService) detect(selected []models.SelectedCourse, ready bool) []models.Conflict {
	if !ready {
		return []models.Conflict{}
	}
	conflicts := DetectConflicts(selected)
	s.metrics.ObserveConflicts(len(conflicts))
	return conflicts
}

// Unmount destroys a session and cancels its in-flight fetches.
func (s *SchedulerService) Unmount(ctx context.Context, principal *models.Principal, sessionID string) error {
	session, err := s.session(principal, sessionID)
	if err != nil {
		return err
	}
	if removed := s.store.Delete(session.id); removed != nil {
		s.closeSession(removed)
	}
	return nil
}

// ToggleCourse opens or closes a course's grouping dropdown.
func (s *SchedulerService) ToggleCourse(ctx context.Context, principal *models.Principal, sessionID, courseCode string) (*models.SessionSnapshot, error) {
	session, err := s.session(principal, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := session.state.ToggleDropdown(ctx, courseCode); err != nil {
		return nil, err
	}
	return s.snapshot(session), nil
}

// SelectGrouping chooses a grouping for a course.
func (s *SchedulerService) SelectGrouping(ctx context.Context, principal *models.Principal, sessionID, courseCode string, req dto.SelectGroupingRequest) (*models.SessionSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid grouping selection")
	}
	session, err := s.session(principal, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := session.state.SelectGrouping(ctx, courseCode, req.GroupingID); err != nil {
		return nil, err
	}
	return s.snapshot(session), nil
}

// DeselectCourse unchecks a course.
func (s *SchedulerService) DeselectCourse(ctx context.Context, principal *models.Principal, sessionID, courseCode string) (*models.SessionSnapshot, error) {
	session, err := s.session(principal, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := session.state.DeselectCourse(courseCode); err != nil {
		return nil, err
	}
	return s.snapshot(session), nil
}

// Conflicts returns the current conflicts. The list is empty while the selection is not ready.
func (s *SchedulerService) Conflicts(ctx context.Context, principal *models.Principal, sessionID string) (*dto.ConflictsResponse, error) {
	session, err := s.session(principal, sessionID)
	if err != nil {
		return nil, err
	}
	selected, ready := session.state.Selected()
	return &dto.ConflictsResponse{Conflicts: s.detect(selected, ready), Ready: ready}, nil
}

// Calendar lays out the selected meetings on the weekly grid.
func (s *SchedulerService) Calendar(ctx context.Context, principal *models.Principal, sessionID string) (*models.CalendarView, error) {
	session, err := s.session(principal, sessionID)
	if err != nil {
		return nil, err
	}
	selected, ready := session.state.Selected()
	view := BuildCalendar(selected, s.detect(selected, ready))
	view.Ready = ready
	return &view, nil
}

// BuildCalendar positions every selected meeting on the MON..SUN grid and flags the ones
// that fall inside a conflict window.
func BuildCalendar(selected []models.SelectedCourse, conflicts []models.Conflict) models.CalendarView {
	view := models.CalendarView{
		Days:      append([]models.Day(nil), models.Week...),
		FirstHour: calendarFirstHour,
		LastHour:  calendarLastHour,
		Blocks:    []models.CalendarBlock{},
		Conflicts: conflicts,
	}
	if view.Conflicts == nil {
		view.Conflicts = []models.Conflict{}
	}
	for _, course := range selected {
		for _, entry := range course.Schedule {
			view.Blocks = append(view.Blocks, models.CalendarBlock{
				CourseCode:   course.CourseCode,
				GroupingID:   course.GroupingID,
				Day:          entry.Day,
				BeginTime:    entry.BeginTime,
				EndTime:      entry.EndTime,
				StartHour:    entry.BeginTime.Hours(),
				EndHour:      entry.EndTime.Hours(),
				BuildingRoom: entry.BuildingRoom,
				Color:        course.CourseColor,
				Conflicted:   IsConflicted(entry, conflicts),
			})
		}
	}
	return view
}

// Save persists the selected groupings in preference order.
func (s *SchedulerService) Save(ctx context.Context, principal *models.Principal, sessionID string) (*dto.SaveResult, error) {
	session, err := s.session(principal, sessionID)
	if err != nil {
		return nil, err
	}
	selected, ready := session.state.Selected()
	if !ready {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "a grouping schedule is still loading")
	}
	ids := make([]string, 0, len(selected))
	for _, course := range selected {
		ids = append(ids, course.GroupingID)
	}
	if err := s.backend.ReplaceCourseGroupings(ctx, session.studentID, ids); err != nil {
		s.logger.Warn("save course groupings failed", zap.String("session_id", session.id), zap.Error(err))
		return nil, upstreamError(err, "failed to save course groupings")
	}

	student := session.Student().Clone()
	student.CourseCodes = make([]string, 0, len(selected))
	for _, course := range selected {
		student.CourseCodes = append(student.CourseCodes, course.CourseCode)
		student.Courses[course.CourseCode] = course.GroupingID
	}
	session.setStudent(student)

	if forgetter, ok := s.resolver.(groupingForgetter); ok {
		if err := forgetter.Forget(ctx, session.studentID); err != nil {
			s.logger.Warn("drop cached groupings failed", zap.String("student_id", session.studentID), zap.Error(err))
		}
	}

	return &dto.SaveResult{StudentID: session.studentID, CourseGroupings: ids, SavedAt: s.now().UTC()}, nil
}

// MarkDone flips the student's completion flag on the backend and mirrors it locally.
func (s *SchedulerService) MarkDone(ctx context.Context, principal *models.Principal, sessionID string) (*models.StudentInfo, error) {
	session, err := s.session(principal, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.backend.FlipMarkDone(ctx, session.studentID); err != nil {
		s.logger.Warn("flip mark done failed", zap.String("session_id", session.id), zap.Error(err))
		return nil, upstreamError(err, "failed to update completion status")
	}
	next := session.flipCompleted()
	return &next, nil
}

// Selected exposes the resolved selection of a session for exports.
func (s *SchedulerService) Selected(ctx context.Context, principal *models.Principal, sessionID string) ([]models.SelectedCourse, models.StudentInfo, bool, error) {
	session, err := s.session(principal, sessionID)
	if err != nil {
		return nil, models.StudentInfo{}, false, err
	}
	selected, ready := session.state.Selected()
	return selected, session.Student(), ready, nil
}

// ActiveSessions reports the number of mounted sessions.
func (s *SchedulerService) ActiveSessions() int {
	return s.store.Len()
}
