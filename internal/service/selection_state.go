package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/course-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduler-api/pkg/errors"
)

type groupingResolver interface {
	Resolve(ctx context.Context, courseCode, studentID string) (*ResolvedGroupings, error)
}

type scheduleFetcher interface {
	Fetch(ctx context.Context, groupingID string) ([]models.ScheduleEntry, error)
}

type staleRecorder interface {
	RecordStaleFetch()
}

type courseRecord struct {
	code      string
	color     models.PaletteEntry
	state     models.CourseState
	order     []string
	schedules map[string][]models.ScheduleEntry
	failed    bool
	replayed  bool
	cancel    context.CancelFunc
}

func (r *courseRecord) offers(groupingID string) bool {
	for _, id := range r.order {
		if id == groupingID {
			return true
		}
	}
	return false
}

func (r *courseRecord) stopFetch() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// SelectionState holds the per-course selection of one scheduler session. All methods are
// safe for concurrent use; fetches run without the lock held and their results are applied
// only if the course is still waiting on that exact fetch.
type SelectionState struct {
	mu         sync.Mutex
	studentID  string
	order      []string
	courses    map[string]*courseRecord
	generation uint64

	resolver groupingResolver
	fetcher  scheduleFetcher
	stale    staleRecorder
	logger   *zap.Logger
}

// NewSelectionState creates one Unselected record per course code, coloured by position.
func NewSelectionState(studentID string, courseCodes []string, palette models.Palette, resolver groupingResolver, fetcher scheduleFetcher, stale staleRecorder, logger *zap.Logger) *SelectionState {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(palette) == 0 {
		palette = models.DefaultPalette()
	}
	s := &SelectionState{
		studentID: studentID,
		courses:   make(map[string]*courseRecord, len(courseCodes)),
		resolver:  resolver,
		fetcher:   fetcher,
		stale:     stale,
		logger:    logger.With(zap.String("student_id", studentID)),
	}
	for _, code := range courseCodes {
		if _, dup := s.courses[code]; dup || code == "" {
			continue
		}
		s.courses[code] = &courseRecord{
			code:      code,
			color:     palette.ColorFor(len(s.order)),
			state:     models.Unselected{},
			schedules: make(map[string][]models.ScheduleEntry),
		}
		s.order = append(s.order, code)
	}
	return s
}

func (s *SelectionState) record(courseCode string) (*courseRecord, error) {
	rec, ok := s.courses[courseCode]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course is not part of this schedule")
	}
	return rec, nil
}

func (s *SelectionState) beginFetch(ctx context.Context, rec *courseRecord, pending string) (context.Context, uint64) {
	rec.stopFetch()
	s.generation++
	gen := s.generation
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	rec.cancel = cancel
	rec.state = models.Loading{Generation: gen, PendingGrouping: pending, Previous: rec.state}
	return fetchCtx, gen
}

// settle drops an in-flight fetch and falls back to the choice held before it started.
func (r *courseRecord) settle(loading models.Loading) {
	r.stopFetch()
	if choice, ok := models.ChoiceOf(loading.Previous); ok {
		r.state = models.Resolved{Choice: *choice}
		return
	}
	r.state = models.Unselected{}
}

// recordLocked merges a schedule into the grouping cache. Other groupings are untouched.
func (r *courseRecord) recordLocked(groupingID string, entries []models.ScheduleEntry) []models.ScheduleEntry {
	merged := append([]models.ScheduleEntry(nil), entries...)
	r.schedules[groupingID] = merged
	return merged
}

// current reports whether rec is still waiting on the fetch tagged gen.
func (s *SelectionState) current(rec *courseRecord, gen uint64) bool {
	loading, ok := rec.state.(models.Loading)
	if ok && loading.Generation == gen {
		return true
	}
	s.logger.Debug("discarding stale fetch result", zap.String("course_code", rec.code), zap.Uint64("generation", gen))
	if s.stale != nil {
		s.stale.RecordStaleFetch()
	}
	return false
}

// ToggleDropdown opens or closes the grouping dropdown of a course. Opening with an empty
// grouping cache fetches the grouping list first; toggling while loading cancels the fetch
// and keeps whatever grouping was chosen before it.
func (s *SelectionState) ToggleDropdown(ctx context.Context, courseCode string) (models.CourseSnapshot, error) {
	s.mu.Lock()
	rec, err := s.record(courseCode)
	if err != nil {
		s.mu.Unlock()
		return models.CourseSnapshot{}, err
	}

	switch state := rec.state.(type) {
	case models.Loading:
		rec.settle(state)
	case models.AwaitingGrouping:
		if state.Current != nil {
			rec.state = models.Resolved{Choice: *state.Current}
		} else {
			rec.state = models.Unselected{}
		}
	default:
		s.mu.Unlock()
		if err := s.open(ctx, courseCode); err != nil {
			return models.CourseSnapshot{}, err
		}
		s.mu.Lock()
	}
	snapshot := s.snapshotLocked(rec)
	s.mu.Unlock()
	return snapshot, nil
}

// open moves an Unselected or Resolved course to AwaitingGrouping, loading the list if needed.
func (s *SelectionState) open(ctx context.Context, courseCode string) error {
	s.mu.Lock()
	rec, err := s.record(courseCode)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var previous *models.Choice
	switch state := rec.state.(type) {
	case models.Loading, models.AwaitingGrouping:
		s.mu.Unlock()
		return nil
	case models.Resolved:
		choice := state.Choice
		previous = &choice
	}
	if len(rec.order) > 0 {
		rec.state = models.AwaitingGrouping{Groupings: append([]string(nil), rec.order...), Current: previous}
		s.mu.Unlock()
		return nil
	}

	fetchCtx, gen := s.beginFetch(ctx, rec, "")
	studentID := s.studentID
	s.mu.Unlock()

	resolved, fetchErr := s.resolver.Resolve(fetchCtx, courseCode, studentID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(rec, gen) {
		return nil
	}
	rec.stopFetch()
	if fetchErr != nil {
		s.logger.Warn("grouping fetch failed", zap.String("course_code", courseCode), zap.Error(fetchErr))
		rec.failed = true
		rec.state = models.AwaitingGrouping{Current: previous}
		return nil
	}
	rec.failed = false
	rec.order = append(rec.order[:0], resolved.Order...)
	for id, entries := range resolved.Schedules {
		rec.recordLocked(id, entries)
	}
	rec.state = models.AwaitingGrouping{Groupings: append([]string(nil), rec.order...), Current: previous}
	return nil
}

// SelectGrouping chooses a grouping for a course and closes its dropdown. A cached schedule
// resolves immediately; otherwise the schedule is fetched and the course stays Loading until
// it arrives. A failed fetch restores the previous choice and marks the course unavailable.
func (s *SelectionState) SelectGrouping(ctx context.Context, courseCode, groupingID string) (models.CourseSnapshot, error) {
	if err := s.selectGrouping(ctx, courseCode, groupingID, false); err != nil {
		return models.CourseSnapshot{}, err
	}
	return s.CourseSnapshot(courseCode)
}

func (s *SelectionState) selectGrouping(ctx context.Context, courseCode, groupingID string, allowUnlisted bool) error {
	if groupingID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "grouping_id is required")
	}

	s.mu.Lock()
	rec, err := s.record(courseCode)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if loading, ok := rec.state.(models.Loading); ok && loading.PendingGrouping == "" {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrConflict, "groupings are still loading for this course")
	}
	if !allowUnlisted && !rec.offers(groupingID) {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrValidation, "grouping is not offered for this course")
	}

	var previous *models.Choice
	if loading, ok := rec.state.(models.Loading); ok {
		previous, _ = models.ChoiceOf(loading.Previous)
	} else {
		previous, _ = models.ChoiceOf(rec.state)
	}

	if cached, ok := rec.schedules[groupingID]; ok {
		rec.stopFetch()
		rec.failed = false
		rec.state = models.Resolved{Choice: models.Choice{GroupingID: groupingID, Schedule: cached}}
		s.mu.Unlock()
		return nil
	}

	rec.state = models.AwaitingGrouping{Groupings: append([]string(nil), rec.order...), Current: previous}
	fetchCtx, gen := s.beginFetch(ctx, rec, groupingID)
	s.mu.Unlock()

	entries, fetchErr := s.fetcher.Fetch(fetchCtx, groupingID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(rec, gen) {
		return nil
	}
	rec.stopFetch()
	if fetchErr != nil {
		s.logger.Warn("schedule fetch failed", zap.String("course_code", courseCode), zap.String("grouping_id", groupingID), zap.Error(fetchErr))
		rec.failed = true
		if previous != nil {
			rec.state = models.Resolved{Choice: *previous}
		} else {
			rec.state = models.AwaitingGrouping{Groupings: append([]string(nil), rec.order...)}
		}
		return nil
	}
	rec.failed = false
	merged := rec.recordLocked(groupingID, entries)
	rec.state = models.Resolved{Choice: models.Choice{GroupingID: groupingID, Schedule: merged}}
	return nil
}

// DeselectCourse unchecks a course. Any in-flight fetch is cancelled and its result discarded;
// the grouping cache is kept.
func (s *SelectionState) DeselectCourse(courseCode string) (models.CourseSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.record(courseCode)
	if err != nil {
		return models.CourseSnapshot{}, err
	}
	rec.stopFetch()
	rec.failed = false
	rec.state = models.Unselected{}
	return s.snapshotLocked(rec), nil
}

// RecordSchedule merges a fetched schedule into a course's grouping cache.
func (s *SelectionState) RecordSchedule(courseCode, groupingID string, entries []models.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.record(courseCode)
	if err != nil {
		return err
	}
	rec.recordLocked(groupingID, entries)
	return nil
}

// Replay restores the saved groupings of a student, each course at most once per session.
// Courses are replayed concurrently, bounded by limit; failures leave the course in its
// degraded state and never abort the others.
func (s *SelectionState) Replay(ctx context.Context, student models.StudentInfo, limit int) {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	s.mu.Lock()
	codes := append([]string(nil), s.order...)
	s.mu.Unlock()

	for _, code := range codes {
		grouping, ok := student.SavedGrouping(code)
		if !ok {
			continue
		}
		code := code
		g.Go(func() error {
			s.replayCourse(gctx, code, grouping)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *SelectionState) replayCourse(ctx context.Context, courseCode, groupingID string) {
	s.mu.Lock()
	rec, ok := s.courses[courseCode]
	if !ok || rec.replayed {
		s.mu.Unlock()
		return
	}
	rec.replayed = true
	s.mu.Unlock()

	if err := s.open(ctx, courseCode); err != nil {
		s.logger.Warn("replay open failed", zap.String("course_code", courseCode), zap.Error(err))
		return
	}
	if err := s.selectGrouping(ctx, courseCode, groupingID, true); err != nil {
		s.logger.Warn("replay select failed", zap.String("course_code", courseCode), zap.String("grouping_id", groupingID), zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if awaiting, ok := rec.state.(models.AwaitingGrouping); ok {
		if awaiting.Current != nil {
			rec.state = models.Resolved{Choice: *awaiting.Current}
		} else {
			rec.state = models.Unselected{}
		}
	}
}

// Selected returns the courses whose chosen grouping has a resolved schedule, in preference
// order. ready is false while any chosen grouping is still waiting on its schedule.
func (s *SelectionState) Selected() ([]models.SelectedCourse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *SelectionState) selectedLocked() ([]models.SelectedCourse, bool) {
	selected := make([]models.SelectedCourse, 0, len(s.order))
	ready := true
	for _, code := range s.order {
		rec := s.courses[code]
		current := rec.state
		if loading, ok := current.(models.Loading); ok {
			if loading.PendingGrouping != "" {
				ready = false
				continue
			}
			// A reopened course keeps its choice while the grouping list reloads.
			current = loading.Previous
		}
		choice, ok := models.ChoiceOf(current)
		if !ok {
			continue
		}
		selected = append(selected, models.SelectedCourse{
			CourseCode:  code,
			GroupingID:  choice.GroupingID,
			Schedule:    choice.Schedule,
			CourseColor: rec.color,
		})
	}
	return selected, ready
}

// CourseSnapshot returns the read model of one course.
func (s *SelectionState) CourseSnapshot(courseCode string) (models.CourseSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.record(courseCode)
	if err != nil {
		return models.CourseSnapshot{}, err
	}
	return s.snapshotLocked(rec), nil
}

// Snapshot returns every course in preference order along with the selected set.
func (s *SelectionState) Snapshot() ([]models.CourseSnapshot, []models.SelectedCourse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	courses := make([]models.CourseSnapshot, 0, len(s.order))
	for _, code := range s.order {
		courses = append(courses, s.snapshotLocked(s.courses[code]))
	}
	selected, ready := s.selectedLocked()
	return courses, selected, ready
}

func (s *SelectionState) snapshotLocked(rec *courseRecord) models.CourseSnapshot {
	snap := models.CourseSnapshot{
		CourseCode: rec.code,
		Status:     rec.state.Status(),
		Groupings:  append([]string{}, rec.order...),
		Color:      rec.color,
	}
	snap.GroupingsAvailable = len(rec.order) > 0 && !rec.failed

	switch state := rec.state.(type) {
	case models.Loading:
		snap.IsLoading = true
		if state.PendingGrouping != "" {
			pending := state.PendingGrouping
			snap.PendingGrouping = &pending
		}
		if choice, ok := models.ChoiceOf(state.Previous); ok {
			id := choice.GroupingID
			snap.SelectedGrouping = &id
		}
	case models.AwaitingGrouping:
		snap.IsOpen = true
		if state.Current != nil {
			id := state.Current.GroupingID
			snap.SelectedGrouping = &id
		}
	case models.Resolved:
		id := state.Choice.GroupingID
		snap.SelectedGrouping = &id
	}
	if !snap.IsLoading && (rec.failed || (snap.IsOpen && len(rec.order) == 0)) {
		snap.Message = models.NoGroupingsMessage
	}
	return snap
}

// Close cancels every in-flight fetch. Late results are discarded.
func (s *SelectionState) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.courses {
		if loading, ok := rec.state.(models.Loading); ok {
			rec.settle(loading)
		}
		rec.stopFetch()
	}
}
