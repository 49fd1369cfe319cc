package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduler-api/internal/backend"
	"github.com/noah-isme/course-scheduler-api/internal/models"
)

type courseGroupingSource interface {
	CourseGroupings(ctx context.Context, courseCode, studentID string) (*backend.GroupingSet, error)
}

// ResolvedGroupings is the grouping list of a course plus any schedules the backend embedded.
type ResolvedGroupings struct {
	Order     []string                          `json:"order"`
	Schedules map[string][]models.ScheduleEntry `json:"schedules"`
}

// GroupingResolver maps a course code to the groupings available to a student.
type GroupingResolver struct {
	source courseGroupingSource
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewGroupingResolver constructs the resolver. cache may be nil.
func NewGroupingResolver(source courseGroupingSource, cache *CacheService, ttl time.Duration, logger *zap.Logger) *GroupingResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupingResolver{source: source, cache: cache, ttl: ttl, logger: logger}
}

func groupingCacheKey(studentID, courseCode string) string {
	return fmt.Sprintf("groupings:%s:%s", studentID, courseCode)
}

// Forget drops every cached grouping list of a student.
func (r *GroupingResolver) Forget(ctx context.Context, studentID string) error {
	return r.cache.Invalidate(ctx, fmt.Sprintf("groupings:%s:*", studentID))
}

// Resolve returns grouping ids in arrival order without duplicates. Groupings whose embedded
// meetings are missing or malformed are still listed; their schedules are fetched on selection.
func (r *GroupingResolver) Resolve(ctx context.Context, courseCode, studentID string) (*ResolvedGroupings, error) {
	resolved, _, err := Remember(ctx, r.cache, groupingCacheKey(studentID, courseCode), r.ttl, func(ctx context.Context) (*ResolvedGroupings, error) {
		return r.load(ctx, courseCode, studentID)
	})
	if err != nil {
		return nil, err
	}
	if resolved.Schedules == nil {
		resolved.Schedules = make(map[string][]models.ScheduleEntry)
	}
	return resolved, nil
}

func (r *GroupingResolver) load(ctx context.Context, courseCode, studentID string) (*ResolvedGroupings, error) {
	set, err := r.source.CourseGroupings(ctx, courseCode, studentID)
	if err != nil {
		return nil, err
	}

	resolved := &ResolvedGroupings{
		Order:     make([]string, 0, len(set.Order)),
		Schedules: make(map[string][]models.ScheduleEntry),
	}
	seen := make(map[string]struct{}, len(set.Order))
	for _, id := range set.Order {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		resolved.Order = append(resolved.Order, id)

		meetings := set.Meetings[id]
		if len(meetings) == 0 {
			continue
		}
		entries, err := ConvertMeetings(meetings, r.logger.With(zap.String("grouping_id", id)))
		if err != nil {
			r.logger.Warn("ignoring embedded schedule", zap.String("course_code", courseCode), zap.String("grouping_id", id), zap.Error(err))
			continue
		}
		resolved.Schedules[id] = entries
	}
	return resolved, nil
}
