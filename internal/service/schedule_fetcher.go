package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduler-api/internal/models"
)

type groupingScheduleSource interface {
	GroupingSchedule(ctx context.Context, groupingID string) ([]models.MeetingPayload, error)
}

// ScheduleFetcher resolves a grouping id to its weekly meetings.
type ScheduleFetcher struct {
	source groupingScheduleSource
	logger *zap.Logger
}

// NewScheduleFetcher constructs the fetcher.
func NewScheduleFetcher(source groupingScheduleSource, logger *zap.Logger) *ScheduleFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleFetcher{source: source, logger: logger}
}

// Fetch loads and normalises the meetings of one grouping.
func (f *ScheduleFetcher) Fetch(ctx context.Context, groupingID string) ([]models.ScheduleEntry, error) {
	payloads, err := f.source.GroupingSchedule(ctx, groupingID)
	if err != nil {
		return nil, err
	}
	return ConvertMeetings(payloads, f.logger.With(zap.String("grouping_id", groupingID)))
}

// ConvertMeetings turns backend meeting rows into schedule entries. Times must be "HH:MM"
// (seconds tolerated) with end after begin; unknown day spellings pass through upper-cased.
func ConvertMeetings(payloads []models.MeetingPayload, logger *zap.Logger) ([]models.ScheduleEntry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries := make([]models.ScheduleEntry, 0, len(payloads))
	for i, p := range payloads {
		begin, err := models.ParseClock(p.BeginTime)
		if err != nil {
			return nil, fmt.Errorf("meeting %d begin_time: %w", i, err)
		}
		end, err := models.ParseClock(p.EndTime)
		if err != nil {
			return nil, fmt.Errorf("meeting %d end_time: %w", i, err)
		}
		if end <= begin {
			return nil, fmt.Errorf("meeting %d ends at %s before it begins at %s", i, end, begin)
		}
		day, known := models.NormalizeDay(p.Day)
		if !known {
			logger.Warn("unrecognised meeting day passed through", zap.String("day", p.Day))
		}
		entries = append(entries, models.ScheduleEntry{
			Day:          day,
			BeginTime:    begin,
			EndTime:      end,
			BuildingRoom: p.BuildingRoom,
		})
	}
	return entries, nil
}
