package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-scheduler-api/internal/models"
)

type meetingSourceStub struct {
	meetings []models.MeetingPayload
	err      error
	asked    string
}

func (s *meetingSourceStub) GroupingSchedule(ctx context.Context, groupingID string) ([]models.MeetingPayload, error) {
	s.asked = groupingID
	return s.meetings, s.err
}

func TestScheduleFetcherNormalisesMeetings(t *testing.T) {
	source := &meetingSourceStub{meetings: []models.MeetingPayload{
		{Day: "Mon", BeginTime: "09:00:00", EndTime: "10:30", BuildingRoom: "DMP 110"},
		{Day: "thursday", BeginTime: "14:00", EndTime: "15:00"},
	}}
	fetcher := NewScheduleFetcher(source, nil)

	entries, err := fetcher.Fetch(context.Background(), "G1")
	require.NoError(t, err)
	assert.Equal(t, "G1", source.asked)
	require.Len(t, entries, 2)
	assert.Equal(t, models.DayMonday, entries[0].Day)
	assert.Equal(t, clockAt("09:00"), entries[0].BeginTime)
	assert.Equal(t, clockAt("10:30"), entries[0].EndTime)
	assert.Equal(t, "DMP 110", entries[0].BuildingRoom)
	assert.Equal(t, models.DayThursday, entries[1].Day)
}

func TestScheduleFetcherPassesUnknownDayThrough(t *testing.T) {
	entries, err := ConvertMeetings([]models.MeetingPayload{{Day: "tba", BeginTime: "08:00", EndTime: "09:00"}}, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.Day("TBA"), entries[0].Day)
}

func TestScheduleFetcherRejectsMalformedTimes(t *testing.T) {
	cases := map[string]models.MeetingPayload{
		"bad begin":       {Day: "MON", BeginTime: "nine", EndTime: "10:00"},
		"bad end":         {Day: "MON", BeginTime: "09:00", EndTime: "25:00"},
		"end before":      {Day: "MON", BeginTime: "10:00", EndTime: "09:00"},
		"zero length":     {Day: "MON", BeginTime: "10:00", EndTime: "10:00"},
		"missing minutes": {Day: "MON", BeginTime: "10", EndTime: "11:00"},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ConvertMeetings([]models.MeetingPayload{payload}, nil)
			assert.Error(t, err)
		})
	}
}

func TestScheduleFetcherPropagatesSourceError(t *testing.T) {
	fetcher := NewScheduleFetcher(&meetingSourceStub{err: errors.New("boom")}, nil)
	_, err := fetcher.Fetch(context.Background(), "G1")
	assert.EqualError(t, err, "boom")
}

func TestScheduleFetcherEmptyScheduleIsNotNil(t *testing.T) {
	entries, err := ConvertMeetings(nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
