package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduler-api/internal/dto"
	"github.com/noah-isme/course-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduler-api/pkg/errors"
	"github.com/noah-isme/course-scheduler-api/pkg/export"
)

const slotMinutes = 30

var exportColumns = []string{"Course", "Grouping", "Day", "Start", "End", "Room", "Conflict"}

var contentTypes = map[string]string{
	"csv":  "text/csv; charset=utf-8",
	"pdf":  "application/pdf",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ics":  "text/calendar; charset=utf-8",
}

var weekdays = map[models.Day]time.Weekday{
	models.DayMonday:    time.Monday,
	models.DayTuesday:   time.Tuesday,
	models.DayWednesday: time.Wednesday,
	models.DayThursday:  time.Thursday,
	models.DayFriday:    time.Friday,
	models.DaySaturday:  time.Saturday,
	models.DaySunday:    time.Sunday,
}

type selectionSource interface {
	Selected(ctx context.Context, principal *models.Principal, sessionID string) ([]models.SelectedCourse, models.StudentInfo, bool, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type gridRenderer interface {
	Render(grid export.WeekGrid, table export.Table, title string) ([]byte, error)
}

type icsRenderer interface {
	Render(events []export.RecurringEvent, name string, loc *time.Location) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Enabled   bool
	TermWeeks int
	Timezone  string
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders a session's selected schedule into downloadable files.
type ExportService struct {
	sessions  selectionSource
	csv       csvRenderer
	pdf       gridRenderer
	xlsx      gridRenderer
	ics       icsRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	location  *time.Location
	now       func() time.Time
}

// NewExportService constructs an ExportService backed by the pkg/export renderers.
func NewExportService(sessions selectionSource, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) (*ExportService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.TermWeeks <= 0 {
		cfg.TermWeeks = 14
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("load export timezone %q: %w", cfg.Timezone, err)
		}
	}
	return &ExportService{
		sessions:  sessions,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		xlsx:      export.NewXLSXExporter(),
		ics:       export.NewICSExporter(),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		location:  loc,
		now:       time.Now,
	}, nil
}

// Export renders the selected schedule of a session in the requested format.
func (s *ExportService) Export(ctx context.Context, principal *models.Principal, sessionID string, query dto.ExportQuery) (*ExportFile, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}
	query.Format = strings.ToLower(strings.TrimSpace(query.Format))
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid export query")
	}

	selected, student, ready, err := s.sessions.Selected(ctx, principal, sessionID)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "a grouping schedule is still loading")
	}

	conflicts := DetectConflicts(selected)
	view := BuildCalendar(selected, conflicts)
	title := scheduleTitle(student)

	var body []byte
	switch query.Format {
	case "csv":
		body, err = s.csv.Render(meetingTable(view))
	case "pdf":
		body, err = s.pdf.Render(weekGrid(view), meetingTable(view), title)
	case "xlsx":
		body, err = s.xlsx.Render(weekGrid(view), meetingTable(view), title)
	case "ics":
		var termStart time.Time
		termStart, err = s.termStart(query.TermStart)
		if err == nil {
			body, err = s.ics.Render(s.recurringEvents(view, termStart), title, s.location)
		}
	}
	if err != nil {
		s.logger.Error("render export failed", zap.String("format", query.Format), zap.String("session_id", sessionID), zap.Error(err))
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to render export")
	}

	return &ExportFile{
		Filename:    s.buildFilename(student, query.Format),
		ContentType: contentTypes[query.Format],
		Body:        body,
	}, nil
}

func scheduleTitle(student models.StudentInfo) string {
	name := strings.TrimSpace(student.FirstName + " " + student.LastName)
	if name == "" {
		name = student.ID
	}
	return "Schedule - " + name
}

func (s *ExportService) buildFilename(student models.StudentInfo, format string) string {
	date := s.now().In(s.location).Format("20060102")
	return fmt.Sprintf("schedule_%s_%s.%s", sanitizeFilename(student.ID), date, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", `"`, "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func meetingTable(view models.CalendarView) export.Table {
	table := export.NewTable(exportColumns...)
	for _, block := range view.Blocks {
		conflict := ""
		if block.Conflicted {
			conflict = "yes"
		}
		table.Append(block.CourseCode, block.GroupingID, string(block.Day), block.BeginTime.String(),
			block.EndTime.String(), block.BuildingRoom, conflict)
	}
	return table
}

// weekGrid slices the visible calendar window into half-hour rows.
func weekGrid(view models.CalendarView) export.WeekGrid {
	days := make([]string, len(view.Days))
	for i, d := range view.Days {
		days[i] = string(d)
	}
	first := models.ClockTime(view.FirstHour * 60)
	last := models.ClockTime(view.LastHour * 60)
	var slots []string
	for t := first; t < last; t += slotMinutes {
		slots = append(slots, t.String())
	}
	grid := export.NewWeekGrid(days, slots)

	for _, block := range view.Blocks {
		col := block.Day.Index()
		if col < 0 {
			continue
		}
		for i := range slots {
			slotStart := first + models.ClockTime(i*slotMinutes)
			slotEnd := slotStart + slotMinutes
			if block.BeginTime < slotEnd && slotStart < block.EndTime {
				grid.Put(i, col, block.CourseCode, block.Conflicted)
			}
		}
	}
	return grid
}

// termStart parses YYYY-MM-DD in the export zone, defaulting to the next Monday.
func (s *ExportService) termStart(raw string) (time.Time, error) {
	if raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, s.location)
		if err != nil {
			return time.Time{}, appErrors.WrapAs(appErrors.ErrValidation, err, "term_start must be YYYY-MM-DD")
		}
		return parsed, nil
	}
	now := s.now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	offset := (int(time.Monday) - int(today.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return today.AddDate(0, 0, offset), nil
}

// firstOccurrence returns the first date on or after start that falls on weekday.
func firstOccurrence(start time.Time, weekday time.Weekday) time.Time {
	offset := (int(weekday) - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, offset)
}

func atClock(date time.Time, clock models.ClockTime, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(clock)/60, int(clock)%60, 0, 0, loc)
}

func (s *ExportService) recurringEvents(view models.CalendarView, termStart time.Time) []export.RecurringEvent {
	events := make([]export.RecurringEvent, 0, len(view.Blocks))
	for _, block := range view.Blocks {
		weekday, ok := weekdays[block.Day]
		if !ok {
			s.logger.Warn("skipping meeting with unknown day in calendar export", zap.String("course_code", block.CourseCode), zap.String("day", string(block.Day)))
			continue
		}
		date := firstOccurrence(termStart, weekday)
		start := atClock(date, block.BeginTime, s.location)
		end := atClock(date, block.EndTime, s.location)
		description := "Grouping " + block.GroupingID
		if block.Conflicted {
			description += " (time conflict)"
		}
		events = append(events, export.RecurringEvent{
			UID:         strings.ToLower(fmt.Sprintf("%s-%s-%s-%s@course-scheduler", block.CourseCode, block.GroupingID, block.Day, strings.ReplaceAll(block.BeginTime.String(), ":", ""))),
			Summary:     fmt.Sprintf("%s (%s)", block.CourseCode, block.GroupingID),
			Location:    block.BuildingRoom,
			Description: description,
			Start:       start,
			End:         end,
			Weeks:       s.cfg.TermWeeks,
		})
	}
	return events
}
