package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/noah-isme/course-scheduler-api/internal/models"
)

// GroupingSet is the grouping list for a course in the order the backend sent it.
type GroupingSet struct {
	Order    []string
	Meetings map[string][]models.MeetingPayload
}

func (s *GroupingSet) add(groupingID string, meetings ...models.MeetingPayload) {
	if _, seen := s.Meetings[groupingID]; !seen {
		s.Order = append(s.Order, groupingID)
		s.Meetings[groupingID] = nil
	}
	s.Meetings[groupingID] = append(s.Meetings[groupingID], meetings...)
}

func newGroupingSet() *GroupingSet {
	return &GroupingSet{Meetings: make(map[string][]models.MeetingPayload)}
}

func weakDecode(input, output interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func unmarshalLoose(raw []byte, dest interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dest)
}

// decodeGroupingSet accepts either an object keyed by grouping id or a flat list of
// meetings tagged with course_grouping. Object key order is preserved.
func decodeGroupingSet(raw []byte) (*GroupingSet, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}
	switch trimmed[0] {
	case '{':
		return decodeGroupingObject(trimmed)
	case '[':
		meetings, err := decodeMeetingList(trimmed)
		if err != nil {
			return nil, err
		}
		set := newGroupingSet()
		for _, m := range meetings {
			id := strings.TrimSpace(m.CourseGrouping)
			if id == "" {
				continue
			}
			set.add(id, m)
		}
		return set, nil
	default:
		return nil, fmt.Errorf("unexpected leading byte %q", trimmed[0])
	}
}

func decodeGroupingObject(raw []byte) (*GroupingSet, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	set := newGroupingSet()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("grouping %s: %w", key, err)
		}
		meetings, err := meetingsFromValue(value)
		if err != nil {
			return nil, fmt.Errorf("grouping %s: %w", key, err)
		}
		id := strings.TrimSpace(key)
		if id == "" {
			continue
		}
		set.add(id, meetings...)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return set, nil
}

func meetingsFromValue(value interface{}) ([]models.MeetingPayload, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		out := make([]models.MeetingPayload, 0, len(v))
		for i, item := range v {
			var m models.MeetingPayload
			if err := weakDecode(item, &m); err != nil {
				return nil, fmt.Errorf("meeting %d: %w", i, err)
			}
			out = append(out, m)
		}
		return out, nil
	case map[string]interface{}:
		var m models.MeetingPayload
		if err := weakDecode(v, &m); err != nil {
			return nil, err
		}
		return []models.MeetingPayload{m}, nil
	default:
		return nil, fmt.Errorf("unexpected meeting value %T", value)
	}
}

func decodeMeetingList(raw []byte) ([]models.MeetingPayload, error) {
	var items []interface{}
	if err := unmarshalLoose(raw, &items); err != nil {
		return nil, err
	}
	return meetingsFromValue(items)
}

type studentWire struct {
	ID          string      `mapstructure:"id"`
	FirstName   string      `mapstructure:"first_name"`
	LastName    string      `mapstructure:"last_name"`
	Email       string      `mapstructure:"email"`
	IsCompleted bool        `mapstructure:"is_completed"`
	Preferences []string    `mapstructure:"preferences"`
	CourseCodes []string    `mapstructure:"course_codes"`
	Courses     interface{} `mapstructure:"courses"`
}

type savedCourseWire struct {
	CourseCode     string `mapstructure:"course_code"`
	CourseGrouping string `mapstructure:"course_grouping"`
}

func decodeStudent(raw []byte) (*models.StudentInfo, error) {
	var generic map[string]interface{}
	if err := unmarshalLoose(raw, &generic); err != nil {
		return nil, err
	}
	var wire studentWire
	if err := weakDecode(generic, &wire); err != nil {
		return nil, err
	}
	if strings.TrimSpace(wire.ID) == "" {
		return nil, errors.New("student id missing")
	}
	courses, err := decodeSavedCourses(wire.Courses)
	if err != nil {
		return nil, fmt.Errorf("courses: %w", err)
	}
	return &models.StudentInfo{
		ID:          wire.ID,
		FirstName:   wire.FirstName,
		LastName:    wire.LastName,
		Email:       wire.Email,
		IsCompleted: wire.IsCompleted,
		Preferences: dedupe(wire.Preferences),
		CourseCodes: dedupe(wire.CourseCodes),
		Courses:     courses,
	}, nil
}

// decodeSavedCourses accepts {"CODE": "grouping"}, {"CODE": {"course_grouping": ...}} or
// [{"course_code": ..., "course_grouping": ...}].
func decodeSavedCourses(value interface{}) (map[string]string, error) {
	out := make(map[string]string)
	switch v := value.(type) {
	case nil:
		return out, nil
	case map[string]interface{}:
		for code, item := range v {
			switch g := item.(type) {
			case map[string]interface{}:
				var saved savedCourseWire
				if err := weakDecode(g, &saved); err != nil {
					return nil, err
				}
				out[code] = saved.CourseGrouping
			default:
				var grouping string
				if err := weakDecode(item, &grouping); err != nil {
					return nil, err
				}
				out[code] = grouping
			}
		}
	case []interface{}:
		var saved []savedCourseWire
		if err := weakDecode(v, &saved); err != nil {
			return nil, err
		}
		for _, s := range saved {
			if s.CourseCode != "" {
				out[s.CourseCode] = s.CourseGrouping
			}
		}
	default:
		return nil, fmt.Errorf("unexpected type %T", value)
	}
	return out, nil
}

func decodeUserInfo(raw []byte) (*models.UserInfo, error) {
	var generic map[string]interface{}
	if err := unmarshalLoose(raw, &generic); err != nil {
		return nil, err
	}
	if nested, ok := generic["user"].(map[string]interface{}); ok {
		generic = nested
	}
	var info models.UserInfo
	if err := weakDecode(generic, &info); err != nil {
		return nil, err
	}
	if info.ID == "" && info.Email == "" {
		return nil, errors.New("user identity missing")
	}
	return &info, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
