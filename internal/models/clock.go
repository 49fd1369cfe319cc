package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ClockTime is a wall-clock time expressed as minutes since midnight.
type ClockTime int

// ParseClock parses "HH:MM" or "HH:MM:SS" 24-hour strings.
func ParseClock(raw string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 24 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	if hours == 24 && minutes != 0 {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	return ClockTime(hours*60 + minutes), nil
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Hours returns the decimal-hour form used for calendar layout (10:30 -> 10.5).
func (t ClockTime) Hours() float64 {
	return float64(t) / 60
}

// MarshalJSON renders the wire form "HH:MM".
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the wire form "HH:MM".
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("clock time must be a string: %w", err)
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
