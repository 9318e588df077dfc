// Package timeofday handles the wall-clock values used by schedules: times of day
// exchanged as "HH:MM", calendar dates as "YYYY-MM-DD", and free-text durations.
package timeofday

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Clock is a time of day stored as minutes after midnight.
type Clock int

// MustParse parses a clock value and panics on malformed input. Intended for tests and constants.
func MustParse(raw string) Clock {
	c, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse accepts "HH:MM" or "HH:MM:SS" (seconds are dropped).
func Parse(raw string) (Clock, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return Clock(h*60 + m), nil
}

// Minutes returns the number of minutes after midnight.
func (c Clock) Minutes() int { return int(c) }

// Add shifts the clock by the given number of minutes.
func (c Clock) Add(minutes int) Clock { return c + Clock(minutes) }

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Value implements driver.Valuer for TIME columns.
func (c Clock) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan implements sql.Scanner for TIME and TEXT columns.
func (c *Clock) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return c.parseInto(string(v))
	case string:
		return c.parseInto(v)
	case time.Time:
		*c = Clock(v.Hour()*60 + v.Minute())
		return nil
	default:
		return fmt.Errorf("unsupported type %T for Clock", src)
	}
}

func (c *Clock) parseInto(raw string) error {
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalJSON renders the clock as a quoted HH:MM string.
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON parses a quoted HH:MM string.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	return c.parseInto(raw)
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return d, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Weekday numbers days Monday=0 through Sunday=6.
func Weekday(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// ParseDurationMinutes reads a free-text duration such as "30", "00:30", "30 min", "1h" or
// "1 hour 15 min". It returns ok=false when nothing positive can be read.
func ParseDurationMinutes(raw string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, n > 0
	}
	if strings.Contains(s, ":") {
		c, err := Parse(s)
		if err != nil {
			return 0, false
		}
		return c.Minutes(), c > 0
	}

	total := 0
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	for i := 0; i < len(fields); i++ {
		num, unit := splitNumberUnit(fields[i])
		if num < 0 {
			return 0, false
		}
		if unit == "" && i+1 < len(fields) {
			i++
			unit = fields[i]
		}
		switch {
		case unit == "" || strings.HasPrefix(unit, "m"):
			total += num
		case strings.HasPrefix(unit, "h"):
			total += num * 60
		default:
			return 0, false
		}
	}
	return total, total > 0
}

func splitNumberUnit(token string) (int, string) {
	end := 0
	for end < len(token) && token[end] >= '0' && token[end] <= '9' {
		end++
	}
	if end == 0 {
		return -1, ""
	}
	n, err := strconv.Atoi(token[:end])
	if err != nil {
		return -1, ""
	}
	return n, token[end:]
}
