package timeofday

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Date is a calendar day without a time component, exchanged as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// MustParseDate parses a YYYY-MM-DD date and panics on malformed input.
func MustParseDate(raw string) Date {
	t, err := ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return Date{t}
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string { return FormatDate(d.Time) }

// Weekday returns the Monday=0 weekday number.
func (d Date) Weekday() int { return Weekday(d.Time) }

// Value implements driver.Valuer for DATE columns.
func (d Date) Value() (driver.Value, error) { return d.String(), nil }

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case []byte:
		return d.parseInto(string(v))
	case string:
		return d.parseInto(v)
	default:
		return fmt.Errorf("unsupported type %T for Date", src)
	}
}

func (d *Date) parseInto(raw string) error {
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	t, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = Date{t}
	return nil
}

// MarshalJSON renders the date as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// UnmarshalJSON parses a quoted YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	return d.parseInto(raw)
}
