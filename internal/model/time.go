package model

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

// datetimeLayouts are tried in order for request payloads. A trailing "Z" is
// dropped first, so "2024-01-15T10:30:00Z" is read as a local wall time.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDatetime(s string) (time.Time, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime format %q", s)
}

func unquote(b []byte) (string, bool) {
	if bytes.Equal(b, []byte("null")) {
		return "", false
	}
	return strings.Trim(string(b), `"`), true
}

// Date is a calendar date without a time zone (SQL DATE).
type Date struct{ civil.Date }

// DateOf returns the date in which t occurs.
func DateOf(t time.Time) Date { return Date{civil.DateOf(t)} }

// UnmarshalText accepts an ISO date or datetime; the time part is dropped.
func (d *Date) UnmarshalText(b []byte) error {
	s := string(b)
	if v, err := civil.ParseDate(s); err == nil {
		d.Date = v
		return nil
	}
	t, err := parseDatetime(s)
	if err != nil {
		return fmt.Errorf("invalid date format %q", s)
	}
	d.Date = civil.DateOf(t)
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.In(time.UTC), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Date = civil.DateOf(v)
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case nil:
		d.Date = civil.Date{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

// Clock is a time of day without a date (SQL TIME).
type Clock struct{ civil.Time }

// ClockOf returns the time of day of t.
func ClockOf(t time.Time) Clock { return Clock{civil.TimeOf(t)} }

// UnmarshalText accepts "15:04", "15:04:05[.fff]" or a datetime whose time
// part is kept.
func (c *Clock) UnmarshalText(b []byte) error {
	s := strings.TrimSuffix(strings.TrimSpace(string(b)), "Z")
	if v, err := civil.ParseTime(s); err == nil {
		c.Time = v
		return nil
	}
	if t, err := time.Parse("15:04", s); err == nil {
		c.Time = civil.TimeOf(t)
		return nil
	}
	t, err := parseDatetime(s)
	if err != nil || !strings.ContainsAny(s, "T ") {
		return fmt.Errorf("invalid time format %q", string(b))
	}
	c.Time = civil.TimeOf(t)
	return nil
}

// Value implements driver.Valuer.
func (c Clock) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan implements sql.Scanner.
func (c *Clock) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		c.Time = civil.TimeOf(v)
		return nil
	case string:
		return c.UnmarshalText([]byte(v))
	case []byte:
		return c.UnmarshalText(v)
	case nil:
		c.Time = civil.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into Clock", src)
}

// Timestamp is a naive datetime (SQL DATETIME), serialized without zone.
type Timestamp struct{ time.Time }

const timestampLayout = "2006-01-02T15:04:05"

// TimestampOf wraps t.
func TimestampOf(t time.Time) Timestamp { return Timestamp{t} }

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(timestampLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s, ok := unquote(b)
	if !ok {
		return nil
	}
	v, err := parseDatetime(s)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

// Value implements driver.Valuer.
func (t Timestamp) Value() (driver.Value, error) {
	return t.Time, nil
}

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.UnmarshalJSON([]byte(`"` + v + `"`))
	case []byte:
		return t.UnmarshalJSON([]byte(`"` + string(v) + `"`))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into Timestamp", src)
}
