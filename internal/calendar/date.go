package calendar

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"
)

// dateLayout is the ISO-8601 calendar date layout used on the wire and in
// storage.
const dateLayout = "2006-01-02"

// Date is a proleptic Gregorian calendar date without time-of-day or zone.
//
// The zero Date is not a valid calendar date; use NewDate or ToGregorian.
// Date implements json/text marshalling ("YYYY-MM-DD") and sql Scanner/Valuer
// so it can be used directly as a GORM column type.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the Date for (year, month, day) and reports whether that
// day exists in the proleptic Gregorian calendar.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	if month < time.January || month > time.December {
		return Date{}, false
	}
	if day < 1 || day > DaysIn(year, month) {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// String formats d as YYYY-MM-DD. Years outside 0..9999 keep their sign and
// full width.
func (d Date) String() string {
	if d.Year >= 0 && d.Year <= 9999 {
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
	}
	return strconv.Itoa(d.Year) + fmt.Sprintf("-%02d-%02d", int(d.Month), d.Day)
}

// ParseDate parses a Gregorian "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Value implements driver.Valuer; dates are stored as YYYY-MM-DD text so
// lexical order matches chronological order for four-digit years.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner. Drivers return DATE columns either as
// time.Time or as text depending on the backend.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v.UTC())
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("calendar: cannot scan %T into Date", src)
	}
}

// scanText accepts plain dates as well as timestamp renderings some SQLite
// drivers produce for DATE columns.
func (d *Date) scanText(s string) error {
	if len(s) >= len(dateLayout) {
		if v, err := ParseDate(s[:len(dateLayout)]); err == nil {
			*d = v
			return nil
		}
	}
	return d.UnmarshalText([]byte(s))
}
