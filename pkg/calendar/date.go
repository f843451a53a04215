// Package calendar provides civil dates, week and month windows, and a
// zone-anchored Calendar for the ledger. Every "today", week window and
// month window in the system is resolved through this package so that the
// whole process agrees on one operating time zone.
package calendar

import (
	"database/sql/driver"
	"fmt"
	"iter"
	"strings"
	"time"
)

// Layout is the wire and storage format of a Date.
const Layout = "2006-01-02"

// MonthLayout is the wire and storage format of a YearMonth.
const MonthLayout = "2006-01"

// ══════════════════════════════════════════════════════════════════════════════
// DATE
// ══════════════════════════════════════════════════════════════════════════════

// Date is a calendar day without a time zone. The zero value is "no date".
type Date struct {
	t time.Time // midnight UTC
}

// NewDate returns the date for the given year, month and day.
// Out-of-range values are normalized the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("calendar: invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for literals in tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	return d.t.Compare(other.t)
}

// DaysSince returns the number of days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.t.Sub(other.t).Hours() / 24)
}

// YearMonth returns the month d belongs to.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.t.Year(), Month: d.t.Month()}
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.t.Year(), d.t.Month(), d.t.Day(), 0, 0, 0, 0, loc)
}

// String returns the YYYY-MM-DD form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

// MarshalText implements encoding.TextMarshaler (and therefore JSON).
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer. Dates are stored as YYYY-MM-DD text.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan implements sql.Scanner for text, DATE and timestamp columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("calendar: cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(Layout) {
		s = s[:len(Layout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RANGE
// ══════════════════════════════════════════════════════════════════════════════

// Range is a closed interval of dates. A range whose End is before its Start
// is empty.
type Range struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewRange returns the closed interval [start, end].
func NewRange(start, end Date) Range {
	return Range{Start: start, End: end}
}

// WeekOf returns the Monday..Sunday window containing d.
func WeekOf(d Date) Range {
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDays(-offset)
	return Range{Start: start, End: start.AddDays(6)}
}

// Empty reports whether the range contains no days.
func (r Range) Empty() bool {
	return r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start)
}

// Contains reports whether d lies inside the range.
func (r Range) Contains(d Date) bool {
	return !r.Empty() && !d.Before(r.Start) && !d.After(r.End)
}

// Len returns the number of days in the range.
func (r Range) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End.DaysSince(r.Start) + 1
}

// Days yields every date of the range in order.
func (r Range) Days() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		if r.Empty() {
			return
		}
		for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
			if !yield(d) {
				return
			}
		}
	}
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// YEAR-MONTH
// ══════════════════════════════════════════════════════════════════════════════

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses a YYYY-MM string.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("calendar: invalid month %q: expected YYYY-MM", s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (m YearMonth) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// First returns the first day of the month.
func (m YearMonth) First() Date { return NewDate(m.Year, m.Month, 1) }

// Last returns the last day of the month.
func (m YearMonth) Last() Date { return NewDate(m.Year, m.Month+1, 0) }

// Range returns the whole month as a date range.
func (m YearMonth) Range() Range { return Range{Start: m.First(), End: m.Last()} }

// Prev returns the month before m.
func (m YearMonth) Prev() YearMonth { return m.First().AddDays(-1).YearMonth() }

// Next returns the month after m.
func (m YearMonth) Next() YearMonth { return m.Last().AddDays(1).YearMonth() }

// Before reports whether m is earlier than other.
func (m YearMonth) Before(other YearMonth) bool {
	return m.First().Before(other.First())
}

// Mondays returns every Monday whose date falls inside the month.
func (m YearMonth) Mondays() []Date {
	first := m.First()
	offset := (int(time.Monday) - int(first.Weekday()) + 7) % 7
	var out []Date
	for d := first.AddDays(offset); d.YearMonth() == m; d = d.AddDays(7) {
		out = append(out, d)
	}
	return out
}

func (m YearMonth) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m YearMonth) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *YearMonth) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*m = YearMonth{}
		return nil
	}
	parsed, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
