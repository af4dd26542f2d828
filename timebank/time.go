package timebank

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE - Calendar day (local to the punching device)
// =============================================================================

// DateLayout is the storage and wire format of a calendar day.
const DateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day or zone. It is stored as
// midnight UTC so that day arithmetic never crosses a DST boundary.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's own location.
// Convert t with In() first to pick a different zone.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts "YYYY-MM-DD" and, for imported rows, a full timestamp
// whose date part is used as is.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i > 0 {
		s = s[:i]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParseDate panics on malformed input. Use in tests and constants.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) AddDays(n int) Date            { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }
func (d Date) IsZero() bool                  { return d.t.IsZero() }
func (d Date) Weekday() time.Weekday         { return d.t.Weekday() }
func (d Date) Year() int                     { return d.t.Year() }
func (d Date) Month() time.Month             { return d.t.Month() }
func (d Date) Day() int                      { return d.t.Day() }

// Time returns midnight of the day in UTC.
func (d Date) Time() time.Time { return d.t }

// In returns midnight of the day in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.t.Year(), d.t.Month(), d.t.Day(), 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

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

// DaysBetween returns the number of calendar days from a to b (negative if b < a).
func DaysBetween(a, b Date) int {
	return int(b.t.Sub(a.t).Hours() / 24)
}

// MinDate and MaxDate pick the earlier/later day.
func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// =============================================================================
// MINUTES - Signed whole-minute quantity
// =============================================================================

// Minutes is the only unit of the time bank. All arithmetic is integer;
// the only rounding anywhere is truncation of elapsed time to whole minutes.
type Minutes int

// MinutesBetween returns the whole minutes elapsed from start to end,
// floored (so a negative span of 30 seconds is -1).
func MinutesBetween(start, end time.Time) Minutes {
	d := end.Sub(start)
	m := d / time.Minute
	if d < 0 && d%time.Minute != 0 {
		m--
	}
	return Minutes(m)
}

func (m Minutes) Abs() Minutes {
	if m < 0 {
		return -m
	}
	return m
}

// Hours returns the quantity in hours, rounded to two decimal places.
func (m Minutes) Hours() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(decimal.NewFromInt(60)).Round(2)
}

// String renders a balance as "+08h 30m" / "-01h 05m".
func (m Minutes) String() string {
	sign := "+"
	if m < 0 {
		sign = "-"
	}
	abs := m.Abs()
	return fmt.Sprintf("%s%02dh %02dm", sign, abs/60, abs%60)
}

// Clock renders the quantity as "[-]HH:MM", the inverse of ParseMinutes.
func (m Minutes) Clock() string {
	sign := ""
	if m < 0 {
		sign = "-"
	}
	abs := m.Abs()
	return fmt.Sprintf("%s%02d:%02d", sign, abs/60, abs%60)
}

// MaxParsedHours bounds manual amounts to one year of hours.
const MaxParsedHours = 366 * 24

// ParseMinutes parses "[+|-]HH[:MM]" as entered on the manager forms.
// An empty string is zero; hours above MaxParsedHours are rejected.
func ParseMinutes(s string) (Minutes, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	hoursPart, minutesPart, hasMinutes := strings.Cut(strings.TrimSpace(s), ":")

	h, err := strconv.Atoi(hoursPart)
	if err != nil || h < 0 {
		return 0, fmt.Errorf("invalid hours in %q", s)
	}
	if h > MaxParsedHours {
		return 0, fmt.Errorf("hours in %q exceed %d", s, MaxParsedHours)
	}
	var mm int
	if hasMinutes {
		mm, err = strconv.Atoi(minutesPart)
		if err != nil || mm < 0 || mm > 59 {
			return 0, fmt.Errorf("invalid minutes in %q", s)
		}
	}

	total := Minutes(h*60 + mm)
	if negative {
		total = -total
	}
	return total, nil
}
