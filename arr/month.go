package arr

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MONTH - Calendar-month value type (the engine's unit of time)
// =============================================================================

// Month is a calendar month (year + month), the granularity every snapshot,
// forecast and window in this system is keyed by. It replaces ad hoc
// "YYYY-MM" string slicing with real comparison and arithmetic.
type Month struct {
	Year int
	Mon  time.Month
}

// Constructors

func NewMonth(year int, mon time.Month) Month {
	return Month{Year: year, Mon: mon}
}

// ParseMonth parses "YYYY-MM". A zero Month and an error are returned for
// anything else.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Mon: t.Month()}, nil
}

// MonthOf truncates a time to its calendar month.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Mon: t.Month()}
}

// monthNames maps three-letter month names (the filter wire format) to
// time.Month. Lookup is case-insensitive.
var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseMonthName resolves a three-letter month name ("Jan".."Dec").
func ParseMonthName(s string) (time.Month, bool) {
	m, ok := monthNames[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

// Comparison

func (m Month) index() int                 { return m.Year*12 + int(m.Mon) - 1 }
func (m Month) Before(o Month) bool        { return m.index() < o.index() }
func (m Month) After(o Month) bool         { return m.index() > o.index() }
func (m Month) Equal(o Month) bool         { return m.index() == o.index() }
func (m Month) BeforeOrEqual(o Month) bool { return !m.After(o) }
func (m Month) AfterOrEqual(o Month) bool  { return !m.Before(o) }
func (m Month) IsZero() bool               { return m.Year == 0 && m.Mon == 0 }

// Arithmetic

// Add returns the month n months after m (n may be negative).
func (m Month) Add(n int) Month {
	i := m.index() + n
	return Month{Year: i / 12, Mon: time.Month(i%12 + 1)}
}

// MonthsBetween returns the signed number of months from a to b.
func MonthsBetween(a, b Month) int { return b.index() - a.index() }

// Range enumerates every month from 'from' through 'to' inclusive.
// An empty slice is returned when from > to.
func Range(from, to Month) []Month {
	if from.After(to) {
		return nil
	}
	months := make([]Month, 0, MonthsBetween(from, to)+1)
	for cur := from; cur.BeforeOrEqual(to); cur = cur.Add(1) {
		months = append(months, cur)
	}
	return months
}

// Properties

func (m Month) StartOfYear() Month { return Month{Year: m.Year, Mon: time.January} }
func (m Month) EndOfYear() Month   { return Month{Year: m.Year, Mon: time.December} }

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Mon))
}

// Label returns the display form used in trend rows, e.g. "Jan 2026".
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", m.Mon.String()[:3], m.Year)
}
