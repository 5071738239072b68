// Package clock supplies "today" to the engine and the day arithmetic the
// streak rules need. Days are carried as YYYY-MM-DD strings throughout.
package clock

import (
	"sync"
	"time"

	"github.com/julianstephens/habitreward/internal/constants"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// System is the wall clock in a fixed location.
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now()
	}
	return time.Now().In(s.Location)
}

// Fixed is a settable clock for tests. Safe for concurrent use.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a clock frozen at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// AtDay returns a clock frozen at noon UTC on day. Panics on a malformed
// day, so only use it with literals.
func AtDay(day string) *Fixed {
	t, err := time.Parse(constants.DateFormat, day)
	if err != nil {
		panic(err)
	}
	return NewFixed(t.Add(12 * time.Hour))
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Today returns the clock's current day.
func Today(c Clock) string {
	return c.Now().Format(constants.DateFormat)
}

// ParseDay validates a YYYY-MM-DD string and returns it normalized.
func ParseDay(s string) (string, error) {
	t, err := time.Parse(constants.DateFormat, s)
	if err != nil {
		return "", err
	}
	return t.Format(constants.DateFormat), nil
}

// DaysBetween returns the number of calendar days from a to b (b - a).
// Both must be valid days.
func DaysBetween(a, b string) (int, error) {
	ta, err := time.Parse(constants.DateFormat, a)
	if err != nil {
		return 0, err
	}
	tb, err := time.Parse(constants.DateFormat, b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// AddDays shifts day by n calendar days.
func AddDays(day string, n int) (string, error) {
	t, err := time.Parse(constants.DateFormat, day)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(constants.DateFormat), nil
}
