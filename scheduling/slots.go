// Package scheduling computes bookable time slots from a teacher's declared
// availability and the bookings that already occupy it. Everything here is a
// pure function of its inputs and safe to call concurrently.
package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
)

const DefaultStep = 30 * time.Minute

// Range is a half-open clock interval [Start, End) within a single day.
type Range struct {
	Start datatypes.Time `json:"start_time"`
	End   datatypes.Time `json:"end_time"`
}

func NewRange(start datatypes.Time, d time.Duration) Range {
	return Range{Start: start, End: datatypes.Time(time.Duration(start) + d)}
}

func (r Range) Duration() time.Duration {
	return time.Duration(r.End) - time.Duration(r.Start)
}

func (r Range) Valid() bool {
	return r.End > r.Start
}

func (r Range) Contains(other Range) bool {
	return other.Start >= r.Start && other.End <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", Clock(r.Start), Clock(r.End))
}

// Overlaps covers partial overlap on either edge and full containment in both directions.
func Overlaps(a, b Range) bool {
	return a.Start < b.End && a.End > b.Start
}

// GenerateSlots returns step-aligned candidates of the given duration that fit inside window.
// Alignment is relative to midnight, so a 09:15 window start yields a first slot at 09:30.
func GenerateSlots(window Range, duration, step time.Duration) []Range {
	if duration <= 0 || step <= 0 || !window.Valid() {
		return nil
	}

	first := time.Duration(window.Start)
	if rem := first % step; rem != 0 {
		first += step - rem
	}

	var slots []Range
	for start := first; start+duration <= time.Duration(window.End); start += step {
		slots = append(slots, NewRange(datatypes.Time(start), duration))
	}
	return slots
}

// AvailableSlots returns every candidate from windows that does not overlap a busy range,
// sorted by start time with duplicates from overlapping windows removed.
func AvailableSlots(windows, busy []Range, duration, step time.Duration) []Range {
	seen := make(map[datatypes.Time]bool)
	var free []Range

	for _, window := range windows {
		for _, candidate := range GenerateSlots(window, duration, step) {
			if seen[candidate.Start] || conflicts(candidate, busy) {
				continue
			}
			seen[candidate.Start] = true
			free = append(free, candidate)
		}
	}

	sort.Slice(free, func(i, j int) bool { return free[i].Start < free[j].Start })
	return free
}

func conflicts(candidate Range, busy []Range) bool {
	for _, b := range busy {
		if Overlaps(candidate, b) {
			return true
		}
	}
	return false
}

// Clock formats a time of day as HH:MM.
func Clock(t datatypes.Time) string {
	d := time.Duration(t)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// ParseClock parses HH:MM or HH:MM:SS into a time of day.
func ParseClock(s string) (datatypes.Time, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return datatypes.NewTime(t.Hour(), t.Minute(), t.Second(), 0), nil
		}
	}
	return 0, errors.Errorf("invalid clock time %q", s)
}

// ParseDate parses YYYY-MM-DD as a UTC calendar date.
func ParseDate(s string) (datatypes.Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return datatypes.Date{}, errors.Errorf("invalid date %q", s)
	}
	return datatypes.Date(t), nil
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) datatypes.Date {
	y, m, d := t.UTC().Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
