package daterange

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("daterange: start date must be before end date")

const day = 24 * time.Hour

// Range is a closed interval of calendar dates [Start, End]. Both bounds are
// held at UTC midnight.
type Range struct {
	Start time.Time
	End   time.Time
}

// Date drops the time-of-day component of t. The calendar date is taken in t's
// own location, so 23:30+09:00 stays on the same day.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// New truncates both bounds and requires start < end.
func New(start, end time.Time) (Range, error) {
	r := Range{Start: Date(start), End: Date(end)}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Span builds a range without the start < end requirement; single-day windows
// (start == end) are valid for queries.
func Span(start, end time.Time) Range {
	return Range{Start: Date(start), End: Date(end)}
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidRange
	}
	if !r.Start.Before(r.End) {
		return ErrInvalidRange
	}
	return nil
}

// Nights is the number of whole days from Start to End.
func (r Range) Nights() int {
	return int(r.End.Sub(r.Start) / day)
}

// Overlaps uses inclusive bounds: touching endpoints conflict.
func (r Range) Overlaps(o Range) bool {
	return !r.Start.After(o.End) && !o.Start.After(r.End)
}

// Contains reports whether the calendar date of d falls inside the range.
func (r Range) Contains(d time.Time) bool {
	d = Date(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days lists every date of the range, both bounds included.
func (r Range) Days() []time.Time {
	if r.End.Before(r.Start) {
		return nil
	}
	out := make([]time.Time, 0, r.Nights()+1)
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func (r Range) String() string {
	return "[" + r.Start.Format(time.DateOnly) + ", " + r.End.Format(time.DateOnly) + "]"
}

// Conflicts reports whether candidate overlaps any of the existing ranges.
func Conflicts(candidate Range, existing []Range) bool {
	_, found := FirstConflict(candidate, existing)
	return found
}

// FirstConflict returns the first existing range overlapping candidate.
func FirstConflict(candidate Range, existing []Range) (Range, bool) {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return e, true
		}
	}
	return Range{}, false
}

// DaySet indexes a collection of ranges by calendar date for O(1) membership tests.
type DaySet map[time.Time]struct{}

// Cover builds a DaySet of every date touched by ranges, clipped to window.
func Cover(window Range, ranges ...Range) DaySet {
	set := make(DaySet)
	for _, r := range ranges {
		if !r.Overlaps(window) {
			continue
		}
		start, end := r.Start, r.End
		if start.Before(window.Start) {
			start = window.Start
		}
		if end.After(window.End) {
			end = window.End
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			set[d] = struct{}{}
		}
	}
	return set
}

func (s DaySet) Has(d time.Time) bool {
	_, ok := s[Date(d)]
	return ok
}
