package domain

import "time"

// Interval is an inclusive civil-date range.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Period is the bounding window used to clip intervals.
type Period = Interval

// Assignment is one person's time-bounded work on one group (a project).
// End is inclusive.
type Assignment struct {
	PersonID  int64
	GroupKey  int64
	GroupName string
	Start     time.Time
	End       time.Time
}

// DateOf truncates a timestamp to its civil date, represented as UTC midnight.
// The wall clock of t is kept, so callers convert to the reporting location first.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalendarYear returns the inclusive period Jan 1 .. Dec 31 of year.
func CalendarYear(year int) Period {
	return Period{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// NewInterval returns an interval over the civil dates of start and end.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: DateOf(start), End: DateOf(end)}
	if iv.End.Before(iv.Start) {
		return Interval{}, ErrInvalidInterval
	}
	return iv, nil
}

// Contains reports whether day falls inside the inclusive interval.
func (iv Interval) Contains(day time.Time) bool {
	day = DateOf(day)
	return !day.Before(iv.Start) && !day.After(iv.End)
}

// Overlaps reports whether two inclusive intervals share at least one day.
func (iv Interval) Overlaps(other Interval) bool {
	return !iv.Start.After(other.End) && !iv.End.Before(other.Start)
}
