package model

import "time"

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start time.Time, minutes int) Interval {
	return Interval{Start: start, End: start.Add(time.Duration(minutes) * time.Minute)}
}

// Overlaps is the half-open intersection test: s1 < e2 && e1 > s2.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}
