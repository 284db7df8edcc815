package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateTimeLayout is local date and time with minute precision.
	DateTimeLayout = "2006-01-02 15:04"
	// DateLayout is used for history dates and report bounds.
	DateLayout = "2006-01-02"
)

func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date-time %q, expected YYYY-MM-DD HH:MM, please retry", s)
	}
	return t, nil
}

func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD, please retry", s)
	}
	return t, nil
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
