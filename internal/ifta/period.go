package ifta

import (
	"fmt"
	"time"
)

// Period is an inclusive reporting window of whole days, normally a calendar quarter.
type Period struct {
	Start time.Time
	End   time.Time
}

// Quarter returns the calendar quarter q (1-4) of year in UTC.
func Quarter(year, q int) (Period, error) {
	if q < 1 || q > 4 {
		return Period{}, fmt.Errorf("quarter must be between 1 and 4, got %d", q)
	}
	if year < 1900 || year > 9999 {
		return Period{}, fmt.Errorf("year %d out of range", year)
	}
	start := time.Date(year, time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, -1)
	return Period{Start: start, End: end}, nil
}

// QuarterOf returns the quarter containing t.
func QuarterOf(t time.Time) Period {
	t = t.UTC()
	p, _ := Quarter(t.Year(), (int(t.Month())-1)/3+1)
	return p
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

// Contains compares by calendar day so records stamped at any time of the last day count.
func (p Period) Contains(t time.Time) bool {
	d := truncateDay(t)
	return !d.Before(truncateDay(p.Start)) && !d.After(truncateDay(p.End))
}

// EndOfDay is the last instant of the period, suitable for inclusive range queries.
func (p Period) EndOfDay() time.Time {
	return truncateDay(p.End).Add(24*time.Hour - time.Nanosecond)
}

func (p Period) String() string {
	if p.Start.Day() == 1 && p.Start.Month()%3 == 1 && p.End.Equal(p.Start.AddDate(0, 3, -1)) {
		return fmt.Sprintf("%dQ%d", p.Start.Year(), (int(p.Start.Month())-1)/3+1)
	}
	return p.Start.Format("2006-01-02") + ".." + p.End.Format("2006-01-02")
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
