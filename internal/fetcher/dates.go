package fetcher

import (
	"fmt"
	"time"
)

// DateLayout is day.month.two-digit-year; day and month may have one or two digits.
const DateLayout = "2.1.06"

// DateError reports a range bound that does not match DateLayout.
type DateError struct {
	Value string
	Cause error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q, expected DD.MM.YY", e.Value)
}

func (e *DateError) Unwrap() error {
	return e.Cause
}

// DateRange is a query window. Both bounds are UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDate parses s as DD.MM.YY (or D.M.YY) at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, &DateError{Value: s, Cause: err}
	}
	return t, nil
}

// ParseDateRange parses both bounds. Ordering is not checked; an inverted
// range is sent as-is and the service decides what to return.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{Start: s, End: e}, nil
}

// Period1 returns the start bound in Unix seconds.
func (r DateRange) Period1() int64 { return r.Start.Unix() }

// Period2 returns the end bound in Unix seconds.
func (r DateRange) Period2() int64 { return r.End.Unix() }
