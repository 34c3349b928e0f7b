package usecase

import (
	"strconv"
	"strings"
	"time"
)

// DayLayout is the YYYY-MM-DD layout used for every date parameter
const DayLayout = "2006-01-02"

// rangeDays is the length of the quick report ranges, end day included
const rangeDays = 90

// DateRange is an inclusive range of days
type DateRange struct {
	Start time.Time
	End   time.Time
}

// StartDay formats the range start
func (r DateRange) StartDay() string { return r.Start.Format(DayLayout) }

// EndDay formats the range end
func (r DateRange) EndDay() string { return r.End.Format(DayLayout) }

// ParseDay parses a "year-month-day" value. Parts are read as integers and
// out-of-range days or months roll over, so "2025-02-30" is March 2nd.
func ParseDay(value string) (time.Time, bool) {
	parts := strings.Split(value, "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}
	return time.Date(nums[0], time.Month(nums[1]), nums[2], 0, 0, 0, 0, time.UTC), true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DefaultRange ends yesterday and spans 90 days.
func DefaultRange(now time.Time) DateRange {
	end := truncateDay(now).AddDate(0, 0, -1)
	return DateRange{Start: end.AddDate(0, 0, -(rangeDays - 1)), End: end}
}

// AlignedRange spans 90 days ending on the most recent Sunday before today.
func AlignedRange(now time.Time) DateRange {
	end := truncateDay(now).AddDate(0, 0, -1)
	end = end.AddDate(0, 0, -int(end.Weekday()))
	return DateRange{Start: end.AddDate(0, 0, -(rangeDays - 1)), End: end}
}

// EachDay returns every day from start to end inclusive, formatted. It is
// empty when start is after end.
func EachDay(start, end time.Time) []string {
	start, end = truncateDay(start), truncateDay(end)
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DayLayout))
	}
	return days
}
