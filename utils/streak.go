package utils

import (
	"sort"
	"time"
)

// DateOnly truncates t to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b in UTC.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// AdvanceStreak returns the streak after a completion on day. A gap of
// exactly one day from the last completion extends the streak; a larger
// gap resets it to 1. Same-day completions are rejected upstream.
func AdvanceStreak(currentStreak int, lastCompleted *time.Time, day time.Time) int {
	if lastCompleted == nil {
		return 1
	}
	if DaysBetween(*lastCompleted, day) == 1 {
		return currentStreak + 1
	}
	return 1
}

// RecomputeStreak rebuilds the current streak from a completion
// history. It sorts the dates descending and counts the
// strictly-consecutive-day prefix, so the result is independent of row
// storage order. The streak is 0 when the newest completion is more
// than one day before now.
func RecomputeStreak(dates []time.Time, now time.Time) (int, *time.Time) {
	if len(dates) == 0 {
		return 0, nil
	}

	days := make([]time.Time, 0, len(dates))
	seen := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		day := DateOnly(d)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	newest := days[0]
	if DaysBetween(newest, now) > 1 {
		return 0, &newest
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		if DaysBetween(days[i], days[i-1]) != 1 {
			break
		}
		streak++
	}
	return streak, &newest
}
