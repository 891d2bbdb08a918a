// Package interval provides pure time-window math used by the booking
// engine. A window is the half-open range [start, start+duration); two
// windows that merely touch at an endpoint do not overlap, which is what
// lets back-to-back table bookings coexist.
package interval

import "time"

// Overlap reports whether the half-open windows [startA, startA+durA) and
// [startB, startB+durB) intersect on a non-empty range. Durations are in
// minutes. A zero or negative duration produces an empty window, which
// never overlaps anything.
func Overlap(startA time.Time, durA int, startB time.Time, durB int) bool {
	if durA <= 0 || durB <= 0 {
		return false
	}
	endA := End(startA, durA)
	endB := End(startB, durB)
	return startA.Before(endB) && startB.Before(endA)
}

// End returns the exclusive end instant of a window starting at start and
// lasting minutes minutes.
func End(start time.Time, minutes int) time.Time {
	return start.Add(time.Duration(minutes) * time.Minute)
}

// Contains reports whether instant t falls inside the half-open window
// [start, start+minutes).
func Contains(start time.Time, minutes int, t time.Time) bool {
	return !t.Before(start) && t.Before(End(start, minutes))
}

// DayBounds returns the inclusive start and exclusive end of the calendar
// day containing t, in t's location. Used for per-day occupancy queries.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
