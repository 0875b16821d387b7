package timeutil

import "time"

// WholeMinutes returns the number of complete minutes between from and to.
// A negative span (clock skew between reporters) is clamped to zero rather
// than rejected, so a skewed sample still lands on the timeline.
func WholeMinutes(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from) / time.Minute)
}

// WholeHours converts tracked minutes to complete hours.
func WholeHours(minutes int) int {
	if minutes < 0 {
		return 0
	}
	return minutes / 60
}

// ClampMin floors v at min.
func ClampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}
