// Package timeutil formats timestamps for people.
package timeutil

import (
	"fmt"
	"time"
)

// Relative renders then relative to now, e.g. "3 minutes ago".
func Relative(then, now time.Time) string {
	if then.IsZero() {
		return "never"
	}
	delta := now.Sub(then)
	direction := "ago"
	if delta < 0 {
		delta = -delta
		direction = "from now"
	}
	switch {
	case delta >= 24*time.Hour:
		return plural(int(delta.Hours()/24), "day", direction)
	case delta >= time.Hour:
		return plural(int(delta.Hours()), "hour", direction)
	case delta >= time.Minute:
		return plural(int(delta.Minutes()), "minute", direction)
	case delta >= 5*time.Second:
		return plural(int(delta.Seconds()), "second", direction)
	default:
		return "just now"
	}
}

func plural(n int, unit, direction string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s %s", unit, direction)
	}
	return fmt.Sprintf("%d %ss %s", n, unit, direction)
}

// Stamp renders then as local wall time followed by its relative form.
func Stamp(then, now time.Time) string {
	if then.IsZero() {
		return "never"
	}
	return then.Local().Format("2006-01-02 15:04") + " (" + Relative(then, now) + ")"
}
