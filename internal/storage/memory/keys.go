package memory

import "time"

// dateKey normalizes an as-of date to date precision for map keys.
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
