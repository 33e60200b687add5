package store

import (
	"time"
)

// GetDayBefore get the time of before `days`, exclude today.
func GetDayBefore(days int32) time.Time {
	return dayBefore(time.Now(), days)
}

func dayBefore(now time.Time, days int32) time.Time {
	days += 1
	d := now.AddDate(0, 0, -int(days))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
}

// sanitizeCounts drops empty keys and negative counters.
func sanitizeCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		if k == "" || v <= 0 {
			continue
		}
		out[k] = v
	}
	return out
}
