package motion

import (
	"time"
)

// Segment is a finalized interval of the session timeline. It is immutable.
type Segment struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Distance is the walked distance in meters; always 0 for paused segments.
	Distance float64 `json:"distance_m"`

	// Duration is the whole number of seconds between StartTime and EndTime.
	Duration int `json:"duration_seconds"`

	// AverageSpeed is Distance/Duration in m/s.
	AverageSpeed float64 `json:"avg_speed_ms"`

	Status Status `json:"status"`
}

// Contains reports whether t falls within the segment, bounds inclusive.
func (s Segment) Contains(t time.Time) bool {
	return !t.Before(s.StartTime) && !t.After(s.EndTime)
}

// CurrentSegment is the open, still mutable segment of a tracking session.
type CurrentSegment struct {
	StartTime time.Time
	Status    Status
	Distance  float64
}

// wholeSeconds truncates an elapsed duration to seconds.
func wholeSeconds(d time.Duration) int {
	return int(d / time.Second)
}

// snapshot builds the Segment the current segment would become if closed at end.
func (c *CurrentSegment) snapshot(end time.Time) Segment {
	seconds := wholeSeconds(end.Sub(c.StartTime))
	seg := Segment{
		StartTime: c.StartTime,
		EndTime:   end,
		Distance:  c.Distance,
		Duration:  seconds,
		Status:    c.Status,
	}
	if seconds > 0 {
		seg.AverageSpeed = c.Distance / float64(seconds)
	}
	return seg
}
