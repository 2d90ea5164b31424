package motion

import (
	"time"
)

// Metrics summarizes a session timeline.
type Metrics struct {
	// ActiveWalkingTime is the sum of walking segment durations, in seconds.
	ActiveWalkingTime int `json:"active_walking_time"`

	// PausedTime is the sum of paused segment durations, in seconds.
	PausedTime int `json:"paused_time"`

	// WalkingDistance is the total distance of walking segments, in meters.
	WalkingDistance float64 `json:"walking_distance_m"`

	// RealSpeed is WalkingDistance/ActiveWalkingTime in m/s, 0 without walking time.
	RealSpeed float64 `json:"real_speed"`

	PauseCount int       `json:"pause_count"`
	Segments   []Segment `json:"segments"`
}

// Metrics returns the summary of the timeline as of now. The open segment is
// included as a snapshot when it would survive finalization; it is never
// written back into the finalized segments.
func (s *Segmenter) Metrics(now time.Time) Metrics {
	all := s.Segments()
	if s.current != nil {
		snap := s.current.snapshot(now)
		if snap.Duration >= 1 && (snap.Status == StatusPaused || snap.Distance >= s.Config.MinWalkingDistance) {
			all = append(all, snap)
		}
	}
	return Summarize(all)
}

// Summarize aggregates segments into Metrics.
func Summarize(segments []Segment) Metrics {
	m := Metrics{Segments: segments}
	if m.Segments == nil {
		m.Segments = []Segment{}
	}
	for _, seg := range segments {
		switch seg.Status {
		case StatusWalking:
			m.ActiveWalkingTime += seg.Duration
			m.WalkingDistance += seg.Distance
		case StatusPaused:
			m.PausedTime += seg.Duration
			m.PauseCount++
		}
	}
	if m.ActiveWalkingTime > 0 {
		m.RealSpeed = m.WalkingDistance / float64(m.ActiveWalkingTime)
	}
	return m
}
