package motion

import (
	"fmt"
	"log"
	"time"

	"github.com/rotblauer/catwalk/common"
	"github.com/rotblauer/catwalk/params"
	"github.com/rotblauer/catwalk/sensor"
)

// Segmenter turns classified sensor events into a timeline of walking and
// paused segments. It is a state machine fed one event at a time; it is not
// safe for concurrent use.
//
// Transitions are deliberately asymmetric. A walk turns into a pause the
// moment a stop is detected, but a pause shorter than MinPauseDuration that
// turns back into walking is absorbed into the surrounding walk.
type Segmenter struct {
	Config *params.SegmentationConfig

	// Logger, when set, receives finalize and discard events.
	Logger *log.Logger

	// MotionStateReason describes the inputs of the last classification.
	MotionStateReason string

	// LastActivity is the last classified activity.
	LastActivity Activity

	classifier *Classifier
	accel      *AccelBuffer

	current      *CurrentSegment
	segments     []Segment
	lastLocation *sensor.Location

	lastSpeed   float64
	lastFixTime time.Time

	// The first step sample after a reset only sets lastStepCount: the
	// counter's running total is not a step delta.
	lastStepCount int
	stepBaseline  bool
	stepDeltas    []stepDelta

	// suspended is set between Suspend and Resume. The open segment is a
	// pause and location and step events are ignored.
	suspended bool
}

type stepDelta struct {
	time  time.Time
	steps int
}

func NewSegmenter(cfg *params.SegmentationConfig) *Segmenter {
	if cfg == nil {
		cfg = params.DefaultSegmentationConfig
	}
	return &Segmenter{
		Config:            cfg,
		MotionStateReason: "init",
		classifier:        NewClassifier(cfg),
		accel:             NewAccelBuffer(cfg.AccelBufferSize),
		segments:          []Segment{},
	}
}

// Start resets all state and opens a walking segment at now.
func (s *Segmenter) Start(now time.Time) {
	s.ResetState()
	s.current = &CurrentSegment{
		StartTime: now,
		Status:    StatusWalking,
	}
}

func (s *Segmenter) ResetState() {
	s.MotionStateReason = "reset"
	s.LastActivity = ActivityUnknown
	s.accel.Reset()
	s.current = nil
	s.segments = []Segment{}
	s.lastLocation = nil
	s.lastSpeed = 0
	s.lastFixTime = time.Time{}
	s.lastStepCount = 0
	s.stepBaseline = false
	s.stepDeltas = nil
	s.suspended = false
}

// Active reports whether a segment is open.
func (s *Segmenter) Active() bool {
	return s.current != nil
}

// AddAccel buffers an accelerometer sample received at now.
func (s *Segmenter) AddAccel(sample sensor.AccelSample, now time.Time) {
	s.accel.Push(NewAccelReading(sample, now))
}

// AddSteps records a cumulative step count received at now.
func (s *Segmenter) AddSteps(sample sensor.StepSample, now time.Time) {
	if !s.stepBaseline || s.suspended {
		s.lastStepCount = sample.Steps
		s.stepBaseline = true
		return
	}
	if delta := sample.Steps - s.lastStepCount; delta > 0 {
		s.stepDeltas = append(s.stepDeltas, stepDelta{time: now, steps: delta})
	}
	s.lastStepCount = sample.Steps

	cutoff := now.Add(-s.Config.StepRetention)
	for len(s.stepDeltas) > 0 && s.stepDeltas[0].time.Before(cutoff) {
		s.stepDeltas = s.stepDeltas[1:]
	}
}

// RecentSteps returns the number of steps counted within the step window before now.
func (s *Segmenter) RecentSteps(now time.Time) int {
	cutoff := now.Add(-s.Config.StepWindow)
	n := 0
	for _, d := range s.stepDeltas {
		if !d.time.Before(cutoff) {
			n += d.steps
		}
	}
	return n
}

// AddLocation classifies the fix, accumulates walked distance and applies
// segment transitions. Fixes arriving while no segment is open, or while
// suspended, are ignored.
func (s *Segmenter) AddLocation(loc sensor.Location, now time.Time) Activity {
	if s.current == nil || s.suspended {
		return ActivityUnknown
	}

	speed := s.speedOf(loc, now)
	activity := s.classifier.Classify(speed, s.accel.Readings())
	steps := s.RecentSteps(now)
	if activity == ActivityStationary && steps >= s.Config.StepMinCount {
		activity = ActivityWalking
	}
	s.LastActivity = activity
	s.MotionStateReason = fmt.Sprintf(`speed: %.2f, accel: %d, steps: %d, activity: %v`,
		speed, s.accel.Len(), steps, activity)

	// Distance is only ever walked distance. Stationary jitter and
	// vehicle travel are dropped.
	distance := 0.0
	if s.lastLocation != nil && activity.IsMoving() {
		distance = common.HaversineDistance(s.lastLocation.Lat, s.lastLocation.Lon, loc.Lat, loc.Lon)
	}
	l := loc
	s.lastLocation = &l
	s.lastFixTime = now

	s.transition(StatusOf(activity), now)

	// After the transition a moving fix always lands in a walking segment,
	// so paused segments never carry distance.
	s.current.Distance += distance
	return activity
}

func (s *Segmenter) transition(status Status, now time.Time) {
	switch {
	case s.current.Status == StatusPaused && status == StatusWalking:
		if now.Sub(s.current.StartTime) >= s.Config.MinPauseDuration {
			s.finalize(now)
			s.current = &CurrentSegment{StartTime: now, Status: StatusWalking}
			return
		}
		// Too short to be a pause: resume the walk it interrupted.
		s.current.Status = StatusWalking
		if n := len(s.segments); n > 0 {
			prev := s.segments[n-1]
			if prev.Status == StatusWalking && prev.EndTime.Equal(s.current.StartTime) {
				s.segments = s.segments[:n-1]
				s.current.StartTime = prev.StartTime
				s.current.Distance += prev.Distance
			}
		}
	case s.current.Status == StatusWalking && status == StatusPaused:
		s.finalize(now)
		s.current = &CurrentSegment{StartTime: now, Status: StatusPaused}
	}
}

// speedOf returns the speed used for classification.
func (s *Segmenter) speedOf(loc sensor.Location, now time.Time) float64 {
	if v, ok := loc.ReportedSpeed(); ok {
		s.lastSpeed = v
		return v
	}
	if !s.Config.DeriveMissingSpeed {
		return 0
	}

	v := s.Config.DerivedSpeedDefault
	if s.lastLocation != nil && !s.lastFixTime.IsZero() {
		gap := now.Sub(s.lastFixTime)
		if gap > 0 && gap < s.Config.DerivedSpeedMaxGap {
			v = common.HaversineDistance(s.lastLocation.Lat, s.lastLocation.Lon, loc.Lat, loc.Lon) / gap.Seconds()
		} else if s.lastSpeed <= s.Config.SpeedMax {
			v = s.lastSpeed
		}
	}
	s.lastSpeed = v
	return v
}

// finalize closes the current segment at now, keeping it only if it is
// at least MinSegmentDuration long and, when walking, covered at least
// MinWalkingDistance.
func (s *Segmenter) finalize(now time.Time) {
	if s.current == nil {
		return
	}
	seg := s.current.snapshot(now)
	if seg.Duration < wholeSeconds(s.Config.MinSegmentDuration) || seg.Duration < 1 {
		return
	}
	if seg.Status == StatusWalking && seg.Distance < s.Config.MinWalkingDistance {
		if s.Logger != nil {
			s.Logger.Printf("WARN: discarding %s segment: %ds with %.2fm (noise)", seg.Status, seg.Duration, seg.Distance)
		}
		return
	}
	s.segments = append(s.segments, seg)
	if s.Logger != nil {
		s.Logger.Printf("segment finalized: %s %ds %.2fm", seg.Status, seg.Duration, seg.Distance)
	}
}

// Suspend closes the open walk and holds a pause until Resume, ignoring
// location and step events meanwhile, as while riding transit. An open
// pause is kept and extended. It returns false if no segment is open or
// the segmenter is already suspended.
func (s *Segmenter) Suspend(now time.Time) bool {
	if s.current == nil || s.suspended {
		return false
	}
	if s.current.Status == StatusWalking {
		s.finalize(now)
		s.current = &CurrentSegment{StartTime: now, Status: StatusPaused}
	}
	s.suspended = true
	s.MotionStateReason = "suspended"
	return true
}

// Resume ends a suspension: the pause is finalized and a new walk opens at
// now. Distance is not carried across the suspension. It returns false if
// the segmenter is not suspended.
func (s *Segmenter) Resume(now time.Time) bool {
	if s.current == nil || !s.suspended {
		return false
	}
	s.suspended = false
	s.finalize(now)
	s.current = &CurrentSegment{StartTime: now, Status: StatusWalking}
	s.lastLocation = nil
	s.lastFixTime = time.Time{}
	s.stepDeltas = nil
	s.MotionStateReason = "resumed"
	return true
}

func (s *Segmenter) Suspended() bool {
	return s.suspended
}

// Finish finalizes the open segment at now and closes the timeline.
func (s *Segmenter) Finish(now time.Time) {
	s.finalize(now)
	s.current = nil
	s.suspended = false
}

// Segments returns a copy of the finalized segments.
func (s *Segmenter) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Current returns a copy of the open segment, or nil.
func (s *Segmenter) Current() *CurrentSegment {
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}
