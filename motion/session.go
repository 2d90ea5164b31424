package motion

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotblauer/catwalk/params"
	"github.com/rotblauer/catwalk/sensor"
)

// Session owns one tracking session: it subscribes to the sensors, applies
// every event to its Segmenter as one atomic step, and tears the
// subscriptions down on Stop.
//
// The exported fields configure the session and must be set before Start.
type Session struct {
	Locations     sensor.LocationProvider
	Accelerometer sensor.AccelerometerProvider

	// Steps is an optional step counter. When it cannot be subscribed the
	// session runs on GPS and accelerometer alone.
	Steps sensor.StepCounter

	Config  *params.SegmentationConfig
	Sensors *params.SensorConfig

	// Clock supplies "now" for every event. Defaults to time.Now.
	Clock func() time.Time

	Logger *log.Logger

	// lifecycle serializes Start and Stop; mu guards the session state.
	lifecycle sync.Mutex
	mu        sync.Mutex

	id       uuid.UUID
	seg      *Segmenter
	tracking bool
	gen      uint64
	unsubs   []sensor.Unsubscribe
}

func NewSession(locations sensor.LocationProvider, accelerometer sensor.AccelerometerProvider) *Session {
	return &Session{
		Locations:     locations,
		Accelerometer: accelerometer,
		Config:        params.DefaultSegmentationConfig,
		Sensors:       params.DefaultSensorConfig,
		Clock:         time.Now,
		Logger:        log.Default(),
	}
}

func (s *Session) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

func (s *Session) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

func (s *Session) sensorConfig() *params.SensorConfig {
	if s.Sensors == nil {
		return params.DefaultSensorConfig
	}
	return s.Sensors
}

// Start subscribes to the sensors and begins a new session with an open
// walking segment. Starting a session that is already tracking is a no-op.
// If a required subscription fails no session starts and the error is returned.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	tracking, gen := s.tracking, s.gen+1
	s.mu.Unlock()
	if tracking {
		s.logger().Println("WARN: already tracking, ignoring start", s.ID())
		return nil
	}
	if s.Locations == nil || s.Accelerometer == nil {
		return fmt.Errorf("start session: %w", sensor.ErrUnavailable)
	}

	cfg := s.sensorConfig()
	unsubs := []sensor.Unsubscribe{}
	unwind := func() {
		for _, u := range unsubs {
			u()
		}
	}

	unsub, err := s.Locations.SubscribeLocations(ctx, sensor.LocationOptionsFrom(cfg), func(l sensor.Location) {
		s.onLocation(gen, l)
	})
	if err != nil {
		return fmt.Errorf("subscribe location: %w", err)
	}
	unsubs = append(unsubs, unsub)

	unsub, err = s.Accelerometer.SubscribeAccelerometer(ctx, cfg.AccelInterval, func(a sensor.AccelSample) {
		s.onAccel(gen, a)
	})
	if err != nil {
		unwind()
		return fmt.Errorf("subscribe accelerometer: %w", err)
	}
	unsubs = append(unsubs, unsub)

	if s.Steps != nil {
		unsub, err = s.Steps.SubscribeSteps(ctx, func(st sensor.StepSample) {
			s.onSteps(gen, st)
		})
		if err != nil {
			s.logger().Printf("WARN: subscribe steps: %v, using accelerometer only", err)
		} else {
			unsubs = append(unsubs, unsub)
		}
	}

	s.mu.Lock()
	s.gen = gen
	s.id = uuid.New()
	s.seg = NewSegmenter(s.Config)
	s.seg.Logger = s.Logger
	s.seg.Start(s.now())
	s.tracking = true
	s.unsubs = unsubs
	id := s.id
	s.mu.Unlock()

	s.logger().Println("tracking started", id)
	return nil
}

// Stop finalizes the open segment and unsubscribes every sensor. No event is
// applied after Stop returns. Stopping a session that is not tracking is a no-op.
func (s *Session) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.tracking {
		s.mu.Unlock()
		return
	}
	s.seg.Finish(s.now())
	s.tracking = false
	unsubs := s.unsubs
	s.unsubs = nil
	id := s.id
	s.mu.Unlock()

	// Unsubscribing happens outside mu: a provider may wait for an
	// in-flight callback, which itself needs mu.
	for _, u := range unsubs {
		u()
	}
	s.logger().Println("tracking stopped", id)
}

// Pause holds the session in a paused segment while the user rides transit.
// Fixes and steps are ignored until Resume. The accelerometer keeps
// buffering so classification resumes warm.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracking {
		s.logger().Println("WARN: not tracking, ignoring pause")
		return
	}
	if !s.seg.Suspend(s.now()) {
		s.logger().Println("WARN: already paused", s.id)
		return
	}
	s.logger().Println("tracking paused", s.id)
}

// Resume ends a Pause and opens a new walking segment.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracking {
		s.logger().Println("WARN: not tracking, ignoring resume")
		return
	}
	if !s.seg.Resume(s.now()) {
		s.logger().Println("WARN: not paused", s.id)
		return
	}
	s.logger().Println("tracking resumed", s.id)
}

// IsPaused reports whether a running session is paused.
func (s *Session) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracking && s.seg.Suspended()
}

// IsTracking reports whether a session is running.
func (s *Session) IsTracking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracking
}

// ID identifies the most recently started session.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// CurrentData returns a consistent snapshot of the session metrics. It never
// mutates the session. After Stop it keeps returning the stopped session's
// finalized segments until the next Start.
func (s *Session) CurrentData() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seg == nil {
		return Summarize(nil)
	}
	return s.seg.Metrics(s.now())
}

// LastActivity returns the most recent classification and its reason.
func (s *Session) LastActivity() (Activity, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seg == nil {
		return ActivityUnknown, ""
	}
	return s.seg.LastActivity, s.seg.MotionStateReason
}

// live reports whether an event of generation gen may be applied. mu must be held.
func (s *Session) live(gen uint64) bool {
	return s.tracking && s.gen == gen
}

func (s *Session) onLocation(gen uint64, l sensor.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live(gen) {
		return
	}
	s.seg.AddLocation(l, s.now())
}

func (s *Session) onAccel(gen uint64, a sensor.AccelSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live(gen) {
		return
	}
	s.seg.AddAccel(a, s.now())
}

func (s *Session) onSteps(gen uint64, st sensor.StepSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live(gen) {
		return
	}
	s.seg.AddSteps(st, s.now())
}
