package motion

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/rotblauer/catwalk/params"
	"github.com/rotblauer/catwalk/sensor"
)

type sessionHarness struct {
	feed    *sensor.Feed
	clock   *fakeClock
	session *Session
	logs    *bytes.Buffer
	lat     float64
}

func newSessionHarness() *sessionHarness {
	h := &sessionHarness{
		feed:  sensor.NewFeed(),
		clock: &fakeClock{now: t0},
		logs:  &bytes.Buffer{},
		lat:   37.5665,
	}
	h.session = NewSession(h.feed, h.feed)
	h.session.Steps = h.feed
	h.session.Clock = h.clock.Now
	h.session.Logger = log.New(h.logs, "", 0)
	return h
}

func (h *sessionHarness) tick(speed, meters float64, accel sensor.AccelSample) {
	h.clock.Advance(time.Second)
	h.lat += metersNorth(meters)
	h.feed.PushAccel(accel)
	h.feed.PushLocation(sensor.Location{Lat: h.lat, Lon: 126.978, Speed: sensor.Speed(speed), Time: h.clock.Now()})
}

var (
	gaitLow  = sensor.AccelSample{Z: 0.6}
	gaitHigh = sensor.AccelSample{Z: 1.4}
	flat     = sensor.AccelSample{Z: 1.0}
)

func (h *sessionHarness) walk(n int) {
	for i := 0; i < n; i++ {
		a := gaitLow
		if i%2 == 1 {
			a = gaitHigh
		}
		h.tick(1.4, 1.4, a)
	}
}

func (h *sessionHarness) stand(n int) {
	for i := 0; i < n; i++ {
		h.tick(0, 0, flat)
	}
}

func TestSessionLifecycle(t *testing.T) {
	h := newSessionHarness()
	ctx := context.Background()

	if h.session.IsTracking() {
		t.Fatal("tracking before start")
	}
	h.session.Stop() // never started

	if err := h.session.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !h.session.IsTracking() {
		t.Fatal("not tracking after start")
	}
	id := h.session.ID()
	if err := h.session.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if h.session.ID() != id {
		t.Error("second start replaced the session")
	}
	if !strings.Contains(h.logs.String(), "already tracking") {
		t.Errorf("expected an already tracking warning, got %q", h.logs.String())
	}
	if l, a, s := h.feed.Subscribers(); l != 1 || a != 1 || s != 1 {
		t.Errorf("subscribers = %d, %d, %d, want 1 each", l, a, s)
	}
	opts := h.feed.LastLocationOptions()
	if opts.MinInterval != time.Second || opts.MinDistance != 1 || opts.Accuracy != params.AccuracyBestForNavigation {
		t.Errorf("unexpected location options %+v", opts)
	}
	if h.feed.LastAccelInterval() != time.Second {
		t.Errorf("accelerometer interval = %v", h.feed.LastAccelInterval())
	}

	h.walk(20)
	h.session.Stop()
	h.session.Stop()

	if h.session.IsTracking() {
		t.Error("tracking after stop")
	}
	if l, a, s := h.feed.Subscribers(); l != 0 || a != 0 || s != 0 {
		t.Errorf("subscriptions left after stop: %d, %d, %d", l, a, s)
	}

	m := h.session.CurrentData()
	if len(m.Segments) != 1 || m.Segments[0].Status != StatusWalking || m.ActiveWalkingTime != 20 {
		t.Fatalf("unexpected metrics %s", spew.Sdump(m))
	}

	// Events after stop are not applied.
	h.walk(5)
	h.stand(10)
	after := h.session.CurrentData()
	if len(after.Segments) != 1 || after.ActiveWalkingTime != 20 {
		t.Errorf("events applied after stop: %s", spew.Sdump(after))
	}

	// A new session starts from a clean slate.
	if err := h.session.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if h.session.ID() == id {
		t.Error("restart reused the session id")
	}
	if m := h.session.CurrentData(); len(m.Segments) != 0 {
		t.Errorf("restart kept old segments: %s", spew.Sdump(m))
	}
	h.session.Stop()
}

func TestSessionPauseAndResume(t *testing.T) {
	h := newSessionHarness()
	if err := h.session.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.walk(10)
	// The gait lingers in the accelerometer history; a long stop lets it drain.
	h.stand(30)
	h.walk(10)

	live := h.session.CurrentData()
	if live.PauseCount != 1 {
		t.Errorf("expected one pause while tracking, got %s", spew.Sdump(live))
	}
	h.session.Stop()

	m := h.session.CurrentData()
	if m.PauseCount != 1 || len(m.Segments) != 3 {
		t.Fatalf("unexpected timeline %s", spew.Sdump(m))
	}
	if m.ActiveWalkingTime+m.PausedTime != 50 {
		t.Errorf("accounted %ds of 50s", m.ActiveWalkingTime+m.PausedTime)
	}
	if m.RealSpeed <= 0 {
		t.Errorf("real speed = %f", m.RealSpeed)
	}
}

func TestSessionStartFailure(t *testing.T) {
	type testCase struct {
		name     string
		setup    func(f *sensor.Feed)
		wantErr  error
		wantText string
	}

	testCases := []testCase{
		{"location denied", func(f *sensor.Feed) { f.LocationErr = sensor.ErrPermissionDenied }, sensor.ErrPermissionDenied, "subscribe location"},
		{"accelerometer unavailable", func(f *sensor.Feed) { f.AccelErr = sensor.ErrUnavailable }, sensor.ErrUnavailable, "subscribe accelerometer"},
	}

	for _, tc := range testCases {
		h := newSessionHarness()
		tc.setup(h.feed)
		err := h.session.Start(context.Background())
		if !errors.Is(err, tc.wantErr) || !strings.Contains(err.Error(), tc.wantText) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.wantErr)
		}
		if h.session.IsTracking() {
			t.Errorf("%s: session started", tc.name)
		}
		if l, a, s := h.feed.Subscribers(); l != 0 || a != 0 || s != 0 {
			t.Errorf("%s: subscriptions leaked: %d, %d, %d", tc.name, l, a, s)
		}
		h.session.Stop()
	}
}

func TestSessionWithoutStepCounter(t *testing.T) {
	h := newSessionHarness()
	h.feed.StepErr = sensor.ErrUnavailable
	if err := h.session.Start(context.Background()); err != nil {
		t.Fatalf("step counter failure should not stop the session: %v", err)
	}
	if !strings.Contains(h.logs.String(), "subscribe steps") {
		t.Errorf("expected a step counter warning, got %q", h.logs.String())
	}
	h.walk(5)
	h.session.Stop()
	if m := h.session.CurrentData(); m.ActiveWalkingTime != 5 {
		t.Errorf("unexpected metrics %s", spew.Sdump(m))
	}
}

func TestSessionStepsKeepWalkGoing(t *testing.T) {
	h := newSessionHarness()
	if err := h.session.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.walk(10)
	// GPS speed drops out under an overpass and the phone lies still in a
	// bag, while the step counter keeps counting.
	for i := 0; i < 25; i++ {
		h.feed.PushSteps(sensor.StepSample{Steps: (i + 1) * 2})
		h.tick(0, 1.2, flat)
	}
	if a, reason := h.session.LastActivity(); a != ActivityWalking {
		t.Errorf("expected walking, got %v (%s)", a, reason)
	}
	h.session.Stop()
	if m := h.session.CurrentData(); m.PauseCount != 0 || len(m.Segments) != 1 {
		t.Errorf("unexpected timeline %s", spew.Sdump(m))
	}
}

func TestSessionCurrentDataBeforeStart(t *testing.T) {
	h := newSessionHarness()
	m := h.session.CurrentData()
	if m.ActiveWalkingTime != 0 || m.RealSpeed != 0 || len(m.Segments) != 0 {
		t.Errorf("unexpected metrics %s", spew.Sdump(m))
	}
	if a, _ := h.session.LastActivity(); a != ActivityUnknown {
		t.Errorf("last activity = %v", a)
	}
}

func TestSessionCanceledContext(t *testing.T) {
	h := newSessionHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.session.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want %v", err, context.Canceled)
	}
	if h.session.IsTracking() {
		t.Error("session started with a canceled context")
	}
}

func TestSessionTransitPause(t *testing.T) {
	h := newSessionHarness()
	h.session.Pause()
	h.session.Resume()
	if h.session.IsPaused() {
		t.Error("paused before start")
	}
	if n := strings.Count(h.logs.String(), "not tracking"); n != 2 {
		t.Errorf("expected 2 not tracking warnings, got %q", h.logs.String())
	}

	if err := h.session.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.walk(10)
	h.session.Pause()
	h.session.Pause()
	if !h.session.IsPaused() {
		t.Fatal("not paused")
	}
	if !strings.Contains(h.logs.String(), "already paused") {
		t.Errorf("expected an already paused warning, got %q", h.logs.String())
	}

	// On the bus: fixes and steps are ignored.
	for i := 0; i < 10; i++ {
		a := gaitLow
		if i%2 == 1 {
			a = gaitHigh
		}
		h.feed.PushSteps(sensor.StepSample{Steps: 100 * (i + 1)})
		h.tick(9, 9, a)
	}
	if a, reason := h.session.LastActivity(); a != ActivityWalking || reason != "suspended" {
		t.Errorf("last activity = %v (%s)", a, reason)
	}
	live := h.session.CurrentData()
	if math.Abs(live.WalkingDistance-9*1.4) > 1e-6 {
		t.Errorf("distance grew while paused: %s", spew.Sdump(live))
	}

	h.session.Resume()
	h.session.Resume()
	if h.session.IsPaused() {
		t.Fatal("still paused after resume")
	}
	if !strings.Contains(h.logs.String(), "WARN: not paused") {
		t.Errorf("expected a not paused warning, got %q", h.logs.String())
	}
	h.walk(5)
	h.session.Stop()
	if h.session.IsPaused() {
		t.Error("paused after stop")
	}

	m := h.session.CurrentData()
	assertTimeline(t, m.Segments)
	if len(m.Segments) != 3 || m.Segments[1].Status != StatusPaused {
		t.Fatalf("unexpected timeline %s", spew.Sdump(m))
	}
	if m.ActiveWalkingTime != 15 || m.PausedTime != 10 || m.PauseCount != 1 {
		t.Errorf("walking %ds, paused %ds, %d pauses", m.ActiveWalkingTime, m.PausedTime, m.PauseCount)
	}
}

// callbackProvider hands its callbacks to the test, which fires them from
// any goroutine, with nothing serializing dispatch against unsubscribe.
type callbackProvider struct {
	mu       sync.Mutex
	location func(sensor.Location)
	accel    func(sensor.AccelSample)
	unsubs   int
}

func (p *callbackProvider) SubscribeLocations(ctx context.Context, opts sensor.LocationOptions, fn func(sensor.Location)) (sensor.Unsubscribe, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = fn
	return p.unsubscribe, nil
}

func (p *callbackProvider) SubscribeAccelerometer(ctx context.Context, interval time.Duration, fn func(sensor.AccelSample)) (sensor.Unsubscribe, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accel = fn
	return p.unsubscribe, nil
}

func (p *callbackProvider) unsubscribe() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unsubs++
}

func TestSessionConcurrentEvents(t *testing.T) {
	p := &callbackProvider{}
	session := NewSession(p, p)
	session.Logger = log.New(&bytes.Buffer{}, "", 0)
	// The session only reads its clock while holding its own lock.
	ticks := 0
	session.Clock = func() time.Time {
		ticks++
		return t0.Add(time.Duration(ticks) * time.Second)
	}
	if err := session.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.mu.Lock()
	onLocation, onAccel := p.location, p.accel
	p.mu.Unlock()

	const n = 200
	half := make(chan struct{})
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		lat := 37.5665
		for i := 0; i < n; i++ {
			if i == n/2 {
				close(half)
			}
			lat += metersNorth(1.4)
			onLocation(sensor.Location{Lat: lat, Lon: 126.978, Speed: sensor.Speed(1.4), Time: t0.Add(time.Duration(i) * time.Second)})
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			a := gaitLow
			if i%2 == 1 {
				a = gaitHigh
			}
			onAccel(a)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			session.CurrentData()
			session.LastActivity()
			session.IsPaused()
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			session.Pause()
			session.Resume()
		}
	}()
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-half
			session.Stop()
		}()
	}
	wg.Wait()

	if session.IsTracking() || session.IsPaused() {
		t.Fatal("session still running")
	}
	p.mu.Lock()
	unsubs := p.unsubs
	p.mu.Unlock()
	if unsubs != 2 {
		t.Errorf("unsubscribed %d times, want 2", unsubs)
	}

	m := session.CurrentData()
	assertTimeline(t, m.Segments)

	// Late callbacks from the stopped session are dropped.
	onLocation(sensor.Location{Lat: 38, Lon: 127, Speed: sensor.Speed(1.4)})
	onAccel(gaitHigh)
	if again := session.CurrentData(); spew.Sdump(again) != spew.Sdump(m) {
		t.Errorf("metrics changed after stop:\n%s\n%s", spew.Sdump(m), spew.Sdump(again))
	}
}
