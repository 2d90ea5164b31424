package sensor

import (
	"context"
	"sync"
	"time"
)

// Feed is an in-process provider of all three sensor kinds.
// Samples pushed into the Feed are dispatched synchronously, in push order,
// to every live subscriber. It backs replays and tests.
type Feed struct {
	// LocationErr, AccelErr and StepErr, when set, are returned by the
	// corresponding Subscribe call instead of subscribing.
	LocationErr error
	AccelErr    error
	StepErr     error

	// dispatchMu serializes dispatch against unsubscribe.
	dispatchMu sync.Mutex

	mu        sync.Mutex
	nextID    int
	locations map[int]func(Location)
	accels    map[int]func(AccelSample)
	steps     map[int]func(StepSample)

	lastLocationOptions LocationOptions
	lastAccelInterval   time.Duration
}

func NewFeed() *Feed {
	return &Feed{
		locations: map[int]func(Location){},
		accels:    map[int]func(AccelSample){},
		steps:     map[int]func(StepSample){},
	}
}

func (f *Feed) SubscribeLocations(ctx context.Context, opts LocationOptions, fn func(Location)) (Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.LocationErr != nil {
		return nil, f.LocationErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.locations[id] = fn
	f.lastLocationOptions = opts
	return f.unsubscriber(func() { delete(f.locations, id) }), nil
}

func (f *Feed) SubscribeAccelerometer(ctx context.Context, interval time.Duration, fn func(AccelSample)) (Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.AccelErr != nil {
		return nil, f.AccelErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.accels[id] = fn
	f.lastAccelInterval = interval
	return f.unsubscriber(func() { delete(f.accels, id) }), nil
}

func (f *Feed) SubscribeSteps(ctx context.Context, fn func(StepSample)) (Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.StepErr != nil {
		return nil, f.StepErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.steps[id] = fn
	return f.unsubscriber(func() { delete(f.steps, id) }), nil
}

func (f *Feed) unsubscriber(remove func()) Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			f.dispatchMu.Lock()
			defer f.dispatchMu.Unlock()
			f.mu.Lock()
			defer f.mu.Unlock()
			remove()
		})
	}
}

func (f *Feed) PushLocation(l Location) {
	f.dispatchMu.Lock()
	defer f.dispatchMu.Unlock()
	f.mu.Lock()
	fns := make([]func(Location), 0, len(f.locations))
	for _, fn := range f.locations {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(l)
	}
}

func (f *Feed) PushAccel(s AccelSample) {
	f.dispatchMu.Lock()
	defer f.dispatchMu.Unlock()
	f.mu.Lock()
	fns := make([]func(AccelSample), 0, len(f.accels))
	for _, fn := range f.accels {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (f *Feed) PushSteps(s StepSample) {
	f.dispatchMu.Lock()
	defer f.dispatchMu.Unlock()
	f.mu.Lock()
	fns := make([]func(StepSample), 0, len(f.steps))
	for _, fn := range f.steps {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// Subscribers returns the number of live location, accelerometer and step subscriptions.
func (f *Feed) Subscribers() (locations, accels, steps int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.locations), len(f.accels), len(f.steps)
}

// LastLocationOptions returns the options of the most recent location subscription.
func (f *Feed) LastLocationOptions() LocationOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastLocationOptions
}

// LastAccelInterval returns the interval of the most recent accelerometer subscription.
func (f *Feed) LastAccelInterval() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAccelInterval
}
