package sensor

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestFeedDispatchAndUnsubscribe(t *testing.T) {
	f := NewFeed()
	ctx := context.Background()

	var gotLocs []Location
	unsubLoc, err := f.SubscribeLocations(ctx, LocationOptions{MinInterval: time.Second, MinDistance: 1}, func(l Location) {
		gotLocs = append(gotLocs, l)
	})
	if err != nil {
		t.Fatal(err)
	}
	var gotAccel []AccelSample
	unsubAcc, err := f.SubscribeAccelerometer(ctx, time.Second, func(s AccelSample) {
		gotAccel = append(gotAccel, s)
	})
	if err != nil {
		t.Fatal(err)
	}

	f.PushLocation(Location{Lat: 1, Lon: 2})
	f.PushAccel(AccelSample{X: 3, Y: 4})
	if len(gotLocs) != 1 || len(gotAccel) != 1 {
		t.Fatalf("got %d locations, %d accel samples, want 1 and 1", len(gotLocs), len(gotAccel))
	}

	unsubLoc()
	unsubLoc() // idempotent
	unsubAcc()
	f.PushLocation(Location{Lat: 1, Lon: 2})
	f.PushAccel(AccelSample{X: 3, Y: 4})
	if len(gotLocs) != 1 || len(gotAccel) != 1 {
		t.Errorf("callbacks fired after unsubscribe: %d locations, %d accel samples", len(gotLocs), len(gotAccel))
	}
	if l, a, s := f.Subscribers(); l != 0 || a != 0 || s != 0 {
		t.Errorf("subscribers = %d, %d, %d, want none", l, a, s)
	}
	if opts := f.LastLocationOptions(); opts.MinDistance != 1 || opts.MinInterval != time.Second {
		t.Errorf("unexpected recorded options %+v", opts)
	}
}

func TestFeedSubscribeError(t *testing.T) {
	f := NewFeed()
	f.LocationErr = ErrPermissionDenied
	_, err := f.SubscribeLocations(context.Background(), LocationOptions{}, func(Location) {})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("err = %v, want %v", err, ErrPermissionDenied)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.SubscribeSteps(ctx, func(StepSample) {}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want %v", err, context.Canceled)
	}
}

func TestLocationReportedSpeed(t *testing.T) {
	type testCase struct {
		speed *float64
		want  float64
		ok    bool
	}
	testCases := []testCase{
		{nil, 0, false},
		{Speed(-1), 0, false},
		{Speed(math.NaN()), 0, false},
		{Speed(0), 0, true},
		{Speed(1.4), 1.4, true},
	}
	for i, tc := range testCases {
		got, ok := Location{Speed: tc.speed}.ReportedSpeed()
		if got != tc.want || ok != tc.ok {
			t.Errorf("Test case %d failed: expected %v %v, got %v %v", i, tc.want, tc.ok, got, ok)
		}
	}
}

func TestAccelSampleMagnitude(t *testing.T) {
	if m := (AccelSample{X: 3, Y: 4, Z: 12}).Magnitude(); m != 13 {
		t.Errorf("magnitude = %v, want 13", m)
	}
}
