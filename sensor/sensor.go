// Package sensor defines the location, accelerometer and step counter
// providers consumed by the motion engine.
package sensor

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotblauer/catwalk/params"
)

var (
	ErrPermissionDenied = errors.New("sensor permission denied")
	ErrUnavailable      = errors.New("sensor unavailable")
)

// Location is a single fix from the location provider.
type Location struct {
	Lat      float64
	Lon      float64
	Accuracy float64 // meters

	// Speed is the provider's instantaneous speed in m/s, nil when not reported.
	Speed *float64

	Time time.Time
}

func (l Location) Point() orb.Point {
	return orb.Point{l.Lon, l.Lat}
}

// ReportedSpeed returns the reported speed and whether it is usable.
// Negative speeds are reported by some platforms for "unknown".
func (l Location) ReportedSpeed() (float64, bool) {
	if l.Speed == nil || math.IsNaN(*l.Speed) || *l.Speed < 0 {
		return 0, false
	}
	return *l.Speed, true
}

// Speed is a convenience for building a Location with a reported speed.
func Speed(v float64) *float64 {
	return &v
}

// AccelSample is one three-axis accelerometer reading.
type AccelSample struct {
	X, Y, Z float64
}

// Magnitude is the Euclidean norm of the sample.
func (s AccelSample) Magnitude() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// StepSample carries the step counter's running total. Only differences
// between samples count as steps.
type StepSample struct {
	Steps int
}

type LocationOptions struct {
	Accuracy    params.LocationAccuracy
	MinInterval time.Duration
	MinDistance float64 // meters
}

// LocationOptionsFrom converts the sensor config into subscribe options.
func LocationOptionsFrom(cfg *params.SensorConfig) LocationOptions {
	return LocationOptions{
		Accuracy:    cfg.LocationAccuracy,
		MinInterval: cfg.LocationMinInterval,
		MinDistance: cfg.LocationMinDistance,
	}
}

// Unsubscribe stops a subscription. After it returns no further callback fires.
// It must not be called from within the subscription's own callback.
type Unsubscribe func()

type LocationProvider interface {
	SubscribeLocations(ctx context.Context, opts LocationOptions, fn func(Location)) (Unsubscribe, error)
}

type AccelerometerProvider interface {
	SubscribeAccelerometer(ctx context.Context, interval time.Duration, fn func(AccelSample)) (Unsubscribe, error)
}

type StepCounter interface {
	SubscribeSteps(ctx context.Context, fn func(StepSample)) (Unsubscribe, error)
}
