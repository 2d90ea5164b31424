package params

import (
	"time"

	"github.com/rotblauer/catwalk/common"
)

// SegmentationConfig configures activity classification and
// the walking/paused segmentation of a tracking session.
type SegmentationConfig struct {
	// SpeedMin is the GPS speed (m/s) below which the accelerometer alone
	// decides between stationary and walking.
	SpeedMin float64

	// SpeedMax is the GPS speed (m/s) above which the activity is always a vehicle.
	SpeedMax float64

	// SpeedRunning separates running from walking when only GPS speed is trusted.
	SpeedRunning float64

	AccelStationary float64
	AccelWalkingMin float64
	AccelWalkingMax float64
	AccelRunningMin float64

	// AccelVehicleVarianceMin and AccelVehicleVarianceMax bound the
	// irregular vibration band attributed to vehicles.
	AccelVehicleVarianceMin float64
	AccelVehicleVarianceMax float64

	// AccelBufferSize is the capacity of the accelerometer history.
	AccelBufferSize int

	// AccelMinSamples is the number of buffered readings required
	// before the accelerometer pattern is trusted in the walking band.
	AccelMinSamples int

	// PeriodicWindow is the number of most recent magnitudes inspected for gait peaks.
	PeriodicWindow int

	// PeriodicMaxIntervalStdDev is the maximum deviation (in samples)
	// of inter-peak intervals for a pattern to be considered periodic.
	PeriodicMaxIntervalStdDev float64

	// MinPauseDuration is the shortest stop recorded as its own paused segment.
	// Shorter stops are absorbed into the surrounding walk.
	MinPauseDuration time.Duration

	// MinSegmentDuration is the shortest segment kept on finalize.
	MinSegmentDuration time.Duration

	// MinWalkingDistance is the displacement (m) below which a walking segment is GPS noise.
	MinWalkingDistance float64

	// StepWindow and StepMinCount promote an activity to walking when the
	// step counter reports at least StepMinCount steps within StepWindow.
	StepWindow    time.Duration
	StepMinCount  int
	StepRetention time.Duration

	// DeriveMissingSpeed computes a speed from consecutive fixes when the
	// location provider reports none. When false a missing speed is 0.
	DeriveMissingSpeed bool

	// DerivedSpeedMaxGap is the longest gap between fixes used to derive a speed.
	DerivedSpeedMaxGap time.Duration

	// DerivedSpeedDefault is assumed when no speed can be derived.
	DerivedSpeedDefault float64
}

var DefaultSegmentationConfig = &SegmentationConfig{
	SpeedMin:     common.SpeedOfWalkingMin,
	SpeedMax:     common.SpeedOfVehicleMin,
	SpeedRunning: 1.5,

	AccelStationary: 0.15,
	AccelWalkingMin: 0.3,
	AccelWalkingMax: 2.5,
	AccelRunningMin: 2.0,

	AccelVehicleVarianceMin: 0.5,
	AccelVehicleVarianceMax: 1.5,

	AccelBufferSize: 20,
	AccelMinSamples: 5,

	PeriodicWindow:            10,
	PeriodicMaxIntervalStdDev: 1.5,

	MinPauseDuration:   5 * time.Second,
	MinSegmentDuration: time.Second,
	MinWalkingDistance: 0.5,

	StepWindow:    5 * time.Second,
	StepMinCount:  3,
	StepRetention: 10 * time.Second,

	DeriveMissingSpeed:  false,
	DerivedSpeedMaxGap:  10 * time.Second,
	DerivedSpeedDefault: 0.8,
}

// LocationAccuracy is the requested location fix quality.
type LocationAccuracy int

const (
	AccuracyBalanced LocationAccuracy = iota
	AccuracyHigh
	AccuracyBestForNavigation
)

// SensorConfig holds the subscription parameters handed to the sensor providers.
type SensorConfig struct {
	LocationAccuracy    LocationAccuracy
	LocationMinInterval time.Duration
	LocationMinDistance float64 // meters
	AccelInterval       time.Duration
}

var DefaultSensorConfig = &SensorConfig{
	LocationAccuracy:    AccuracyBestForNavigation,
	LocationMinInterval: time.Second,
	LocationMinDistance: 1,
	AccelInterval:       time.Second,
}

// TrackOutputConfig configures how finished segments are written as geojson.
type TrackOutputConfig struct {
	// DouglasPeuckerThreshold simplifies walking linestrings (degrees). Zero disables.
	DouglasPeuckerThreshold float64

	// Kalman smooths walking linestrings with a constant velocity model.
	Kalman bool
}

var DefaultTrackOutputConfig = &TrackOutputConfig{
	DouglasPeuckerThreshold: 0,
	Kalman:                  false,
}
