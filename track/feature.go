package track

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/catwalk/common"
	"github.com/rotblauer/catwalk/motion"
	"github.com/rotblauer/catwalk/sensor"
)

// Fix is a cattrack point feature: one location fix, optionally carrying
// the accelerometer and pedometer readings taken with it.
type Fix struct {
	*geojson.Feature
}

// MarshalJSON implements the json.Marshaler interface.
func (f *Fix) MarshalJSON() ([]byte, error) {
	return f.Feature.MarshalJSON()
}

// Time parses the RFC3339 Time property.
func (f *Fix) Time() (time.Time, error) {
	v, ok := f.Properties["Time"]
	if !ok {
		return time.Time{}, ErrMissingTime
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTime, v)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	return t, nil
}

// MustGetTime returns the fix time, or the zero time if it is missing or malformed.
func (f *Fix) MustGetTime() time.Time {
	t, _ := f.Time()
	return t
}

func (f *Fix) float(key string) (float64, bool) {
	v, ok := f.Properties[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// Speed returns the reported speed (m/s), if any.
func (f *Fix) Speed() (float64, bool) {
	return f.float("Speed")
}

func (f *Fix) MustGetAccuracy() float64 {
	return f.Properties.MustFloat64("Accuracy", 0)
}

// ReportedActivity parses the device's own activity label.
func (f *Fix) ReportedActivity() motion.Activity {
	return motion.ActivityFromReport(f.Properties.MustString("Activity", ""))
}

// Location converts the fix to a sensor location.
func (f *Fix) Location() (sensor.Location, error) {
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return sensor.Location{}, ErrNotPoint
	}
	t, err := f.Time()
	if err != nil {
		return sensor.Location{}, err
	}
	loc := sensor.Location{
		Lat:      pt.Lat(),
		Lon:      pt.Lon(),
		Accuracy: f.MustGetAccuracy(),
		Time:     t,
	}
	if v, ok := f.Speed(); ok {
		loc.Speed = sensor.Speed(v)
	}
	return loc, nil
}

// Accel returns the accelerometer sample carried by the fix.
func (f *Fix) Accel() (sensor.AccelSample, bool) {
	x, okX := f.float("AccelerometerX")
	y, okY := f.float("AccelerometerY")
	z, okZ := f.float("AccelerometerZ")
	if !okX || !okY || !okZ {
		return sensor.AccelSample{}, false
	}
	return sensor.AccelSample{X: x, Y: y, Z: z}, true
}

// Steps returns the cumulative step count carried by the fix.
func (f *Fix) Steps() (sensor.StepSample, bool) {
	n, ok := f.float("NumberOfSteps")
	if !ok || n < 0 {
		return sensor.StepSample{}, false
	}
	return sensor.StepSample{Steps: int(n)}, true
}

// Fixes is a chronological list of fixes.
type Fixes []*Fix

func (fs Fixes) Points() []orb.Point {
	out := make([]orb.Point, len(fs))
	for i, f := range fs {
		out[i] = f.Point()
	}
	return out
}

func (fs Fixes) Timespan() time.Duration {
	if len(fs) == 0 {
		return 0
	}
	return fs[len(fs)-1].MustGetTime().Sub(fs[0].MustGetTime())
}

// Covered returns the fixes timed within the segment.
func (fs Fixes) Covered(seg motion.Segment) Fixes {
	out := Fixes{}
	for _, f := range fs {
		if seg.Contains(f.MustGetTime()) {
			out = append(out, f)
		}
	}
	return out
}

// TraversedDistance sums the haversine distance between consecutive fixes.
func (fs Fixes) TraversedDistance() float64 {
	sum := 0.0
	for i := 1; i < len(fs); i++ {
		sum += common.Distance(fs[i-1].Point(), fs[i].Point())
	}
	return sum
}

func (fs Fixes) AverageAccuracy() float64 {
	if len(fs) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range fs {
		sum += f.MustGetAccuracy()
	}
	return sum / float64(len(fs))
}

// AverageReportedSpeed averages the fixes that reported a usable speed.
func (fs Fixes) AverageReportedSpeed() float64 {
	speeds := []float64{}
	for _, f := range fs {
		if v, ok := f.Speed(); ok && v >= 0 {
			speeds = append(speeds, v)
		}
	}
	m, err := stats.Mean(speeds)
	if err != nil {
		return 0
	}
	return m
}

// ReportedActivityMode is the most frequent known activity reported by the device.
func (fs Fixes) ReportedActivityMode() motion.Activity {
	activities := []float64{}
	for _, f := range fs {
		if act := f.ReportedActivity(); act > motion.ActivityUnknown {
			activities = append(activities, float64(act))
		}
	}
	mode, _ := stats.Float64Data(activities).Mode()
	for _, m := range mode {
		if m != float64(motion.ActivityUnknown) {
			return motion.Activity(m)
		}
	}
	return motion.ActivityUnknown
}
