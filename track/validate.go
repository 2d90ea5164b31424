package track

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrNotPoint              = errors.New("not a point")
	ErrCoordinateOutOfRange  = errors.New("coordinate out of range")
	ErrMissingTime           = errors.New("missing time")
	ErrInvalidTime           = errors.New("invalid time")
	ErrInvalidSensorProperty = errors.New("invalid sensor property")
)

// maxFixAge rejects fixes timed before any device that could have produced them.
const maxFixAge = 25 * 365 * 24 * time.Hour

// Validate checks that f is a usable point fix.
// Zero coordinates are rejected as an unset position.
func Validate(f *geojson.Feature) error {
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return ErrNotPoint
	}
	if pt.Lon() < -180 || pt.Lon() > 180 || pt.Lon() == 0 {
		j, _ := json.Marshal(f)
		return fmt.Errorf("%w: longitude out of range: %f %s", ErrCoordinateOutOfRange, pt.Lon(), string(j))
	}
	if pt.Lat() < -90 || pt.Lat() > 90 || pt.Lat() == 0 {
		j, _ := json.Marshal(f)
		return fmt.Errorf("%w: latitude out of range: %f %s", ErrCoordinateOutOfRange, pt.Lat(), string(j))
	}

	fix := &Fix{f}
	t, err := fix.Time()
	if err != nil {
		return err
	}
	if t.IsZero() {
		return ErrInvalidTime
	}
	if t.Before(time.Now().Add(-maxFixAge)) {
		return fmt.Errorf("%w: too far in the past: %v", ErrInvalidTime, t)
	}

	for _, key := range []string{"Speed", "Accuracy", "AccelerometerX", "AccelerometerY", "AccelerometerZ", "NumberOfSteps"} {
		v, ok := f.Properties[key]
		if !ok || v == nil {
			continue
		}
		if _, ok := fix.float(key); !ok {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSensorProperty, key, v)
		}
	}
	if acc, ok := fix.float("Accuracy"); ok && acc < 0 {
		return fmt.Errorf("%w: negative accuracy: %f", ErrInvalidSensorProperty, acc)
	}
	return nil
}
