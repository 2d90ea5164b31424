package track

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tormoder/fit"
)

// DecodeFIT reads the GPS records of a FIT activity file as fixes.
// Records without a valid timestamp or position are skipped.
func DecodeFIT(r io.Reader) (Fixes, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode fit: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("fit activity: %w", err)
	}

	fixes := Fixes{}
	for _, rec := range activity.Records {
		if rec.Timestamp.IsZero() || fit.IsBaseTime(rec.Timestamp) {
			continue
		}
		if rec.PositionLat.Invalid() || rec.PositionLong.Invalid() {
			continue
		}
		f := geojson.NewFeature(orb.Point{rec.PositionLong.Degrees(), rec.PositionLat.Degrees()})
		f.Properties["Time"] = rec.Timestamp.UTC().Format(time.RFC3339)
		if speed, ok := recordSpeed(rec); ok {
			f.Properties["Speed"] = speed
		}
		if err := Validate(f); err != nil {
			continue
		}
		fixes = append(fixes, &Fix{f})
	}
	return fixes, nil
}

func recordSpeed(rec *fit.RecordMsg) (float64, bool) {
	speed := rec.GetEnhancedSpeedScaled()
	if isFinite(speed) && speed >= 0 {
		return speed, true
	}
	speed = rec.GetSpeedScaled()
	if isFinite(speed) && speed >= 0 {
		return speed, true
	}
	return 0, false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
