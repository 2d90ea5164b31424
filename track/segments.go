package track

import (
	"log"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
	"github.com/rotblauer/catwalk/motion"
	"github.com/rotblauer/catwalk/params"
)

// SegmentFeatures turns a session's segments into geojson: walking segments
// become linestrings of the fixes they cover, paused segments become the
// centroid of the fixes recorded during the pause. Segments that cover no
// fix are skipped.
func SegmentFeatures(segments []motion.Segment, fixes Fixes, cfg *params.TrackOutputConfig, logger *log.Logger) []*geojson.Feature {
	if cfg == nil {
		cfg = params.DefaultTrackOutputConfig
	}
	if logger == nil {
		logger = log.Default()
	}
	out := []*geojson.Feature{}
	for _, seg := range segments {
		covered := fixes.Covered(seg)
		var f *geojson.Feature
		switch seg.Status {
		case motion.StatusWalking:
			f = walkingFeature(seg, covered, cfg, logger)
		case motion.StatusPaused:
			f = pausedFeature(seg, covered)
		}
		if f == nil {
			logger.Printf("WARN: %s segment at %v covers no fixes", seg.Status, seg.StartTime)
			continue
		}
		out = append(out, f)
	}
	return out
}

func segmentProperties(seg motion.Segment) geojson.Properties {
	return geojson.Properties{
		"Status":    seg.Status.String(),
		"StartTime": seg.StartTime.Format(time.RFC3339),
		"EndTime":   seg.EndTime.Format(time.RFC3339),
		"Duration":  seg.Duration,
	}
}

func walkingFeature(seg motion.Segment, fixes Fixes, cfg *params.TrackOutputConfig, logger *log.Logger) *geojson.Feature {
	if len(fixes) == 0 {
		return nil
	}

	var geometry orb.Geometry
	if len(fixes) == 1 {
		geometry = fixes[0].Point()
	} else {
		ls := orb.LineString(fixes.Points())
		if cfg.Kalman {
			smoothed, err := SmoothKalman(fixes)
			if err != nil {
				logger.Println("WARN: kalman:", err)
			} else {
				ls = smoothed
			}
		}
		if cfg.DouglasPeuckerThreshold > 0 {
			ls = simplify.DouglasPeucker(cfg.DouglasPeuckerThreshold).Simplify(ls.Clone()).(orb.LineString)
		}
		geometry = ls
	}

	f := geojson.NewFeature(geometry)
	f.Properties = segmentProperties(seg)
	f.Properties["Distance"] = seg.Distance
	f.Properties["AverageSpeed"] = seg.AverageSpeed
	f.Properties["PointCount"] = len(fixes)
	f.Properties["DistanceTraversed"] = fixes.TraversedDistance()
	f.Properties["AverageAccuracy"] = fixes.AverageAccuracy()
	f.Properties["AverageReportedSpeed"] = fixes.AverageReportedSpeed()
	if act := fixes.ReportedActivityMode(); act != motion.ActivityUnknown {
		f.Properties["ReportedActivity"] = act.String()
	}
	return f
}

func pausedFeature(seg motion.Segment, fixes Fixes) *geojson.Feature {
	stop, ok := ConsolidateStop(fixes)
	if !ok {
		return nil
	}
	f := geojson.NewFeature(stop.Centroid)
	f.Properties = segmentProperties(seg)
	f.Properties["Count"] = stop.Count
	f.Properties["MaxDist"] = stop.MaxDist
	f.Properties["P50Dist"] = stop.P50Dist
	f.Properties["P99Dist"] = stop.P99Dist
	f.Properties["Area"] = stop.Area
	return f
}
