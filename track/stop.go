package track

import (
	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/rotblauer/catwalk/common"
)

// Stop summarizes the fixes recorded during a pause.
type Stop struct {
	Centroid orb.Point
	Count    int

	// MaxDist is the distance of the furthest fix from the centroid.
	// P50Dist and P99Dist are percentiles of those distances, a measure of
	// how tightly the fixes cluster.
	MaxDist float64
	P50Dist float64
	P99Dist float64

	// Area is the area of the fixes' bounding box, m².
	Area float64
}

// ConsolidateStop reduces fixes to a single Stop. It returns false for no fixes.
func ConsolidateStop(fixes Fixes) (Stop, bool) {
	if len(fixes) == 0 {
		return Stop{}, false
	}
	if len(fixes) == 1 {
		return Stop{Centroid: fixes[0].Point(), Count: 1}, true
	}

	mp := orb.MultiPoint(fixes.Points())
	centroid, _ := planar.CentroidArea(mp)

	distances := make([]float64, 0, len(mp))
	for _, p := range mp {
		distances = append(distances, common.Distance(centroid, p))
	}
	p50, _ := stats.Percentile(distances, 50)
	p99, _ := stats.Percentile(distances, 99)
	max, _ := stats.Max(distances)

	return Stop{
		Centroid: centroid,
		Count:    len(fixes),
		MaxDist:  max,
		P50Dist:  p50,
		P99Dist:  p99,
		Area:     geo.Area(mp.Bound()),
	}, true
}
