package track

import (
	"errors"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/rosshemsley/kalman"
	"github.com/rosshemsley/kalman/models"
	"github.com/rotblauer/catwalk/common"
	"gonum.org/v1/gonum/mat"
)

// defaultAccuracy (m) stands in for fixes that report none.
const defaultAccuracy = 5.0

type observation struct {
	Time     time.Time
	Point    mat.Vector
	Variance float64
}

// toLocal projects p onto a plane tangent at origin, in meters east/north.
func toLocal(origin, p orb.Point) (x, y float64) {
	rad := math.Pi / 180
	x = (p.Lon() - origin.Lon()) * rad * common.EarthRadius * math.Cos(origin.Lat()*rad)
	y = (p.Lat() - origin.Lat()) * rad * common.EarthRadius
	return x, y
}

func fromLocal(origin orb.Point, x, y float64) orb.Point {
	rad := math.Pi / 180
	lat := origin.Lat() + y/(common.EarthRadius*rad)
	lon := origin.Lon() + x/(common.EarthRadius*rad*math.Cos(origin.Lat()*rad))
	return orb.Point{lon, lat}
}

// SmoothKalman returns the fixes' positions filtered with a constant velocity
// model, each weighted by its reported accuracy.
func SmoothKalman(fixes Fixes) (orb.LineString, error) {
	if len(fixes) < 2 {
		return nil, errors.New("line string must have at least two points")
	}
	origin := fixes[0].Point()

	observations := make([]observation, 0, len(fixes))
	for _, f := range fixes {
		accuracy := f.MustGetAccuracy()
		if accuracy <= 0 {
			accuracy = defaultAccuracy
		}
		x, y := toLocal(origin, f.Point())
		observations = append(observations, observation{
			Time:     f.MustGetTime(),
			Point:    mat.NewVecDense(2, []float64{x, y}),
			Variance: accuracy * accuracy,
		})
	}

	model := models.NewConstantVelocityModel(observations[0].Time, observations[0].Point, models.ConstantVelocityModelConfig{
		InitialVariance: observations[0].Variance,
		ProcessVariance: observations[0].Variance / 2,
	})

	filtered, err := kalmanFilter(model, observations)
	if err != nil {
		return nil, err
	}

	out := make(orb.LineString, len(filtered))
	for i, v := range filtered {
		out[i] = fromLocal(origin, v.AtVec(0), v.AtVec(1))
	}
	return out, nil
}

func kalmanFilter(model *models.ConstantVelocityModel, observations []observation) ([]mat.Vector, error) {
	result := make([]mat.Vector, len(observations))
	filter := kalman.NewKalmanFilter(model)

	for i, obs := range observations {
		err := filter.Update(obs.Time, model.NewPositionMeasurement(obs.Point, obs.Variance))
		if err != nil {
			return nil, err
		}
		result[i] = model.Position(filter.State())
	}
	return result, nil
}
