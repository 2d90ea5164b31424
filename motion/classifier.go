package motion

import (
	"github.com/montanaflynn/stats"
	"github.com/rotblauer/catwalk/params"
)

// Classifier maps GPS speed and recent accelerometer history to an Activity.
// It keeps no state between calls.
type Classifier struct {
	Config *params.SegmentationConfig
}

func NewClassifier(cfg *params.SegmentationConfig) *Classifier {
	if cfg == nil {
		cfg = params.DefaultSegmentationConfig
	}
	return &Classifier{Config: cfg}
}

// Classify returns the activity for a GPS speed (m/s) and chronological
// accelerometer readings. Negative speeds are treated as 0.
func (c *Classifier) Classify(speed float64, readings []AccelReading) Activity {
	if speed < 0 {
		speed = 0
	}
	mags := magnitudes(readings)

	if speed < c.Config.SpeedMin {
		if accelVariance(mags) < c.Config.AccelStationary {
			return ActivityStationary
		}
		return ActivityWalking
	}

	// GPS speed alone is decisive at this extreme.
	if speed > c.Config.SpeedMax {
		return ActivityVehicle
	}

	if len(mags) < c.Config.AccelMinSamples {
		return c.classifySpeed(speed)
	}

	variance := accelVariance(mags)
	periodic := c.isPeriodic(mags)
	avg := mean(mags)

	switch {
	case !periodic && variance > c.Config.AccelVehicleVarianceMin && variance < c.Config.AccelVehicleVarianceMax:
		// Irregular mid-amplitude vibration.
		return ActivityVehicle
	case periodic && avg > c.Config.AccelRunningMin:
		return ActivityRunning
	case periodic && avg >= c.Config.AccelWalkingMin && avg <= c.Config.AccelWalkingMax:
		return ActivityWalking
	case variance < c.Config.AccelStationary:
		return ActivityStationary
	}
	return c.classifySpeed(speed)
}

func (c *Classifier) classifySpeed(speed float64) Activity {
	if speed > c.Config.SpeedRunning {
		return ActivityRunning
	}
	return ActivityWalking
}

// IsPeriodic reports whether the most recent magnitudes show regularly
// spaced peaks, as a gait does.
func (c *Classifier) IsPeriodic(readings []AccelReading) bool {
	return c.isPeriodic(magnitudes(readings))
}

func (c *Classifier) isPeriodic(mags []float64) bool {
	window := c.Config.PeriodicWindow
	if len(mags) < window || window < 3 {
		return false
	}
	mags = mags[len(mags)-window:]

	peaks := []int{}
	for i := 1; i < len(mags)-1; i++ {
		if mags[i] > mags[i-1] && mags[i] > mags[i+1] {
			peaks = append(peaks, i)
		}
	}
	if len(peaks) < 2 {
		return false
	}

	intervals := make([]float64, 0, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		intervals = append(intervals, float64(peaks[i]-peaks[i-1]))
	}
	sd, err := stats.StandardDeviationPopulation(intervals)
	if err != nil {
		return false
	}
	return sd < c.Config.PeriodicMaxIntervalStdDev
}

// accelVariance is the population standard deviation of the magnitudes,
// 0 for an empty buffer.
func accelVariance(mags []float64) float64 {
	if len(mags) < 2 {
		return 0
	}
	sd, err := stats.StandardDeviationPopulation(mags)
	if err != nil {
		return 0
	}
	return sd
}

func mean(mags []float64) float64 {
	m, err := stats.Mean(mags)
	if err != nil {
		return 0
	}
	return m
}
