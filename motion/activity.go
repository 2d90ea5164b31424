package motion

import (
	"fmt"
	"regexp"
)

type Activity int

const (
	ActivityUnknown Activity = iota
	ActivityStationary
	ActivityWalking
	ActivityRunning
	ActivityVehicle
)

var (
	activityStationary = regexp.MustCompile(`(?i)stationary|still`)
	activityWalking    = regexp.MustCompile(`(?i)walk`)
	activityRunning    = regexp.MustCompile(`(?i)run`)
	activityVehicle    = regexp.MustCompile(`(?i)vehicle|drive|driving|automotive`)
)

// IsMoving reports whether the activity counts as walking time.
// Vehicles are not moving: riding is waiting, not walking.
func (a Activity) IsMoving() bool {
	return a == ActivityWalking || a == ActivityRunning
}

func (a Activity) String() string {
	switch a {
	case ActivityStationary:
		return "Stationary"
	case ActivityWalking:
		return "Walking"
	case ActivityRunning:
		return "Running"
	case ActivityVehicle:
		return "Vehicle"
	}
	return "Unknown"
}

func (a Activity) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Activity) UnmarshalText(text []byte) error {
	*a = ActivityFromReport(string(text))
	return nil
}

// ActivityFromReport parses a free-form activity label, as reported by
// platform activity recognition or written by this package.
func ActivityFromReport(report string) Activity {
	switch {
	case activityStationary.MatchString(report):
		return ActivityStationary
	case activityWalking.MatchString(report):
		return ActivityWalking
	case activityRunning.MatchString(report):
		return ActivityRunning
	case activityVehicle.MatchString(report):
		return ActivityVehicle
	}
	return ActivityUnknown
}

// Status is the externally visible state of a segment.
type Status int

const (
	StatusWalking Status = iota
	StatusPaused
)

// StatusOf maps an activity class to the segment status it produces.
func StatusOf(a Activity) Status {
	if a.IsMoving() {
		return StatusWalking
	}
	return StatusPaused
}

func (s Status) String() string {
	if s == StatusPaused {
		return "paused"
	}
	return "walking"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "walking":
		*s = StatusWalking
	case "paused":
		*s = StatusPaused
	default:
		return fmt.Errorf("unknown segment status %q", string(text))
	}
	return nil
}
