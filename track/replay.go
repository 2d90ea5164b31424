package track

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rotblauer/catwalk/common"
	"github.com/rotblauer/catwalk/motion"
	"github.com/rotblauer/catwalk/params"
	"github.com/rotblauer/catwalk/sensor"
)

// ReplayOptions configures a Replay.
type ReplayOptions struct {
	Config  *params.SegmentationConfig
	Sensors *params.SensorConfig
	Logger  *log.Logger

	// SignalLossInterval is the longest gap between fixes not reported as a
	// signal loss. Zero disables the check.
	SignalLossInterval time.Duration
}

// Replayed is the outcome of replaying recorded fixes through a session.
type Replayed struct {
	SessionID uuid.UUID
	Metrics   motion.Metrics

	// Fixes are the fixes applied, in order. Out of order fixes are dropped.
	Fixes Fixes

	// SignalLosses counts gaps longer than SignalLossInterval that were
	// not explained by travel at walking speed.
	SignalLosses int

	// LastActivity is the classification of the last applied fix, and
	// LastReason the inputs that produced it.
	LastActivity motion.Activity
	LastReason   string
}

// Replay runs fixes through a fresh motion.Session as if they were arriving
// live. The session clock follows the fix times. Each fix delivers its
// accelerometer and step readings before its location.
func Replay(ctx context.Context, fixes Fixes, opts ReplayOptions) (*Replayed, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	out := &Replayed{Fixes: Fixes{}, Metrics: motion.Summarize(nil)}
	if len(fixes) == 0 {
		return out, nil
	}

	var now time.Time
	feed := sensor.NewFeed()
	session := motion.NewSession(feed, feed)
	session.Steps = feed
	session.Clock = func() time.Time { return now }
	session.Logger = logger
	if opts.Config != nil {
		session.Config = opts.Config
	}
	if opts.Sensors != nil {
		session.Sensors = opts.Sensors
	}

	now = fixes[0].MustGetTime()
	if err := session.Start(ctx); err != nil {
		return nil, err
	}
	defer session.Stop()

	var last *Fix
	for _, f := range fixes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loc, err := f.Location()
		if err != nil {
			logger.Println("WARN: skipping fix:", err)
			continue
		}
		if last != nil {
			lastTime := last.MustGetTime()
			if loc.Time.Before(lastTime) {
				logger.Println("WARN: fix not chronological, skipping", loc.Time, lastTime)
				continue
			}
			if isSignalLoss(last, f, opts.SignalLossInterval, session.Config) {
				out.SignalLosses++
				logger.Println("WARN: signal loss", lastTime, loc.Time.Sub(lastTime))
			}
		}

		now = loc.Time
		if a, ok := f.Accel(); ok {
			feed.PushAccel(a)
		}
		if st, ok := f.Steps(); ok {
			feed.PushSteps(st)
		}
		feed.PushLocation(loc)

		out.Fixes = append(out.Fixes, f)
		last = f
	}

	out.LastActivity, out.LastReason = session.LastActivity()
	session.Stop()
	out.SessionID = session.ID()
	out.Metrics = session.CurrentData()
	return out, nil
}

// isSignalLoss reports a gap between two fixes longer than interval whose
// implied speed is below walking pace: the device lost its fix rather than
// its owner moving on.
func isSignalLoss(prev, next *Fix, interval time.Duration, cfg *params.SegmentationConfig) bool {
	if interval <= 0 {
		return false
	}
	gap := next.MustGetTime().Sub(prev.MustGetTime())
	if gap <= interval {
		return false
	}
	if cfg == nil {
		cfg = params.DefaultSegmentationConfig
	}
	speed := common.Distance(prev.Point(), next.Point()) / gap.Seconds()
	return speed < cfg.SpeedMin
}
