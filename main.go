/*
Package main replays recorded location tracks through the walking/paused
segmentation engine.

It reads a stream of geojson point features (cattrack format: Time, Speed,
Accuracy, and optionally AccelerometerX/Y/Z and NumberOfSteps properties),
or a FIT activity file, and feeds them to a tracking session as if they
were arriving live.

Use:

	zcat ~/tdata/edge.json.gz | tail -1000 | catwalk segments
	catwalk -fit morning.fit metrics
	catwalk -fit morning.fit -kalman -out morning.png render
*/
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/catwalk/params"
	"github.com/rotblauer/catwalk/track"
)

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)
}

var (
	flagFIT                     = flag.String("fit", "", "replay this FIT activity file instead of stdin")
	flagKalman                  = flag.Bool("kalman", false, "smooth walking linestrings with a Kalman filter")
	flagDouglasPeuckerThreshold = flag.Float64("threshold", 0, "Douglas-Peucker epsilon threshold (degrees), 0 disables")
	flagOut                     = flag.String("out", "catwalk.png", "render output path")
	flagSize                    = flag.Int("size", 800, "render width and height (px)")
	flagMinPause                = flag.Duration("min-pause", params.DefaultSegmentationConfig.MinPauseDuration, "shortest stop recorded as a pause")
	flagSpeedMin                = flag.Float64("speed-min", params.DefaultSegmentationConfig.SpeedMin, "GPS speed (m/s) below which the accelerometer decides")
	flagSpeedMax                = flag.Float64("speed-max", params.DefaultSegmentationConfig.SpeedMax, "GPS speed (m/s) above which the activity is a vehicle")
	flagDeriveSpeed             = flag.Bool("derive-speed", false, "derive missing speeds from consecutive fixes")
	flagSignalLoss              = flag.Duration("signal-loss", 2*time.Minute, "report gaps between fixes longer than this, 0 disables")
)

func segmentationConfig() *params.SegmentationConfig {
	cfg := *params.DefaultSegmentationConfig
	cfg.MinPauseDuration = *flagMinPause
	cfg.SpeedMin = *flagSpeedMin
	cfg.SpeedMax = *flagSpeedMax
	cfg.DeriveMissingSpeed = *flagDeriveSpeed
	return &cfg
}

func outputConfig() *params.TrackOutputConfig {
	return &params.TrackOutputConfig{
		DouglasPeuckerThreshold: *flagDouglasPeuckerThreshold,
		Kalman:                  *flagKalman,
	}
}

func readFixes(in io.Reader) (track.Fixes, error) {
	if *flagFIT == "" {
		return track.ReadFixes(in, log.Default()), nil
	}
	f, err := os.Open(*flagFIT)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return track.DecodeFIT(f)
}

func replay(ctx context.Context, in io.Reader) (*track.Replayed, error) {
	fixes, err := readFixes(in)
	if err != nil {
		return nil, err
	}
	r, err := track.Replay(ctx, fixes, track.ReplayOptions{
		Config:             segmentationConfig(),
		Logger:             log.Default(),
		SignalLossInterval: *flagSignalLoss,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("replayed %d fixes over %v, session %s, %d signal losses", len(r.Fixes), r.Fixes.Timespan(), r.SessionID, r.SignalLosses)
	log.Printf("last activity %v (%s)", r.LastActivity, r.LastReason)
	return r, nil
}

func writeFeatures(out io.Writer, features []*geojson.Feature) error {
	for _, f := range features {
		j, err := f.MarshalJSON()
		if err != nil {
			return err
		}
		j = append(j, []byte("\n")...)
		if _, err := out.Write(j); err != nil {
			return err
		}
	}
	return nil
}

func cmdValidate(in io.Reader, out io.Writer) error {
	fixes := track.ReadFixes(in, log.Default())
	features := make([]*geojson.Feature, len(fixes))
	for i, f := range fixes {
		features[i] = f.Feature
	}
	return writeFeatures(out, features)
}

func cmdSegments(ctx context.Context, in io.Reader, out io.Writer) error {
	r, err := replay(ctx, in)
	if err != nil {
		return err
	}
	features := track.SegmentFeatures(r.Metrics.Segments, r.Fixes, outputConfig(), log.Default())
	return writeFeatures(out, features)
}

func cmdMetrics(ctx context.Context, in io.Reader, out io.Writer) error {
	r, err := replay(ctx, in)
	if err != nil {
		return err
	}
	j, err := json.MarshalIndent(r.Metrics, "", "  ")
	if err != nil {
		return err
	}
	j = append(j, []byte("\n")...)
	_, err = out.Write(j)
	return err
}

func cmdRender(ctx context.Context, in io.Reader) error {
	r, err := replay(ctx, in)
	if err != nil {
		return err
	}
	features := track.SegmentFeatures(r.Metrics.Segments, r.Fixes, outputConfig(), log.Default())
	if err := track.Render(features, *flagOut, *flagSize, *flagSize); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	log.Println("wrote", *flagOut)
	return nil
}

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	command := flag.Arg(0)
	switch command {
	case "validate":
		err = cmdValidate(os.Stdin, os.Stdout)
	case "segments":
		err = cmdSegments(ctx, os.Stdin, os.Stdout)
	case "metrics":
		err = cmdMetrics(ctx, os.Stdin, os.Stdout)
	case "render":
		err = cmdRender(ctx, os.Stdin)
	default:
		log.Fatalf("unknown command: %s", command)
	}
	if err != nil {
		log.Fatalln(err)
	}
}
