package track

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestNewMapContext(t *testing.T) {
	if _, err := NewMapContext(nil, 800, 800); !errors.Is(err, ErrNothingToRender) {
		t.Errorf("err = %v, want %v", err, ErrNothingToRender)
	}

	degenerate := geojson.NewFeature(orb.LineString{{lon0, lat0}})
	polygon := geojson.NewFeature(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})
	if _, err := NewMapContext([]*geojson.Feature{degenerate, polygon}, 800, 800); !errors.Is(err, ErrNothingToRender) {
		t.Errorf("err = %v, want %v", err, ErrNothingToRender)
	}

	walk := geojson.NewFeature(orb.LineString{{lon0, lat0}, {lon0, lat0 + 0.001}})
	pause := geojson.NewFeature(orb.Point{lon0, lat0 + 0.001})
	pause.Properties["Status"] = "paused"
	ctx, err := NewMapContext([]*geojson.Feature{walk, pause}, 800, 800)
	if err != nil {
		t.Fatal(err)
	}
	if ctx == nil {
		t.Fatal("nil context")
	}
}
