package track

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"

	sm "github.com/flopp/go-staticmaps"
	"github.com/fogleman/gg"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var ErrNothingToRender = errors.New("nothing to render")

var (
	walkingColor = color.RGBA{0, 0, 255, 255}
	pausedColor  = color.RGBA{255, 0, 0, 255}
)

// NewMapContext draws walking linestrings as paths and pauses as markers.
// It returns ErrNothingToRender if no feature has a drawable geometry.
func NewMapContext(features []*geojson.Feature, width, height int) (*sm.Context, error) {
	ctx := sm.NewContext()
	ctx.SetSize(width, height)

	n := 0
	for _, f := range features {
		switch g := f.Geometry.(type) {
		case orb.LineString:
			if len(g) < 2 {
				continue
			}
			lls := make([]s2.LatLng, 0, len(g))
			for _, p := range g {
				lls = append(lls, s2.LatLngFromDegrees(p.Lat(), p.Lon()))
			}
			ctx.AddObject(sm.NewPath(lls, walkingColor, 3))
			n++
		case orb.Point:
			c := walkingColor
			if f.Properties.MustString("Status", "") == "paused" {
				c = pausedColor
			}
			ctx.AddObject(sm.NewMarker(s2.LatLngFromDegrees(g.Lat(), g.Lon()), c, 16))
			n++
		}
	}
	if n == 0 {
		return nil, ErrNothingToRender
	}
	return ctx, nil
}

// Render writes features to a PNG map at pathto. Map tiles are fetched
// from the default tile provider.
func Render(features []*geojson.Feature, pathto string, width, height int) error {
	ctx, err := NewMapContext(features, width, height)
	if err != nil {
		return err
	}
	img, err := ctx.Render()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(pathto), 0777); err != nil {
		return err
	}
	return gg.SavePNG(pathto, img)
}
