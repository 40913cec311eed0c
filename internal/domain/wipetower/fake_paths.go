package wipetower

import (
	"math"

	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
)

const (
	fakeLineSpacing   = 3.0
	fakeBrimSpacing   = 3.0
	fakeConeSegments  = 20
	fakeMinLayerSteps = 1e-3
)

// FakePaths returns a coarse outline of the tower for each layer from the bed up
// to its height, in bed coordinates. The paths are only used for collision
// checks and are never printed.
func FakePaths(d *Data) [][]extrusion.Path {
	if !d.Generated() || d.Height <= 0 || d.FirstLayerHeight <= fakeMinLayerSteps {
		return nil
	}
	var out [][]extrusion.Path
	front := d.ZDepth[0].Depth
	radius, scaleX := ConeBase(d.Width, d.Height, front, d.ConeAngle)
	center := geometry.Pt(d.Width/2, front/2)

	for hh := 0.0; hh < d.Height; hh += d.FirstLayerHeight {
		depth := depthAt(d.ZDepth, hh)
		var paths []extrusion.Path
		add := func(pl geometry.Polyline) {
			paths = append(paths, d.Place(extrusion.Path{
				Polyline: pl,
				Kind:     extrusion.RoleWipeTower,
				Height:   d.FirstLayerHeight,
			}))
		}

		minY, maxY := front/2-depth/2, front/2+depth/2
		minX, maxX := 0.0, d.Width
		if hh == 0 {
			minX, minY = -d.BrimWidth, -d.BrimWidth
			maxX, maxY = d.Width+d.BrimWidth, front+d.BrimWidth
		}
		add(geometry.Rect(geometry.Pt(minX, minY), geometry.Pt(maxX, maxY)).Polyline())
		for y := minY + fakeLineSpacing; y < maxY; y += fakeLineSpacing {
			add(geometry.Polyline{geometry.Pt(minX, y), geometry.Pt(maxX, y)})
		}

		if r := radius * (1 - hh/d.Height); r > 0 && d.ConeAngle > 0 {
			add(cone(center, r, scaleX).Polyline())
		}
		if hh == 0 && radius > 0 && d.ConeAngle > 0 {
			for bw := d.BrimWidth; bw > 0; bw -= fakeBrimSpacing {
				add(cone(center, radius+bw, scaleX).Polyline())
			}
		}
		out = append(out, paths)
	}
	return out
}

func cone(center geometry.Point, r, scaleX float64) geometry.Polygon {
	c := geometry.Circle(geometry.Point{}, r*geometry.Scale, fakeConeSegments)
	for i := range c {
		c[i].X = int64(math.Round(float64(c[i].X) * scaleX))
		c[i] = c[i].Add(center)
	}
	return c
}

// depthAt returns the tower depth at z from the z/depth pairs.
func depthAt(pairs []ZDepth, z float64) float64 {
	depth := 0.0
	for _, p := range pairs {
		if p.Z > z+epsilon {
			break
		}
		depth = p.Depth
	}
	return depth
}
