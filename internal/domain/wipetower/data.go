// Package wipetower plans and generates the purge tower of a multi-material print.
package wipetower

import (
	"math"
	"slices"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
	"github.com/felixgeelhaar/slicecore/internal/domain/toolorder"
)

// NoTool is the NewTool of the final unload, after which no extruder is loaded.
const NoTool = -1

// ToolChangeResult is the tower work of one tool change, or of finishing a layer
// when InitialTool equals NewTool. Paths are in tower coordinates unless the
// result is a priming line.
type ToolChangeResult struct {
	PrintZ      float64
	LayerHeight float64
	InitialTool int
	NewTool     int
	Priming     bool
	// PurgeVolume is the volume the planner requested for this change in mm³.
	PurgeVolume float64
	Paths       []extrusion.Path
}

// Volume returns the volume actually extruded in mm³.
func (r *ToolChangeResult) Volume() float64 {
	var v float64
	for _, p := range r.Paths {
		v += p.Volume()
	}
	return v
}

// IsToolChange reports whether the result switches extruders.
func (r *ToolChangeResult) IsToolChange() bool {
	return r.InitialTool != r.NewTool
}

// ZDepth is the tower depth from Z upwards.
type ZDepth struct {
	Z     float64
	Depth float64
}

// UsedFilament is the filament length per extruder consumed up to a layer, in mm.
type UsedFilament struct {
	Z       float64
	Lengths []float64
}

// Data is everything the tower step produces. It is rebuilt from scratch each
// time the step runs.
type Data struct {
	Width            float64
	Depth            float64
	BrimWidth        float64
	FirstLayerHeight float64
	ConeAngle        float64

	// Height is -1 while the tower is only estimated.
	Height float64

	// Position and Rotation (degrees) place the tower on the bed. They follow
	// the model and are refreshed without regenerating the tower.
	Position geometry.Point
	Rotation float64

	ZDepth      []ZDepth
	Priming     []ToolChangeResult
	ToolChanges [][]ToolChangeResult
	FinalPurge  *ToolChangeResult

	UsedFilamentUntilLayer []UsedFilament
	NumberOfToolChanges    int
	Ordering               *toolorder.ToolOrdering
}

// Generated reports whether the data describes a generated tower.
func (d *Data) Generated() bool {
	return d != nil && len(d.ZDepth) > 0
}

// Place transforms a path from tower coordinates onto the bed.
func (d *Data) Place(p extrusion.Path) extrusion.Path {
	angle := d.Rotation * math.Pi / 180
	pl := make(geometry.Polyline, len(p.Polyline))
	for i, pt := range p.Polyline {
		pl[i] = pt.Rotate(angle).Add(d.Position)
	}
	p.Polyline = pl
	return p
}

// Corners returns the tower footprint corners on the bed, brim included.
func (d *Data) Corners() []geometry.Point {
	bw := d.BrimWidth
	local := []geometry.Point{
		geometry.Pt(-bw, -bw),
		geometry.Pt(d.Width+bw, -bw),
		geometry.Pt(d.Width+bw, d.Depth+bw),
		geometry.Pt(-bw, d.Depth+bw),
	}
	angle := d.Rotation * math.Pi / 180
	for i, pt := range local {
		local[i] = pt.Rotate(angle).Add(d.Position)
	}
	return local
}

// Footprint returns the points bounding the first tower layer on the bed,
// brim and stabilization cone included.
func (d *Data) Footprint() []geometry.Point {
	pts := d.Corners()
	if d.ConeAngle <= 0 || d.Height <= 0 || len(d.ZDepth) == 0 {
		return pts
	}
	front := d.ZDepth[0].Depth
	r, scaleX := ConeBase(d.Width, d.Height, front, d.ConeAngle)
	if r <= 0 {
		return pts
	}
	angle := d.Rotation * math.Pi / 180
	for _, pt := range cone(geometry.Pt(d.Width/2, front/2), r+d.BrimWidth, scaleX) {
		pts = append(pts, pt.Rotate(angle).Add(d.Position))
	}
	return pts
}

// Estimate returns the pre-generation tower extents used for previews. The
// depth assumes 0.2 mm layers and every extruder purging its largest volume.
func Estimate(cfg *config.PrintConfig, extruders int) Data {
	d := Data{
		Width:     cfg.WipeTowerWidth,
		BrimWidth: cfg.WipeTowerBrimWidth,
		Height:    -1,
	}
	volumes := cfg.WipeVolumes()
	if extruders == 0 || len(volumes) == 0 || cfg.WipeTowerWidth <= 0 {
		return d
	}
	var maximum float64
	for _, row := range volumes {
		maximum += slices.Max(row)
	}
	maximum = maximum * float64(extruders) / float64(len(volumes))

	const layerHeight = 0.2
	d.Depth = (maximum / layerHeight) / cfg.WipeTowerWidth
	return d
}

// IsToolchangeRequired reports whether switching to extruder needs a tower
// change. On the first layer the last printing extruder is always purged so
// priming ends with it.
func IsToolchangeRequired(firstLayer bool, lastExtruder, extruder, currentExtruder int) bool {
	if firstLayer && extruder == lastExtruder {
		return true
	}
	return extruder != currentExtruder
}

// ConeBase returns the radius of the stabilisation cone base and the x scale
// needed for the cone to enclose the tower footprint.
func ConeBase(width, height, depth, angleDeg float64) (radius, scaleX float64) {
	radius = math.Tan(angleDeg/2*math.Pi/180) * height
	fakeWidth := 0.66 * width
	diag := math.Hypot(fakeWidth/2, depth/2)
	scaleX = 1
	if radius > diag {
		sin := 0.5 * depth / diag
		tan := depth / fakeWidth
		t := (radius - diag) * sin
		scaleX = (fakeWidth/2 + t/tan + t*tan) / (fakeWidth / 2)
	}
	return radius, scaleX
}
