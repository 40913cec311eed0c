package print

import (
	"math"
	"slices"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// hasSkirt reports whether a skirt or draft shield is printed.
func (p *Print) hasSkirt() bool {
	return (p.config.SkirtHeight > 0 && p.config.Skirts > 0) || p.hasInfiniteSkirt()
}

// hasInfiniteSkirt reports whether the skirt runs up the full print height.
func (p *Print) hasInfiniteSkirt() bool {
	return p.config.DraftShield == config.DraftShieldEnabled && p.config.Skirts > 0
}

func (p *Print) hasBrim() bool {
	return slices.ContainsFunc(p.objects, (*PrintObject).HasBrim)
}

// makeSkirtBrim generates the skirt around the brim, or with a draft shield
// the skirt first and the brim trimmed to fit inside it.
func (p *Print) makeSkirtBrim(rc execution.RunContext) (bool, error) {
	return p.runStep(rc, StepSkirtBrim, func(rc execution.RunContext) error {
		p.skirt, p.brim = nil, nil
		p.skirtConvexHull, p.firstLayerConvexHull = nil, nil
		if len(p.objects) == 0 {
			return nil
		}
		flow, err := p.skirtFlow()
		if err != nil {
			return err
		}

		draftShield := p.config.DraftShield != config.DraftShieldDisabled
		if p.hasSkirt() && draftShield {
			if err := p.makeSkirt(rc, flow); err != nil {
				return err
			}
		}
		if p.hasBrim() {
			if err := p.makeBrim(rc, flow); err != nil {
				return err
			}
		}
		if p.hasSkirt() && !draftShield {
			if err := p.makeSkirt(rc, flow); err != nil {
				return err
			}
		}
		p.finalizeFirstLayerConvexHull()
		rc.Logger().Debug(rc.Context(), "skirt and brim generated",
			ports.F("skirt_loops", len(p.skirt)), ports.F("brim_loops", len(p.brim)))
		return nil
	})
}

// skirtFlow is the first layer flow shared by skirt and brim.
func (p *Print) skirtFlow() (extrusion.Flow, error) {
	width := p.config.FirstLayerExtrusionWidth
	if width <= 0 && len(p.regions) > 0 {
		width = p.regions[0].Config.PerimeterExtrusionWidth
	}
	first := p.objects[0]
	nozzle := p.config.NozzleDiameterAt(p.skirtExtruder(first))
	return extrusion.NewFlow(extrusion.RoleSkirt, width, p.config.FirstLayerHeight, nozzle)
}

func (p *Print) skirtExtruder(o *PrintObject) int {
	return clampExtruder(o.config.SupportMaterialExtruder-1, p.config.ExtruderCount())
}

// skirtHeightZ is the top of the highest layer the skirt has to enclose.
func (p *Print) skirtHeightZ() float64 {
	z := 0.0
	for _, o := range p.objects {
		n := len(o.layers)
		if n == 0 {
			continue
		}
		if !p.hasInfiniteSkirt() {
			n = min(max(p.config.SkirtHeight, 1), n)
		}
		z = max(z, o.layers[n-1].PrintZ)
	}
	return z
}

// makeSkirt extrudes loops around everything printed up to the skirt height,
// from the inside out, until the loop count and the minimal filament length
// per extruder are both reached.
func (p *Print) makeSkirt(rc execution.RunContext, flow extrusion.Flow) error {
	top := p.skirtHeightZ()
	var points []geometry.Point
	for _, o := range p.objects {
		var own []geometry.Point
		for _, l := range o.layers {
			if l.PrintZ > top+zEpsilon {
				break
			}
			own = append(own, flatten(l.Islands())...)
		}
		for _, s := range o.supportLayers {
			if s.PrintZ > top+zEpsilon {
				break
			}
			for _, f := range s.Fills {
				own = append(own, f.Polyline...)
			}
		}
		for _, inst := range o.instances {
			for _, pt := range own {
				points = append(points, pt.Add(inst.Shift))
			}
		}
	}
	if p.wipeTower.Generated() {
		points = append(points, p.wipeTower.Footprint()...)
	}
	if p.config.DraftShield == config.DraftShieldDisabled {
		points = append(points, p.firstLayerConvexHull...)
	}
	if len(points) < 3 {
		return nil
	}
	hull := geometry.ConvexHull(points)
	if len(hull) < 3 {
		return nil
	}

	extruders := p.Extruders()
	if len(extruders) == 0 {
		extruders = []int{0}
	}
	ePerMM := make([]float64, len(extruders))
	for i, e := range extruders {
		r := p.config.FilamentDiameterAt(e) / 2
		ePerMM[i] = flow.MM3PerMM() * p.extrusionMultiplier(e) / (math.Pi * r * r)
	}

	spacing := flow.Spacing()
	distance := p.config.SkirtDistance - spacing/2
	extruded := make([]float64, len(extruders))
	extruder := 0
	var loops []SkirtLoop
	for i := max(p.config.Skirts, 1); i > 0; i-- {
		if err := rc.Err(); err != nil {
			return err
		}
		distance += spacing
		loop := geometry.OffsetConvex(hull, distance*geometry.Scale, 0)
		if len(loop) < 3 {
			break
		}
		loops = append(loops, SkirtLoop{
			Loop:     extrusion.NewLoop(loop, extrusion.RoleSkirt, flow),
			Extruder: extruders[extruder],
		})
		if p.config.MinSkirtLength <= 0 {
			continue
		}
		extruded[extruder] += loop.Length() / geometry.Scale * ePerMM[extruder]
		if extruded[extruder] < p.config.MinSkirtLength {
			if i == 1 {
				i++
			}
		} else if extruder+1 < len(extruders) {
			extruder++
		}
	}
	slices.Reverse(loops)
	p.skirt = loops
	p.skirtConvexHull = geometry.OffsetConvex(hull, (distance+spacing/2)*geometry.Scale, 0)
	return nil
}

func (p *Print) extrusionMultiplier(e int) float64 {
	m := p.config.ExtrusionMultiplier
	switch {
	case e >= 0 && e < len(m):
		return m[e]
	case len(m) > 0:
		return m[0]
	default:
		return 1
	}
}

// makeBrim extrudes loops around the first layer islands of every object
// with a brim, from the island outwards. Loops crossing an existing skirt are
// dropped.
func (p *Print) makeBrim(rc execution.RunContext, flow extrusion.Flow) error {
	spacing := flow.Spacing()
	var inner geometry.Polygon
	if len(p.skirt) > 0 {
		inner = p.skirt[len(p.skirt)-1].Loop.Polygon()
	}
	trimmed := len(inner) >= 3

	var hullPoints []geometry.Point
	for _, o := range p.objects {
		if err := rc.Err(); err != nil {
			return err
		}
		islands := o.FirstLayerIslands()
		hullPoints = append(hullPoints, flatten(islands)...)
		if !o.HasBrim() {
			continue
		}
		count := int(math.Floor(o.config.BrimWidth/spacing + zEpsilon))
		for _, isl := range islands {
			hull := geometry.ConvexHull(isl)
			for k := 1; k <= count; k++ {
				offset := o.config.BrimSeparation + spacing*(float64(k)-0.5)
				loop := geometry.OffsetConvex(hull, offset*geometry.Scale, 0)
				if len(loop) < 3 {
					continue
				}
				if trimmed && !insideAll(inner, loop) {
					continue
				}
				p.brim = append(p.brim, extrusion.NewLoop(loop, extrusion.RoleBrim, flow))
				hullPoints = append(hullPoints, loop...)
			}
		}
	}
	p.firstLayerConvexHull = geometry.ConvexHull(hullPoints)
	return nil
}

func insideAll(outer geometry.Polygon, pts geometry.Polygon) bool {
	for _, pt := range pts {
		if !outer.Contains(pt) {
			return false
		}
	}
	return true
}

// finalizeFirstLayerConvexHull merges the skirt outline and the tower into the
// first layer hull, falling back to the object islands when neither skirt nor
// brim was printed.
func (p *Print) finalizeFirstLayerConvexHull() {
	pts := slices.Clone(p.firstLayerConvexHull)
	pts = append(pts, p.skirtConvexHull...)
	if len(pts) == 0 {
		for _, o := range p.objects {
			pts = append(pts, flatten(o.FirstLayerIslands())...)
		}
	}
	if p.wipeTower.Generated() {
		pts = append(pts, p.wipeTower.Footprint()...)
	}
	p.firstLayerConvexHull = geometry.ConvexHull(pts)
}
