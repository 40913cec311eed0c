package print

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
)

// zEpsilon is the print_z tolerance when matching layers by height.
const zEpsilon = 1e-4

// ErrNoLayers is returned when slicing an object yields nothing printable.
var ErrNoLayers = errors.New("no layers were detected")

type layerSpan struct {
	printZ float64
	height float64
}

// layerSpans stacks a first layer and regular layers until the object height
// is covered. The topmost layer may end above the object.
func layerSpans(objectHeight, firstLayer, layerHeight float64) []layerSpan {
	if firstLayer <= 0 {
		firstLayer = layerHeight
	}
	if layerHeight <= 0 {
		layerHeight = firstLayer
	}
	if firstLayer <= 0 {
		return nil
	}
	var out []layerSpan
	bottom, h := 0.0, firstLayer
	for bottom < objectHeight-zEpsilon {
		out = append(out, layerSpan{printZ: bottom + h, height: h})
		bottom += h
		h = layerHeight
	}
	return out
}

// slice cuts every volume at the middle of each layer. Volumes sharing a
// region are merged into one layer region.
func (o *PrintObject) slice(rc execution.RunContext) error {
	spans := layerSpans(o.height, o.print.config.FirstLayerHeight, o.config.LayerHeight)
	layers := make([]*Layer, 0, len(spans))
	for i, sp := range spans {
		if i%32 == 0 {
			if err := rc.Err(); err != nil {
				return err
			}
		}
		l := &Layer{Index: i, PrintZ: sp.printZ, Height: sp.height, SliceZ: sp.printZ - sp.height/2}
		for vi := range o.volumes {
			polys := o.volumes[vi].SliceAt(l.SliceZ)
			if len(polys) == 0 {
				continue
			}
			reg := o.volumeReg[vi]
			idx := slices.IndexFunc(l.Regions, func(lr *LayerRegion) bool { return lr.Region == reg })
			if idx < 0 {
				l.Regions = append(l.Regions, &LayerRegion{Region: reg})
				idx = len(l.Regions) - 1
			}
			l.Regions[idx].Slices = append(l.Regions[idx].Slices, polys...)
		}
		layers = append(layers, l)
	}

	for len(layers) > 0 && layers[len(layers)-1].Empty() {
		layers = layers[:len(layers)-1]
	}
	if len(layers) == 0 {
		return ErrNoLayers
	}
	o.layers = layers
	o.supportLayers = nil
	return nil
}

// nozzleFor returns the nozzle diameter of a one-based extruder option.
func (o *PrintObject) nozzleFor(oneBased int) float64 {
	cfg := &o.print.config
	return cfg.NozzleDiameterAt(clampExtruder(oneBased-1, cfg.ExtruderCount()))
}

// makePerimeters insets every island into concentric loops, the external one
// first, and leaves the area inside the last loop for infill.
func (o *PrintObject) makePerimeters(rc execution.RunContext) error {
	firstWidth := o.print.config.FirstLayerExtrusionWidth
	for _, l := range o.layers {
		if err := rc.Err(); err != nil {
			return err
		}
		for _, lr := range l.Regions {
			rcfg := &lr.Region.Config
			nozzle := o.nozzleFor(rcfg.PerimeterExtruder)
			extW, w := rcfg.ExternalPerimeterExtrusionWidth, rcfg.PerimeterExtrusionWidth
			if l.Index == 0 && firstWidth > 0 {
				extW, w = firstWidth, firstWidth
			}
			extFlow, err := extrusion.NewFlow(extrusion.RoleExternalPerimeter, extW, l.Height, nozzle)
			if err != nil {
				return fmt.Errorf("layer %d: %w", l.Index, err)
			}
			flow, err := extrusion.NewFlow(extrusion.RolePerimeter, w, l.Height, nozzle)
			if err != nil {
				return fmt.Errorf("layer %d: %w", l.Index, err)
			}

			lr.Perimeters, lr.FillAreas = nil, nil
			for _, island := range lr.Slices {
				offset, last := extFlow.Width/2, 0.0
				for k := 0; k < rcfg.Perimeters; k++ {
					loop := geometry.Inset(island, offset*geometry.Scale)
					if loop == nil {
						break
					}
					if k == 0 {
						lr.Perimeters = append(lr.Perimeters, extrusion.NewLoop(loop, extrusion.RoleExternalPerimeter, extFlow))
						offset += (extFlow.Spacing() + flow.Spacing()) / 2
					} else {
						lr.Perimeters = append(lr.Perimeters, extrusion.NewLoop(loop, extrusion.RolePerimeter, flow))
						offset += flow.Spacing()
					}
					last = offset
				}
				fill := island
				if last > 0 {
					fill = geometry.Inset(island, (last-flow.Spacing()/2)*geometry.Scale)
				}
				if fill != nil {
					lr.FillAreas = append(lr.FillAreas, fill)
				}
			}
		}
	}
	return nil
}

// prepareInfill classifies fill areas by exposure: an uncovered layer right
// below makes a bottom surface, right above a top surface, and any other
// exposure within the solid layer count a solid one. Bottom wins over top.
func (o *PrintObject) prepareInfill(rc execution.RunContext) error {
	for i, l := range o.layers {
		if err := rc.Err(); err != nil {
			return err
		}
		for _, lr := range l.Regions {
			rcfg := &lr.Region.Config
			lr.Surfaces = nil
			for _, fa := range lr.FillAreas {
				c := fa.Centroid()
				top := o.exposure(i, c, rcfg.TopSolidLayers, 1)
				bottom := o.exposure(i, c, rcfg.BottomSolidLayers, -1)
				kind := SurfaceSparse
				switch {
				case bottom == 1:
					kind = SurfaceBottom
				case top == 1:
					kind = SurfaceTop
				case top > 0 || bottom > 0 || rcfg.FillDensity >= 100:
					kind = SurfaceSolid
				}
				lr.Surfaces = append(lr.Surfaces, Surface{Polygon: fa, Kind: kind})
			}
		}
	}
	return nil
}

// exposure returns the distance in layers to the first layer in direction dir
// not covering pt, looking at most n layers away, or 0 when all of them cover it.
func (o *PrintObject) exposure(i int, pt geometry.Point, n, dir int) int {
	for k := 1; k <= n; k++ {
		j := i + dir*k
		if j < 0 || j >= len(o.layers) || !covers(o.layers[j].Islands(), pt) {
			return k
		}
	}
	return 0
}

func covers(islands []geometry.Polygon, pt geometry.Point) bool {
	for _, isl := range islands {
		if isl.Contains(pt) {
			return true
		}
	}
	return false
}

// makeInfill fills the classified surfaces with rectilinear lines, rotating
// the direction by 90 degrees every other layer.
func (o *PrintObject) makeInfill(rc execution.RunContext) error {
	firstWidth := o.print.config.FirstLayerExtrusionWidth
	for i, l := range o.layers {
		if err := rc.Err(); err != nil {
			return err
		}
		for _, lr := range l.Regions {
			rcfg := &lr.Region.Config
			angle := rcfg.FillAngle * math.Pi / 180
			if i%2 == 1 {
				angle += math.Pi / 2
			}
			lr.Fills = nil
			for _, s := range lr.Surfaces {
				role, width, ext := extrusion.RoleSolidInfill, rcfg.SolidInfillExtrusionWidth, rcfg.SolidInfillExtruder
				switch s.Kind {
				case SurfaceSparse:
					if rcfg.FillDensity <= 0 {
						continue
					}
					role, width, ext = extrusion.RoleInternalInfill, rcfg.InfillExtrusionWidth, rcfg.InfillExtruder
				case SurfaceTop:
					role, width = extrusion.RoleTopSolidInfill, rcfg.TopInfillExtrusionWidth
				case SurfaceBottom:
					if i > 0 {
						role = extrusion.RoleBridgeInfill
					}
				}
				nozzle := o.nozzleFor(ext)

				var flow extrusion.Flow
				if role == extrusion.RoleBridgeInfill {
					flow = extrusion.BridgeFlow(nozzle)
				} else {
					if i == 0 && firstWidth > 0 {
						width = firstWidth
					}
					var err error
					if flow, err = extrusion.NewFlow(role, width, l.Height, nozzle); err != nil {
						return fmt.Errorf("layer %d: %w", l.Index, err)
					}
				}
				spacing := flow.Spacing()
				if role == extrusion.RoleInternalInfill {
					spacing *= 100 / min(rcfg.FillDensity, 100)
				}
				for _, pl := range geometry.Scanlines([]geometry.Polygon{s.Polygon}, geometry.Scaled(spacing), angle) {
					lr.Fills = append(lr.Fills, extrusion.NewPath(pl, role, flow))
				}
			}
		}
	}
	return nil
}

// makeIroning adds low-flow passes over top surfaces of regions with ironing.
func (o *PrintObject) makeIroning(rc execution.RunContext) error {
	for _, l := range o.layers {
		if err := rc.Err(); err != nil {
			return err
		}
		for _, lr := range l.Regions {
			lr.Ironing = nil
			rcfg := &lr.Region.Config
			if !rcfg.Ironing || rcfg.IroningSpacing <= 0 {
				continue
			}
			flow, err := extrusion.NewFlow(extrusion.RoleTopSolidInfill, rcfg.TopInfillExtrusionWidth, l.Height, o.nozzleFor(rcfg.SolidInfillExtruder))
			if err != nil {
				return fmt.Errorf("layer %d: %w", l.Index, err)
			}
			mm3 := flow.MM3PerMM() * rcfg.IroningFlowrate / 100
			angle := (rcfg.FillAngle + 45) * math.Pi / 180
			for _, s := range lr.Surfaces {
				if s.Kind != SurfaceTop {
					continue
				}
				for _, pl := range geometry.Scanlines([]geometry.Polygon{s.Polygon}, geometry.Scaled(rcfg.IroningSpacing), angle) {
					lr.Ironing = append(lr.Ironing, extrusion.Path{
						Polyline: pl,
						Kind:     extrusion.RoleIroning,
						MM3PerMM: mm3,
						Width:    flow.Width,
						Height:   l.Height,
					})
				}
			}
		}
	}
	return nil
}

// supportExtruder converts a one-based support extruder option, where 0
// follows the active extruder, to a zero-based id or -1.
func (o *PrintObject) supportExtruder(oneBased int) int {
	if oneBased == 0 {
		return -1
	}
	return clampExtruder(oneBased-1, o.print.config.ExtruderCount())
}

// generateSupport drops a column under every island that overhangs the layer
// below. The layer right under the overhang prints interface, the rest of the
// column down to whatever carries the island prints base support.
func (o *PrintObject) generateSupport(rc execution.RunContext) error {
	o.supportLayers = nil
	if !o.HasSupport() || len(o.layers) < 2 {
		return nil
	}
	base := make([][]geometry.Polygon, len(o.layers))
	iface := make([][]geometry.Polygon, len(o.layers))
	for j := len(o.layers) - 1; j >= 1; j-- {
		if err := rc.Err(); err != nil {
			return err
		}
		allowed := o.allowedOverhang(o.layers[j].Height)
		for _, isl := range o.layers[j].Islands() {
			if fullySupported(isl, o.layers[j-1].Islands(), allowed) {
				continue
			}
			for k := j - 1; k >= 0; k-- {
				if k < j-1 && fullySupported(isl, o.layers[k].Islands(), 0) {
					break
				}
				if k == j-1 {
					iface[k] = append(iface[k], isl)
				} else {
					base[k] = append(base[k], isl)
				}
			}
		}
	}

	ext := o.supportExtruder(o.config.SupportMaterialExtruder)
	iext := o.supportExtruder(o.config.SupportMaterialInterfaceExtruder)
	nozzle := o.print.config.NozzleDiameterAt(max(ext, 0))
	for k, l := range o.layers {
		if len(base[k]) == 0 && len(iface[k]) == 0 {
			continue
		}
		flow, err := extrusion.NewFlow(extrusion.RoleSupportMaterial, o.config.SupportMaterialExtrusionWidth, l.Height, nozzle)
		if err != nil {
			return fmt.Errorf("support layer at %.3f: %w", l.PrintZ, err)
		}
		sl := &SupportLayer{
			Index:             len(o.supportLayers),
			PrintZ:            l.PrintZ,
			Height:            l.Height,
			Extruder:          ext,
			InterfaceExtruder: iext,
		}
		gap := geometry.Scaled(max(o.config.SupportMaterialSpacing, 0) + flow.Spacing())
		// polygons are filled one by one: overlapping columns would cancel
		// each other under the even-odd rule
		for _, p := range base[k] {
			for _, pl := range geometry.Scanlines([]geometry.Polygon{p}, gap, 0) {
				sl.Fills = append(sl.Fills, extrusion.NewPath(pl, extrusion.RoleSupportMaterial, flow))
			}
		}
		for _, p := range iface[k] {
			for _, pl := range geometry.Scanlines([]geometry.Polygon{p}, geometry.Scaled(flow.Spacing()), math.Pi/2) {
				sl.Fills = append(sl.Fills, extrusion.NewPath(pl, extrusion.RoleSupportMaterialInterface, flow))
			}
		}
		o.supportLayers = append(o.supportLayers, sl)
	}
	return nil
}

func fullySupported(isl geometry.Polygon, below []geometry.Polygon, allowed float64) bool {
	for _, pt := range isl {
		if !supported(pt, below, allowed) {
			return false
		}
	}
	return true
}

// estimateCurledExtrusions records external perimeter segments hanging fully
// in the air; they tend to curl up and are avoided by travel moves.
func (o *PrintObject) estimateCurledExtrusions(rc execution.RunContext) error {
	for _, l := range o.layers {
		l.CurledLines = nil
	}
	if !o.print.config.AvoidCrossingCurledOverhangs {
		return nil
	}
	for i := 1; i < len(o.layers); i++ {
		if err := rc.Err(); err != nil {
			return err
		}
		l, below := o.layers[i], o.layers[i-1].Islands()
		allowed := o.allowedOverhang(l.Height)
		for _, lr := range l.Regions {
			for _, loop := range lr.Perimeters {
				for _, p := range loop.Paths {
					if p.Kind != extrusion.RoleExternalPerimeter && p.Kind != extrusion.RoleOverhangPerimeter {
						continue
					}
					for _, ln := range p.Polyline.Lines() {
						if !supported(ln.A, below, allowed) && !supported(ln.B, below, allowed) {
							l.CurledLines = append(l.CurledLines, ln)
						}
					}
				}
			}
		}
	}
	return nil
}

// calculateOverhangingPerimeters splits perimeter loops into supported runs
// and overhang runs, by the midpoint of each segment.
func (o *PrintObject) calculateOverhangingPerimeters(rc execution.RunContext) error {
	for i := 1; i < len(o.layers); i++ {
		if err := rc.Err(); err != nil {
			return err
		}
		l, below := o.layers[i], o.layers[i-1].Islands()
		allowed := o.allowedOverhang(l.Height)
		for _, lr := range l.Regions {
			if !lr.Region.Config.Overhangs {
				continue
			}
			for _, loop := range lr.Perimeters {
				var paths []extrusion.Path
				for _, p := range loop.Paths {
					paths = append(paths, splitOverhangs(p, below, allowed)...)
				}
				loop.Paths = paths
			}
		}
	}
	return nil
}

func splitOverhangs(p extrusion.Path, below []geometry.Polygon, allowed float64) []extrusion.Path {
	lines := p.Polyline.Lines()
	if len(lines) == 0 || p.Kind == extrusion.RoleOverhangPerimeter {
		return []extrusion.Path{p}
	}
	var out []extrusion.Path
	cur := p
	cur.Polyline = geometry.Polyline{lines[0].A}
	for i, ln := range lines {
		role := p.Kind
		if !supported(ln.A.Add(ln.B).Scale(0.5), below, allowed) {
			role = extrusion.RoleOverhangPerimeter
		}
		if i > 0 && role != cur.Kind {
			out = append(out, cur)
			cur = p
			cur.Polyline = geometry.Polyline{ln.A}
		}
		cur.Kind = role
		cur.Polyline = append(cur.Polyline, ln.B)
	}
	return append(out, cur)
}

// layerExtruders returns the zero-based extruders printing the layer, by role.
func (o *PrintObject) layerExtruders(l *Layer) []int {
	n := o.print.config.ExtruderCount()
	var out []int
	add := func(oneBased int) {
		e := clampExtruder(max(oneBased, 1)-1, n)
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	for _, lr := range l.Regions {
		rcfg := &lr.Region.Config
		if len(lr.Perimeters) > 0 {
			add(rcfg.PerimeterExtruder)
		}
		for _, p := range lr.Fills {
			if p.Kind == extrusion.RoleInternalInfill {
				add(rcfg.InfillExtruder)
			} else {
				add(rcfg.SolidInfillExtruder)
			}
		}
		if len(lr.Ironing) > 0 {
			add(rcfg.SolidInfillExtruder)
		}
	}
	slices.Sort(out)
	return out
}

// pathExtruder returns the zero-based extruder that prints a path of lr.
func (o *PrintObject) pathExtruder(lr *LayerRegion, role extrusion.Role) int {
	rcfg := &lr.Region.Config
	one := rcfg.SolidInfillExtruder
	switch {
	case role.IsPerimeter():
		one = rcfg.PerimeterExtruder
	case role == extrusion.RoleInternalInfill:
		one = rcfg.InfillExtruder
	}
	return clampExtruder(max(one, 1)-1, o.print.config.ExtruderCount())
}
