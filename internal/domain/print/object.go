package print

import (
	"slices"
	"sort"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
	"github.com/felixgeelhaar/slicecore/internal/domain/model"
	"github.com/felixgeelhaar/slicecore/internal/domain/state"
)

// PrintRegion is a distinct region configuration shared by every volume
// printing with it.
type PrintRegion struct {
	Config config.RegionConfig
	index  int
}

// Index returns the position of the region in the print.
func (r *PrintRegion) Index() int { return r.index }

// PrintInstance is one placed copy of an object.
type PrintInstance struct {
	Shift geometry.Point
	Index int
}

// SurfaceKind classifies an infill area.
type SurfaceKind int

// Surface kinds.
const (
	SurfaceSparse SurfaceKind = iota
	SurfaceSolid
	SurfaceTop
	SurfaceBottom
)

// Surface is an area left for infill inside the innermost perimeter.
type Surface struct {
	Polygon geometry.Polygon
	Kind    SurfaceKind
}

// LayerRegion holds the extrusions of one region on one layer.
type LayerRegion struct {
	Region *PrintRegion
	// Slices are the region outlines on this layer, counter-clockwise.
	Slices     []geometry.Polygon
	Perimeters []*extrusion.Loop
	// FillAreas are the areas inside the perimeters, before classification.
	FillAreas []geometry.Polygon
	Surfaces  []Surface
	Fills     []extrusion.Path
	Ironing   []extrusion.Path
}

// Paths returns every extrusion of the region in print order.
func (lr *LayerRegion) Paths() []extrusion.Path {
	var out []extrusion.Path
	for _, l := range lr.Perimeters {
		out = append(out, l.Paths...)
	}
	out = append(out, lr.Fills...)
	return append(out, lr.Ironing...)
}

// Layer is one object layer.
type Layer struct {
	Index  int
	PrintZ float64
	Height float64
	// SliceZ is the height the object was cut at.
	SliceZ  float64
	Regions []*LayerRegion
	// CurledLines are external perimeter segments expected to curl up.
	CurledLines []geometry.Line
}

// BottomZ returns the bottom of the layer.
func (l *Layer) BottomZ() float64 { return l.PrintZ - l.Height }

// Islands returns the outlines of every region on the layer.
func (l *Layer) Islands() []geometry.Polygon {
	var out []geometry.Polygon
	for _, lr := range l.Regions {
		out = append(out, lr.Slices...)
	}
	return out
}

// Empty reports whether nothing is printed on the layer.
func (l *Layer) Empty() bool {
	for _, lr := range l.Regions {
		if len(lr.Slices) > 0 {
			return false
		}
	}
	return true
}

// Paths returns every extrusion of the layer.
func (l *Layer) Paths() []extrusion.Path {
	var out []extrusion.Path
	for _, lr := range l.Regions {
		out = append(out, lr.Paths()...)
	}
	return out
}

// SupportLayer holds support extrusions printed at an object layer height.
type SupportLayer struct {
	Index  int
	PrintZ float64
	Height float64
	Fills  []extrusion.Path
	// Extruder and InterfaceExtruder are zero-based; -1 prints with the
	// active extruder.
	Extruder          int
	InterfaceExtruder int
}

// Extruders returns the extruders the layer needs, with -1 for "any".
func (s *SupportLayer) Extruders() []int {
	var out []int
	for _, p := range s.Fills {
		e := s.Extruder
		if p.Kind == extrusion.RoleSupportMaterialInterface {
			e = s.InterfaceExtruder
		}
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

// PrintObject is a model object prepared for printing. Its geometry is shared
// by all instances.
type PrintObject struct {
	print     *Print
	id        model.ObjectID
	name      string
	volumes   []model.Volume
	volumeReg []*PrintRegion
	config    config.ObjectConfig
	instances []PrintInstance
	height    float64

	state *state.Machine[ObjectStep]

	layers        []*Layer
	supportLayers []*SupportLayer

	// shared carries the support spot search result to the alert step.
	shared state.Slot[SupportSpots]
}

func newPrintObject(p *Print, o *model.Object, cfg config.ObjectConfig) *PrintObject {
	po := &PrintObject{
		print:  p,
		id:     o.ID,
		name:   o.Name,
		config: cfg,
		state:  state.NewMachine[ObjectStep](int(objectStepCount)),
	}
	po.setGeometry(o)
	po.setInstances(o.Instances)
	return po
}

func (o *PrintObject) setGeometry(m *model.Object) {
	o.volumes = slices.Clone(m.Volumes)
	o.height = m.Height()
}

func (o *PrintObject) setInstances(in []model.Instance) {
	o.instances = make([]PrintInstance, len(in))
	for i, inst := range in {
		o.instances[i] = PrintInstance{Shift: inst.Shift(), Index: i}
	}
}

// ID returns the identity of the model object.
func (o *PrintObject) ID() model.ObjectID { return o.id }

// Name returns the model object name.
func (o *PrintObject) Name() string { return o.name }

// Config returns the resolved object configuration.
func (o *PrintObject) Config() config.ObjectConfig { return o.config }

// Instances returns the placed copies.
func (o *PrintObject) Instances() []PrintInstance { return o.instances }

// Layers returns the sliced layers, bottom first.
func (o *PrintObject) Layers() []*Layer { return o.layers }

// SupportLayers returns the support layers, bottom first.
func (o *PrintObject) SupportLayers() []*SupportLayer { return o.supportLayers }

// Regions returns the distinct regions of the object.
func (o *PrintObject) Regions() []*PrintRegion {
	var out []*PrintRegion
	for _, r := range o.volumeReg {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

// IsStepDone reports whether step is done for this object.
func (o *PrintObject) IsStepDone(step ObjectStep) bool {
	return o.state.IsDone(step)
}

// StepStatus returns the status of step.
func (o *PrintObject) StepStatus(step ObjectStep) state.Status {
	return o.state.Status(step)
}

// HasSupport reports whether support material is generated.
func (o *PrintObject) HasSupport() bool {
	return o.config.SupportMaterial
}

// HasBrim reports whether the object prints a brim.
func (o *PrintObject) HasBrim() bool {
	return o.config.HasBrim()
}

// Shifts returns the instance offsets.
func (o *PrintObject) Shifts() []geometry.Point {
	out := make([]geometry.Point, len(o.instances))
	for i, inst := range o.instances {
		out[i] = inst.Shift
	}
	return out
}

// Extruders returns the zero-based extruders printing the object.
func (o *PrintObject) Extruders() []int {
	n := o.print.config.ExtruderCount()
	var out []int
	for _, r := range o.Regions() {
		for _, e := range r.Config.Extruders() {
			out = append(out, clampExtruder(e, n))
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// SupportExtruders returns the extruders printing support. followsActive
// reports whether a part of the support prints with the active extruder.
func (o *PrintObject) SupportExtruders() (ids []int, followsActive bool) {
	if !o.HasSupport() {
		return nil, false
	}
	n := o.print.config.ExtruderCount()
	for _, one := range []int{o.config.SupportMaterialExtruder, o.config.SupportMaterialInterfaceExtruder} {
		if one == 0 {
			followsActive = true
			continue
		}
		ids = append(ids, clampExtruder(one-1, n))
	}
	return ids, followsActive
}

// FirstLayerIslands returns the first layer outlines of every instance on the bed.
func (o *PrintObject) FirstLayerIslands() []geometry.Polygon {
	if len(o.layers) == 0 {
		return nil
	}
	var out []geometry.Polygon
	islands := o.layers[0].Islands()
	for _, inst := range o.instances {
		for _, isl := range islands {
			out = append(out, isl.Translate(inst.Shift))
		}
	}
	return out
}

// Footprint returns the convex hull of the object projected on the bed, in
// object coordinates.
func (o *PrintObject) Footprint() geometry.Polygon {
	var pts []geometry.Point
	for _, v := range o.volumes {
		for _, s := range v.Sections {
			pts = append(pts, s.Polygon()...)
		}
	}
	return geometry.ConvexHull(pts)
}

func clampExtruder(e, count int) int {
	if e < 0 || e >= count {
		return 0
	}
	return e
}

// layerAt returns the object layer printed at z, or nil.
func (o *PrintObject) layerAt(z float64) *Layer {
	i := sort.Search(len(o.layers), func(i int) bool { return o.layers[i].PrintZ >= z-zEpsilon })
	if i < len(o.layers) && o.layers[i].PrintZ <= z+zEpsilon {
		return o.layers[i]
	}
	return nil
}
