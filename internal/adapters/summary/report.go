// Package summary writes processed prints as YAML reports.
package summary

import (
	"math"
	"sort"

	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
	"github.com/felixgeelhaar/slicecore/internal/domain/print"
)

// Report is the serialized form of a processed print.
type Report struct {
	Fingerprint      string          `yaml:"fingerprint"`
	Extruders        []int           `yaml:"extruders"`
	Objects          []ObjectReport  `yaml:"objects"`
	Skirt            LoopsReport     `yaml:"skirt"`
	Brim             LoopsReport     `yaml:"brim"`
	WipeTower        *TowerReport    `yaml:"wipe_tower,omitempty"`
	Volumes          []RoleVolume    `yaml:"volumes"`
	Conflict         *ConflictReport `yaml:"conflict,omitempty"`
	Collision        string          `yaml:"collision,omitempty"`
	Warnings         []WarningReport `yaml:"warnings,omitempty"`
	FirstLayerBounds *Bounds         `yaml:"first_layer_bounds,omitempty"`
}

// ObjectReport summarizes one object.
type ObjectReport struct {
	Name          string  `yaml:"name"`
	ID            string  `yaml:"id"`
	Instances     int     `yaml:"instances"`
	Layers        int     `yaml:"layers"`
	SupportLayers int     `yaml:"support_layers"`
	Height        float64 `yaml:"height"`
}

// LoopsReport summarizes skirt or brim loops.
type LoopsReport struct {
	Loops  int     `yaml:"loops"`
	Length float64 `yaml:"length_mm"`
}

// TowerReport summarizes the wipe tower.
type TowerReport struct {
	Width       float64 `yaml:"width"`
	Depth       float64 `yaml:"depth"`
	Height      float64 `yaml:"height"`
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	Rotation    float64 `yaml:"rotation"`
	ToolChanges int     `yaml:"toolchanges"`
	Overrides   int     `yaml:"wiping_overrides"`
}

// RoleVolume is the extruded volume of one extrusion role.
type RoleVolume struct {
	Role   string  `yaml:"role"`
	Volume float64 `yaml:"mm3"`
}

// ConflictReport names the lowest colliding pair.
type ConflictReport struct {
	Object1 string  `yaml:"object1"`
	Object2 string  `yaml:"object2"`
	Height  float64 `yaml:"height"`
}

// WarningReport is one print warning.
type WarningReport struct {
	Step    string `yaml:"step"`
	Object  string `yaml:"object,omitempty"`
	Level   string `yaml:"level"`
	Message string `yaml:"message"`
}

// Bounds is an axis aligned box in mm.
type Bounds struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
}

// NewReport condenses out. Lengths and volumes are rounded to micrometres.
func NewReport(out *print.Output) Report {
	r := Report{
		Fingerprint: out.Fingerprint(),
		Extruders:   out.Extruders,
	}
	volumes := make(map[extrusion.Role]float64)
	add := func(paths []extrusion.Path, copies int) {
		for _, p := range paths {
			volumes[p.Kind] += p.Volume() * float64(copies)
		}
	}

	for _, o := range out.Objects {
		or := ObjectReport{
			Name:      o.Name,
			ID:        o.ID,
			Instances: len(o.Instances),
			Layers:    len(o.Layers),
		}
		if n := len(o.Layers); n > 0 {
			or.Height = round(o.Layers[n-1].PrintZ)
		}
		for _, l := range o.Layers {
			add(l.Paths(), len(o.Instances))
		}
		for _, s := range o.SupportLayers {
			if len(s.Fills) > 0 {
				or.SupportLayers++
			}
			add(s.Fills, len(o.Instances))
		}
		r.Objects = append(r.Objects, or)
	}

	for _, s := range out.Skirt {
		r.Skirt.Loops++
		r.Skirt.Length += s.Loop.Length()
		add(s.Loop.Paths, 1)
	}
	r.Skirt.Length = round(r.Skirt.Length)
	for _, b := range out.Brim {
		r.Brim.Loops++
		r.Brim.Length += b.Length()
		add(b.Paths, 1)
	}
	r.Brim.Length = round(r.Brim.Length)

	if t := out.WipeTower; t.Generated() {
		r.WipeTower = &TowerReport{
			Width:       round(t.Width),
			Depth:       round(t.Depth),
			Height:      round(t.Height),
			X:           geometry.Unscaled(t.Position.X),
			Y:           geometry.Unscaled(t.Position.Y),
			Rotation:    t.Rotation,
			ToolChanges: out.ToolChanges,
			Overrides:   out.WipingOverrides,
		}
		for _, layer := range t.ToolChanges {
			for _, tc := range layer {
				add(tc.Paths, 1)
			}
		}
	}

	for role, v := range volumes {
		r.Volumes = append(r.Volumes, RoleVolume{Role: role.String(), Volume: round(v)})
	}
	sort.Slice(r.Volumes, func(i, j int) bool { return r.Volumes[i].Role < r.Volumes[j].Role })

	if c := out.Conflict; c != nil {
		r.Conflict = &ConflictReport{Object1: c.Object1, Object2: c.Object2, Height: round(c.Height)}
	}
	if out.Collision != nil {
		r.Collision = out.Collision.String()
	}
	for _, w := range out.Warnings {
		r.Warnings = append(r.Warnings, WarningReport{
			Step:    w.Step,
			Object:  w.Object,
			Level:   w.Level.String(),
			Message: w.Message,
		})
	}
	if len(out.FirstLayerConvexHull) > 0 {
		bb := out.FirstLayerConvexHull.BoundingBox()
		r.FirstLayerBounds = &Bounds{
			MinX: geometry.Unscaled(bb.Min.X),
			MinY: geometry.Unscaled(bb.Min.Y),
			MaxX: geometry.Unscaled(bb.Max.X),
			MaxY: geometry.Unscaled(bb.Max.Y),
		}
	}
	return r
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
