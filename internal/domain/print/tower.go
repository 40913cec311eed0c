package print

import (
	"cmp"
	"errors"
	"slices"

	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/toolorder"
	"github.com/felixgeelhaar/slicecore/internal/domain/wipetower"
	"github.com/felixgeelhaar/slicecore/internal/ports"
)

func (p *Print) makeWipeTower(rc execution.RunContext) (bool, error) {
	return p.runStep(rc, StepWipeTower, func(rc execution.RunContext) error {
		p.wipeTower, p.toolOrdering = nil, nil
		if len(p.objects) == 0 {
			return nil
		}
		if !p.config.HasWipeTower() {
			// sequential prints are ordered object by object at export
			if p.config.CompleteObjects {
				return nil
			}
			ordering := toolorder.New(p.orderingInput(), &p.config, -1, false)
			if emptySchedule(ordering) {
				return newEmptyPrintError()
			}
			p.toolOrdering = ordering
			return nil
		}

		ordering := toolorder.New(p.orderingInput(), &p.config, -1, true)
		if emptySchedule(ordering) {
			return newEmptyPrintError()
		}
		p.toolOrdering = ordering
		if !ordering.HasWipeTower() {
			rc.Logger().Debug(rc.Context(), "single extruder in use, no wipe tower")
			return nil
		}
		p.insertTowerSupportLayers(ordering)

		data, err := wipetower.Build(rc, wipetower.Input{
			Config:     &p.config,
			Ordering:   ordering,
			Candidates: p.wipingCandidates,
			Placement: wipetower.Placement{
				X:        p.placement.X,
				Y:        p.placement.Y,
				Rotation: p.placement.Rotation,
			},
		})
		if errors.Is(err, wipetower.ErrUnusableOrdering) {
			rc.Logger().Debug(rc.Context(), "no wipe tower", ports.Err(err))
			return nil
		}
		if err != nil {
			return err
		}
		p.wipeTower = data
		rc.Logger().Info(rc.Context(), "wipe tower built",
			ports.F("toolchanges", data.NumberOfToolChanges),
			ports.F("height", data.Height),
			ports.F("depth", data.Depth))
		return nil
	})
}

// emptySchedule reports whether no layer of the ordering extrudes anything.
func emptySchedule(ordering *toolorder.ToolOrdering) bool {
	return ordering.Empty() || ordering.LastExtruder() < 0
}

// orderingInput describes the extruders every layer needs.
func (p *Print) orderingInput() []toolorder.Object {
	out := make([]toolorder.Object, len(p.objects))
	for i, o := range p.objects {
		in := toolorder.Object{LayerHeight: o.config.LayerHeight}
		for _, l := range o.layers {
			in.Layers = append(in.Layers, toolorder.Layer{
				PrintZ:    l.PrintZ,
				Height:    l.Height,
				Extruders: o.layerExtruders(l),
			})
		}
		for _, s := range o.supportLayers {
			in.SupportLayers = append(in.SupportLayers, toolorder.Layer{
				PrintZ:    s.PrintZ,
				Height:    s.Height,
				Extruders: s.Extruders(),
			})
		}
		out[i] = in
	}
	return out
}

// insertTowerSupportLayers adds empty support layers to the first object at
// tower heights no object prints at, so every tower layer has a print height.
func (p *Print) insertTowerSupportLayers(ordering *toolorder.ToolOrdering) {
	var zs []float64
	for _, o := range p.objects {
		for _, l := range o.layers {
			zs = append(zs, l.PrintZ)
		}
		for _, s := range o.supportLayers {
			zs = append(zs, s.PrintZ)
		}
	}
	slices.Sort(zs)

	first := p.objects[0]
	prev := 0.0
	for _, lt := range ordering.Layers() {
		z := lt.PrintZ
		_, found := slices.BinarySearchFunc(zs, z, func(have, want float64) int {
			switch {
			case have < want-zEpsilon:
				return -1
			case have > want+zEpsilon:
				return 1
			default:
				return 0
			}
		})
		if !found && lt.HasWipeTower {
			first.supportLayers = append(first.supportLayers, &SupportLayer{
				PrintZ:            z,
				Height:            z - prev,
				Extruder:          -1,
				InterfaceExtruder: -1,
			})
		}
		prev = z
	}
	slices.SortFunc(first.supportLayers, func(a, b *SupportLayer) int {
		return cmp.Compare(a.PrintZ, b.PrintZ)
	})
	for i, s := range first.supportLayers {
		s.Index = i
	}
}

// wipingCandidates lists the extrusions printed at the height of lt that may
// absorb purge volume: sparse infill of regions wiping into infill, and
// perimeters of regions wiping into objects.
func (p *Print) wipingCandidates(_ int, lt *toolorder.LayerTools) []toolorder.Candidate {
	var out []toolorder.Candidate
	for oi, o := range p.objects {
		l := o.layerAt(lt.PrintZ)
		if l == nil {
			continue
		}
		entity := 0
		for _, lr := range l.Regions {
			cfg := lr.Region.Config
			for _, path := range lr.Paths() {
				key := toolorder.EntityKey{Object: oi, Layer: l.Index, Entity: entity}
				entity++
				var infill bool
				switch {
				case path.Kind == extrusion.RoleInternalInfill && cfg.WipeIntoInfill:
					infill = true
				case path.Kind.IsPerimeter() && cfg.WipeIntoObjects:
				default:
					continue
				}
				out = append(out, toolorder.Candidate{
					Key:      key,
					Volume:   path.Volume(),
					Copies:   len(o.instances),
					Extruder: o.pathExtruder(lr, path.Kind),
					Infill:   infill,
				})
			}
		}
	}
	return out
}

// wipingOverrides counts the entity copies printed while purging.
func (p *Print) wipingOverrides() int {
	if p.toolOrdering == nil {
		return 0
	}
	n := 0
	for _, lt := range p.toolOrdering.Layers() {
		n += lt.Wiping().Overrides()
	}
	return n
}
