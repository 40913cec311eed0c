// Package toolorder computes the per-layer extruder schedule of a print and
// tracks which extrusions absorb purge volume after a tool change.
package toolorder

import "slices"

// Epsilon is the print_z tolerance under which two layers are merged.
const Epsilon = 1e-4

// LayerTools is the schedule of one merged print layer.
type LayerTools struct {
	PrintZ     float64
	HasObject  bool
	HasSupport bool
	// Extruders are zero-based, ordered to minimise tool switches.
	Extruders []int
	// HasSkirt marks layers that print a skirt loop.
	HasSkirt bool
	// HasWipeTower marks layers with something extruded on the wipe tower.
	HasWipeTower bool
	// WipeTowerPartitions is the number of tool changes the tower must host on
	// this layer and every layer above it.
	WipeTowerPartitions  int
	WipeTowerLayerHeight float64

	wiping *WipingExtrusions
}

// HasExtruder reports whether the layer uses extruder.
func (lt *LayerTools) HasExtruder(extruder int) bool {
	return slices.Contains(lt.Extruders, extruder)
}

// IsExtruderOrder reports whether a is printed no later than b on this layer.
func (lt *LayerTools) IsExtruderOrder(a, b int) bool {
	if a == b {
		return true
	}
	for _, e := range lt.Extruders {
		switch e {
		case a:
			return true
		case b:
			return false
		}
	}
	return false
}

// Wiping returns the purge overrides recorded for this layer.
func (lt *LayerTools) Wiping() *WipingExtrusions {
	if lt.wiping == nil {
		lt.wiping = &WipingExtrusions{}
	}
	return lt.wiping
}

// EntityKey identifies one extrusion entity of a print across stages.
type EntityKey struct {
	Object int
	Layer  int
	Entity int
}

// Candidate is an ordinary extrusion that may be printed with the incoming
// extruder to absorb purge volume.
type Candidate struct {
	Key EntityKey
	// Volume is the extruded volume of one copy in mm³.
	Volume float64
	Copies int
	// Extruder is the zero-based extruder the entity would normally use.
	Extruder int
	// Infill is set for sparse infill; other candidates are object perimeters.
	Infill bool
}

// WipingExtrusions records, per entity and copy, the extruder overriding the
// entity's own one.
type WipingExtrusions struct {
	overrides  map[EntityKey][]int
	overridden bool
}

// IsAnythingOverridden reports whether any entity was assigned to wiping.
func (w *WipingExtrusions) IsAnythingOverridden() bool {
	return w.overridden
}

// ExtruderOverride returns the overriding extruder of instance copy inst, or -1.
func (w *WipingExtrusions) ExtruderOverride(key EntityKey, inst int) int {
	per, ok := w.overrides[key]
	if !ok || inst >= len(per) {
		return -1
	}
	return per[inst]
}

// Overrides returns the number of entity copies assigned to wiping.
func (w *WipingExtrusions) Overrides() int {
	n := 0
	for _, per := range w.overrides {
		for _, e := range per {
			if e >= 0 {
				n++
			}
		}
	}
	return n
}

// MarkWipingExtrusions assigns candidates to newExtruder until volumeToWipe is
// absorbed. Infill candidates are used before perimeters. It returns the volume
// still to be purged on the tower, never negative.
func (w *WipingExtrusions) MarkWipingExtrusions(candidates []Candidate, newExtruder int, volumeToWipe float64) float64 {
	if volumeToWipe <= 0 {
		return 0
	}
	ordered := slices.Clone(candidates)
	slices.SortStableFunc(ordered, func(a, b Candidate) int {
		switch {
		case a.Infill == b.Infill:
			return 0
		case a.Infill:
			return -1
		default:
			return 1
		}
	})

	for _, c := range ordered {
		if c.Extruder == newExtruder || c.Volume <= 0 {
			continue
		}
		for inst := 0; inst < c.Copies; inst++ {
			if volumeToWipe <= 0 {
				return 0
			}
			if w.ExtruderOverride(c.Key, inst) >= 0 {
				continue
			}
			w.set(c.Key, inst, newExtruder, c.Copies)
			volumeToWipe -= c.Volume
		}
	}
	return max(0, volumeToWipe)
}

func (w *WipingExtrusions) set(key EntityKey, inst, extruder, copies int) {
	if w.overrides == nil {
		w.overrides = make(map[EntityKey][]int)
	}
	per, ok := w.overrides[key]
	if !ok {
		per = make([]int, copies)
		for i := range per {
			per[i] = -1
		}
		w.overrides[key] = per
	}
	per[inst] = extruder
	w.overridden = true
}
