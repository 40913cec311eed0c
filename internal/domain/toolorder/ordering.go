package toolorder

import (
	"math"
	"slices"
	"sort"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
)

// AnyExtruder marks extrusions that can be printed by whichever extruder is active.
const AnyExtruder = -1

// Layer is the ordering input for one object or support layer.
type Layer struct {
	PrintZ float64
	Height float64
	// Extruders are zero-based; AnyExtruder marks "don't care" extrusions.
	Extruders []int
}

// Object is the ordering input for one print object.
type Object struct {
	Layers        []Layer
	SupportLayers []Layer
	LayerHeight   float64
}

// ToolOrdering is the per-layer extruder schedule of a whole print.
type ToolOrdering struct {
	layers        []*LayerTools
	firstExtruder int
	lastExtruder  int
	allExtruders  []int
}

// New computes the tool ordering for objects printed together.
// firstExtruder is the zero-based extruder active before the print, or -1 when
// undecided. With primeMultiMaterial the extruders are ordered for priming and
// FirstExtruder reports the first one primed.
func New(objects []Object, cfg *config.PrintConfig, firstExtruder int, primeMultiMaterial bool) *ToolOrdering {
	t := &ToolOrdering{firstExtruder: -1, lastExtruder: -1}

	var zs []float64
	objectBottomZ := 0.0
	maxObjectLayerHeight := 0.0
	for _, o := range objects {
		for _, l := range o.Layers {
			zs = append(zs, l.PrintZ)
		}
		for _, l := range o.SupportLayers {
			zs = append(zs, l.PrintZ)
		}
		for _, l := range o.Layers {
			if len(l.Extruders) > 0 {
				objectBottomZ = l.PrintZ - l.Height
				break
			}
		}
		maxObjectLayerHeight = max(maxObjectLayerHeight, o.LayerHeight)
	}
	t.initializeLayers(zs)
	maxLayerHeight := maxLayerHeight(cfg, maxObjectLayerHeight)

	for _, o := range objects {
		t.collectExtruders(o)
	}

	t.reorderExtruders(firstExtruder)
	t.fillWipeTowerPartitions(objectBottomZ, maxLayerHeight)
	if t.insertWipeTowerExtruder(cfg.WipeTowerExtruder) {
		t.reorderExtruders(firstExtruder)
		t.fillWipeTowerPartitions(objectBottomZ, maxLayerHeight)
	}
	t.collectExtruderStatistics(primeMultiMaterial)
	t.markSkirtLayers(cfg, maxLayerHeight)
	return t
}

func maxLayerHeight(cfg *config.PrintConfig, maxObjectLayerHeight float64) float64 {
	mlh := math.MaxFloat64
	for i := range cfg.NozzleDiameter {
		mlh = min(mlh, cfg.MaxLayerHeightAt(i))
	}
	return max(mlh, maxObjectLayerHeight)
}

func (t *ToolOrdering) initializeLayers(zs []float64) {
	slices.Sort(zs)
	zs = slices.Compact(zs)
	for i := 0; i < len(zs); {
		j := i + 1
		for j < len(zs) && zs[j] <= zs[i]+Epsilon {
			j++
		}
		t.layers = append(t.layers, &LayerTools{PrintZ: 0.5 * (zs[i] + zs[j-1])})
		i = j
	}
}

// Extruder ids are shifted to one-based while ordering so that zero can mean
// "don't care"; reorderExtruders shifts them back.
func (t *ToolOrdering) collectExtruders(o Object) {
	add := func(lt *LayerTools, extruders []int) {
		for _, e := range extruders {
			lt.Extruders = append(lt.Extruders, e+1)
		}
	}
	for _, l := range o.SupportLayers {
		if len(l.Extruders) == 0 {
			continue
		}
		lt := t.ToolsForLayer(l.PrintZ)
		add(lt, l.Extruders)
		lt.HasSupport = true
	}
	for _, l := range o.Layers {
		lt := t.ToolsForLayer(l.PrintZ)
		lt.HasObject = true
		add(lt, l.Extruders)
	}

	for _, lt := range t.layers {
		slices.Sort(lt.Extruders)
		lt.Extruders = slices.Compact(lt.Extruders)
		if len(lt.Extruders) == 0 && lt.HasObject {
			lt.Extruders = append(lt.Extruders, 0)
		}
	}
}

func (t *ToolOrdering) reorderExtruders(lastExtruder int) {
	if len(t.layers) == 0 {
		return
	}
	if lastExtruder < 0 {
		lastExtruder = 0
		for _, lt := range t.layers {
			for _, e := range lt.Extruders {
				if e > 0 {
					lastExtruder = e
					break
				}
			}
			if lastExtruder != 0 {
				break
			}
		}
		if lastExtruder == 0 {
			// nothing to extrude
			for _, lt := range t.layers {
				lt.Extruders = nil
			}
			return
		}
	} else {
		lastExtruder++
	}

	for _, lt := range t.layers {
		if len(lt.Extruders) == 0 {
			continue
		}
		if len(lt.Extruders) == 1 && lt.Extruders[0] == 0 {
			lt.Extruders[0] = lastExtruder
		} else {
			if lt.Extruders[0] == 0 {
				lt.Extruders = lt.Extruders[1:]
			}
			if i := slices.Index(lt.Extruders, lastExtruder); i > 0 {
				copy(lt.Extruders[1:i+1], lt.Extruders[:i])
				lt.Extruders[0] = lastExtruder
			}
		}
		lastExtruder = lt.Extruders[len(lt.Extruders)-1]
	}

	for _, lt := range t.layers {
		for i := range lt.Extruders {
			lt.Extruders[i]--
		}
	}
}

func (t *ToolOrdering) fillWipeTowerPartitions(objectBottomZ, maxLayerHeight float64) {
	if len(t.layers) == 0 {
		return
	}

	last := -1
	for _, lt := range t.layers {
		lt.WipeTowerPartitions = len(lt.Extruders)
		if len(lt.Extruders) > 0 {
			if last == -1 || last == lt.Extruders[0] {
				lt.WipeTowerPartitions--
			}
			last = lt.Extruders[len(lt.Extruders)-1]
		}
	}
	// lower partitions carry the upper ones
	for i := len(t.layers) - 2; i >= 0; i-- {
		t.layers[i].WipeTowerPartitions = max(t.layers[i+1].WipeTowerPartitions, t.layers[i].WipeTowerPartitions)
	}

	for _, lt := range t.layers {
		lt.HasWipeTower = (lt.HasObject && lt.WipeTowerPartitions > 0) || lt.PrintZ < objectBottomZ+Epsilon
	}

	// Layers without an object still need the tower when they start with another
	// extruder, and the tower must never skip more than maxLayerHeight.
	for i := 0; i+1 < len(t.layers); i++ {
		lt, next := t.layers[i], t.layers[i+1]
		if len(lt.Extruders) == 0 || len(next.Extruders) == 0 {
			break
		}
		if !next.HasWipeTower && (next.Extruders[0] != lt.Extruders[len(lt.Extruders)-1] || len(next.Extruders) > 1) {
			next.HasWipeTower = true
		}
		lastZ := next.PrintZ
		for j := i + 2; j < len(t.layers)-1 && !t.layers[j].HasWipeTower; j++ {
			if t.layers[j+1].PrintZ-lastZ > maxLayerHeight+Epsilon {
				t.layers[j].HasWipeTower = true
				lastZ = t.layers[j].PrintZ
			}
		}
	}

	lastZ := 0.0
	for _, lt := range t.layers {
		if lt.HasWipeTower {
			lt.WipeTowerLayerHeight = lt.PrintZ - lastZ
			lastZ = lt.PrintZ
		}
	}
}

// insertWipeTowerExtruder adds the one-based configured tower extruder to every
// layer with tower partitions.
func (t *ToolOrdering) insertWipeTowerExtruder(towerExtruder int) bool {
	if towerExtruder == 0 {
		return false
	}
	changed := false
	for _, lt := range t.layers {
		if lt.WipeTowerPartitions > 0 {
			lt.Extruders = append(lt.Extruders, towerExtruder-1)
			slices.Sort(lt.Extruders)
			lt.Extruders = slices.Compact(lt.Extruders)
			changed = true
		}
	}
	if changed {
		// back to one-based for reorderExtruders
		for _, lt := range t.layers {
			for i := range lt.Extruders {
				lt.Extruders[i]++
			}
		}
	}
	return changed
}

func (t *ToolOrdering) collectExtruderStatistics(primeMultiMaterial bool) {
	t.firstExtruder = -1
	for _, lt := range t.layers {
		if len(lt.Extruders) > 0 {
			t.firstExtruder = lt.Extruders[0]
			break
		}
	}
	t.lastExtruder = -1
	for i := len(t.layers) - 1; i >= 0; i-- {
		if ex := t.layers[i].Extruders; len(ex) > 0 {
			t.lastExtruder = ex[len(ex)-1]
			break
		}
	}

	t.allExtruders = nil
	for _, lt := range t.layers {
		t.allExtruders = append(t.allExtruders, lt.Extruders...)
	}
	slices.Sort(t.allExtruders)
	t.allExtruders = slices.Compact(t.allExtruders)

	if primeMultiMaterial && len(t.allExtruders) > 0 {
		// prime in order, finishing with the first printing extruder
		t.allExtruders = slices.DeleteFunc(t.allExtruders, func(e int) bool { return e == t.firstExtruder })
		t.allExtruders = append(t.allExtruders, t.firstExtruder)
		t.firstExtruder = t.allExtruders[0]
	}
}

// markSkirtLayers marks the layers printing a skirt. Without a draft shield only
// the first SkirtHeight object layers carry one.
func (t *ToolOrdering) markSkirtLayers(cfg *config.PrintConfig, maxLayerHeight float64) {
	if len(t.layers) == 0 || len(t.layers[0].Extruders) == 0 || cfg.Skirts == 0 {
		return
	}
	limit := math.MaxInt
	if cfg.DraftShield != config.DraftShieldEnabled {
		limit = max(cfg.SkirtHeight, 1)
	}

	marked := 0
	i := 0
	for {
		t.layers[i].HasSkirt = true
		marked++
		j := i + 1
		for j < len(t.layers) && !t.layers[j].HasObject {
			j++
		}
		if j == len(t.layers) || marked >= limit {
			break
		}
		// keep the skirt continuous across support-only layers
		lastZ := t.layers[i].PrintZ
		for k := i + 1; k < j; k++ {
			if t.layers[k+1].PrintZ-lastZ > maxLayerHeight+Epsilon {
				for len(t.layers[k].Extruders) == 0 {
					k--
				}
				if t.layers[k].HasSkirt {
					break
				}
				t.layers[k].HasSkirt = true
				lastZ = t.layers[k].PrintZ
			}
		}
		i = j
	}
}

// ToolsForLayer returns the layer whose PrintZ is closest to printZ.
// It must not be called on an empty ordering.
func (t *ToolOrdering) ToolsForLayer(printZ float64) *LayerTools {
	i := sort.Search(len(t.layers), func(i int) bool { return t.layers[i].PrintZ >= printZ-Epsilon })
	if i == len(t.layers) {
		i--
	}
	best := i
	for j := i + 1; j < len(t.layers); j++ {
		if math.Abs(t.layers[j].PrintZ-printZ) >= math.Abs(t.layers[best].PrintZ-printZ) {
			break
		}
		best = j
	}
	return t.layers[best]
}

// Layers returns the ordered layer records.
func (t *ToolOrdering) Layers() []*LayerTools { return t.layers }

// Empty reports whether no layer exists.
func (t *ToolOrdering) Empty() bool { return len(t.layers) == 0 }

// Front returns the first layer.
func (t *ToolOrdering) Front() *LayerTools { return t.layers[0] }

// Back returns the last layer.
func (t *ToolOrdering) Back() *LayerTools { return t.layers[len(t.layers)-1] }

// FirstExtruder returns the first printing extruder including priming, or -1.
func (t *ToolOrdering) FirstExtruder() int { return t.firstExtruder }

// LastExtruder returns the final printing extruder, or -1.
func (t *ToolOrdering) LastExtruder() int { return t.lastExtruder }

// AllExtruders returns every printing extruder; with priming, in priming order.
func (t *ToolOrdering) AllExtruders() []int { return t.allExtruders }

// HasWipeTower reports whether the schedule needs a wipe tower at all.
func (t *ToolOrdering) HasWipeTower() bool {
	return len(t.layers) > 0 && t.firstExtruder != -1 && t.layers[0].WipeTowerPartitions > 0
}

// ToolChangesCount returns the number of tool changes over the whole print.
func (t *ToolOrdering) ToolChangesCount() int {
	var seq []int
	for _, lt := range t.layers {
		for _, e := range lt.Extruders {
			if len(seq) == 0 || seq[len(seq)-1] != e {
				seq = append(seq, e)
			}
		}
	}
	return max(0, len(seq)-1)
}

// Clone returns a deep copy; wiping overrides are not copied.
func (t *ToolOrdering) Clone() *ToolOrdering {
	c := &ToolOrdering{
		firstExtruder: t.firstExtruder,
		lastExtruder:  t.lastExtruder,
		allExtruders:  slices.Clone(t.allExtruders),
		layers:        make([]*LayerTools, len(t.layers)),
	}
	for i, lt := range t.layers {
		cp := *lt
		cp.Extruders = slices.Clone(lt.Extruders)
		cp.wiping = nil
		c.layers[i] = &cp
	}
	return c
}
