package wipetower

import (
	"math"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
)

const (
	epsilon = 1e-4
	// widthToNozzle sets the tower extrusion width from the nozzle diameter.
	widthToNozzle = 1.25
	// sparseSpacing is the infill line distance of layer filling, in perimeter widths.
	sparseSpacing = 4
	// primeVolume is the minimum volume of a priming line in mm³.
	primeVolume = 15.0
)

// PlannedChange is one tool change requested from the tower.
type PlannedChange struct {
	Z       float64
	OldTool int
	NewTool int
	Volume  float64
	Depth   float64
}

type layerPlan struct {
	z       float64
	height  float64
	depth   float64
	changes []PlannedChange
}

func (l *layerPlan) toolChangesDepth() float64 {
	var d float64
	for _, c := range l.changes {
		d += c.Depth
	}
	return d
}

// Tower plans tool changes layer by layer, then generates their geometry.
// Coordinates are in millimetres with the tower's front left corner at the origin.
type Tower struct {
	width          float64
	brimWidth      float64
	perimeterWidth float64
	noSparseLayers bool
	filamentArea   []float64
	minimalPurge   []float64

	plan   []layerPlan
	depth  float64
	height float64

	currentTool    int
	layerFinished  bool
	brimWidthReal  float64
	usedVolume     []float64
	usedUntil      []UsedFilament
	numToolChanges int
}

// New creates a tower for cfg. initialTool is the extruder loaded at the start.
func New(cfg *config.PrintConfig, initialTool int) *Tower {
	n := cfg.ExtruderCount()
	t := &Tower{
		width:          cfg.WipeTowerWidth,
		brimWidth:      cfg.WipeTowerBrimWidth,
		perimeterWidth: widthToNozzle * cfg.NozzleDiameterAt(max(initialTool, 0)),
		noSparseLayers: cfg.WipeTowerNoSparseLayers,
		filamentArea:   make([]float64, n),
		minimalPurge:   make([]float64, n),
		usedVolume:     make([]float64, n),
		currentTool:    initialTool,
	}
	for i := 0; i < n; i++ {
		r := cfg.FilamentDiameterAt(i) / 2
		t.filamentArea[i] = math.Pi * r * r
		t.minimalPurge[i] = cfg.MinimalPurgeAt(i)
	}
	return t
}

func (t *Tower) mm3PerMM(layerHeight float64) float64 {
	h := min(layerHeight, t.perimeterWidth*0.9)
	return h * (t.perimeterWidth - h*(1-math.Pi/4))
}

// purgeDepth returns the tower depth needed to purge volume at layerHeight.
func (t *Tower) purgeDepth(volume, layerHeight float64) float64 {
	usable := t.width - 3*t.perimeterWidth
	if volume <= 0 || usable <= 0 || layerHeight <= 0 {
		return 0
	}
	length := volume / t.mm3PerMM(layerHeight)
	lines := math.Ceil(length / usable)
	return lines * t.perimeterWidth
}

// PlanToolchange reserves tower space for switching from oldTool to newTool
// at z. Calls must come in non-decreasing z. Equal tools only open the layer.
func (t *Tower) PlanToolchange(z, layerHeight float64, oldTool, newTool int, volume float64) {
	if len(t.plan) == 0 || t.plan[len(t.plan)-1].z+epsilon < z {
		t.plan = append(t.plan, layerPlan{z: z, height: layerHeight})
	}
	if oldTool == newTool {
		return
	}
	last := &t.plan[len(t.plan)-1]
	last.changes = append(last.changes, PlannedChange{
		Z:       z,
		OldTool: oldTool,
		NewTool: newTool,
		Volume:  volume,
		Depth:   t.purgeDepth(volume, layerHeight),
	})
}

// Planned returns every planned tool change in order.
func (t *Tower) Planned() []PlannedChange {
	var out []PlannedChange
	for _, l := range t.plan {
		out = append(out, l.changes...)
	}
	return out
}

// planTower computes the tower depth and propagates each layer's depth down
// so lower layers support the ones above.
func (t *Tower) planTower() {
	t.depth = 0
	for i := range t.plan {
		t.plan[i].depth = 0
	}
	if len(t.plan) > 0 {
		t.height = t.plan[len(t.plan)-1].z
	}
	for i := len(t.plan) - 1; i >= 0; i-- {
		d := max(t.plan[i].depth, t.plan[i].toolChangesDepth())
		t.plan[i].depth = d
		if d > t.depth-t.perimeterWidth {
			t.depth = d + t.perimeterWidth
		}
		for j := i - 1; j >= 0; j-- {
			if t.plan[j].depth-d < 2*t.perimeterWidth {
				t.plan[j].depth = d
			}
		}
	}
}

// Prime extrudes one priming line per tool at the front of the bed, in order.
func (t *Tower) Prime(firstLayerHeight float64, tools []int) []ToolChangeResult {
	out := make([]ToolChangeResult, 0, len(tools))
	y := 5.0
	for _, tool := range tools {
		volume := max(primeVolume, t.minimalPurge[tool])
		length := volume / t.mm3PerMM(firstLayerHeight)
		pl := geometry.Polyline{geometry.Pt(10, y), geometry.Pt(10+length, y)}
		r := ToolChangeResult{
			PrintZ:      firstLayerHeight,
			LayerHeight: firstLayerHeight,
			InitialTool: t.currentTool,
			NewTool:     tool,
			Priming:     true,
			PurgeVolume: volume,
			Paths:       []extrusion.Path{t.path(pl, firstLayerHeight)},
		}
		t.account(tool, r.Volume())
		t.currentTool = tool
		out = append(out, r)
		y += 2 * t.perimeterWidth
	}
	return out
}

// Generate lays out every planned layer. It returns, per layer, the tool change
// results with the layer finishing merged into one of them.
func (t *Tower) Generate() [][]ToolChangeResult {
	if len(t.plan) == 0 {
		return nil
	}
	t.planTower()
	t.brimWidthReal = math.Floor(t.brimWidth/t.perimeterWidth) * t.perimeterWidth

	for _, l := range t.plan {
		if len(l.changes) > 0 {
			t.currentTool = l.changes[0].OldTool
			break
		}
	}
	for i := range t.usedVolume {
		t.usedVolume[i] = 0
	}
	t.usedUntil = nil
	t.numToolChanges = 0

	out := make([][]ToolChangeResult, 0, len(t.plan))
	for i, l := range t.plan {
		yShift := 0.0
		if l.depth < t.depth-t.perimeterWidth {
			yShift = (t.depth - l.depth - t.perimeterWidth) / 2
		}
		traversed := 0.0
		var layer []ToolChangeResult
		for _, c := range l.changes {
			r := ToolChangeResult{
				PrintZ:      l.z,
				LayerHeight: l.height,
				InitialTool: c.OldTool,
				NewTool:     c.NewTool,
				PurgeVolume: c.Volume,
				Paths:       t.purgeBlock(yShift+traversed, c.Depth, l.height),
			}
			traversed += c.Depth
			t.account(c.NewTool, r.Volume())
			t.currentTool = c.NewTool
			t.numToolChanges++
			layer = append(layer, r)
		}

		finish := t.finishLayer(l, i == 0, yShift, traversed)
		t.account(t.currentTool, extrusionVolume(finish))
		if len(layer) == 0 {
			layer = append(layer, ToolChangeResult{
				PrintZ:      l.z,
				LayerHeight: l.height,
				InitialTool: t.currentTool,
				NewTool:     t.currentTool,
				Paths:       finish,
			})
		} else {
			last := &layer[len(layer)-1]
			last.Paths = append(last.Paths, finish...)
		}
		t.layerFinished = traversed >= l.depth-epsilon

		out = append(out, layer)
		t.usedUntil = append(t.usedUntil, UsedFilament{Z: l.z, Lengths: t.usedLengths()})
	}
	return out
}

// FinalPurge unloads the current filament at z.
func (t *Tower) FinalPurge(z, layerHeight float64) ToolChangeResult {
	volume := t.minimalPurge[max(t.currentTool, 0)]
	depth := t.purgeDepth(volume, layerHeight)
	y := max(0, (t.depth-depth-t.perimeterWidth)/2)
	r := ToolChangeResult{
		PrintZ:      z,
		LayerHeight: layerHeight,
		InitialTool: t.currentTool,
		NewTool:     NoTool,
		PurgeVolume: volume,
		Paths:       t.purgeBlock(y, depth, layerHeight),
	}
	if t.currentTool >= 0 {
		t.account(t.currentTool, r.Volume())
	}
	t.currentTool = NoTool
	return r
}

func (t *Tower) finishLayer(l layerPlan, first bool, yShift, traversed float64) []extrusion.Path {
	if t.noSparseLayers && len(l.changes) == 0 && !first {
		return nil
	}
	if l.depth <= 0 {
		return nil
	}
	var out []extrusion.Path
	box := geometry.Rect(geometry.Pt(0, yShift), geometry.Pt(t.width, yShift+l.depth))
	out = append(out, t.path(box.Polyline(), l.height))

	pw := t.perimeterWidth
	for y := yShift + traversed + sparseSpacing*pw; y < yShift+l.depth-pw/2; y += sparseSpacing * pw {
		out = append(out, t.path(geometry.Polyline{geometry.Pt(pw, y), geometry.Pt(t.width-pw, y)}, l.height))
	}

	if first {
		for d := pw; d <= t.brimWidthReal+epsilon; d += pw {
			ring := geometry.Rect(geometry.Pt(-d, yShift-d), geometry.Pt(t.width+d, yShift+l.depth+d))
			out = append(out, t.path(ring.Polyline(), l.height))
		}
	}
	return out
}

// purgeBlock zig-zags across the usable width from y0 over depth.
func (t *Tower) purgeBlock(y0, depth, layerHeight float64) []extrusion.Path {
	if depth <= 0 {
		return nil
	}
	pw := t.perimeterWidth
	xl, xr := 1.5*pw, t.width-1.5*pw
	var pl geometry.Polyline
	left := true
	for y := y0 + pw/2; y < y0+depth; y += pw {
		if left {
			pl = append(pl, geometry.Pt(xl, y), geometry.Pt(xr, y))
		} else {
			pl = append(pl, geometry.Pt(xr, y), geometry.Pt(xl, y))
		}
		left = !left
	}
	return []extrusion.Path{t.path(pl, layerHeight)}
}

func (t *Tower) path(pl geometry.Polyline, layerHeight float64) extrusion.Path {
	return extrusion.Path{
		Polyline: pl,
		Kind:     extrusion.RoleWipeTower,
		MM3PerMM: t.mm3PerMM(layerHeight),
		Width:    t.perimeterWidth,
		Height:   layerHeight,
	}
}

func (t *Tower) account(tool int, volume float64) {
	if tool >= 0 && tool < len(t.usedVolume) {
		t.usedVolume[tool] += volume
	}
}

func (t *Tower) usedLengths() []float64 {
	out := make([]float64, len(t.usedVolume))
	for i, v := range t.usedVolume {
		if t.filamentArea[i] > 0 {
			out[i] = v / t.filamentArea[i]
		}
	}
	return out
}

func extrusionVolume(paths []extrusion.Path) float64 {
	var v float64
	for _, p := range paths {
		v += p.Volume()
	}
	return v
}

// ZDepthPairs returns where the tower gets shallower, from z = 0 upwards,
// closed by a zero-depth entry at the tower height.
func (t *Tower) ZDepthPairs() []ZDepth {
	out := []ZDepth{{Z: 0, Depth: t.depth}}
	for _, l := range t.plan {
		if l.depth < out[len(out)-1].Depth-epsilon {
			out = append(out, ZDepth{Z: l.z, Depth: l.depth})
		}
	}
	if out[len(out)-1].Z < t.height-epsilon {
		out = append(out, ZDepth{Z: t.height, Depth: 0})
	}
	return out
}

// LayerFinished reports whether the last generated layer has no room left.
func (t *Tower) LayerFinished() bool { return t.layerFinished }

// Width returns the tower width in mm.
func (t *Tower) Width() float64 { return t.width }

// Depth returns the tower depth in mm; valid after Generate.
func (t *Tower) Depth() float64 { return t.depth }

// Height returns the print_z of the topmost tower layer.
func (t *Tower) Height() float64 { return t.height }

// BrimWidth returns the brim width actually generated.
func (t *Tower) BrimWidth() float64 { return t.brimWidthReal }

// UsedFilamentUntilLayer returns cumulative filament lengths per layer.
func (t *Tower) UsedFilamentUntilLayer() []UsedFilament { return t.usedUntil }

// NumberOfToolChanges returns the tool changes generated.
func (t *Tower) NumberOfToolChanges() int { return t.numToolChanges }
