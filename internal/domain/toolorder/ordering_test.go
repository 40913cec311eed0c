package toolorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
)

func column(extruder int, layers int, layerHeight float64) Object {
	o := Object{LayerHeight: layerHeight}
	for i := 1; i <= layers; i++ {
		o.Layers = append(o.Layers, Layer{
			PrintZ:    float64(i) * layerHeight,
			Height:    layerHeight,
			Extruders: []int{extruder},
		})
	}
	return o
}

func twoExtruderConfig() *config.PrintConfig {
	cfg := config.DefaultPrintConfig()
	cfg.NozzleDiameter = []float64{0.4, 0.4}
	cfg.WipeTower = true
	return &cfg
}

func extruders(t *ToolOrdering) [][]int {
	var out [][]int
	for _, lt := range t.Layers() {
		out = append(out, lt.Extruders)
	}
	return out
}

func TestNew_AlternatesToMinimiseSwitches(t *testing.T) {
	cfg := twoExtruderConfig()
	to := New([]Object{column(0, 5, 0.2), column(1, 5, 0.2)}, cfg, -1, false)

	require.Len(t, to.Layers(), 5)
	assert.Equal(t, [][]int{{0, 1}, {1, 0}, {0, 1}, {1, 0}, {0, 1}}, extruders(to))
	assert.Equal(t, 0, to.FirstExtruder())
	assert.Equal(t, 1, to.LastExtruder())
	assert.Equal(t, []int{0, 1}, to.AllExtruders())
	assert.Equal(t, 5, to.ToolChangesCount())
	assert.True(t, to.HasWipeTower())

	for _, lt := range to.Layers() {
		assert.True(t, lt.HasObject)
		assert.True(t, lt.HasWipeTower)
		assert.Equal(t, 1, lt.WipeTowerPartitions)
		assert.InDelta(t, 0.2, lt.WipeTowerLayerHeight, 1e-9)
	}
}

func TestNew_StartsWithGivenExtruder(t *testing.T) {
	to := New([]Object{column(0, 2, 0.2), column(1, 2, 0.2)}, twoExtruderConfig(), 1, false)
	assert.Equal(t, [][]int{{1, 0}, {0, 1}}, extruders(to))
}

func TestNew_PrimingOrder(t *testing.T) {
	to := New([]Object{column(0, 3, 0.2), column(1, 3, 0.2)}, twoExtruderConfig(), -1, true)

	assert.Equal(t, []int{1, 0}, to.AllExtruders(), "the first printing extruder is primed last")
	assert.Equal(t, 1, to.FirstExtruder())
}

func TestNew_SingleExtruderNeedsNoTower(t *testing.T) {
	to := New([]Object{column(0, 3, 0.2), column(0, 3, 0.2)}, twoExtruderConfig(), -1, false)

	assert.False(t, to.HasWipeTower())
	assert.Zero(t, to.ToolChangesCount())
	assert.Equal(t, 0, to.LastExtruder())
}

func TestNew_Empty(t *testing.T) {
	to := New(nil, twoExtruderConfig(), -1, false)
	assert.True(t, to.Empty())
	assert.Equal(t, -1, to.LastExtruder())
	assert.False(t, to.HasWipeTower())
}

func TestNew_LayersWithoutExtrusionsHaveNoLastExtruder(t *testing.T) {
	o := Object{LayerHeight: 0.2, Layers: []Layer{{PrintZ: 0.2, Height: 0.2}, {PrintZ: 0.4, Height: 0.2}}}
	to := New([]Object{o}, twoExtruderConfig(), -1, false)

	assert.False(t, to.Empty())
	assert.Equal(t, -1, to.LastExtruder())
}

func TestNew_MergesNearlyEqualLayers(t *testing.T) {
	a := Object{LayerHeight: 0.2, Layers: []Layer{{PrintZ: 0.2, Height: 0.2, Extruders: []int{0}}}}
	b := Object{LayerHeight: 0.2, Layers: []Layer{{PrintZ: 0.20005, Height: 0.2, Extruders: []int{1}}}}
	to := New([]Object{a, b}, twoExtruderConfig(), -1, false)

	require.Len(t, to.Layers(), 1)
	assert.InDelta(t, 0.200025, to.Front().PrintZ, 1e-9)
	assert.Same(t, to.Front(), to.ToolsForLayer(0.2))
}

func TestNew_DontCareSupportFollowsActiveExtruder(t *testing.T) {
	o := column(1, 2, 0.2)
	o.SupportLayers = []Layer{{PrintZ: 0.2, Height: 0.2, Extruders: []int{AnyExtruder}}}
	to := New([]Object{o}, twoExtruderConfig(), -1, false)

	assert.Equal(t, [][]int{{1}, {1}}, extruders(to))
	assert.True(t, to.Front().HasSupport)
	assert.False(t, to.Back().HasSupport)
}

func TestNew_SupportOnlyLayersGetTower(t *testing.T) {
	o := Object{LayerHeight: 0.2}
	o.Layers = []Layer{
		{PrintZ: 0.2, Height: 0.2, Extruders: []int{0}},
		{PrintZ: 0.6, Height: 0.4, Extruders: []int{0}},
	}
	o.SupportLayers = []Layer{{PrintZ: 0.4, Height: 0.2, Extruders: []int{1}}}
	to := New([]Object{o}, twoExtruderConfig(), -1, false)

	require.Len(t, to.Layers(), 3)
	mid := to.Layers()[1]
	assert.False(t, mid.HasObject)
	assert.True(t, mid.HasSupport)
	assert.True(t, mid.HasWipeTower)
}

func TestNew_WipeTowerExtruderInserted(t *testing.T) {
	cfg := twoExtruderConfig()
	cfg.NozzleDiameter = []float64{0.4, 0.4, 0.4}
	cfg.WipeTowerExtruder = 3

	to := New([]Object{column(0, 3, 0.2), column(1, 3, 0.2)}, cfg, -1, false)
	for _, lt := range to.Layers() {
		assert.True(t, lt.HasExtruder(2), "layer %.2f", lt.PrintZ)
	}
	assert.Equal(t, [][]int{{0, 1, 2}, {2, 0, 1}, {1, 0, 2}}, extruders(to))
}

func TestNew_SkirtLayers(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.PrintConfig)
		skirted int
	}{
		{name: "default height", mutate: func(*config.PrintConfig) {}, skirted: 1},
		{name: "three layers", mutate: func(c *config.PrintConfig) { c.SkirtHeight = 3 }, skirted: 3},
		{name: "draft shield", mutate: func(c *config.PrintConfig) { c.DraftShield = config.DraftShieldEnabled }, skirted: 6},
		{name: "no skirt", mutate: func(c *config.PrintConfig) { c.Skirts = 0 }, skirted: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := twoExtruderConfig()
			tt.mutate(cfg)
			to := New([]Object{column(0, 6, 0.2)}, cfg, -1, false)

			n := 0
			for _, lt := range to.Layers() {
				if lt.HasSkirt {
					n++
				}
			}
			assert.Equal(t, tt.skirted, n)
		})
	}
}

func TestClone_IsIndependent(t *testing.T) {
	to := New([]Object{column(0, 2, 0.2), column(1, 2, 0.2)}, twoExtruderConfig(), -1, false)
	to.Front().Wiping().MarkWipingExtrusions([]Candidate{{Volume: 1, Copies: 1, Extruder: 0}}, 1, 1)

	c := to.Clone()
	c.Front().Extruders[0] = 9

	assert.Equal(t, 0, to.Front().Extruders[0])
	assert.False(t, c.Front().Wiping().IsAnythingOverridden())
	assert.True(t, to.Front().Wiping().IsAnythingOverridden())
}

func TestLayerTools_IsExtruderOrder(t *testing.T) {
	lt := &LayerTools{Extruders: []int{2, 0, 1}}

	assert.True(t, lt.IsExtruderOrder(2, 1))
	assert.True(t, lt.IsExtruderOrder(0, 0))
	assert.False(t, lt.IsExtruderOrder(1, 0))
	assert.False(t, lt.IsExtruderOrder(3, 4))
	assert.True(t, lt.HasExtruder(0))
	assert.False(t, lt.HasExtruder(3))
}

func TestWipingExtrusions_Mark(t *testing.T) {
	infill := Candidate{Key: EntityKey{Object: 0, Layer: 1, Entity: 4}, Volume: 10, Copies: 2, Extruder: 0, Infill: true}
	perimeter := Candidate{Key: EntityKey{Object: 1, Layer: 1, Entity: 0}, Volume: 5, Copies: 1, Extruder: 0}
	own := Candidate{Key: EntityKey{Object: 2}, Volume: 100, Copies: 1, Extruder: 1, Infill: true}

	var w WipingExtrusions
	assert.False(t, w.IsAnythingOverridden())

	left := w.MarkWipingExtrusions([]Candidate{perimeter, own, infill}, 1, 22)
	assert.Zero(t, left)
	assert.Equal(t, 3, w.Overrides())
	assert.Equal(t, 1, w.ExtruderOverride(infill.Key, 0))
	assert.Equal(t, 1, w.ExtruderOverride(infill.Key, 1))
	assert.Equal(t, 1, w.ExtruderOverride(perimeter.Key, 0))
	assert.Equal(t, -1, w.ExtruderOverride(own.Key, 0))

	left = w.MarkWipingExtrusions([]Candidate{perimeter, infill}, 1, 5)
	assert.InDelta(t, 5.0, left, 1e-9, "already overridden copies absorb nothing")

	assert.Zero(t, w.MarkWipingExtrusions(nil, 1, -3))
}

func TestWipingExtrusions_InfillFirst(t *testing.T) {
	infill := Candidate{Key: EntityKey{Entity: 1}, Volume: 10, Copies: 1, Infill: true}
	perimeter := Candidate{Key: EntityKey{Entity: 2}, Volume: 10, Copies: 1}

	var w WipingExtrusions
	left := w.MarkWipingExtrusions([]Candidate{perimeter, infill}, 1, 8)

	assert.Zero(t, left)
	assert.Equal(t, 1, w.ExtruderOverride(infill.Key, 0))
	assert.Equal(t, -1, w.ExtruderOverride(perimeter.Key, 0))
}
