package conflict

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
)

const layerHeight = 0.2

func outline(cx, cy, side float64) extrusion.Path {
	h := side / 2
	sq := geometry.Rect(geometry.Pt(cx-h, cy-h), geometry.Pt(cx+h, cy+h))
	return extrusion.Path{Polyline: sq.Polyline(), Kind: extrusion.RoleExternalPerimeter, Height: layerHeight}
}

func infillLine(x0, y, x1 float64) extrusion.Path {
	return extrusion.Path{
		Polyline: geometry.Polyline{geometry.Pt(x0, y), geometry.Pt(x1, y)},
		Kind:     extrusion.RoleInternalInfill,
		Height:   layerHeight,
	}
}

func stack(n int, paths ...extrusion.Path) [][]extrusion.Path {
	out := make([][]extrusion.Path, n)
	for i := range out {
		out[i] = paths
	}
	return out
}

func object(name string, layers [][]extrusion.Path, shifts ...geometry.Point) Object {
	return Object{Name: name, Layers: layers, Instances: shifts}
}

func rc() execution.RunContext {
	return execution.NewRunContext(context.Background())
}

func TestRasterize(t *testing.T) {
	tests := []struct {
		name string
		line geometry.Line
		want []Cell
	}{
		{
			name: "horizontal",
			line: geometry.Line{A: geometry.Pt(0.5, 0.5), B: geometry.Pt(3.5, 0.5)},
			want: []Cell{{0, 0}, {1, 0}, {2, 0}, {3, 0}},
		},
		{
			name: "vertical downwards",
			line: geometry.Line{A: geometry.Pt(1.5, 2.5), B: geometry.Pt(1.5, 0.5)},
			want: []Cell{{1, 2}, {1, 1}, {1, 0}},
		},
		{
			name: "single cell",
			line: geometry.Line{A: geometry.Pt(0.1, 0.1), B: geometry.Pt(0.9, 0.2)},
			want: []Cell{{0, 0}},
		},
		{
			name: "shallow diagonal",
			line: geometry.Line{A: geometry.Pt(0.5, 0.5), B: geometry.Pt(2.5, 1.5)},
			want: []Cell{{0, 0}, {1, 0}, {1, 1}, {2, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rasterize(tt.line, CellSize)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("cells mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRasterize_CellsAreAdjacent(t *testing.T) {
	cells, err := Rasterize(geometry.Line{A: geometry.Pt(0.3, 0.7), B: geometry.Pt(17.2, 9.9)}, CellSize)
	require.NoError(t, err)

	assert.Equal(t, Cell{0, 0}, cells[0])
	assert.Equal(t, Cell{17, 9}, cells[len(cells)-1])
	for i := 1; i < len(cells); i++ {
		step := abs(cells[i].X-cells[i-1].X) + abs(cells[i].Y-cells[i-1].Y)
		assert.Equal(t, int64(1), step, "cell %d", i)
	}
}

func TestRasterize_RejectsPathologicalLines(t *testing.T) {
	_, err := Rasterize(geometry.Line{A: geometry.Pt(0, 0.5), B: geometry.Pt(200_000, 0.5)}, CellSize)
	assert.ErrorIs(t, err, ErrPathologicalGeometry)

	_, err = Rasterize(geometry.Line{A: geometry.Pt(0, 0), B: geometry.Pt(150_000, 120_000)}, CellSize)
	assert.ErrorIs(t, err, ErrPathologicalGeometry)
}

func TestIntersects(t *testing.T) {
	seg := func(x0, y0, x1, y1 float64) geometry.Line {
		return geometry.Line{A: geometry.Pt(x0, y0), B: geometry.Pt(x1, y1)}
	}
	tests := []struct {
		name string
		a, b LineWithID
		want bool
	}{
		{
			name: "crossing",
			a:    LineWithID{Line: seg(0, 0, 10, 10), Object: 1},
			b:    LineWithID{Line: seg(0, 10, 10, 0), Object: 2},
			want: true,
		},
		{
			name: "shared endpoint",
			a:    LineWithID{Line: seg(0, 0, 10, 0), Object: 1},
			b:    LineWithID{Line: seg(10, 0, 10, 10), Object: 2},
			want: false,
		},
		{
			name: "touching endpoint on segment",
			a:    LineWithID{Line: seg(0, 0, 10, 0), Object: 1},
			b:    LineWithID{Line: seg(5, 0, 5, 10), Object: 2},
			want: false,
		},
		{
			name: "same instance",
			a:    LineWithID{Line: seg(0, 0, 10, 10), Object: 1, Instance: 0},
			b:    LineWithID{Line: seg(0, 10, 10, 0), Object: 1, Instance: 0},
			want: false,
		},
		{
			name: "other instance of same object",
			a:    LineWithID{Line: seg(0, 0, 10, 10), Object: 1, Instance: 0},
			b:    LineWithID{Line: seg(0, 10, 10, 0), Object: 1, Instance: 1},
			want: true,
		},
		{
			name: "parallel",
			a:    LineWithID{Line: seg(0, 0, 10, 0), Object: 1},
			b:    LineWithID{Line: seg(0, 1, 10, 1), Object: 2},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Intersects(tt.a, tt.b))
		})
	}
}

func TestCheck_FarApartObjects(t *testing.T) {
	in := Input{Objects: []Object{
		object("a", stack(5, outline(0, 0, 10)), geometry.Pt(10, 10)),
		object("b", stack(5, outline(0, 0, 10)), geometry.Pt(100, 100)),
	}}

	res, err := Check(rc(), in)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestCheck_OverlappedObjectsReportLowestLayer(t *testing.T) {
	a := [][]extrusion.Path{
		{outline(-4, -4, 1)},
		{outline(0, 0, 10)},
		{outline(0, 0, 10)},
	}
	in := Input{Objects: []Object{
		object("a", a, geometry.Pt(10, 10)),
		object("b", stack(5, outline(0, 0, 10)), geometry.Pt(15, 15)),
	}}

	res, err := Check(rc(), in)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.InDelta(t, 0.2, res.Height, 1e-9)
	assert.ElementsMatch(t, []string{"a", "b"}, []string{res.Object1, res.Object2})
	assert.ElementsMatch(t, []int{0, 1}, []int{res.Index1, res.Index2})
}

func TestCheck_NestedTallerObject(t *testing.T) {
	inner := object("inner", stack(5, outline(0, 0, 6)), geometry.Pt(50, 50))

	t.Run("outlines only", func(t *testing.T) {
		outer := object("outer", stack(2, outline(0, 0, 20)), geometry.Pt(50, 50))
		res, err := Check(rc(), Input{Objects: []Object{outer, inner}})
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("infill crosses inner outline", func(t *testing.T) {
		layers := [][]extrusion.Path{
			{outline(0, 0, 20)},
			{outline(0, 0, 20), infillLine(-9, 0, 9)},
		}
		outer := object("outer", layers, geometry.Pt(50, 50))
		res, err := Check(rc(), Input{Objects: []Object{outer, inner}})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.InDelta(t, 0.2, res.Height, 1e-9)
	})

	t.Run("nothing above the shorter object", func(t *testing.T) {
		outer := object("outer", stack(2, outline(0, 0, 20)), geometry.Pt(50, 50))
		layers := stack(2, outline(0, 0, 6))
		layers = append(layers, stack(6, outline(0, 0, 6), infillLine(-20, 0, 20))...)
		tall := object("tall", layers, geometry.Pt(50, 50))
		res, err := Check(rc(), Input{Objects: []Object{outer, tall}})
		require.NoError(t, err)
		assert.Nil(t, res)
	})
}

func TestCheck_WipeTower(t *testing.T) {
	in := Input{
		Objects: []Object{
			object("part", stack(3, outline(0, 0, 10)), geometry.Pt(33, 33)),
			object("far", stack(3, outline(0, 0, 10)), geometry.Pt(150, 150)),
		},
		Tower: stack(3, outline(30, 30, 10)),
	}

	res, err := Check(rc(), in)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, WipeTowerName, res.Object1)
	assert.Equal(t, TowerIndex, res.Index1)
	assert.Equal(t, "part", res.Object2)
	assert.Equal(t, 0, res.Index2)
	assert.Zero(t, res.Height)
}

func TestCheck_InstancesOfOneObject(t *testing.T) {
	single := object("solo", stack(2, outline(0, 0, 10)), geometry.Pt(10, 10))
	res, err := Check(rc(), Input{Objects: []Object{single}})
	require.NoError(t, err)
	assert.Nil(t, res, "a lone instance is never checked")

	copies := object("solo", stack(2, outline(0, 0, 10)), geometry.Pt(10, 10), geometry.Pt(15, 15))
	res, err = Check(rc(), Input{Objects: []Object{copies}})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "solo", res.Object1)
	assert.Equal(t, "solo", res.Object2)
}

func TestCheck_ParallelSlicesKeepLowest(t *testing.T) {
	var a [][]extrusion.Path
	for i := 0; i < 12; i++ {
		if i < 3 {
			a = append(a, []extrusion.Path{outline(-4, -4, 1)})
		} else {
			a = append(a, []extrusion.Path{outline(0, 0, 10)})
		}
	}
	in := Input{Objects: []Object{
		object("a", a, geometry.Pt(10, 10)),
		object("b", stack(12, outline(0, 0, 10)), geometry.Pt(15, 15)),
	}}

	res, err := Check(rc().WithPool(execution.NewPool(4)), in)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.InDelta(t, 0.6, res.Height, 1e-9)
}

func TestCheck_Errors(t *testing.T) {
	huge := extrusion.Path{
		Polyline: geometry.Polyline{geometry.Pt(0, 0.5), geometry.Pt(200_000, 0.5)},
		Height:   layerHeight,
	}
	in := Input{Objects: []Object{
		object("a", stack(1, huge), geometry.Point{}),
		object("b", stack(1, outline(0, 0, 10)), geometry.Pt(50, 50)),
	}}
	_, err := Check(rc(), in)
	assert.ErrorIs(t, err, ErrPathologicalGeometry)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok := Input{Objects: []Object{
		object("a", stack(2, outline(0, 0, 10)), geometry.Pt(10, 10)),
		object("b", stack(2, outline(0, 0, 10)), geometry.Pt(15, 15)),
	}}
	_, err = Check(execution.NewRunContext(ctx), ok)
	assert.ErrorIs(t, err, execution.ErrCanceled)
}
