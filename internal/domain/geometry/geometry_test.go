package geometry

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaled_RoundTrip(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(1_500_000), Scaled(1.5))
	assert.InDelta(t, 1.5, Unscaled(Scaled(1.5)), 1e-9)
	assert.Equal(t, int64(-1), Scaled(-0.000001))
}

func TestLine_Intersection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a, b   Line
		want   Point
		wantOK bool
	}{
		{
			name:   "crossing",
			a:      Line{Pt(0, 0), Pt(10, 10)},
			b:      Line{Pt(0, 10), Pt(10, 0)},
			want:   Pt(5, 5),
			wantOK: true,
		},
		{
			name: "parallel",
			a:    Line{Pt(0, 0), Pt(10, 0)},
			b:    Line{Pt(0, 1), Pt(10, 1)},
		},
		{
			name: "disjoint",
			a:    Line{Pt(0, 0), Pt(1, 1)},
			b:    Line{Pt(5, 0), Pt(6, -1)},
		},
		{
			name:   "shared endpoint",
			a:      Line{Pt(0, 0), Pt(5, 5)},
			b:      Line{Pt(5, 5), Pt(10, 0)},
			want:   Pt(5, 5),
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.a.Intersection(tt.b)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPolygon_AreaAndWinding(t *testing.T) {
	t.Parallel()

	sq := Square(Pt(0, 0), 10)
	assert.True(t, sq.IsCCW())
	assert.InDelta(t, 100.0, sq.Area(), 1e-9)
	assert.False(t, sq.Reversed().IsCCW())
	assert.InDelta(t, float64(Scaled(40)), sq.Length(), 1)
}

func TestPolygon_Contains(t *testing.T) {
	t.Parallel()

	sq := Square(Pt(0, 0), 10)
	assert.True(t, sq.Contains(Pt(0, 0)))
	assert.True(t, sq.Contains(Pt(4.9, -4.9)))
	assert.False(t, sq.Contains(Pt(6, 0)))
}

func TestConvexHull(t *testing.T) {
	t.Parallel()

	pts := []Point{Pt(0, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10), Pt(5, 5), Pt(5, 0)}
	hull := ConvexHull(pts)

	want := Polygon{Pt(0, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10)}
	if diff := cmp.Diff(want, hull); diff != "" {
		t.Errorf("ConvexHull() mismatch (-want +got):\n%s", diff)
	}
}

func TestConvexHull_Degenerate(t *testing.T) {
	t.Parallel()

	assert.Len(t, ConvexHull([]Point{Pt(1, 1), Pt(1, 1)}), 1)
	assert.Empty(t, ConvexHull(nil))
}

func TestOffsetConvex_Grow(t *testing.T) {
	t.Parallel()

	sq := Square(Pt(0, 0), 10)
	grown := OffsetConvex(sq, float64(Scaled(2)), math.Pi/32)
	require.NotEmpty(t, grown)

	bb := grown.BoundingBox()
	assert.InDelta(t, -7.0, Unscaled(bb.Min.X), 1e-3)
	assert.InDelta(t, 7.0, Unscaled(bb.Max.Y), 1e-3)
	// rounded corners make the area smaller than the enclosing 14x14 square
	assert.Less(t, grown.Area(), 196.0)
	assert.Greater(t, grown.Area(), 100.0+4*20.0)
}

func TestInset(t *testing.T) {
	t.Parallel()

	sq := Square(Pt(0, 0), 10)
	in := Inset(sq, float64(Scaled(1)))
	require.Len(t, in, 4)
	assert.InDelta(t, 64.0, in.Area(), 1e-6)

	assert.Nil(t, Inset(sq, float64(Scaled(6))), "square collapses when inset past its half width")
}

func TestScanlines(t *testing.T) {
	t.Parallel()

	sq := Square(Pt(0, 0), 10)
	lines := Scanlines([]Polygon{sq}, Scaled(1), 0)
	require.Len(t, lines, 10)
	for i, l := range lines {
		require.Len(t, l, 2)
		assert.InDelta(t, 10.0, Unscaled(int64(l.Length())), 1e-6)
		if i%2 == 1 {
			assert.Greater(t, l[0].X, l[1].X, "odd scanlines run backwards")
		}
	}
}

func TestScanlines_Hole(t *testing.T) {
	t.Parallel()

	outer := Square(Pt(0, 0), 10)
	hole := Square(Pt(0, 0), 4).Reversed()
	lines := Scanlines([]Polygon{outer, hole}, Scaled(1), 0)

	var total float64
	for _, l := range lines {
		total += Unscaled(int64(l.Length()))
	}
	// 10 lines of 10mm minus 4 lines crossing the 4mm hole
	assert.InDelta(t, 100.0-16.0, total, 1e-6)
}

func TestBoundingBox(t *testing.T) {
	t.Parallel()

	var bb BoundingBox
	assert.False(t, bb.Defined)
	bb.Merge(Pt(1, 2))
	bb.Merge(Pt(-1, 5))
	assert.Equal(t, Pt(-1, 2), bb.Min)
	assert.Equal(t, Pt(1, 5), bb.Max)
	assert.True(t, bb.Overlaps(NewBoundingBox(Pt(0, 0), Pt(3, 3))))
	assert.False(t, bb.Overlaps(NewBoundingBox(Pt(2, 0), Pt(3, 1))))
}

func TestFloorDiv(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(-1), FloorDiv(-1, 10))
	assert.Equal(t, int64(0), FloorDiv(9, 10))
	assert.Equal(t, int64(-2), FloorDiv(-11, 10))
	assert.Equal(t, int64(-1), FloorDiv(-10, 10))
}
