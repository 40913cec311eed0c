package sequential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
)

func box(name string, side, height float64, at ...geometry.Point) Object {
	return Object{
		Name:      name,
		Footprint: geometry.Square(geometry.Point{}, side),
		Height:    height,
		Instances: at,
	}
}

func TestCheck(t *testing.T) {
	clearance := Clearance{Radius: 20, Height: 20}

	tests := []struct {
		name    string
		objects []Object
		want    *Collision
	}{
		{
			name:    "single instance",
			objects: []Object{box("a", 10, 50, geometry.Pt(50, 50))},
		},
		{
			name: "far apart",
			objects: []Object{
				box("a", 10, 10, geometry.Pt(20, 20)),
				box("b", 10, 10, geometry.Pt(80, 20)),
			},
		},
		{
			name: "within clearance radius",
			objects: []Object{
				box("a", 10, 10, geometry.Pt(20, 20)),
				box("b", 10, 10, geometry.Pt(45, 20)),
			},
			want: &Collision{Kind: Horizontal, Object1: "a", Object2: "b"},
		},
		{
			name: "copies of one object",
			objects: []Object{
				box("a", 10, 10, geometry.Pt(20, 20), geometry.Pt(20, 35)),
			},
			want: &Collision{Kind: Horizontal, Object1: "a", Object2: "a"},
		},
		{
			name: "tall object printed first",
			objects: []Object{
				box("tall", 10, 30, geometry.Pt(20, 20)),
				box("short", 10, 10, geometry.Pt(80, 20)),
			},
			want: &Collision{Kind: Vertical, Object1: "tall"},
		},
		{
			name: "tall object printed last",
			objects: []Object{
				box("short", 10, 10, geometry.Pt(20, 20)),
				box("tall", 10, 30, geometry.Pt(80, 20)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Check(tt.objects, clearance)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck_FirstPairInPrintOrder(t *testing.T) {
	objects := []Object{
		box("a", 10, 5, geometry.Pt(20, 20)),
		box("b", 10, 5, geometry.Pt(40, 20)),
		box("c", 10, 5, geometry.Pt(20, 40)),
	}
	got, err := Check(objects, Clearance{Radius: 20, Height: 20})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Object1)
	assert.Equal(t, "b", got.Object2)
	assert.Contains(t, got.String(), "clearance radius")
}

func TestCheck_RejectsMissingFootprint(t *testing.T) {
	objects := []Object{{Name: "flat", Footprint: geometry.Polygon{geometry.Pt(0, 0)}, Instances: []geometry.Point{{}}}}
	_, err := Check(objects, Clearance{Radius: 20, Height: 20})
	assert.ErrorIs(t, err, ErrNoFootprint)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "horizontal", Horizontal.String())
	assert.Equal(t, "vertical", Vertical.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
