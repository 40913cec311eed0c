package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
)

const yamlScene = `
wipe_tower:
  x: 150
  y: 120
objects:
  - name: cube
    config:
      layer_height: 0.3
      brim_width: 4
    instances:
      - {x: 50, y: 50}
      - {x: 100, y: 50}
    volumes:
      - name: body
        config:
          perimeters: 3
          infill_extruder: 2
        sections:
          - bottom: 0
            top: 10
            outline: [[-10, -10], [10, -10], [10, 10], [-10, 10]]
  - name: pin
    instances:
      - {x: 0, y: 0}
    volumes:
      - sections:
          - bottom: 0
            top: 30
            outline: [[-2, -2], [-2, 2], [2, 2], [2, -2]]
`

const tomlScene = `
[[objects]]
name = "cube"

[objects.config]
layer_height = 0.3

[[objects.instances]]
x = 50.0
y = 50.0

[[objects.volumes]]
name = "body"

[[objects.volumes.sections]]
bottom = 0.0
top = 10.0
outline = [[-10.0, -10.0], [10.0, -10.0], [10.0, 10.0], [-10.0, 10.0]]
`

func TestParseScene_YAML(t *testing.T) {
	m, err := ParseScene([]byte(yamlScene), "yaml")
	require.NoError(t, err)
	require.Len(t, m.Objects, 2)

	assert.Equal(t, WipeTowerPlacement{X: 150, Y: 120}, m.WipeTower)

	cube := m.Objects[0]
	assert.Equal(t, "cube", cube.Name)
	assert.Equal(t, DerivedObjectID("cube"), cube.ID)
	assert.Len(t, cube.Instances, 2)
	assert.Equal(t, geometry.Pt(100, 50), cube.Instances[1].Shift())
	assert.InDelta(t, 10.0, cube.Height(), 1e-9)

	oc, err := cube.ResolveConfig(config.DefaultObjectConfig())
	require.NoError(t, err)
	assert.InDelta(t, 0.3, oc.LayerHeight, 1e-9)
	assert.InDelta(t, 4.0, oc.BrimWidth, 1e-9)
	assert.True(t, oc.SupportMaterialAuto, "defaults survive overrides")

	rc, err := cube.Volumes[0].ResolveRegion(config.DefaultRegionConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, rc.Perimeters)
	assert.Equal(t, 2, rc.InfillExtruder)

	pin := m.Objects[1]
	assert.Equal(t, "volume-1", pin.Volumes[0].Name)
	poly := pin.Volumes[0].Sections[0].Polygon()
	assert.True(t, poly.IsCCW(), "clockwise outlines are normalized")

	assert.Equal(t, []string{"brim_width", "infill_extruder", "layer_height", "perimeters"}, m.OverrideKeys())
	assert.Same(t, pin, m.Object(pin.ID))
}

func TestParseScene_TOML(t *testing.T) {
	m, err := ParseScene([]byte(tomlScene), "toml")
	require.NoError(t, err)
	require.Len(t, m.Objects, 1)
	assert.Equal(t, DefaultWipeTowerPlacement(), m.WipeTower)

	oc, err := m.Objects[0].ResolveConfig(config.DefaultObjectConfig())
	require.NoError(t, err)
	assert.InDelta(t, 0.3, oc.LayerHeight, 1e-9)
	assert.InDelta(t, 400.0, m.Objects[0].Volumes[0].Sections[0].Polygon().Area(), 1e-6)
}

func TestParseScene_Errors(t *testing.T) {
	tests := []struct {
		name    string
		scene   string
		wantErr error
	}{
		{
			name:    "no instances",
			scene:   "objects:\n  - name: a\n    volumes:\n      - sections: [{bottom: 0, top: 1, outline: [[0,0],[1,0],[1,1]]}]\n",
			wantErr: ErrNoInstances,
		},
		{
			name:    "no volumes",
			scene:   "objects:\n  - name: a\n    instances: [{x: 0, y: 0}]\n",
			wantErr: ErrNoVolumes,
		},
		{
			name:    "inverted section",
			scene:   "objects:\n  - name: a\n    instances: [{x: 0, y: 0}]\n    volumes:\n      - sections: [{bottom: 2, top: 1, outline: [[0,0],[1,0],[1,1]]}]\n",
			wantErr: ErrBadSection,
		},
		{
			name:    "degenerate outline",
			scene:   "objects:\n  - name: a\n    instances: [{x: 0, y: 0}]\n    volumes:\n      - sections: [{bottom: 0, top: 1, outline: [[0,0],[1,0],[2,0]]}]\n",
			wantErr: ErrBadSection,
		},
		{
			name:    "bad id",
			scene:   "objects:\n  - name: a\n    id: nope\n",
			wantErr: ErrInvalidObjectID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScene([]byte(tt.scene), "yaml")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseScene_DuplicateObjects(t *testing.T) {
	scene := "objects:\n  - name: a\n  - name: a\n"
	_, err := ParseScene([]byte(scene), "yaml")
	assert.ErrorContains(t, err, "duplicate object")
}

func TestLoadScene(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlScene), 0o600))

	m, err := LoadScene(path)
	require.NoError(t, err)
	assert.Len(t, m.Objects, 2)

	_, err = LoadScene(filepath.Join(dir, "scene.obj"))
	assert.Error(t, err)
}

func TestVolume_SliceAt(t *testing.T) {
	v := Volume{Sections: []Section{
		{Bottom: 0, Top: 5, Outline: [][]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}}},
		{Bottom: 5, Top: 8, Outline: [][]float64{{2, 2}, {8, 2}, {8, 8}, {2, 8}}},
	}}

	assert.Len(t, v.SliceAt(0.1), 1)
	assert.InDelta(t, 100.0, v.SliceAt(4.9)[0].Area(), 1e-9)
	assert.InDelta(t, 36.0, v.SliceAt(5)[0].Area(), 1e-9)
	assert.Empty(t, v.SliceAt(8))
}

func TestObjectID(t *testing.T) {
	a := NewObjectID()
	b, err := ParseObjectID(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a.ShortID(), 8)
	assert.False(t, a.IsZero())
	assert.True(t, ObjectID{}.IsZero())
	assert.Equal(t, DerivedObjectID("x"), DerivedObjectID("x"))
	assert.NotEqual(t, DerivedObjectID("x"), DerivedObjectID("y"))
}
